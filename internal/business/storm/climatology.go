package storm

import (
	"time"

	"agrichain/advisor/common/model"
)

// ClimatologySource 气候均值数据源名称
const ClimatologySource = "Historical_Average"

const climatologyDays = 8

type band struct {
	tempMax, tempMin float64
	humidity         float64
	probability      float64
	amount           float64
}

var (
	monsoon = band{tempMax: 30, tempMin: 24, humidity: 85, probability: 0.7, amount: 15}
	winter  = band{tempMax: 25, tempMin: 15, humidity: 60, probability: 0.1, amount: 2}
	summer  = band{tempMax: 38, tempMin: 25, humidity: 50, probability: 0.2, amount: 3}
)

// bandFor 季风 6-9 月，冬季 12-2 月，其余为夏季
func bandFor(month time.Month) band {
	switch {
	case month >= time.June && month <= time.September:
		return monsoon
	case month == time.December || month == time.January || month == time.February:
		return winter
	default:
		return summer
	}
}

// Climatology 从 start 起 8 天的季节均值序列，每天按自身月份取值
func Climatology(start time.Time) []model.WeatherDay {
	days := make([]model.WeatherDay, 0, climatologyDays)
	for i := 0; i < climatologyDays; i++ {
		date := start.AddDate(0, 0, i)
		b := bandFor(date.Month())
		days = append(days, model.WeatherDay{
			Date:              date.Format("2006-01-02"),
			TempMax:           b.tempMax,
			TempMin:           b.tempMin,
			Humidity:          b.humidity,
			PrecipProbability: b.probability,
			PrecipAmount:      b.amount,
			Condition:         "historical_average",
			WindSpeed:         10,
		})
	}
	return days
}
