package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	MySQL       MySQLConfig       `mapstructure:"mysql"`
	SQLite      SQLiteConfig      `mapstructure:"sqlite"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Lmstfy      LmstfyConfig      `mapstructure:"lmstfy"`
	Advisor     AdvisorConfig     `mapstructure:"advisor"`
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	Workers     []WorkerConfig    `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// MySQLConfig MySQL 配置（卫星缓存），dsn 为空时退回 sqlite
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SQLiteConfig 本地规则库与缓存
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	NotifyChannel  string `mapstructure:"notify_channel"`   // 建议完成通知频道
	PriceKeyPrefix string `mapstructure:"price_key_prefix"` // 行情快照 key 前缀
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// AdvisorConfig 决策引擎参数
type AdvisorConfig struct {
	CacheTTLDays          int           `mapstructure:"cache_ttl_days"`
	StaleCacheDays        int           `mapstructure:"stale_cache_days"`
	RuleLimit             int           `mapstructure:"rule_limit"`
	TransportCostPerKm    float64       `mapstructure:"transport_cost_per_km"`
	ConsiderDistance      bool          `mapstructure:"consider_distance"`
	PrimaryMarketSource   string        `mapstructure:"primary_market_source"`
	SecondaryMarketSource string        `mapstructure:"secondary_market_source"`
	SatelliteRefreshQueue string        `mapstructure:"satellite_refresh_queue"` // 为空则不投递刷新任务
	BranchTimeout         time.Duration `mapstructure:"branch_timeout"`          // 0 表示只受父 ctx 约束
}

// OpenWeatherConfig 天气预报接口
type OpenWeatherConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// setDefaults 决策引擎默认参数
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("sqlite.path", "advisor.db")
	v.SetDefault("redis.notify_channel", "harvest:recommendation:complete")
	v.SetDefault("redis.price_key_prefix", "market:prices:")
	v.SetDefault("advisor.cache_ttl_days", 7)
	v.SetDefault("advisor.stale_cache_days", 3)
	v.SetDefault("advisor.rule_limit", 5)
	v.SetDefault("advisor.transport_cost_per_km", 2.0)
	v.SetDefault("advisor.consider_distance", false)
	v.SetDefault("advisor.primary_market_source", "Agmarknet")
	v.SetDefault("advisor.secondary_market_source", "AIKosh")
	v.SetDefault("advisor.branch_timeout", 10*time.Second)
	v.SetDefault("openweather.base_url", "https://api.openweathermap.org/data/3.0/onecall")
	v.SetDefault("openweather.timeout", 5*time.Second)
}

// Load 加载配置文件，环境变量 ADVISOR_* 覆盖同名配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证 worker 进程所需配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	return c.Advisor.Validate()
}

// Validate 验证决策引擎参数
func (a AdvisorConfig) Validate() error {
	if a.CacheTTLDays <= 0 {
		return fmt.Errorf("advisor.cache_ttl_days must be positive")
	}
	if a.RuleLimit <= 0 {
		return fmt.Errorf("advisor.rule_limit must be positive")
	}
	if a.TransportCostPerKm < 0 {
		return fmt.Errorf("advisor.transport_cost_per_km must not be negative")
	}
	if a.PrimaryMarketSource == "" || a.SecondaryMarketSource == "" {
		return fmt.Errorf("advisor market sources are required")
	}
	return nil
}
