package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"agrichain/advisor/internal/business/geocache"
)

const dateLayout = "2006-01-02"

// cacheKey 三个 cache 子命令共用的定位参数
type cacheKey struct {
	latitude, longitude float64
	date                string
}

func (k *cacheKey) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&k.latitude, "lat", 0, "Latitude")
	f.Float64Var(&k.longitude, "lon", 0, "Longitude")
	f.StringVar(&k.date, "date", "", "Date YYYY-MM-DD (default: today UTC)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func (k *cacheKey) day() (time.Time, error) {
	if k.date == "" {
		return geocache.DateOnly(time.Now().UTC()), nil
	}
	return time.Parse(dateLayout, k.date)
}

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Read and write satellite cache entries",
	}
	cmd.AddCommand(newCachePutCmd(opts), newCacheGetCmd(opts), newCachePruneCmd(opts))
	return cmd
}

func newCachePutCmd(opts *options) *cobra.Command {
	var (
		key                            cacheKey
		ndvi, soilMoisture, rainfallMM float64
		source                         string
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Write a satellite reading (expires after advisor.cache_ttl_days)",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := key.day()
			if err != nil {
				return err
			}

			app, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			var sources map[string]interface{}
			if source != "" {
				sources = map[string]interface{}{"ndvi": source}
			}
			entry, err := app.GeoCache.Update(cmd.Context(), key.latitude, key.longitude, day,
				ndvi, soilMoisture, rainfallMM, sources)
			if err != nil {
				return err
			}
			return writeJSON(cmd, entry)
		},
	}

	key.bind(cmd)
	f := cmd.Flags()
	f.Float64Var(&ndvi, "ndvi", 0, "NDVI [0,1]")
	f.Float64Var(&soilMoisture, "soil-moisture", 0, "Soil moisture [0,100]")
	f.Float64Var(&rainfallMM, "rainfall", 0, "Rainfall in mm")
	f.StringVar(&source, "source", "", "NDVI data source label")
	_ = cmd.MarkFlagRequired("ndvi")
	return cmd
}

func newCacheGetCmd(opts *options) *cobra.Command {
	var key cacheKey

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read a non-expired satellite reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := key.day()
			if err != nil {
				return err
			}

			app, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			entry, err := app.GeoCache.Get(cmd.Context(), key.latitude, key.longitude, day)
			if err != nil {
				return err
			}
			if entry == nil {
				return errors.New("no cached reading")
			}
			return writeJSON(cmd, entry)
		},
	}

	key.bind(cmd)
	return cmd
}

func newCachePruneCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete entries whose expires_at has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Cache.DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]int64{"deleted": n})
		},
	}
}
