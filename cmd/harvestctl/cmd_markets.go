package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/catalog"
	"agrichain/advisor/pkg/infra/redis"
)

func newMarketsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Compare markets and publish price snapshots",
	}
	cmd.AddCommand(newMarketsCompareCmd(opts), newMarketsPublishCmd(opts))
	return cmd
}

func newMarketsCompareCmd(opts *options) *cobra.Command {
	var (
		crop   string
		farmer model.Location
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Price statistics across all markets for a crop",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cmp, err := app.Markets.Compare(cmd.Context(), crop, farmer)
			if err != nil {
				return err
			}
			return writeJSON(cmd, cmp)
		},
	}

	f := cmd.Flags()
	f.StringVar(&crop, "crop", "", "Crop (tomato|onion)")
	f.Float64Var(&farmer.Latitude, "lat", 0, "Farmer latitude")
	f.Float64Var(&farmer.Longitude, "lon", 0, "Farmer longitude")
	_ = cmd.MarkFlagRequired("crop")
	return cmd
}

func newMarketsPublishCmd(opts *options) *cobra.Command {
	var (
		crop string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write the catalog prices of the primary source into redis",
		Long: `Copies the embedded market catalog for advisor.primary_market_source into the
redis price snapshot read by workers. Requires redis.addr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Redis == nil {
				return errors.New("redis.addr is not configured")
			}

			static, err := catalog.NewStaticProvider(cfg.Advisor.PrimaryMarketSource)
			if err != nil {
				return err
			}
			markets, err := static.Fetch(cmd.Context(), crop)
			if err != nil {
				return err
			}

			dst := redis.NewPriceSource(app.Redis, cfg.Redis.PriceKeyPrefix, cfg.Advisor.PrimaryMarketSource)
			if err := dst.SetPrices(cmd.Context(), crop, markets, ttl); err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{"key": dst.Key(crop), "markets": len(markets)})
		},
	}

	f := cmd.Flags()
	f.StringVar(&crop, "crop", "", "Crop (tomato|onion)")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "Snapshot TTL (0: no expiry)")
	_ = cmd.MarkFlagRequired("crop")
	return cmd
}
