package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agrichain/advisor/internal/bootstrap"
	"agrichain/advisor/pkg/config"
	"agrichain/advisor/pkg/logger"
)

// options 全局 flag
type options struct {
	configPath string
	sqlitePath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "harvestctl",
		Short: "Harvest advisor admin CLI",
		Long: `Run one-shot harvest recommendations and manage the local rule store,
satellite cache and market price snapshots.

Available subcommands:
  recommend - Compute a recommendation for one farmer field
  rules     - Seed and query spoilage rules
  cache     - Read and write satellite cache entries
  markets   - Compare markets and publish price snapshots
  callbacks - Tail recommendation callbacks from the queue`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (empty: defaults + ADVISOR_* env)")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "Override sqlite.path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Write logs to stdout")

	root.AddCommand(
		newRecommendCmd(opts),
		newRulesCmd(opts),
		newCacheCmd(opts),
		newMarketsCmd(opts),
		newCallbacksCmd(opts),
	)
	return root
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.sqlitePath != "" {
		cfg.SQLite.Path = o.sqlitePath
	}
	if err := cfg.Advisor.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) logger(cfg *config.Config) (logger.Logger, error) {
	if !o.verbose {
		return logger.NewNop(), nil
	}
	return logger.NewZapLogger(cfg.App.LogLevel)
}

// open 加载配置并组装依赖；CLI 不投递回调
func (o *options) open(ctx context.Context) (*bootstrap.App, *config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	log, err := o.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.Build(ctx, cfg, nil, log)
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
