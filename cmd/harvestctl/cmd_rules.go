package main

import (
	"errors"

	"github.com/spf13/cobra"

	"agrichain/advisor/pkg/catalog"
)

func newRulesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Seed and query spoilage rules",
	}
	cmd.AddCommand(newRulesSeedCmd(opts), newRulesMatchCmd(opts))
	return cmd
}

func newRulesSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the embedded ICAR/AGROVOC rule catalog into sqlite",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			rules, err := catalog.Rules()
			if err != nil {
				return err
			}
			n, err := app.Rules.Seed(cmd.Context(), rules)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]int{"seeded": n})
		},
	}
}

func newRulesMatchCmd(opts *options) *cobra.Command {
	var (
		crop                  string
		temperature, humidity float64
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "List rules for a crop, optionally filtered by temperature and humidity",
		Long: `Without --temp/--humidity every rule of the crop is listed. With both flags
only rules whose ranges contain the reading are returned, most severe first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			withTemp := cmd.Flags().Changed("temp")
			withHumidity := cmd.Flags().Changed("humidity")
			if withTemp != withHumidity {
				return errors.New("--temp and --humidity must be provided together")
			}

			app, cfg, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if !withTemp {
				rules, err := app.Rules.List(cmd.Context(), crop)
				if err != nil {
					return err
				}
				return writeJSON(cmd, rules)
			}

			rules, err := app.Rules.Match(cmd.Context(), crop, temperature, humidity, cfg.Advisor.RuleLimit)
			if err != nil {
				return err
			}
			return writeJSON(cmd, rules)
		},
	}

	f := cmd.Flags()
	f.StringVar(&crop, "crop", "", "Crop (tomato|onion)")
	f.Float64Var(&temperature, "temp", 0, "Temperature in °C")
	f.Float64Var(&humidity, "humidity", 0, "Relative humidity in %")
	_ = cmd.MarkFlagRequired("crop")
	return cmd
}
