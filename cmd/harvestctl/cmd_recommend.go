package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/business"
)

func newRecommendCmd(opts *options) *cobra.Command {
	var (
		input    business.RecommendInput
		language string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Compute a harvest recommendation for one field",
		Long: `Fan out satellite cache, weather, spoilage rules and market prices for the
given field and print the synthesized recommendation with its intermediates.

Weather falls back to historical averages unless openweather.api_key is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Crop = strings.ToLower(strings.TrimSpace(input.Crop))
			input.Locale = model.ParseLocale(language)
			if err := validateInput(&input); err != nil {
				return err
			}
			if input.RequestID == "" {
				input.RequestID = uuid.NewString()
			}

			app, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			bundle, err := app.Service.Recommend(cmd.Context(), &input)
			if err != nil {
				return err
			}
			return writeJSON(cmd, model.RecommendationCallback{
				RequestID:      input.RequestID,
				FarmerID:       input.FarmerID,
				Crop:           input.Crop,
				Status:         model.CallbackStatusSuccess,
				Recommendation: bundle.Recommendation,
				Spoilage:       bundle.Spoilage,
				Market:         bundle.Market,
				Weather:        bundle.Weather,
				ProcessedAt:    bundle.Recommendation.Timestamp.Unix(),
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.FarmerID, "farmer", "cli", "Farmer id")
	f.StringVar(&input.Crop, "crop", "", "Crop (tomato|onion)")
	f.Float64Var(&input.Location.Latitude, "lat", 0, "Field latitude")
	f.Float64Var(&input.Location.Longitude, "lon", 0, "Field longitude")
	f.Float64Var(&input.FieldSize, "field-size", 1, "Field size in hectares")
	f.StringVar(&language, "lang", "en", "Output language (en|hi)")
	f.StringVar(&input.RequestID, "request-id", "", "Request id (default: random uuid)")
	_ = cmd.MarkFlagRequired("crop")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func validateInput(in *business.RecommendInput) error {
	switch {
	case in.Crop != "tomato" && in.Crop != "onion":
		return fmt.Errorf("--crop must be tomato or onion, got %q", in.Crop)
	case in.Location.Latitude < -90 || in.Location.Latitude > 90:
		return fmt.Errorf("--lat must be within [-90, 90]")
	case in.Location.Longitude < -180 || in.Location.Longitude > 180:
		return fmt.Errorf("--lon must be within [-180, 180]")
	case in.FieldSize <= 0:
		return fmt.Errorf("--field-size must be positive")
	}
	return nil
}
