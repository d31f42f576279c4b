package main

import (
	"fmt"

	"escapade/internal/common/config"
	providerhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/csvio"
	"escapade/internal/livesearch"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var placesOutput string

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Download the provider's place catalogue to CSV",
	Long: `places runs one autosuggest lookup per letter, removes duplicate place ids and
writes the catalogue to CSV. The file can be passed back with --places to reject
queries whose origin or destination is not a known place.`,
	Args: cobra.NoArgs,
	RunE: runPlaces,
}

func init() {
	placesCmd.Flags().StringVarP(&placesOutput, "output", "o", "places.csv", "CSV file to write the catalogue to")
	rootCmd.AddCommand(placesCmd)
}

func runPlaces(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewStructured(logLevel, "console", "stderr")

	client := providerhttp.NewClient(
		config.GetDuration(cfg.Provider.Timeout),
		providerhttp.WithAuth(cfg.Provider.Host, cfg.Provider.APIKey),
		providerhttp.WithRateLimit(cfg.Provider.RequestsPerSecond, cfg.Provider.Burst),
	)
	places := livesearch.NewPlacesClient(client, livesearch.ConfigFrom(cfg.Provider, cfg.Search), log)

	spinner, _ := pterm.DefaultSpinner.Start("Fetching place catalogue...")
	catalogue, err := places.All(cmd.Context(), cfg.Search.DefaultCountry, cfg.Search.DefaultCurrency, cfg.Search.DefaultLocale)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("Found %d places", len(catalogue)))
	}

	if err := csvio.WritePlacesFile(placesOutput, catalogue); err != nil {
		return fmt.Errorf("write places: %w", err)
	}
	pterm.Success.Printfln("Wrote %d places to %s", len(catalogue), placesOutput)
	return nil
}
