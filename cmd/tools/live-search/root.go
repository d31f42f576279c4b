package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"escapade/internal/common/config"
	"escapade/internal/common/database"
	providerhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/csvio"
	"escapade/internal/livesearch"
	"escapade/internal/models"
	"escapade/internal/storage"
	slf "escapade/internal/workers/flights/search-live-flights"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	inputPath  string
	outputPath string
	configPath string
	appendOut  bool
	sequential bool
	useCache   bool
	logLevel   string
	placesPath string
)

var rootCmd = &cobra.Command{
	Use:   "live-search",
	Short: "Run live flight searches from a CSV of queries",
	Long: `live-search reads one query per CSV row (originplace, destinationplace,
outboundpartialdate, inboundpartialdate, adults, and optionally country,
currency and locale), opens one live pricing session per query and writes every
itinerary found as a flat CSV row.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV file with one search query per row")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "results.csv", "CSV file to write itineraries to")
	rootCmd.Flags().BoolVar(&appendOut, "append", false, "append to the output file instead of replacing it")
	rootCmd.Flags().BoolVar(&sequential, "sequential", false, "run queries one after another")
	rootCmd.Flags().BoolVar(&useCache, "cache", false, "reuse complete results from the configured Redis cache")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&placesPath, "places", "", "place catalogue CSV; origin and destination must appear in it")
	_ = rootCmd.MarkFlagRequired("input")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewStructured(logLevel, "console", "stderr")

	queries, err := csvio.ReadQueriesFile(inputPath, models.QueryDefaults{
		Country:  cfg.Search.DefaultCountry,
		Currency: cfg.Search.DefaultCurrency,
		Locale:   cfg.Search.DefaultLocale,
		Adults:   cfg.Search.DefaultAdults,
	})
	if err != nil {
		return fmt.Errorf("read queries: %w", err)
	}
	if len(queries) == 0 {
		pterm.Warning.Printfln("No queries found in %s", inputPath)
		return nil
	}

	// The batch tool has no per-search query cap.
	validator := slf.NewQueryValidator(0)
	if placesPath != "" {
		known, err := csvio.ReadPlaceIDsFile(placesPath)
		if err != nil {
			return fmt.Errorf("read places: %w", err)
		}
		validator.WithKnownPlaces(known)
	}
	if res := validator.Validate(queries); !res.Valid {
		for _, e := range res.Errors {
			pterm.Warning.Printfln("%s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("%d invalid query fields in %s", len(res.Errors), inputPath)
	}

	opts := []livesearch.Option{}
	if useCache {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		opts = append(opts, livesearch.WithCache(storage.NewResultCache(rdb, log)))
	}

	client := providerhttp.NewClient(
		config.GetDuration(cfg.Provider.Timeout),
		providerhttp.WithAuth(cfg.Provider.Host, cfg.Provider.APIKey),
		providerhttp.WithRateLimit(cfg.Provider.RequestsPerSecond, cfg.Provider.Burst),
	)
	coordinator := livesearch.NewCoordinator(client, livesearch.ConfigFrom(cfg.Provider, cfg.Search), log, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Searching %d queries...", len(queries)))
	start := time.Now()

	var results []models.PipelineResult
	if sequential {
		results = coordinator.SearchAllSequential(ctx, queries)
	} else {
		results = coordinator.SearchAll(ctx, queries)
	}

	if spinner != nil {
		spinner.Success(fmt.Sprintf("Searched %d queries in %s", len(queries), time.Since(start).Round(time.Millisecond)))
	}

	rows, err := csvio.WriteItinerariesFile(outputPath, results, appendOut)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	if err := renderSummary(results); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %d itineraries to %s", rows, outputPath)
	return nil
}

func renderSummary(results []models.PipelineResult) error {
	data := pterm.TableData{{"#", "Route", "Dates", "Status", "Itineraries", "Cheapest"}}
	for _, r := range results {
		dates := r.Query.OutboundDate
		if r.Query.HasInbound() {
			dates += " / " + r.Query.InboundDate
		}

		status := string(r.Status)
		if r.Cached {
			status += " (cached)"
		}
		if r.Error != nil && r.Status != models.PipelineStatusStale {
			status += ": " + r.Error.Code
		}

		data = append(data, []string{
			strconv.Itoa(r.Index),
			r.Query.OriginPlace + " → " + r.Query.DestinationPlace,
			dates,
			status,
			strconv.Itoa(r.ItineraryCount()),
			cheapest(r),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func cheapest(r models.PipelineResult) string {
	if len(r.Itineraries) == 0 {
		return "-"
	}
	prices := make([]float64, len(r.Itineraries))
	for i, it := range r.Itineraries {
		prices[i] = it.Price
	}
	sort.Float64s(prices)
	return strconv.FormatFloat(prices[0], 'f', 2, 64) + " " + r.Query.Currency
}
