package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/poller"
	"github.com/i474232898/weather-dashboard/internal/sse"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/buienradar"
)

const appName = "weather-dashboard"

var (
	feedURL    string
	feedMethod string
	port       string
	interval   time.Duration
	names      []string
	vizType    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Live weather station map and forecast dashboard",
		Long: `weather-dashboard polls the Buienradar feed and keeps the dashboard
state (station markers or heatmap, selection, forecast chart) in sync,
serving it over HTTP and Server-Sent Events.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&feedURL, "url", "", "Weather feed URL (overrides WEATHER_API_URL)")
	rootCmd.PersistentFlags().StringVar(&feedMethod, "method", "", "Feed request mode: GET or POST (overrides WEATHER_API_METHOD)")

	addServeCmd(rootCmd)
	addStationsCmd(rootCmd)
	addForecastCmd(rootCmd)
	return rootCmd
}

// loadConfig loads configuration and applies flag overrides.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if feedURL != "" {
		cfg.WeatherAPIURL = feedURL
	}
	if feedMethod != "" {
		cfg.WeatherAPIMethod = feedMethod
	}
	if port != "" {
		cfg.Port = port
	}
	if interval > 0 {
		cfg.PollInterval = interval
	}
	return cfg, nil
}

func newClient(cfg *config.AppConfig, log *slog.Logger, onRetry func(int, error)) *buienradar.Client {
	// Shared HTTP client for outbound feed calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	return buienradar.NewClient(httpClient, buienradar.Config{
		URL:        cfg.WeatherAPIURL,
		Mode:       cfg.WeatherAPIMethod,
		MaxRetries: cfg.FetchRetries,
		RetryDelay: cfg.FetchRetryDelay,
		OnRetry:    onRetry,
	}, log.With("component", "buienradar"))
}

// fetchBudget bounds one fetch: every attempt may use the full HTTP timeout,
// with the retry delay between attempts.
func fetchBudget(cfg *config.AppConfig) time.Duration {
	retries := time.Duration(cfg.FetchRetries)
	return cfg.HTTPTimeout*(retries+1) + cfg.FetchRetryDelay*retries
}

func addServeCmd(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the feed and serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides PORT)")
	serveCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Poll interval (overrides POLL_INTERVAL)")
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.AppConfig) error {
	log := logging.New(os.Stdout, *cfg, appName)
	slog.SetDefault(log)

	var driver *poller.Driver
	client := newClient(cfg, log, func(attempt int, err error) { driver.NoteRetry(attempt, err) })
	driver = poller.New(client, poller.Config{
		Interval: cfg.PollInterval,
		Timeout:  fetchBudget(cfg),
	}, log.With("component", "poller"))

	// In-memory snapshot history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	events := sse.NewManager(log.With("component", "sse"))

	session, err := dashboard.New(driver, memStore, events, dashboard.DefaultOptions(), log.With("component", "dashboard"))
	if err != nil {
		return fmt.Errorf("failed to create dashboard session: %w", err)
	}
	defer session.Close()

	// Basic app configuration. No write timeout: the event stream is long-lived.
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		IdleTimeout:           2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
			"polling": session.Status().State,
		})
	})

	httpapi.RegisterRoutes(app, session, log.With("component", "http"))

	if err := driver.Start(); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close streams first so the server is not held open by SSE clients.
	events.Close()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
	}
	return nil
}

// fetchOnce loads configuration and fetches a single report.
func fetchOnce(cmd *cobra.Command) (weather.Report, error) {
	cfg, err := loadConfig()
	if err != nil {
		return weather.Report{}, err
	}
	log := logging.New(cmd.ErrOrStderr(), *cfg, appName)

	ctx, cancel := context.WithTimeout(cmd.Context(), fetchBudget(cfg))
	defer cancel()

	report, err := newClient(cfg, log, nil).Fetch(ctx)
	if err != nil {
		return weather.Report{}, fmt.Errorf("%s: %w", poller.ErrorMessage(buienradar.StatusCode(err)), err)
	}
	return report, nil
}

// addStationsCmd adds a 'stations' subcommand listing current measurements.
func addStationsCmd(rootCmd *cobra.Command) {
	stationsCmd := &cobra.Command{
		Use:   "stations",
		Short: "List weather stations and their current readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := weather.ParseVisualizationType(vizType)
			if err != nil {
				return err
			}
			report, err := fetchOnce(cmd)
			if err != nil {
				return err
			}

			shown := 0
			for _, s := range report.Actual.Stations {
				if !common.ContainsAnyFold(s.Name+" "+s.Region, names...) {
					continue
				}
				value, _ := weather.ValueWithUnitFor(t, s)
				cmd.Printf("%-6d %-36s %10s  %s\n", s.StationID, s.Name, value, weather.ColorFor(t, weather.ValueFor(t, s)))
				shown++
			}
			if shown == 0 {
				cmd.Println("No matching stations.")
			}
			return nil
		},
	}
	stationsCmd.Flags().StringSliceVarP(&names, "name", "n", nil, "Only show stations whose name or region contains one of these terms")
	stationsCmd.Flags().StringVarP(&vizType, "type", "t", string(weather.VisualizationTemperature), "Measurement to show: temperature, wind or pressure")
	rootCmd.AddCommand(stationsCmd)
}

// addForecastCmd adds a 'forecast' subcommand printing the five-day forecast.
func addForecastCmd(rootCmd *cobra.Command) {
	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print the five-day forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := fetchOnce(cmd)
			if err != nil {
				return err
			}

			days := report.Forecast.FiveDay
			labels := weather.DayLabels(days)
			maxTemps := weather.MaxTemperatures(days)
			minTemps := weather.MinTemperatures(days)
			rain := weather.RainChances(days)
			for i := range days {
				cmd.Printf("%s  max %5.1f°C  min %5.1f°C  rain %3.0f%%\n", labels[i], maxTemps[i], minTemps[i], rain[i])
			}
			if summary := report.Forecast.Report.Summary; summary != "" {
				cmd.Println()
				cmd.Println(summary)
			}
			return nil
		},
	}
	rootCmd.AddCommand(forecastCmd)
}
