package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sjsage522/silkdeal/config"
	"sjsage522/silkdeal/internal/browser"
	"sjsage522/silkdeal/internal/crawler"
	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/logger"
	"sjsage522/silkdeal/services/worker"
)

func main() {
	// Initialize logger first
	logger.Init()

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.LogError("main", err, "Exited with error")
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "silkdeal",
		Short:         "Page through deal listings in a headless browser and publish every deal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCrawlCommand(), newProfilesCommand())
	return root
}

type crawlFlags struct {
	profiles   []string
	startURL   string
	output     string
	maxPages   int
	retries    int
	headless   bool
	interval   time.Duration
	screenshot string
}

func newCrawlCommand() *cobra.Command {
	var flags crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runCrawl(cmd.Context(), cfg)
		},
	}

	flags.register(cmd)
	return cmd
}

// register binds the crawl flags to cmd.
func (f *crawlFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVarP(&f.profiles, "profile", "p", nil, "profiles to crawl (overrides PROFILES)")
	fs.StringVar(&f.startURL, "start-url", "", "start URL for a single profile (overrides START_URL)")
	fs.StringVarP(&f.output, "output", "o", "", `JSON lines output file, "-" for stdout (overrides OUTPUT_FILE)`)
	fs.IntVar(&f.maxPages, "max-pages", 0, "stop after this many views, 0 for no limit (overrides MAX_PAGES)")
	fs.IntVar(&f.retries, "retries", 0, "retries of a failed advance (overrides TRANSIENT_RETRIES)")
	fs.BoolVar(&f.headless, "headless", true, "run Chrome headless (overrides HEADLESS)")
	fs.DurationVar(&f.interval, "interval", 0, "repeat every interval, e.g. 10m (overrides CRAWL_INTERVAL)")
	fs.StringVar(&f.screenshot, "screenshot-dir", "", "save a screenshot of each first view here (overrides SCREENSHOT_DIR)")
}

// apply copies explicitly set flags over the environment configuration.
func (f crawlFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.Profiles = f.profiles
	}
	if flags.Changed("start-url") {
		cfg.StartURL = f.startURL
	}
	if flags.Changed("output") {
		cfg.OutputFile = f.output
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages = f.maxPages
	}
	if flags.Changed("retries") {
		cfg.TransientRetries = f.retries
	}
	if flags.Changed("headless") {
		cfg.Headless = f.headless
	}
	if flags.Changed("screenshot-dir") {
		cfg.ScreenshotDir = f.screenshot
	}
	if flags.Changed("interval") {
		cfg.CrawlInterval = f.interval
	}
}

func runCrawl(ctx context.Context, cfg *config.Config) error {
	log := logger.Default

	targets, err := crawler.CreateTargets(cfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Strs("profiles", cfg.Profiles).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Cleanup()

	if cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(cfg.ScreenshotDir, 0o755); err != nil {
			return fmt.Errorf("create screenshot directory: %w", err)
		}
	}

	w := worker.NewWorker(targets, services.Publisher, newSessionFactory(cfg), worker.Options{
		CrawlInterval: cfg.CrawlInterval,
		Pager: pager.Options{
			Humanize:         cfg.Humanize,
			MaxPages:         cfg.MaxPages,
			TransientRetries: cfg.TransientRetries,
		},
		NewDelay: func() pager.Delay {
			return pager.NewHumanDelay(cfg.DownloadDelay)
		},
		ScreenshotDir:  cfg.ScreenshotDir,
		Proxies:        services.Proxies,
		LogFirstRecord: !cfg.IsProduction(),
	})

	log.Info().Int("target_count", len(targets)).Msg("Starting deal worker")
	if err := w.Start(ctx); err != nil {
		return err
	}
	log.Info().Msg("Shutting down gracefully...")
	return nil
}

// newSessionFactory opens one Chrome session per run with the configured options.
func newSessionFactory(cfg *config.Config) worker.SessionFactory {
	return func(ctx context.Context, proxyServer string) (worker.Session, error) {
		opts := browser.DefaultOptions()
		opts.Headless = cfg.Headless
		opts.ExecPath = cfg.ChromePath
		opts.UserAgent = cfg.UserAgent
		opts.ProxyServer = proxyServer
		opts.InitialWait = cfg.InitialWait
		opts.ObeyRobots = cfg.ObeyRobots

		s, err := browser.Open(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in and file profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			catalog, err := crawler.Catalog(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range crawler.Names(catalog) {
				fmt.Fprintf(out, "%s\t%s\n", name, catalog[name].StartURL)
			}
			return nil
		},
	}
}
