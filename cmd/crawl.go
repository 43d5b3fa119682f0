package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/checklisting/crawler/internal/clock/system"
	"github.com/checklisting/crawler/internal/config"
	"github.com/checklisting/crawler/internal/crawler"
	collyfetcher "github.com/checklisting/crawler/internal/fetcher/colly"
	"github.com/checklisting/crawler/internal/metrics"
	"github.com/checklisting/crawler/internal/report"
	filesink "github.com/checklisting/crawler/internal/sink/file"
	"github.com/checklisting/crawler/internal/source/ebird"
	"github.com/checklisting/crawler/internal/source/worldbirds"
)

// newCrawlCmd creates the 'crawl' command and its per-source subcommands.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one of the supported databases",
	}
	cmd.AddCommand(newEBirdCmd(), newWorldBirdsCmd())
	return cmd
}

func newEBirdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ebird",
		Short: "Download recent checklists from eBird",
		Long: `Fetches the recent observations for the configured eBird region
through the API and, unless disabled, enriches each checklist with the
fields only present on its web page before writing it out.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, "eBird", func(cfg config.Config, scheduler crawler.Scheduler, sink crawler.Sink, logger *zap.Logger) (runner, error) {
				return ebird.New(ebird.Config{
					Region:         cfg.EBird.Region,
					LookbackDays:   cfg.LookbackDays,
					IncludeWebPage: cfg.EBird.IncludeWebPage,
				}, scheduler, sink, logger)
			})
		},
	}
}

func newWorldBirdsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worldbirds",
		Short: "Download recent checklists from WorldBirds",
		Long: `Logs in to the configured WorldBirds database, pages through the
Visit Highlights listing until the lookback cutoff, and assembles each
visit's checklist from the detail popups before writing it out.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, "WorldBirds", func(cfg config.Config, scheduler crawler.Scheduler, sink crawler.Sink, logger *zap.Logger) (runner, error) {
				return worldbirds.New(worldbirds.Config{
					Username:     cfg.WorldBirds.Username,
					Password:     cfg.WorldBirds.Password,
					Country:      cfg.WorldBirds.Country,
					LookbackDays: cfg.LookbackDays,
					MaxPages:     cfg.MaxPages,
				}, scheduler, sink, system.New(), logger)
			})
		},
	}
}

// runner is the common surface of the per-source spiders.
type runner interface {
	Run(ctx context.Context) (*crawler.Results, error)
}

type buildFunc func(config.Config, crawler.Scheduler, crawler.Sink, *zap.Logger) (runner, error)

func runCrawl(cmd *cobra.Command, source string, build buildFunc) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetcher.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	scheduler := crawler.NewSingleFlight(fetcher, logger)

	sink, err := filesink.New(cfg.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}
	if cfg.OutputDir == "" {
		logger.Info("no output directory configured, running without persistence")
	}

	spider, err := build(cfg, scheduler, sink, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, logger)
		defer stop()
	}

	results, err := spider.Run(cmd.Context())
	if results != nil {
		summary := report.New(source, system.New().Now(), results)
		fmt.Fprintln(cmd.OutOrStdout(), summary.Render())
	}
	if err != nil {
		return fmt.Errorf("crawl %s: %w", source, err)
	}
	logger.Info("crawl finished",
		zap.String("source", source),
		zap.Int("saved", len(results.Saved)),
		zap.Int("errors", len(results.Errors)),
	)
	return nil
}

// serveMetrics exposes the Prometheus collectors for the duration of the
// crawl. The returned function shuts the listener down.
func serveMetrics(addr string, logger *zap.Logger) func() {
	server := &http.Server{Addr: addr, Handler: metrics.Handler()}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
