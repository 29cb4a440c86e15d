// Command reelscout searches Instagram accounts by keyword through HikerAPI,
// enriches each with its profile and recent reels, ranks the top reels by
// view count and writes JSONL plus CSV outputs. The run is best-effort:
// individual account failures are logged and skipped, and interrupting the
// run still flushes whatever was collected.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/FranksOps/reelscout/internal/errlog"
	"github.com/FranksOps/reelscout/internal/export"
	"github.com/FranksOps/reelscout/internal/fingerprint"
	"github.com/FranksOps/reelscout/internal/hiker"
	"github.com/FranksOps/reelscout/internal/metrics"
	"github.com/FranksOps/reelscout/internal/pipeline"
	"github.com/FranksOps/reelscout/internal/probe"
	"github.com/FranksOps/reelscout/internal/report"
	"github.com/FranksOps/reelscout/internal/store"
	"github.com/FranksOps/reelscout/internal/store/postgres"
	"github.com/FranksOps/reelscout/internal/store/sqlite"
	"github.com/FranksOps/reelscout/pkg/proxy"
	"github.com/FranksOps/reelscout/pkg/ratelimit"
)

func main() {
	var (
		query        string
		token        string
		maxAccounts  int
		recentReels  int
		topK         int
		concurrency  int
		rps          float64
		timeout      time.Duration
		outputPrefix string
		requireMatch bool
		probeLinks   bool
		proxyFile    string
		dbDSN        string
		metricsPort  int
		verbose      bool
	)

	flag.StringVar(&query, "query", "", "keyword to search accounts for (required)")
	flag.StringVar(&token, "token", "", "HikerAPI access key (falls back to HIKER_API_TOKEN, then HIKER_API_KEY)")
	flag.IntVar(&maxAccounts, "max-accounts", 200, "maximum accounts to collect from search")
	flag.IntVar(&recentReels, "recent-reels", 50, "recent reels to fetch per account")
	flag.IntVar(&topK, "top-k", 10, "top reels by views to keep per account")
	flag.IntVar(&concurrency, "concurrency", 10, "simultaneous account enrichments")
	flag.Float64Var(&rps, "rps", 0, "API requests per second limit (0 = unlimited)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "per-request API timeout")
	flag.StringVar(&outputPrefix, "output-prefix", filepath.Join("outputs", "instagram_accounts"), "prefix for output files")
	flag.BoolVar(&requireMatch, "require-match", false, "keep only accounts whose profile text mentions the query")
	flag.BoolVar(&probeLinks, "probe-links", false, "probe each kept account's external URL")
	flag.StringVar(&proxyFile, "proxies", "", "file with proxy URLs for link probing, one per line")
	flag.StringVar(&dbDSN, "db", "", "persist records to a database (sqlite path or postgres:// DSN)")
	flag.IntVar(&metricsPort, "metrics-port", 0, "expose Prometheus metrics on this port (0 = off)")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if query == "" {
		fmt.Fprintln(os.Stderr, "a search query is required")
		flag.Usage()
		os.Exit(2)
	}

	if token == "" {
		token = os.Getenv("HIKER_API_TOKEN")
	}
	if token == "" {
		token = os.Getenv("HIKER_API_KEY")
	}
	if token == "" {
		logger.Error("no HikerAPI token: pass -token or set HIKER_API_TOKEN")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, runOptions{
		query:        query,
		token:        token,
		maxAccounts:  maxAccounts,
		recentReels:  recentReels,
		topK:         topK,
		concurrency:  concurrency,
		rps:          rps,
		timeout:      timeout,
		outputPrefix: outputPrefix,
		requireMatch: requireMatch,
		probeLinks:   probeLinks,
		proxyFile:    proxyFile,
		dbDSN:        dbDSN,
		metricsPort:  metricsPort,
	}); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	query        string
	token        string
	maxAccounts  int
	recentReels  int
	topK         int
	concurrency  int
	rps          float64
	timeout      time.Duration
	outputPrefix string
	requireMatch bool
	probeLinks   bool
	proxyFile    string
	dbDSN        string
	metricsPort  int
}

func run(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	base, err := export.BasePath(opts.outputPrefix)
	if err != nil {
		return err
	}

	elog, err := errlog.Open(filepath.Join(filepath.Dir(base), "error_log.jsonl"))
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	defer elog.Close()

	var limiter *ratelimit.Limiter
	if opts.rps > 0 {
		limiter = ratelimit.NewLimiter(opts.rps, 0.1)
		defer limiter.Stop()
	}

	client, err := hiker.New(hiker.Config{
		Token:   opts.token,
		Timeout: opts.timeout,
		Limiter: limiter,
		ErrLog:  elog,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var backend store.Backend
	if opts.dbDSN != "" {
		backend, err = openStore(ctx, opts.dbDSN)
		if err != nil {
			return err
		}
		defer backend.Close()
	}

	var prober *probe.Prober
	if opts.probeLinks {
		var proxies *proxy.Pool
		if opts.proxyFile != "" {
			proxies = proxy.NewPool(proxy.Config{})
			if err := proxies.LoadFile(opts.proxyFile); err != nil {
				return fmt.Errorf("load proxies: %w", err)
			}
		}
		prober, err = probe.New(probe.Config{
			Fingerprint: fingerprint.ProfileChrome,
			Proxies:     proxies,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("init link prober: %w", err)
		}
	}

	var msrv *metrics.Server
	if opts.metricsPort > 0 {
		msrv = metrics.Start(opts.metricsPort)
		logger.Info("metrics server listening", "port", opts.metricsPort)
		defer msrv.Stop(context.Background())
	}

	p := pipeline.New(client, pipeline.Config{
		Query:        opts.query,
		MaxAccounts:  opts.maxAccounts,
		RecentReels:  opts.recentReels,
		TopK:         opts.topK,
		Concurrency:  opts.concurrency,
		RequireMatch: opts.requireMatch,
		Store:        backend,
		Prober:       prober,
		Logger:       logger,
	})

	outcome, runErr := p.Run(ctx)
	if runErr != nil {
		// A cancelled run still produced partial results worth writing.
		logger.Warn("run interrupted", "error", runErr)
	}
	if outcome == nil {
		return runErr
	}

	paths, err := export.WriteAll(base, outcome.Results)
	if err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	for _, p := range paths {
		logger.Info("wrote output", "path", p)
	}

	summary := report.GenerateSummary(outcome)
	if err := report.WriteText(os.Stderr, summary); err != nil {
		logger.Warn("write summary", "error", err)
	}

	return runErr
}

// openStore picks a backend by DSN shape: postgres URLs and key=value DSNs go
// to pgx, anything else is treated as a sqlite path.
func openStore(ctx context.Context, dsn string) (store.Backend, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return postgres.New(ctx, dsn)
	}
	return sqlite.New(dsn)
}
