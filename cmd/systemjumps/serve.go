package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/caeruleus1F/systemjumps/internal/analytics"
	"github.com/caeruleus1F/systemjumps/internal/config"
	"github.com/caeruleus1F/systemjumps/internal/doccache"
	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/eveapi"
	"github.com/caeruleus1F/systemjumps/internal/fetcher"
	"github.com/caeruleus1F/systemjumps/internal/ingest"
	"github.com/caeruleus1F/systemjumps/internal/metrics"
	"github.com/caeruleus1F/systemjumps/internal/runner"
	"github.com/caeruleus1F/systemjumps/internal/scheduler"
	"github.com/caeruleus1F/systemjumps/internal/store/sqlstore"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start polling",
	Long: `Start the poller. The first attempt runs immediately; later attempts follow
the feed's cache window. Send SIGHUP to request an attempt right away.
The process runs until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	closeLog, err := setupLogOutput(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logConfigWarnings(&cfg)

	dialect, err := sqlstore.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg.DBDriver, cfg.DSN(), cfg.DBOpTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	var sink metrics.Sink = metrics.NewNoopSink()
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		metricsServer = startMetricsServer(cfg.MetricsAddr(), cfg.MetricsPath)
	} else {
		log.Println("systemjumps: METRICS_ENABLED not set; metrics disabled")
	}

	cache := doccache.New(cfg.CachePath, eveapi.Parse)
	f := fetcher.New(
		fetcher.Config{URL: cfg.SourceURL, SafetyMargin: cfg.SafetyMargin},
		eveapi.NewClient(cfg.FetchTimeout),
		eveapi.Parse,
		cache,
	).WithMetrics(sink)

	ing := ingest.New(
		ingest.Config{TableName: cfg.TableName, NamingMode: domain.TableNamingMode(cfg.TableNamingMode)},
		sqlstore.New(db, dialect, cfg.DBOpTimeout),
	).WithMetrics(sink)

	r := runner.New(f, ing)

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		r = r.WithHistory(analytics.NewRedisSink(redisClient, cfg.History()).WithMetrics(sink))
		log.Printf("systemjumps: pull history enabled (redis=%s, retention=%s)", cfg.RedisAddr, cfg.HistoryRetention)
	} else {
		log.Println("systemjumps: REDIS_ADDR not set; pull history disabled")
	}

	sched := scheduler.New(scheduler.Config{RetryInterval: cfg.RetryInterval}, r).WithMetrics(sink)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresh := make(chan os.Signal, 1)
	signal.Notify(refresh, syscall.SIGHUP)
	defer signal.Stop(refresh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh:
				if sched.Trigger() {
					log.Println("systemjumps: SIGHUP received, attempt requested")
				} else {
					log.Println("systemjumps: SIGHUP ignored, attempt already running or pending")
				}
			}
		}
	}()

	log.Printf("systemjumps: started (source=%s, cache=%s, table=%s, mode=%s)",
		cfg.SourceURL, cache.Path(), cfg.TableName, cfg.TableNamingMode)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Println("systemjumps: shutting down")
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("systemjumps: metrics server shutdown error: %v", err)
		}
	}
	log.Println("systemjumps: stopped")
	return nil
}

// openDatabase opens the handle and pings it once. An unreachable database
// is only logged: attempts fail and retry until it comes up.
func openDatabase(driver, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// attempts are strictly sequential
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("systemjumps: database unreachable at startup, attempts will retry: %v", err)
		return db, nil
	}
	log.Printf("systemjumps: connected to %s database", driver)
	return db, nil
}

func startMetricsServer(addr, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("systemjumps: metrics server listening on %s%s", addr, path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("systemjumps: metrics server error: %v", err)
		}
	}()
	return srv
}

// setupLogOutput sends log lines to stderr and, when path is set, appends
// them to path as well. The returned func closes the file.
func setupLogOutput(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	previous := log.Writer()
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(previous)
		f.Close()
	}, nil
}
