package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nitesh/article_service/internal/api"
	"github.com/nitesh/article_service/internal/config"
	"github.com/nitesh/article_service/internal/logger"
	"github.com/nitesh/article_service/internal/scrape"
	"github.com/nitesh/article_service/internal/service"
	"github.com/nitesh/article_service/internal/store"
)

var (
	envFile string
	cfg     *config.Config
	log     *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "article-service",
	Short: "Study article journal API",
	Long:  "article-service stores studied articles with their comprehension questions and serves them over HTTP.",
	// serve is the default action
	RunE:         runServe,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.LogLevel, os.Stderr)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file (missing is fine)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scrapeCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.RunMigrations(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	repo := store.NewStore(db, cfg.DBDriver)

	rdb := newRedis(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	svc := service.NewService(repo, service.WithLogger(log))
	handler := api.NewHandler(svc, newScrapeService(rdb), repo, log)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "driver", cfg.DBDriver, "scrape", cfg.ScrapeEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the articles and questions tables if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.RunMigrations(db, cfg.DBDriver); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", cfg.DBDriver)
		return nil
	},
}

// openDB opens the configured database and waits for it to accept
// connections; postgres may still be starting in docker.
func openDB(ctx context.Context) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	if cfg.DBDriver == "sqlite" {
		db, err = store.OpenSQLite(cfg.DBPath)
	} else {
		db, err = sql.Open("postgres", cfg.DSN())
	}
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	for i := 0; i < cfg.DBConnectAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		log.Warn("waiting for db", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to db: %w", err)
}

// newRedis returns nil when REDIS_ADDR is unset. An unreachable server is
// only a warning; the scrape cache then misses.
func newRedis(ctx context.Context) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis ping failed", "addr", cfg.RedisAddr, "error", err)
	}
	return rdb
}

// newScrapeService returns nil when scraping is disabled.
func newScrapeService(rdb *redis.Client) *service.ScrapeService {
	if !cfg.ScrapeEnabled {
		return nil
	}
	client := scrape.NewClient(&http.Client{Timeout: cfg.ScrapeTimeout}, cfg.ScrapeMinInterval)
	client.SetLogger(log)
	return service.NewScrapeService(client, rdb, cfg.ScrapeCacheTTL, log)
}
