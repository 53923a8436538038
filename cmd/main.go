package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront-service/internal/config"
	"storefront-service/internal/logger"
	"storefront-service/internal/store"
)

const defaultAppName = "storefront"

var rootCmd = &cobra.Command{
	Use:   defaultAppName,
	Short: "Storefront service: catalog, cart, orders and reviews over HTTP and gRPC",
	Long: `Storefront serves the REST API (users, categories, products, cart,
orders, reviews) and the read-only gRPC catalog API.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is everything a subcommand needs once configuration is loaded.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.PostgresStore
}

// bootstrap loads configuration, builds the logger and opens the database.
// The caller owns app.close.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	log = log.With(zap.String("app", defaultAppName))
	log.Info("configuration loaded", zap.String("app_env", cfg.AppEnv), zap.String("log_level", cfg.LogLevel))

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("database connection established",
		zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))

	pg := store.NewPostgresStore(db,
		store.WithLogger(log.Named("store")),
		store.WithSearchLanguages(cfg.Search.PrimaryLanguage, cfg.Search.SecondaryLanguage),
	)
	return &app{cfg: cfg, log: log, store: pg}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("error closing database", zap.Error(err))
	}
	_ = a.log.Sync()
}
