package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront-service/internal/api"
	"storefront-service/internal/auth"
	"storefront-service/internal/store"
)

const shutdownTimeout = 30 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	if migrateOnStart {
		if err := a.store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("schema is up to date")
	}

	tokens, err := auth.NewTokenIssuer(a.cfg.Auth.SecretKey, a.cfg.Auth.Algorithm, a.cfg.Auth.AccessTTL(), a.cfg.Auth.RefreshTTL())
	if err != nil {
		return err
	}
	authn := auth.NewAuthenticator(tokens, a.store)
	loginLimiter := api.NewRateLimiter(a.cfg.LoginLimit.PerSecond, a.cfg.LoginLimit.Burst, a.cfg.LoginLimit.TTL)

	// --- Initialize API Handlers ---
	// PostgresStore implements every storer interface.
	httpAPIHandler := api.NewHTTPHandler(api.Stores{
		Users:      a.store,
		Categories: a.store,
		Products:   a.store,
		Carts:      a.store,
		Orders:     a.store,
		Reviews:    a.store,
	}, authn, loginLimiter, log.Named("http"))
	grpcAPIHandler := api.NewGRPCHandler(a.store, a.store, log.Named("grpc"))

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, log, a.cfg.HttpServer.RequestTimeout)
	registerHealthCheck(httpRouter, log, a.store)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  a.cfg.HttpServer.TimeoutRead,
		WriteTimeout: a.cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  a.cfg.HttpServer.TimeoutIdle,
	}

	serveErr := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening", zap.String("port", a.cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server ListenAndServe error: %w", err)
			return
		}
		log.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(log, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+a.cfg.GrpcServer.Port)
	if err != nil {
		_ = httpServer.Close()
		return fmt.Errorf("failed to listen for gRPC on port %s: %w", a.cfg.GrpcServer.Port, err)
	}

	go func() {
		log.Info("gRPC server listening", zap.String("port", a.cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("gRPC server Serve error: %w", err)
			return
		}
		log.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, starting graceful shutdown")
	case runErr = <-serveErr:
		log.Error("server failed, shutting down", zap.Error(runErr))
	}
	shutdown(log, httpServer, grpcServer)
	return runErr
}

func setupBaseMiddleware(router *chi.Mux, log *zap.Logger, requestTimeout time.Duration) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(api.RequestLogger(log.Named("access")))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))
}

func registerHealthCheck(router *chi.Mux, log *zap.Logger, pg *store.PostgresStore) {
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := pg.Ping(ctx); err != nil {
			dbStatus = "unhealthy"
			log.Warn("health check DB ping failed", zap.Error(err))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
}

func setupGRPCServer(log *zap.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		api.RecoveryInterceptor(log),
		api.UnaryLoggingInterceptor(log.Named("grpc")),
	))

	api.RegisterCatalogServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	// Reflection lets grpcurl discover the Struct-based catalog methods.
	reflection.Register(s)
	return s
}

func shutdown(log *zap.Logger, httpServer *http.Server, grpcServer *grpc.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		log.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		log.Warn("gRPC server graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}
}
