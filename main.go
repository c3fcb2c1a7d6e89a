package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moviebox-restful/app"
	"moviebox-restful/auth"
	"moviebox-restful/config"
	"moviebox-restful/database"
	grpcserver "moviebox-restful/grpc_server"
	"moviebox-restful/registry"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	switch level {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	return logger
}

// openSessionStore returns the configured store and a function releasing it.
func openSessionStore(cfg config.SessionConfig, db *gorm.DB) (auth.SessionStore, func() error, error) {
	switch cfg.Store {
	case "badger":
		bdb, err := auth.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewBadgerSessionStore(bdb), bdb.Close, nil
	case "db", "":
		return auth.NewGormSessionStore(db), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

func main() {
	config.InitConfig()
	cfg := config.AppConfig

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	if cfg.Session.Secret == config.DefaultSessionSecret {
		logger.Warn("Using the default session secret; set MOVIEBOX_SESSION_SECRET in production")
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := database.SeedInitialData(db, logger); err != nil {
		logger.Fatal("Failed to seed database", zap.Error(err))
	}

	store, closeStore, err := openSessionStore(cfg.Session, db)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close session store", zap.Error(err))
		}
	}()

	api, err := app.New(cfg, db, store, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, api.Sessions, time.Hour)

	// --- HTTP ---
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- gRPC ---
	grpcServer, healthServer := grpcserver.NewServer(
		grpcserver.NewSessionServiceServer(api.Users, api.Movies, api.Items),
		api.Sessions,
		logger.Named("grpc"),
	)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.Int("port", cfg.GRPCPort), zap.Error(err))
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	// --- Consul ---
	var deregister func()
	if cfg.Consul.Enabled {
		deregister = registerWithConsul(cfg, logger)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	if deregister != nil {
		deregister()
	}
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
}

func purgeSessions(ctx context.Context, sessions *auth.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.PurgeExpired(ctx)
		}
	}
}

// registerWithConsul announces the HTTP and gRPC endpoints and returns a
// function that withdraws them. Failures are logged; the server keeps running.
func registerWithConsul(cfg config.Config, logger *zap.Logger) func() {
	reg, err := registry.NewConsulRegistry(cfg.Consul.Address, logger.Sugar())
	if err != nil {
		logger.Error("Consul unavailable, skipping registration", zap.Error(err))
		return nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	httpID := fmt.Sprintf("%s-http-%s-%d", cfg.ServiceName, host, cfg.HTTPPort)
	grpcID := fmt.Sprintf("%s-grpc-%s-%d", cfg.ServiceName, host, cfg.GRPCPort)

	instances := []registry.Instance{
		{
			ID:      httpID,
			Name:    cfg.ServiceName,
			Address: host,
			Port:    cfg.HTTPPort,
			Tags:    []string{"http", "api"},
			Meta:    map[string]string{"protocol": "http"},
			Check:   registry.HTTPCheck(httpID, host, cfg.HTTPPort, "/healthz"),
		},
		{
			ID:      grpcID,
			Name:    cfg.ServiceName + "-grpc",
			Address: host,
			Port:    cfg.GRPCPort,
			Tags:    []string{"grpc"},
			Meta:    map[string]string{"protocol": "grpc"},
			Check:   registry.GRPCCheck(grpcID, fmt.Sprintf("%s:%d", host, cfg.GRPCPort)),
		},
	}
	var registered []string
	for _, inst := range instances {
		if err := reg.Register(inst); err != nil {
			logger.Error("Failed to register with Consul", zap.String("service_id", inst.ID), zap.Error(err))
			continue
		}
		registered = append(registered, inst.ID)
	}

	return func() {
		for _, id := range registered {
			if err := reg.Deregister(id); err != nil {
				logger.Warn("Failed to deregister from Consul", zap.String("service_id", id), zap.Error(err))
			}
		}
	}
}
