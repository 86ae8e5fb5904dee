// Copyright 2026 The GameTaverns Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

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

	"github.com/gametaverns/gametaverns/internal/audit"
	"github.com/gametaverns/gametaverns/internal/config"
	"github.com/gametaverns/gametaverns/internal/identity"
	"github.com/gametaverns/gametaverns/internal/isolation"
	"github.com/gametaverns/gametaverns/internal/observability/logger"
	"github.com/gametaverns/gametaverns/internal/observability/metrics"
	"github.com/gametaverns/gametaverns/internal/observability/tracing"
	"github.com/gametaverns/gametaverns/internal/policy"
	"github.com/gametaverns/gametaverns/internal/provision"
	"github.com/gametaverns/gametaverns/internal/session"
	"github.com/gametaverns/gametaverns/internal/store/postgres"
	"github.com/gametaverns/gametaverns/internal/tenant"
	transportHTTP "github.com/gametaverns/gametaverns/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting gametaverns platform",
		slog.String("root_domain", cfg.Platform.RootDomain),
		slog.String("isolation_mode", cfg.Platform.IsolationMode))

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Initialize context
	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	// Hostname resolution and row-level policy
	reserved := tenant.NewReservedSlugs(cfg.Platform.ReservedSlugs)
	resolver := tenant.NewResolver(tenantRepo, reserved, cfg.Platform.RootDomain)
	engine := policy.NewDefaultEngine(postgres.NewPolicyView(db))

	// Provisioning
	provisionStore := postgres.NewProvisionStore(db)
	provisioner := provision.New(
		provisionStore,
		reserved,
		cfg.Platform.IsolationMode == config.IsolationSchema,
		auditLogger,
	)

	strategy, err := isolation.ForMode(cfg.Platform.IsolationMode, resolver, provisioner)
	if err != nil {
		slog.Error("invalid isolation mode", logger.Error(err))
		os.Exit(1)
	}

	// Services
	tenantService := tenant.NewService(tenantRepo, membershipRepo, reserved, cfg.Platform.RootDomain, auditLogger)
	issuer := session.NewIssuer(
		[]byte(cfg.Security.TokenSigningKey),
		cfg.Security.AccessTokenTTL,
		cfg.Platform.RootDomain,
	)
	bridge := session.NewBridge(
		cfg.SessionBridge.CookieName,
		cfg.Platform.RootDomain,
		cfg.Platform.IsProduction(),
	)

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		tenantService,
		strategy,
		engine,
		bridge,
		issuer,
		userRepo,
		passwordHasher,
		auditLogger,
		meter,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", logger.Error(err))
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()

	db, err := postgres.New(ctx, postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Println("Migrations applied successfully")
	return nil
}
