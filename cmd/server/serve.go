package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/iliyamo/mapit/internal/config"
	"github.com/iliyamo/mapit/internal/database"
	"github.com/iliyamo/mapit/internal/handler"
	"github.com/iliyamo/mapit/internal/middleware"
	"github.com/iliyamo/mapit/internal/queue"
	"github.com/iliyamo/mapit/internal/router"
	"github.com/iliyamo/mapit/internal/service"
)

const (
	portFlag        = "port"
	databaseURLFlag = "database-url"
	migrateFlag     = "migrate"
)

var serveFlags = map[string]cobraflags.Flag{
	portFlag: &cobraflags.StringFlag{
		Name:  portFlag,
		Value: "",
		Usage: "Port to listen on (overrides APP_PORT)",
	},
	databaseURLFlag: &cobraflags.StringFlag{
		Name:  databaseURLFlag,
		Value: "",
		Usage: "PostgreSQL connection string (overrides DATABASE_URL)",
	},
	migrateFlag: &cobraflags.StringFlag{
		Name:  migrateFlag,
		Value: "false",
		Usage: "Apply the schema and seed default packages before serving (true/false)",
	},
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serveCommand,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if p := serveFlags[portFlag].GetString(); p != "" {
		cfg.Port = p
	}
	if u := serveFlags[databaseURLFlag].GetString(); u != "" {
		cfg.DatabaseURL = u
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if serveFlags[migrateFlag].GetString() == "true" {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		if err := database.SeedPackages(ctx, db, database.DefaultPackages); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	rdb, err := config.NewRedisClient(ctx)
	switch {
	case rdb != nil:
		defer rdb.Close()
	case err != nil:
		log.Warn("redis unavailable: rate limiting and response cache disabled", "error", err)
	default:
		log.Info("redis disabled")
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitMQURL)
	}

	h := &handler.Handler{
		Accounts:     service.NewCustomerService(db, events, cfg.BcryptCost, log),
		Admins:       service.NewAdminService(db, cfg.BcryptCost, log),
		Maps:         service.NewMapService(db, log),
		Zones:        service.NewZoneService(db, log),
		Commerce:     service.NewCommerceService(db, events, log),
		DB:           db,
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
		Timeout:      cfg.RequestTimeout,
		ExposeDetail: !cfg.IsProduction(),
		Log:          log,
	}
	e := router.New(h, router.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log),
		Cache:       middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log),
		Log:         log,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "events", cfg.EventsEnabled)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
