package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/shop_api/internal/config"
	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/httpserver"
	"github.com/Skotchmaster/shop_api/internal/logging"
	loggingmw "github.com/Skotchmaster/shop_api/internal/middleware/logging"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/search"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/tokens"
)

type publisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error("server_exit", "status", 1, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	startCtx = logging.IntoContext(startCtx, logger)

	gdb, err := db.Open(startCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()

	if err := db.Migrate(startCtx, gdb); err != nil {
		return err
	}

	pub := newPublisher(startCtx, cfg, logger)
	defer func() { _ = pub.Close() }()

	index := newIndexer(startCtx, cfg, logger)

	r := &repo.GormRepo{DB: gdb}
	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	authSvc := &service.AuthService{Repo: r, Tokens: issuer, Events: pub}

	if _, err := authSvc.EnsureAdmin(startCtx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		DB:             gdb,
		AccessSecret:   cfg.JWTAccessSecret,
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r, Events: pub, Index: index}},
		OrderHandler:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r, Events: pub, Index: index}},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server_stopped")
	return err
}

// newPublisher falls back to dropping events when Kafka is not configured.
func newPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
		return events.Nop{}
	}
	if err := events.EnsureTopics(ctx, cfg.KafkaBrokers[0], 1, events.Topics()...); err != nil {
		logger.Warn("kafka_topics_not_created", "error", err)
	}
	return events.NewProducer(cfg.KafkaBrokers)
}

// newIndexer falls back to no indexing when Elasticsearch is not configured or unreachable.
func newIndexer(ctx context.Context, cfg config.Config, logger *slog.Logger) service.ProductIndexer {
	if cfg.ESURL == "" {
		logger.Warn("search_index_disabled", "reason", "ES_URL is empty")
		return search.Nop{}
	}
	client, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		logger.Warn("search_index_disabled", "error", err)
		return search.Nop{}
	}
	idx := &search.ProductIndex{ES: client, Index: cfg.ESIndex}
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Warn("search_index_not_created", "index", cfg.ESIndex, "error", err)
	}
	return idx
}
