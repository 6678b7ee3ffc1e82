package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shabdpress/blog_cms/internal/config"
	"github.com/shabdpress/blog_cms/internal/events"
	"github.com/shabdpress/blog_cms/internal/httpserver"
	"github.com/shabdpress/blog_cms/internal/lockout"
	"github.com/shabdpress/blog_cms/internal/repo"
	"github.com/shabdpress/blog_cms/internal/search"
	"github.com/shabdpress/blog_cms/internal/service"
	"github.com/shabdpress/blog_cms/pkg/db"
	"github.com/shabdpress/blog_cms/pkg/logging"
	"github.com/shabdpress/blog_cms/pkg/metrics"
	authmw "github.com/shabdpress/blog_cms/pkg/middleware/auth"
	loggingmw "github.com/shabdpress/blog_cms/pkg/middleware/logging"
	"github.com/shabdpress/blog_cms/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}
	r := repo.New(gdb)
	if err := r.Migrate(initCtx); err != nil {
		cancel()
		log.Fatalf("db migrate error: %v", err)
	}

	publisher := newPublisher(initCtx, cfg, logger)
	index := newSearchIndex(initCtx, cfg, r, logger)
	guard, closeGuard := newGuard(cfg, logger)
	cancel()

	m := metrics.New("blog_cms")
	issuer := tokens.NewIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authSvc := &service.AuthService{Repo: r, Issuer: issuer, Events: publisher, Guard: guard, Metrics: m}
	blogSvc := &service.BlogService{Repo: r, Index: index, Events: publisher, Metrics: m}

	if cfg.AdminUsername != "" {
		created, err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
		logger.Info("admin_bootstrap", "username", cfg.AdminUsername, "created", created)
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(m.Middleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, httpserver.RefreshHeader, "X-CSRF-Token"},
			AllowCredentials: true,
		}))
	}

	httpserver.Register(e, &httpserver.Deps{
		DB:                 gdb,
		Session:            authmw.NewSessionAuth(issuer),
		Metrics:            m,
		Auth:               &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		Operators:          &httpserver.OperatorHTTP{Svc: authSvc},
		Blogs:              &httpserver.BlogHTTP{Svc: blogSvc},
		Categories:         &httpserver.CategoryHTTP{Svc: &service.CategoryService{Repo: r}},
		Subscribers:        &httpserver.SubscriberHTTP{Svc: &service.SubscriberService{Repo: r}},
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		CSRFEnabled:        cfg.CSRFEnabled,
		CookieSecure:       cfg.CookieSecure,
		TrustedOrigins:     cfg.CORSAllowedOrigins,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		logger.Info("http_server_started", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if err := closeGuard(); err != nil {
		logger.Error("redis_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}

// newPublisher returns a Kafka producer, or a no-op one when no brokers are
// configured.
func newPublisher(ctx context.Context, cfg config.Config, l *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		l.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
		return events.Nop{}
	}
	if err := events.EnsureTopics(ctx, cfg.KafkaBrokers[0], events.TopicBlog, events.TopicAccount); err != nil {
		l.Warn("kafka_topics_not_ensured", "error", err)
	}
	return events.NewProducer(cfg.KafkaBrokers)
}

// newSearchIndex prefers Elasticsearch and falls back to database search when
// it is not configured or not reachable at startup.
func newSearchIndex(ctx context.Context, cfg config.Config, r *repo.GormRepo, l *slog.Logger) search.Index {
	fallback := search.Database{Repo: r}
	if cfg.ESURL == "" {
		l.Warn("search_disabled", "reason", "ES_URL is empty")
		return fallback
	}
	client, err := search.NewClient(ctx, search.ClientConfig{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
	if err != nil {
		l.Warn("search_unavailable", "error", err)
		return fallback
	}
	es := search.NewElastic(client, cfg.ESIndex, r)
	if err := es.EnsureIndex(ctx); err != nil {
		l.Warn("search_index_not_ensured", "index", cfg.ESIndex, "error", err)
	}
	return es
}

func newGuard(cfg config.Config, l *slog.Logger) (lockout.Guard, func() error) {
	policy := lockout.Policy{MaxFailures: cfg.LoginMaxFailures, Lockout: cfg.LoginLockout}
	if cfg.LoginMaxFailures <= 0 {
		return lockout.Nop{}, func() error { return nil }
	}
	if cfg.RedisURL == "" {
		l.Warn("lockout_in_memory", "reason", "REDIS_URL is empty")
		return lockout.NewMemory(policy), func() error { return nil }
	}
	g, err := lockout.NewRedis(cfg.RedisURL, policy)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return g, g.Close
}
