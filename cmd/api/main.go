package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/authentiq/internal/application"
	appanalysis "github.com/bryanwahyu/authentiq/internal/application/analysis"
	"github.com/bryanwahyu/authentiq/internal/config"
	"github.com/bryanwahyu/authentiq/internal/domain/analyst"
	"github.com/bryanwahyu/authentiq/internal/domain/failures"
	"github.com/bryanwahyu/authentiq/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/authentiq/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/authentiq/internal/infra/db/postgres"
	"github.com/bryanwahyu/authentiq/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/authentiq/internal/infra/storage"
	"github.com/bryanwahyu/authentiq/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.Log.Format == "json" {
		log.SetHandler(jsonhandler.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.WithField("level", cfg.Log.Level).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	checkers := map[string]middleware.HealthChecker{}

	svc := &appanalysis.Service{
		Clock:   application.SystemClock{},
		Timeout: cfg.AI.Timeout,
		Model:   cfg.AI.Model,
		Log:     log.Log,
	}

	gateway := openai.NewClient(openai.Config{
		BaseURL:       cfg.AI.BaseURL,
		APIKey:        cfg.AI.APIKey,
		Model:         cfg.AI.Model,
		MaxTokens:     cfg.AI.MaxTokens,
		RedactSecrets: *cfg.AI.RedactSecrets,
	})
	svc.Gateway = gateway

	db, repo, failRepo, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		svc.Repo = repo
		svc.Failures = failRepo
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		svc.Media = store
		checkers["storage"] = store
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		defer limiter.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: httpserver.NewRouter(svc, httpserver.Options{
			Logger:         log.Log,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			APIKeys:        cfg.Auth.APIKeys,
			RateLimiter:    limiter,
			HealthCheckers: checkers,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{
			"addr":      addr,
			"model":     gateway.Model(),
			"history":   cfg.Database.Driver != "",
			"archive":   cfg.Minio.Enabled,
			"auth":      len(cfg.Auth.APIKeys) > 0,
			"ratelimit": cfg.RateLimit.Enabled,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openHistory connects the configured database; driver "" keeps history off.
func openHistory(ctx context.Context, cfg *config.Config) (*sql.DB, analyst.Repository, failures.Repository, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return db, mysqlp.NewAnalystRepository(db), mysqlp.NewFailureRepository(db), nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgresp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return db, postgresp.NewAnalystRepository(db), postgresp.NewFailureRepository(db), nil
	}
	return nil, nil, nil, nil
}
