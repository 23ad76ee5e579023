package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/api"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/auth"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/client"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/config"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/metrics"
)

// deps holds what the subcommands share.
type deps struct {
	Config   *config.Config
	Logger   logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Client   *client.Client
	API      *api.API

	redis *redis.Client
}

func newDeps(ctx context.Context, a *app) (*deps, error) {
	path := a.configPath
	if path == "" {
		path = config.GetConfigPath(config.DefaultPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	d := &deps{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	d.Metrics = metrics.New(d.Registry)

	tokens := d.tokenSource(ctx)
	d.Client = client.New(cfg.API.BaseURL,
		client.WithHTTPClient(client.NewHTTPClient(client.TransportConfig{Timeout: cfg.API.Timeout})),
		client.WithTokenSource(tokens),
		client.WithLogger(log),
		client.WithMetrics(d.Metrics),
	)
	d.API = api.New(d.Client, api.WithLogger(log), api.WithMetrics(d.Metrics))
	return d, nil
}

// tokenSource prefers a token published in Redis, then a self-signed JWT,
// then the static API token.
func (d *deps) tokenSource(ctx context.Context) auth.TokenSource {
	var dynamic auth.Chain

	if addr := d.Config.Auth.Redis.Address; addr != "" {
		rc, err := auth.NewRedisClient(ctx, addr, d.Config.Auth.Redis.Password, d.Config.Auth.Redis.DB)
		if err != nil {
			d.Logger.Warn("Redis token store unavailable", logger.String("address", addr), logger.Error(err))
		} else {
			d.redis = rc
			dynamic = append(dynamic, auth.NewRedisSource(rc, d.Config.Auth.Redis.TokenKey))
		}
	}
	if secret := d.Config.Auth.JWTSecret; secret != "" {
		dynamic = append(dynamic, auth.NewJWTSource(secret, d.Config.Auth.JWTSubject))
	}

	if len(dynamic) == 0 {
		return auth.WithFallback(nil, d.Config.API.Token)
	}
	return auth.WithFallback(dynamic, d.Config.API.Token)
}

func (d *deps) close(metricsFile string) error {
	var errs []error
	if err := writeMetrics(metricsFile, d.Registry); err != nil {
		errs = append(errs, err)
	}
	d.Client.CloseIdleConnections()
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	_ = d.Logger.Sync()
	return errors.Join(errs...)
}
