package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apiclient"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/broker"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/config"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/console"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/metrics"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/observability"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/zones"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	metrics.RegisterDefault()

	var b broker.EventBroker = broker.NewBroker()
	if cfg.RedisURL != "" {
		rb, err := broker.NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Error(ctx, "redis broker", logging.Err(err))
			os.Exit(1)
		}
		b = rb
		log.Info(ctx, "events relayed through redis")
	}

	tokens := apiclient.ChainTokens{apiclient.StaticToken(cfg.API.Token), apiclient.FileTokenSource{Path: cfg.API.TokenFile}}
	client, err := apiclient.New(cfg.API.BaseURL, tokens,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithRateLimit(cfg.API.RateRPS, cfg.API.RateBurst),
		apiclient.WithLogger(log.With(logging.String("component", "apiclient"))),
	)
	if err != nil {
		log.Error(ctx, "api client", logging.Err(err))
		os.Exit(1)
	}

	srv := console.New(console.Deps{
		API:          client,
		Broker:       b,
		Log:          log,
		MapKey:       cfg.Map.APIKey,
		PollInterval: cfg.Tracking.PollInterval,
		Settings: map[string]any{
			"port":            cfg.Port,
			"apiBaseUrl":      cfg.API.BaseURL,
			"hasToken":        cfg.API.Token != "" || cfg.API.TokenFile != "",
			"hasMapKey":       cfg.Map.APIKey != "",
			"hasRedis":        cfg.RedisURL != "",
			"pollInterval":    cfg.Tracking.PollInterval.String(),
			"refreshSchedule": cfg.Zones.RefreshSchedule,
			"rateRps":         cfg.API.RateRPS,
		},
	})
	defer srv.Close()

	if err := srv.Zones.List(ctx); err != nil {
		log.Warn(ctx, "initial zone list failed", logging.Err(err))
	}
	refresher, err := zones.NewRefresher(srv.Zones, cfg.Zones.RefreshSchedule, log)
	if err != nil {
		log.Error(ctx, "zone refresh schedule", logging.Err(err))
		os.Exit(1)
	}
	if refresher != nil {
		refresher.Start()
		defer refresher.Stop(context.Background())
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info(ctx, "console listening", logging.String("addr", httpSrv.Addr), logging.String("api", cfg.API.BaseURL))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "server error", logging.Err(err))
		os.Exit(1)
	}
}
