// Command shopauth-server serves the shop authentication and commerce API.
//
// Configuration comes from config.toml (or -config), .env and SHOPAUTH_*
// environment variables. With store.backend = "memory" and
// notifier.backend = "log" it runs without any external service:
//
//	SHOPAUTH_STORE_BACKEND=memory SHOPAUTH_NOTIFIER_BACKEND=log go run ./cmd/shopauth-server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/shopAuth"
	"github.com/MrEthical07/shopAuth/audit/kafka"
	"github.com/MrEthical07/shopAuth/commerce"
	"github.com/MrEthical07/shopAuth/httpapi"
	"github.com/MrEthical07/shopAuth/internal/appconfig"
	"github.com/MrEthical07/shopAuth/internal/logging"
	"github.com/MrEthical07/shopAuth/metrics/export/prometheus"
	"github.com/MrEthical07/shopAuth/notify"
	"github.com/MrEthical07/shopAuth/store"
	"github.com/MrEthical07/shopAuth/store/mongostore"
	"github.com/MrEthical07/shopAuth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func run(ctx context.Context, cfg *appconfig.AppConfig, logger *zap.Logger) error {
	var cleanup closers
	defer cleanup.run()

	engineCfg := cfg.EngineConfig()

	rdb, err := openRedis(cfg, logger, &cleanup)
	if err != nil {
		return err
	}

	records, err := openStore(ctx, cfg, engineCfg, rdb, logger, &cleanup)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	builder := shopAuth.New().
		WithConfig(engineCfg).
		WithRecordStore(records).
		WithNotifier(notifier).
		WithLogger(logger)
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	if cfg.Audit.Enabled {
		sink, err := newAuditSink(cfg, logger, &cleanup)
		if err != nil {
			return err
		}
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	cleanup.add(engine.Close)

	commerceColls := commerce.DefaultCollections()
	profiles := commerce.NewProfileManager(records, commerceColls.Profiles, commerce.WithTimeout(cfg.Store.OperationTimeout))
	carts := commerce.NewCartManager(records, commerceColls.Carts, commerce.WithTimeout(cfg.Store.OperationTimeout))

	opts := httpapi.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:         logger,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsHandler = prometheus.NewPrometheusExporter(engine).Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.NewRouter(httpapi.NewHandler(engine, profiles, carts, logger), opts),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Backend),
			zap.String("notifier", cfg.Notifier.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRedis returns nil when neither the store nor the send throttle needs Redis.
// The memory backend gets an embedded miniredis.
func openRedis(cfg *appconfig.AppConfig, logger *zap.Logger, cleanup *closers) (redis.UniversalClient, error) {
	switch {
	case cfg.Store.Backend == appconfig.StoreMemory:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		cleanup.add(mr.Close)
		logger.Warn("using in-memory store; data is lost on exit", zap.String("addr", mr.Addr()))
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup.add(func() { _ = rdb.Close() })
		return rdb, nil
	case cfg.Store.Backend == appconfig.StoreRedis || cfg.Auth.SendLimit.Enabled:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanup.add(func() { _ = rdb.Close() })
		return rdb, nil
	default:
		return nil, nil
	}
}

func openStore(
	ctx context.Context,
	cfg *appconfig.AppConfig,
	engineCfg shopAuth.Config,
	rdb redis.UniversalClient,
	logger *zap.Logger,
	cleanup *closers,
) (store.RecordStore, error) {
	if cfg.Store.Backend != appconfig.StoreMongo {
		rs := redisstore.New(rdb, cfg.Redis.Prefix)
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return rs, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Store.OperationTimeout)
	defer cancel()

	ms, client, err := mongostore.Connect(dialCtx, cfg.MongoDB.URI, cfg.MongoDB.DB)
	if err != nil {
		return nil, fmt.Errorf("mongo store: %w", err)
	}
	cleanup.add(func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	})

	colls := append(shopAuth.CollectionsFor(engineCfg).All(), commerce.DefaultCollections().All()...)
	if err := ms.EnsureIndexes(dialCtx, colls...); err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return ms, nil
}

func newNotifier(cfg *appconfig.AppConfig, logger *zap.Logger) (shopAuth.Notifier, error) {
	if cfg.Notifier.Backend == appconfig.NotifierLog {
		logger.Warn("OTP messages are logged, not sent")
		return notify.NewLog(logger), nil
	}
	return notify.NewTwilio(notify.TwilioConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.SMSFromPh,
	}, logger)
}

func newAuditSink(cfg *appconfig.AppConfig, logger *zap.Logger, cleanup *closers) (shopAuth.AuditSink, error) {
	if cfg.Audit.Sink != appconfig.AuditSinkKafka {
		return shopAuth.NewZapSink(logger), nil
	}
	sink, err := kafka.NewSink(kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: "shopauth",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka audit sink: %w", err)
	}
	cleanup.add(func() {
		if err := sink.Close(); err != nil {
			logger.Warn("kafka sink close", zap.Error(err))
		}
	})
	return sink, nil
}
