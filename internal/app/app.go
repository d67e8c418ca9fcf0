package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"certalert/internal/config"
	"certalert/internal/metrics"
	"certalert/internal/repository"
	"certalert/internal/scheduler"
	"certalert/internal/service"
	httpt "certalert/internal/transport/http"
	"certalert/internal/transport/sender"
	"certalert/pkg/postgres"
	"certalert/pkg/rabbit"
	"certalert/pkg/redis"
	"certalert/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRunFailed is returned in once mode when the daily run aborted.
var ErrRunFailed = errors.New("daily run failed")

type closer func() error

const (
	metricsIdleTimeout     = 60 * time.Second
	metricsShutdownTimeout = 5 * time.Second
)

func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", zap.Error(err))
			}
		}
	}()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("app.Run: %w", err)
	}
	closers = append(closers, func() error { return shutdownTracing(context.WithoutCancel(ctx)) })

	db, err := initDatabase(ctx, &cfg.Postgres, log)
	if err != nil {
		return err
	}
	closers = append(closers, func() error { db.Close(); return nil })

	var rdb *redis.Redis
	if cfg.Redis.Enabled {
		rdb, err = initRedis(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		closers = append(closers, rdb.Close)
	}

	transport, transportClosers, err := initTransport(cfg, log.With(zap.String("component", "transport")))
	closers = append(closers, transportClosers...)
	if err != nil {
		return err
	}

	engine, err := initEngine(cfg, db, rdb, transport, log.With(zap.String("component", "engine")))
	if err != nil {
		return err
	}

	metrics.Init()

	if cfg.App.Mode == config.ModeOnce {
		return runOnce(ctx, engine, log)
	}

	eg, ctx := errgroup.WithContext(ctx)

	if err := initHTTPServer(ctx, eg, cfg, engine, db, log.With(zap.String("component", "http server"))); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		initMetricsServer(ctx, eg, &cfg.Metrics, log.With(zap.String("component", "metrics server")))
	}
	if err := initScheduler(ctx, eg, cfg, engine, log.With(zap.String("component", "scheduler"))); err != nil {
		return err
	}

	return waitForShutdown(eg)
}

func initDatabase(ctx context.Context, cfg *config.Postgres, log *zap.Logger) (*postgres.Postgres, error) {
	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DSN, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("app.initDatabase: %w", err)
		}
	}

	db, err := postgres.New(
		ctx,
		cfg.DSN,
		log.With(zap.String("component", "database")),
		postgres.MaxPoolSize(cfg.PoolMax),
		postgres.MaxConnAttempts(cfg.ConnAttempts),
		postgres.BaseRetryDelay(cfg.BaseRetryDelay),
		postgres.MaxRetryDelay(cfg.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initDatabase: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Redis) (*redis.Redis, error) {
	rdb, err := redis.New(ctx, cfg.Addr, cfg.Password,
		redis.DB(cfg.DB),
		redis.PoolSize(cfg.PoolSize),
		redis.MinIdleCons(cfg.MinIdleCons),
		redis.PoolTimeout(cfg.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initRedis: %w", err)
	}
	return rdb, nil
}

// initTransport registers every provider with complete settings and selects the
// configured one, decorated with retry, rate limiting and metrics.
func initTransport(cfg *config.Config, log *zap.Logger) (sender.Transport, []closer, error) {
	var closers []closer
	registry := sender.NewRegistry(sender.NewLogTransport(log))

	if cfg.Transport.Provider == sender.ProviderSMTP && cfg.ProviderConfigured(sender.ProviderSMTP) {
		registry.Register(sender.NewSMTPTransport(sender.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		}, log))
	}

	if cfg.Transport.Provider == sender.ProviderAMQP && cfg.ProviderConfigured(sender.ProviderAMQP) {
		pub, err := rabbit.NewPublisher(rabbit.Config{
			URL:            cfg.AMQP.URL,
			Exchange:       cfg.AMQP.Exchange,
			ConnectionName: cfg.AMQP.ConnectionName,
			Heartbeat:      cfg.AMQP.Heartbeat,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("app.initTransport: %w", err)
		}
		closers = append(closers, pub.Close)
		registry.Register(sender.NewAMQPTransport(pub, cfg.AMQP.RoutingPrefix, log))
	}

	if cfg.Transport.Provider == sender.ProviderTelegram && cfg.ProviderConfigured(sender.ProviderTelegram) {
		tg, err := sender.NewTelegramTransport(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			return nil, closers, fmt.Errorf("app.initTransport: %w", err)
		}
		registry.Register(tg)
	}

	if cfg.Transport.Provider == sender.ProviderKafka && cfg.ProviderConfigured(sender.ProviderKafka) {
		kt := sender.NewKafkaTransport(sender.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, log)
		closers = append(closers, kt.Close)
		registry.Register(kt)
	}

	t := registry.Select(cfg.Transport.Provider, log)
	t = sender.WithRetry(t, cfg.Dispatch.MaxRetries, cfg.Dispatch.RetryInitial, log)
	t = sender.WithRateLimit(t, cfg.Dispatch.RatePerSecond, cfg.Dispatch.RateBurst)
	t = sender.Instrumented(t)

	log.Info("transport selected", zap.String("provider", t.Name()))
	return t, closers, nil
}

func initEngine(
	cfg *config.Config,
	db *postgres.Postgres,
	rdb *redis.Redis,
	transport sender.Transport,
	log *zap.Logger,
) (*service.Engine, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("app.initEngine: %w", err)
	}

	var directory service.Directory = repository.NewDirectoryRepository(db)
	opts := []service.Option{
		service.WithLocation(loc),
		service.WithTxManager(db),
		service.WithBatchLimit(cfg.Dispatch.BatchLimit),
		service.WithConcurrency(cfg.Dispatch.Concurrency),
		service.WithItemTimeout(cfg.Dispatch.ItemTimeout),
		service.WithClaimTTL(cfg.Dispatch.ClaimTTL),
		service.WithDefaultSender(cfg.Transport.DefaultSender),
	}

	if rdb != nil {
		directory = repository.NewCachedDirectory(directory, rdb.Client, cfg.Redis.CacheTTL, log)
		opts = append(opts, service.WithLocker(repository.NewRunLock(rdb.Client, cfg.Redis.LockKey, cfg.Redis.LockTTL)))
	}

	engine, err := service.NewEngine(service.Deps{
		Certifications: repository.NewCertificationRepository(db),
		Reminders:      repository.NewReminderRepository(db),
		Directory:      directory,
		Audit:          repository.NewAuditRepository(db),
		Transport:      transport,
	}, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("app.initEngine: %w", err)
	}
	return engine, nil
}

func runOnce(ctx context.Context, engine *service.Engine, log *zap.Logger) error {
	res, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("app.runOnce: %w: %w", ErrRunFailed, err)
	}

	log.Info("run summary",
		zap.Int("reminders_created", res.RemindersCreated),
		zap.Int("emails_sent", res.EmailsSent),
		zap.Int("emails_failed", res.EmailsFailed),
		zap.Int("skipped", res.Skipped),
		zap.Strings("errors", res.Errors),
	)
	return nil
}

func initHTTPServer(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Config,
	engine *service.Engine,
	db *postgres.Postgres,
	log *zap.Logger,
) error {
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpt.NewHandler(engine, db, cfg.App.Version, log)
	server := httpt.NewServer(handler.Engine(), &cfg.HTTP, log)

	eg.Go(func() error {
		return server.Start(ctx)
	})
	return nil
}

func initMetricsServer(ctx context.Context, eg *errgroup.Group, cfg *config.Metrics, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := httpt.NewServer(mux, &config.HTTP{
		Host:              cfg.Host,
		Port:              cfg.Port,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       metricsIdleTimeout,
		ShutdownTimeout:   metricsShutdownTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, log)

	eg.Go(func() error {
		return server.Start(ctx)
	})
}

func initScheduler(ctx context.Context, eg *errgroup.Group, cfg *config.Config, engine *service.Engine, log *zap.Logger) error {
	loc, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("app.initScheduler: %w", err)
	}

	daily, err := scheduler.NewDaily(engine, cfg.Scheduler.RunAt, loc, cfg.Scheduler.RunOnStart, log)
	if err != nil {
		return fmt.Errorf("app.initScheduler: %w", err)
	}

	eg.Go(func() error {
		return daily.Start(ctx)
	})
	return nil
}

func waitForShutdown(eg *errgroup.Group) error {
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app.waitForShutdown: application failed: %w", err)
	}
	return nil
}
