package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	cacheadapter "github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/cache"
	eventadapter "github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/events"
	grpcadapter "github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/grpc"
	httpadapter "github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/http"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/notify"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/postgres"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/security"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type Runtime struct {
	cfg     Config
	logger  *slog.Logger
	db      *gorm.DB
	repos   postgres.Repositories
	metrics *httpadapter.Metrics
	cleanup []func()
}

// NewRuntime loads configuration, installs the default logger and opens the
// shared Postgres pool. Transport and worker pieces are built by RunAPI and
// RunWorker so both processes can share one binary layout.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, syncLogs, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	logger.Info("bootstrapping maijjd auth service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"environment", cfg.Environment,
	)

	rt := &Runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: httpadapter.NewMetrics(),
		cleanup: []func(){syncLogs},
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxOpenConns:    cfg.DBMaxConns,
		MaxIdleConns:    cfg.DBMaxConns / 2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rt.db = db
	rt.onClose(func() { _ = postgres.Close(db) })

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			rt.close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	rt.repos = postgres.NewRepositories(db)
	return rt, nil
}

func (r *Runtime) onClose(fn func()) {
	r.cleanup = append(r.cleanup, fn)
}

// close runs cleanups in reverse registration order.
func (r *Runtime) close() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
	r.cleanup = nil
}

// buildService wires the auth orchestrator with its key-value stores,
// token signer and notification channels.
func (r *Runtime) buildService(ctx context.Context) (*application.Service, error) {
	cfg := r.cfg

	lockouts, resetTokens, err := r.buildStores(ctx)
	if err != nil {
		return nil, err
	}

	var signer *security.JWTSigner
	if cfg.JWTSecret != "" {
		signer, err = security.NewJWTSigner(cfg.JWTSecret)
	} else {
		r.logger.Warn("using ephemeral JWT key for local/dev runtime")
		signer, err = security.NewEphemeralJWTSigner()
	}
	if err != nil {
		return nil, fmt.Errorf("init jwt signer: %w", err)
	}

	dispatcher, err := r.buildDispatcher()
	if err != nil {
		return nil, err
	}

	appCfg := application.DefaultConfig()
	general := appCfg.Tokens[domain.ScopeGeneral]
	general.AccessTTL = cfg.AccessTokenTTL
	general.RefreshTTL = cfg.RefreshTokenTTL
	admin := appCfg.Tokens[domain.ScopeAdmin]
	admin.AccessTTL = cfg.AdminAccessTokenTTL
	admin.RefreshTTL = cfg.AdminRefreshTokenTTL
	appCfg.Tokens = map[domain.Scope]application.TokenPolicy{
		domain.ScopeGeneral: general,
		domain.ScopeAdmin:   admin,
	}
	appCfg.AdminCreationKey = cfg.AdminCreationKey
	appCfg.FailedLoginThreshold = cfg.FailedLoginThreshold
	appCfg.LockoutDuration = cfg.LockoutDuration
	appCfg.VerifyAttemptThreshold = cfg.VerifyAttemptThreshold
	appCfg.FrontendBaseURL = cfg.FrontendBaseURL
	if cfg.AdminCreationKey == "" {
		r.logger.Warn("ADMIN_CREATION_KEY is empty; admin provisioning is disabled")
	}

	return application.NewService(application.Dependencies{
		Config:        appCfg,
		Accounts:      r.repos.Accounts,
		LoginAttempts: r.repos.LoginAttempts,
		Outbox:        r.repos.Outbox,
		Lockouts:      lockouts,
		ResetTokens:   resetTokens,
		Hasher:        security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner:   signer,
		Notifier:      dispatcher,
	}), nil
}

// buildStores returns Redis-backed stores when REDIS_URL is set and
// process-local ones otherwise. Validate refuses the latter in production.
func (r *Runtime) buildStores(ctx context.Context) (ports.LockoutStore, ports.ResetTokenStore, error) {
	if r.cfg.RedisURL == "" {
		r.logger.Warn("REDIS_URL is empty; lockouts and reset tokens are kept in memory")
		return cacheadapter.NewMemoryLockoutStore(), cacheadapter.NewMemoryResetTokenStore(), nil
	}
	client, err := cacheadapter.Connect(ctx, r.cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	r.onClose(func() { _ = client.Close() })
	return cacheadapter.NewRedisLockoutStore(client), cacheadapter.NewRedisResetTokenStore(client), nil
}

// buildDispatcher routes each channel to its real sender when configured and
// to the log sender otherwise.
func (r *Runtime) buildDispatcher() (*notify.Dispatcher, error) {
	cfg := r.cfg
	logSender := notify.NewLogSender(r.logger)
	senders := map[ports.NotificationChannel]ports.NotificationSender{
		ports.ChannelEmail: logSender,
		ports.ChannelSMS:   logSender,
	}

	if cfg.SMTP.Host != "" {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			MaxConns: cfg.SMTP.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init smtp mailer: %w", err)
		}
		r.onClose(mailer.Close)
		senders[ports.ChannelEmail] = mailer
	} else if cfg.Production() {
		r.logger.Warn("SMTP_HOST is empty; email notifications are only logged")
	}

	if cfg.SMS.URL != "" {
		gateway, err := notify.NewSMSGateway(notify.SMSGatewayConfig{
			URL:    cfg.SMS.URL,
			APIKey: cfg.SMS.APIKey,
			From:   cfg.SMS.From,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("init sms gateway: %w", err)
		}
		senders[ports.ChannelSMS] = gateway
	} else if cfg.Production() {
		r.logger.Warn("SMS_GATEWAY_URL is empty; sms notifications are only logged")
	}

	dispatcher := notify.NewDispatcher(r.logger, notify.DispatcherConfig{
		BufferSize: cfg.NotifyBufferSize,
		Workers:    cfg.NotifyWorkers,
		DropIfFull: true,
	}, senders)
	dispatcher.OnResult(func(channel ports.NotificationChannel, outcome string) {
		r.metrics.Notification(string(channel), outcome)
	})
	// Registered after the mailer so queued mail drains before the pool closes.
	r.onClose(dispatcher.Close)
	return dispatcher, nil
}

// RunAPI serves HTTP and gRPC until ctx is cancelled or a server fails.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.close()

	svc, err := r.buildService(ctx)
	if err != nil {
		return err
	}

	proxies, err := httpadapter.ParseTrustedProxies(r.cfg.TrustedProxies)
	if err != nil {
		return err
	}
	handler := httpadapter.NewHandler(svc, httpadapter.Options{
		Environment:        r.cfg.Environment,
		CORSAllowedOrigins: r.cfg.CORSAllowedOrigins,
		TrustedProxies:     proxies,
		Metrics:            r.metrics,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("http shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
	return runErr
}

// RunWorker relays outbox events until ctx is cancelled. Events go to Kafka
// when brokers are configured and to the log otherwise.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.close()

	var publisher ports.EventPublisher
	if len(r.cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(r.cfg.KafkaBrokers, r.cfg.KafkaTopicPrefix, r.cfg.KafkaTopics)
		if err != nil {
			return fmt.Errorf("init kafka publisher: %w", err)
		}
		r.onClose(func() { _ = kafkaPublisher.Close() })
		publisher = kafkaPublisher
	} else {
		r.logger.Warn("KAFKA_BROKERS is empty; outbox events are only logged")
		publisher = eventadapter.NewLoggingPublisher(r.logger)
	}

	worker := eventadapter.NewOutboxWorker(r.logger, r.repos.Outbox, publisher, eventadapter.WorkerConfig{
		Interval:   r.cfg.OutboxPollInterval,
		BatchSize:  r.cfg.OutboxBatchSize,
		ClaimTTL:   r.cfg.OutboxClaimTTL,
		MaxRetries: r.cfg.OutboxMaxRetries,
	})
	worker.OnBatch(func(stats eventadapter.BatchStats) {
		r.metrics.OutboxBatch(stats.Published, stats.Failed, stats.DeadLettered)
	})

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.WorkerMetricsPort),
		Handler:           r.metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		r.logger.Info("worker metrics server started", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("worker metrics server failed", "error", err)
		}
	}()

	r.logger.Info("outbox worker started")
	err := worker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
