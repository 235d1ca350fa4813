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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appreview "github.com/parcelreview/backend/internal/application/review"
	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/auth"
	"github.com/parcelreview/backend/internal/infrastructure/config"
	"github.com/parcelreview/backend/internal/infrastructure/logger"
	"github.com/parcelreview/backend/internal/infrastructure/migration"
	"github.com/parcelreview/backend/internal/infrastructure/persistence"
	"github.com/parcelreview/backend/internal/infrastructure/reputation"
	"github.com/parcelreview/backend/internal/infrastructure/scheduler"
	"github.com/parcelreview/backend/internal/infrastructure/telemetry"
	"github.com/parcelreview/backend/internal/interfaces/http/handler"
	"github.com/parcelreview/backend/internal/interfaces/http/middleware"
	"github.com/parcelreview/backend/internal/interfaces/http/router"
)

const (
	shutdownTimeout = 30 * time.Second
	hstsMaxAge      = 365 * 24 * 60 * 60
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Worker exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Worker exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init meter provider: %w", err)
	}

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             logger.ParseLevel(cfg.Log.Level),
	}, log)
	if err != nil {
		return fmt.Errorf("init logger provider: %w", err)
	}
	log = lp.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: serviceName,
	}, log)
	if err != nil {
		return fmt.Errorf("init profiler: %w", err)
	}
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
		if err := lp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Logger provider shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting review invitation worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
	)

	if cfg.Database.MigrateOnStart {
		if err := migration.ApplyEmbedded(cfg.Database.DSN(), log); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			return fmt.Errorf("register db tracing: %w", err)
		}
	}
	log.Info("Database connected successfully")

	tokenStore, closeStore, err := newTokenStore(cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()
	tokens := auth.NewTokenManager(tokenStore, cfg.Reputation.TokenHostID, log)

	repCfg := reputation.Config{
		APIBaseURL:      cfg.Reputation.APIBaseURL,
		TokenURL:        cfg.Reputation.TokenURL,
		ClientID:        cfg.Reputation.ClientID,
		ClientSecret:    cfg.Reputation.ClientSecret,
		Username:        cfg.Reputation.Username,
		Password:        cfg.Reputation.Password,
		TokenHostID:     cfg.Reputation.TokenHostID,
		Timeout:         cfg.Reputation.Timeout,
		AccessTokenTTL:  cfg.Reputation.AccessTokenTTL,
		RefreshTokenTTL: cfg.Reputation.RefreshTokenTTL,
	}.WithDefaults()
	if err := repCfg.Validate(); err != nil {
		return err
	}
	httpClient := &http.Client{Timeout: repCfg.Timeout}
	authenticator := reputation.NewOAuth2Authenticator(repCfg, httpClient)
	client := reputation.NewClient(repCfg, tokens, authenticator, httpClient, log)
	invitationAPI := reputation.NewInvitationAPI(client, log)

	repo := persistence.NewGormInvitationRepository(db.DB)
	resolver := persistence.NewGormShipmentResolver(db.DB)

	invite := cfg.ReviewInvite
	composer := appreview.NewContextComposer(resolver, resolver, resolver, resolver, invite.Concurrency, log)
	evaluator := appreview.NewCancellationEvaluator()
	locales := appreview.NewLocaleResolver(appreview.LocaleConfig{
		DefaultLocale:       invite.DefaultLocale,
		DefaultTemplateID:   invite.DefaultTemplateID,
		LocalesByCountry:    invite.LocalesByCountry,
		TemplatesByLanguage: invite.TemplatesByLanguage,
	})
	sendEngine := appreview.NewSendEngine(invitationAPI, resolver, locales, invite.Concurrency, log)

	pipelineMetrics, err := telemetry.NewPipelineMetrics(mp.Meter("parcelreview.pipeline"))
	if err != nil {
		return fmt.Errorf("init pipeline metrics: %w", err)
	}
	orchestrator := appreview.NewPipelineOrchestrator(
		repo, composer, evaluator, sendEngine,
		appreview.OrchestratorConfig{
			Policy: review.CandidatePolicy{
				TodoDelay:  invite.TodoDelay,
				MaxRetries: invite.MaxRetries,
			},
			BatchSize: invite.BatchSize,
		},
		log,
		appreview.WithMetrics(pipelineMetrics),
	)

	sched, err := scheduler.NewReviewInvitationScheduler(scheduler.ReviewInvitationSchedulerConfig{
		PollInterval: cfg.Scheduler.PollInterval,
		RunTimeout:   cfg.Scheduler.RunTimeout,
		ProcessLimit: cfg.Scheduler.ProcessLimit,
		RunOnStart:   cfg.Scheduler.RunOnStart,
	}, orchestrator, log)
	if err != nil {
		return err
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	var srv *http.Server
	serverErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		srv, err = newHTTPServer(cfg, log, db, sched, mp)
		if err != nil {
			return err
		}
		go func() {
			log.Info("Server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-serverErr:
		log.Error("HTTP server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler did not stop in time", zap.Error(err))
	}
	return runErr
}

func newTokenStore(cfg *config.Config, db *persistence.Database) (auth.TokenStore, func(), error) {
	switch cfg.Reputation.TokenStore {
	case config.TokenStoreRedis:
		store, err := auth.NewRedisTokenStore(auth.RedisTokenStoreConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect token store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return persistence.NewGormTokenStore(db.DB), func() {}, nil
	}
}

func newHTTPServer(
	cfg *config.Config,
	log *zap.Logger,
	db *persistence.Database,
	sched *scheduler.ReviewInvitationScheduler,
	mp *telemetry.MeterProvider,
) (*http.Server, error) {
	mode := gin.DebugMode
	if cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.App.Name,
		Mode:             mode,
		TracingEnabled:   cfg.Telemetry.Enabled,
		ProfilingEnabled: cfg.Telemetry.ProfilingEnabled,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		Security:         middleware.SecurityConfig{HSTSEnabled: cfg.HTTP.HSTSEnabled, HSTSMaxAge: hstsMaxAge},
		Meter:            mp.Meter("parcelreview.http"),
	}, log)
	if err != nil {
		return nil, err
	}

	r := router.NewRouter(engine)
	r.RegisterRoot(handler.NewHealthHandler(db, cfg.App.Version))
	var opts []handler.ReviewInvitationOption
	if cfg.HTTP.TriggerRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.TriggerRateLimit, time.Minute)
		opts = append(opts, handler.WithProcessMiddleware(middleware.RateLimit(limiter)))
	}
	r.Register(handler.NewReviewInvitationHandler(sched, cfg.Scheduler.ProcessLimit, opts...))
	r.Setup()

	return &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}, nil
}
