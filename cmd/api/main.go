package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/handler"
	alertHandler "github.com/havenapp/mood-engine/internal/handler/alert"
	authHandler "github.com/havenapp/mood-engine/internal/handler/auth"
	journalHandler "github.com/havenapp/mood-engine/internal/handler/journal"
	notificationHandler "github.com/havenapp/mood-engine/internal/handler/notification"
	preferencesHandler "github.com/havenapp/mood-engine/internal/handler/preferences"
	trendHandler "github.com/havenapp/mood-engine/internal/handler/trend"
	triggerHandler "github.com/havenapp/mood-engine/internal/handler/trigger"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/repository/postgres"
	"github.com/havenapp/mood-engine/internal/router"
	analyticsService "github.com/havenapp/mood-engine/internal/service/analytics"
	authService "github.com/havenapp/mood-engine/internal/service/auth"
	"github.com/havenapp/mood-engine/internal/service/evaluation"
	journalService "github.com/havenapp/mood-engine/internal/service/journal"
	schedulerService "github.com/havenapp/mood-engine/internal/service/scheduler"
	triggerService "github.com/havenapp/mood-engine/internal/service/trigger"
	pkgauth "github.com/havenapp/mood-engine/pkg/auth"
	"github.com/havenapp/mood-engine/pkg/delivery"
	"github.com/havenapp/mood-engine/pkg/logger"
	messagingredis "github.com/havenapp/mood-engine/pkg/messaging/redis"
	"github.com/havenapp/mood-engine/pkg/metrics"
	"github.com/havenapp/mood-engine/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	zl := appLogger.Zerolog()
	m := metrics.NewMetrics("mood_engine", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	journalRepo := postgres.NewJournalRepository(base)
	alertRepo := postgres.NewAlertRepository(base)
	notifRepo := postgres.NewNotificationRepository(base)
	prefsRepo := postgres.NewPreferencesRepository(base)
	analyticsRepo := postgres.NewAnalyticsRepository(base)
	triggerRepo := postgres.NewTriggerRepository(base)
	profileRepo := postgres.NewProfileRepository(base)

	broker, err := messagingredis.NewRedisBroker(messagingredis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	sink := delivery.NewRedisSink(broker, zl)
	mailer := delivery.NewSMTPMailer(delivery.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	tracker := analyticsService.NewTracker(cfg.Engine, analyticsRepo, notifRepo, m, zl)
	sched := schedulerService.NewScheduler(cfg.Engine, notifRepo, sink, m, zl)
	evaluator := evaluation.NewService(cfg.Engine, evaluation.Deps{
		JournalRepo: journalRepo,
		AlertRepo:   alertRepo,
		PrefsRepo:   prefsRepo,
		TriggerRepo: triggerRepo,
		NotifRepo:   notifRepo,
		ProfileRepo: profileRepo,
		Scheduler:   sched,
		Tracker:     tracker,
		Mailer:      mailer,
		Metrics:     m,
		Logger:      zl,
	})
	journalSvc := journalService.NewService(journalRepo)

	jwtSvc := pkgauth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(profileRepo, hasher, jwtSvc)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	catalogLoader := triggerService.NewCatalogLoader(zl)

	h := handler.NewHandler()
	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		h,
		router.RouterConfig{
			RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst: cfg.RateLimit.Burst,
			MetricsPrefix:  "mood_engine_http",
		},
		journalHandler.NewHandler(journalSvc, evaluator),
		trendHandler.NewHandler(evaluator),
		alertHandler.NewHandler(alertRepo),
		notificationHandler.NewHandler(notifRepo, tracker),
		preferencesHandler.NewHandler(prefsRepo),
		triggerHandler.NewHandler(triggerRepo, catalogLoader),
	)
	r.Setup()

	// Opened callbacks arrive over the broker as well as the HTTP callback;
	// both funnel into the same tracker.
	listenCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	opened := delivery.NewOpenedListener(broker, zl)
	go func() {
		err := opened.Listen(listenCtx, func(ctx context.Context, event delivery.OpenedEvent) error {
			return tracker.Opened(ctx, event.NotificationID, time.Now())
		})
		if err != nil && err != context.Canceled {
			zl.Error().Err(err).Msg("opened listener stopped")
		}
	}()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	stopListener()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
