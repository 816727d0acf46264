package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/repository/postgres"
	analyticsService "github.com/havenapp/mood-engine/internal/service/analytics"
	"github.com/havenapp/mood-engine/internal/service/evaluation"
	schedulerService "github.com/havenapp/mood-engine/internal/service/scheduler"
	"github.com/havenapp/mood-engine/pkg/delivery"
	"github.com/havenapp/mood-engine/pkg/logger"
	messagingredis "github.com/havenapp/mood-engine/pkg/messaging/redis"
	"github.com/havenapp/mood-engine/pkg/metrics"
	"github.com/havenapp/mood-engine/pkg/worker"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := config.ApplyWorkerEnv(&cfg.Worker); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply worker environment")
	}

	appLogger := logger.NewLogger(nil)
	zl := appLogger.Zerolog()
	m := metrics.NewMetrics("mood_engine", "worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	broker, err := messagingredis.NewRedisBroker(messagingredis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	journalRepo := postgres.NewJournalRepository(base)
	alertRepo := postgres.NewAlertRepository(base)
	notifRepo := postgres.NewNotificationRepository(base)
	prefsRepo := postgres.NewPreferencesRepository(base)
	analyticsRepo := postgres.NewAnalyticsRepository(base)
	triggerRepo := postgres.NewTriggerRepository(base)
	profileRepo := postgres.NewProfileRepository(base)

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

	ticker := worker.NewTicker(profileRepo, evaluator, cfg.Worker.TickInterval, appLogger)
	redelivery := worker.NewRedelivery(notifRepo, sink, tracker, worker.RedeliveryConfig{
		BatchSize:    cfg.Worker.RedeliveryBatch,
		PollInterval: cfg.Worker.RedeliveryInterval,
	}, appLogger, m)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ticker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		redelivery.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down worker")
	cancel()
	wg.Wait()
	appLogger.Info("Worker exited properly")
}
