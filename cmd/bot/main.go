package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sabordigital/zappedido/internal/bot"
	"github.com/sabordigital/zappedido/internal/bot/handlers"
	"github.com/sabordigital/zappedido/internal/conversation"
	"github.com/sabordigital/zappedido/internal/customer"
	"github.com/sabordigital/zappedido/internal/customercache"
	"github.com/sabordigital/zappedido/internal/database"
	"github.com/sabordigital/zappedido/internal/health"
	"github.com/sabordigital/zappedido/internal/idempotency"
	"github.com/sabordigital/zappedido/internal/jobs"
	jobhandlers "github.com/sabordigital/zappedido/internal/jobs/handlers"
	"github.com/sabordigital/zappedido/internal/lifecycle"
	"github.com/sabordigital/zappedido/internal/order"
	"github.com/sabordigital/zappedido/internal/payment"
	"github.com/sabordigital/zappedido/internal/ratelimit"
	"github.com/sabordigital/zappedido/internal/repository"
	"github.com/sabordigital/zappedido/internal/whatsapp"
	"github.com/sabordigital/zappedido/pkg/config"
	"github.com/sabordigital/zappedido/pkg/graceful"
	"github.com/sabordigital/zappedido/pkg/logger"
	"github.com/sabordigital/zappedido/pkg/metrics"
	redispkg "github.com/sabordigital/zappedido/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Sentry.Enabled {
		if err := sentrygo.Init(sentrygo.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			slog.Error("failed to initialize sentry", slog.Any("error", err))
			os.Exit(1)
		}
		defer sentrygo.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting zappedido",
		slog.String("env", cfg.AppEnv),
		slog.String("port", cfg.Server.Port),
	)

	config.Watch(v, log, func(updated config.Config) {
		log.Info("configuration file changed, restart to apply")
	})

	redisClient, err := redispkg.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = redisClient.Close()
	}()

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// conversation state
	storage := conversation.NewRedisStorage(redisClient, log, cfg.Bot.SessionTTL)
	fsm := conversation.NewMachine(storage, log, redisClient)
	cleaner := conversation.NewCleaner(redisClient, storage, log, cfg.Bot.SessionTTL, cfg.Bot.CleanupInterval)

	// external services
	backendClient := order.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout, log)
	linkClient := payment.NewClient(cfg.Payments.BaseURL, cfg.Payments.Timeout, log)
	poller := payment.NewPoller(backendClient, cfg.Payments.PollInterval, cfg.Payments.PollTimeout, log)
	waClient := whatsapp.NewClient(cfg.WhatsApp, log)

	// customer profiles
	custRepo := repository.NewCustomerRepository(db, log)
	custCache := customercache.NewCache(redisClient)
	custService := customer.NewService(custRepo, custCache, log)

	// background jobs
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	jobsManager := jobs.NewManager(redisOpt, log)
	followUps := jobs.NewFollowUps(jobsManager, cfg.Bot.FollowUpDelay, log)

	worker := jobs.NewWorker(redisOpt, map[string]int{
		jobs.QueueCritical: 6,
		jobs.QueueDefault:  3,
		jobs.QueueLow:      1,
	}, log)
	worker.RegisterHandler(jobs.TaskTypeOrderFollowUp, jobhandlers.NewFollowUpHandler(fsm, waClient, log))
	worker.RegisterHandler(jobs.TaskTypeConversationCleanup, jobhandlers.NewCleanupHandler(cleaner, log))
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()

	scheduler := jobs.NewScheduler(redisOpt, log)
	if err := scheduler.RegisterTasks(); err != nil {
		log.Error("failed to register scheduled tasks", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Run()

	// the bot itself
	deps := handlers.Deps{
		FSM:       fsm,
		Backend:   backendClient,
		Links:     linkClient,
		Poller:    poller,
		Customers: custService,
		Fees:      order.NewFeeCalculator(cfg.Delivery.BaseFee, cfg.Delivery.FreeAboveOver),
		Sender:    waClient,
		FollowUps: followUps,
		Log:       log,
	}
	limiter := ratelimit.NewRedisLimiter(redisClient, log)
	rules := ratelimit.NewRules(cfg.Bot.RateLimit, cfg.Bot.RateWindow, cfg.Bot.RateWhitelist)
	deduper := idempotency.NewDeduper(redisClient, 24*time.Hour, log)

	b := bot.New(*cfg, log, deps, limiter, rules, deduper)

	// health
	checker := health.NewChecker(log)
	checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("order-backend", health.NewHTTPChecker(cfg.Backend.BaseURL+"/health"))
	probes := lifecycle.NewProbes(log, checker.Healthy)

	// http server
	mux := http.NewServeMux()
	whatsapp.NewWebhook(cfg.WhatsApp.VerifyToken, b, log).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", health.Handler(checker))
	mux.HandleFunc("/live", probeHandler(probes.Liveness))
	mux.HandleFunc("/ready", probeHandler(probes.Readiness))

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           logger.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := graceful.NewServer(log, srv, cfg.Server.ShutdownTimeout)

	// background loops
	go cleaner.Run(ctx)
	go metrics.NewStateCollector(fsm).Run(ctx)

	// shutdown hooks
	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("payment-poller", poller.Shutdown)
	shutdown.Register("jobs-worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("jobs-scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})
	shutdown.Register("jobs-manager", func(context.Context) error {
		return jobsManager.Close()
	})

	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("http server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("zappedido stopped")
}

func probeHandler(probe func(context.Context) error) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}
}
