package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fedremit/internal/analytics"
	"fedremit/internal/approval"
	"fedremit/internal/auditlog"
	"fedremit/internal/jwttoken"
	"fedremit/internal/member"
	"fedremit/internal/notification"
	"fedremit/internal/organization"
	"fedremit/internal/platform/config"
	"fedremit/internal/platform/httpserver"
	"fedremit/internal/platform/kafka"
	"fedremit/internal/platform/logger"
	"fedremit/internal/platform/metrics"
	"fedremit/internal/platform/postgres"
	platformredis "fedremit/internal/platform/redis"
	"fedremit/internal/registry"
	"fedremit/internal/remittance"
	"fedremit/internal/remittance/calculator"
	"fedremit/internal/review"
	"fedremit/internal/scheduler"
	"fedremit/internal/standing"
	httptransport "fedremit/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("load configuration failed", "error", err)
		os.Exit(1)
	}

	// Stores: postgres when a database is configured, in-memory for
	// development otherwise.
	var (
		orgs    organization.Store
		members member.Store
		remits  remittance.Store
		records approval.Store
		reviews review.Store
		events  auditlog.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("open database failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		orgs = organization.NewPostgres(db)
		members = member.NewPostgres(db)
		remits = remittance.NewPostgres(db)
		records = approval.NewPostgres(db)
		reviews = review.NewPostgres(db)
		events = auditlog.NewPostgres(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		orgs = organization.NewMemory()
		members = member.NewMemory()
		remits = remittance.NewMemory()
		records = approval.NewMemory()
		reviews = review.NewMemory()
		events = auditlog.NewMemory()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()
	publisher := auditlog.NewPublisher(events, log)

	// The audit stream sink is optional; without brokers the worker only
	// drains the inbox.
	var sink auditlog.StreamSink
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		log.Error("connect kafka failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
		sink = producer
	}

	evaluator := standing.NewEvaluator(members)
	calc := calculator.New(orgs, evaluator, remits, log, m)

	cache := registry.NewRecordCache(redisClient, cfg.Registry.CacheTTL)
	registryClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.BearerToken,
		cfg.Registry.Timeout, cfg.Registry.MaxAttempts,
		registry.WithLatencyObserver(m.RegistryFetchObserved))
	syncSvc := registry.NewService(orgs, registryClient, cache, reviews, publisher, log, m, cfg.Registry.SyncDelay)
	webhooks := registry.NewWebhookProcessor(cfg.Registry.WebhookSecret, orgs, syncSvc, cache, publisher, log, m)

	executive := notification.Recipient{
		Name:  cfg.Notify.ExecutiveName,
		Email: cfg.Notify.ExecutiveEmail,
		Phone: cfg.Notify.ExecutivePhone,
	}
	dispatcher := notification.NewDispatcher(orgs, remits,
		notification.LogEmailSender{Logger: log}, notification.LogSMSSender{Logger: log},
		executive, publisher, log, m)

	approvals := approval.NewService(remits, orgs, records, dispatcher, publisher, log, m)
	reports := analytics.NewEngine(remits, orgs)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, "fedremit")

	handler := httptransport.NewHandler(approvals, webhooks, syncSvc, reports, tokens, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := auditlog.NewWorker(publisher.Inbox(), sink, log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	sched := scheduler.New(calc, dispatcher, orgs, log, cfg.SchedulerInterval)
	go sched.Run(ctx)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
