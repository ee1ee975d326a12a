package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"carteret/internal/admin"
	"carteret/internal/audit"
	auditstore "carteret/internal/audit/store"
	"carteret/internal/authz"
	"carteret/internal/identity"
	identitystore "carteret/internal/identity/store"
	"carteret/internal/jwttoken"
	"carteret/internal/listing"
	liststore "carteret/internal/listing/store"
	"carteret/internal/objectstore"
	"carteret/internal/payment"
	photostore "carteret/internal/photo/store"
	"carteret/internal/platform/config"
	"carteret/internal/platform/httpserver"
	"carteret/internal/platform/logger"
	"carteret/internal/platform/metrics"
	platformredis "carteret/internal/platform/redis"
	"carteret/internal/submission"
	transporthttp "carteret/internal/transport/http"
	"carteret/internal/verification"
	verifstore "carteret/internal/verification/store"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	objects, err := objectstore.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region)
	if err != nil {
		log.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}

	outbox := auditstore.NewPostgresStore(db)
	recorder := audit.NewRecorder(outbox, log)

	gate := authz.NewGate(log, m)
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	users := identitystore.NewPostgresStore(db)
	resolver := identity.NewResolver(users, log, m)

	listings := liststore.NewPostgresStore(db)
	listingCache := listing.NewCache(redisClient, log)
	listSvc := listing.NewService(listings, listingCache, gate, recorder, log, m)

	verifSvc := verification.NewService(verifstore.NewPostgresStore(db), gate, recorder, log, m)

	photos := photostore.NewPostgresStore(db)
	checkout := payment.NewClient(cfg.Payments.Endpoint, cfg.Payments.RequestTimeout, log)
	orchestrator := submission.NewOrchestrator(resolver, listSvc, photos, objects, checkout,
		submission.Config{
			FeeCents:    int(cfg.Payments.FeeCents),
			RedirectURL: cfg.Payments.RedirectURL,
			MockMode:    cfg.Payments.MockMode,
		}, log, m)

	adminSvc := admin.NewService(users, listSvc, verifSvc, photos, objects, gate, recorder, log)

	if len(cfg.Kafka.Brokers) > 0 {
		relay, err := audit.NewRelay(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic,
			cfg.Kafka.RelayPeriod, outbox, log)
		if err != nil {
			log.Error("failed to start audit relay", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		go relay.Run(ctx)
	} else {
		log.Info("audit relay disabled, events stay in the outbox")
	}

	health := func() error {
		if err := db.Ping(); err != nil {
			return err
		}
		if redisClient != nil {
			return redisClient.Health(context.Background())
		}
		return nil
	}

	router := transporthttp.NewRouter(tokens, resolver, log, health,
		transporthttp.NewListingHandler(listSvc, photos, orchestrator, tokens, cfg.Storage.PublicBaseURL, log),
		transporthttp.NewVerificationHandler(verifSvc, log),
		transporthttp.NewPaymentHandler(listSvc, cfg.Payments.CallbackSecretHash, log),
		transporthttp.NewAdminHandler(adminSvc, listSvc, log),
	)

	srv := httpserver.New(httpserver.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router)

	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr, "mock_payments", cfg.Payments.MockMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
