package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	identitymetrics "github.com/ip-fomin/LaborX-backend/internal/identity/metrics"
	identityservice "github.com/ip-fomin/LaborX-backend/internal/identity/service"
	identitystore "github.com/ip-fomin/LaborX-backend/internal/identity/store"
	"github.com/ip-fomin/LaborX-backend/internal/notify"
	"github.com/ip-fomin/LaborX-backend/internal/platform/config"
	"github.com/ip-fomin/LaborX-backend/internal/platform/httpserver"
	"github.com/ip-fomin/LaborX-backend/internal/platform/logger"
	"github.com/ip-fomin/LaborX-backend/internal/platform/postgres"
	platformredis "github.com/ip-fomin/LaborX-backend/internal/platform/redis"
	tokenmetrics "github.com/ip-fomin/LaborX-backend/internal/token/metrics"
	tokenservice "github.com/ip-fomin/LaborX-backend/internal/token/service"
	tokenstore "github.com/ip-fomin/LaborX-backend/internal/token/store"
	httptransport "github.com/ip-fomin/LaborX-backend/internal/transport/http"
	verificationmetrics "github.com/ip-fomin/LaborX-backend/internal/verification/metrics"
	verificationservice "github.com/ip-fomin/LaborX-backend/internal/verification/service"
	checkstore "github.com/ip-fomin/LaborX-backend/internal/verification/store/check"
	requeststore "github.com/ip-fomin/LaborX-backend/internal/verification/store/request"
	auditpublisher "github.com/ip-fomin/LaborX-backend/pkg/platform/audit/publisher"
	auditkafka "github.com/ip-fomin/LaborX-backend/pkg/platform/audit/sink/kafka"
	auditmemory "github.com/ip-fomin/LaborX-backend/pkg/platform/audit/store/memory"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run() error {
	cfg := config.FromEnv()
	logg := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. Memory stores back everything Postgres and Redis are not
	// configured for, which keeps local development dependency-free.
	var (
		registry                              = prometheus.NewRegistry()
		accStore identitystore.AccountStore   = identitystore.NewInMemoryAccountStore()
		sigStore identitystore.SignatureStore = identitystore.NewInMemorySignatureStore()
		reqStore requeststore.Store           = requeststore.NewInMemoryStore()
		chkStore checkstore.Store             = checkstore.NewInMemoryStore()
		tokStore tokenstore.Store             = tokenstore.NewInMemoryStore()
	)

	pool, err := postgres.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		for _, schema := range []string{identitystore.Schema, requeststore.Schema, checkstore.Schema} {
			if _, err := pool.Exec(ctx, schema); err != nil {
				return err
			}
		}
		accStore = identitystore.NewPostgresAccountStore(pool)
		sigStore = identitystore.NewPostgresSignatureStore(pool)
		reqStore = requeststore.NewPostgresStore(pool)
		chkStore = checkstore.NewPostgresStore(pool)
		logg.Printf("storage: postgres")
	} else {
		logg.Printf("storage: in-memory")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		tokStore = tokenstore.NewRedisStore(redisClient.Client)
		logg.Printf("token store: redis")
	}

	// Audit trail: always kept in memory for the admin listing, optionally
	// fanned out to Kafka.
	publisherOpts := []auditpublisher.Option{auditpublisher.WithAsyncBuffer(256)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := auditkafka.NewClient(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		publisherOpts = append(publisherOpts, auditpublisher.WithSink(auditkafka.New(kafkaClient, cfg.AuditTopic)))
		logg.Printf("audit sink: kafka %v topic %s", cfg.KafkaBrokers, cfg.AuditTopic)
	}
	publisher := auditpublisher.NewPublisher(auditmemory.NewInMemoryStore(), publisherOpts...)
	defer publisher.Close()

	dispatcher := notify.NewSMTPDispatcher(cfg.SMTP)

	identity := identityservice.NewService(accStore, sigStore,
		identityservice.WithMetrics(identitymetrics.New(registry)),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithLogger(logg),
	)
	verification := verificationservice.NewService(reqStore, chkStore, accStore,
		verificationservice.WithDispatcher(dispatcher),
		verificationservice.WithBaseURL(cfg.BaseURL),
		verificationservice.WithMetrics(verificationmetrics.New(registry)),
		verificationservice.WithAuditPublisher(publisher),
		verificationservice.WithLogger(logg),
	)
	tokens := tokenservice.NewService(tokStore, []byte(cfg.JWTSigningKey),
		tokenservice.WithTTL(cfg.TokenTTL),
		tokenservice.WithMetrics(tokenmetrics.New(registry)),
		tokenservice.WithAuditPublisher(publisher),
		tokenservice.WithLogger(logg),
	)

	router := httptransport.NewRouter(
		httptransport.NewIdentityHandler(identity, logg),
		httptransport.NewVerificationHandler(verification, logg),
		httptransport.NewTokenHandler(tokens, logg),
		registry,
	)
	server := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Printf("listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
