package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"domainhub/internal/audit"
	auditkafka "domainhub/internal/audit/kafka"
	auditstore "domainhub/internal/audit/store"
	"domainhub/internal/credentials"
	invstore "domainhub/internal/inventory/store"
	"domainhub/internal/platform/config"
	"domainhub/internal/platform/httpserver"
	"domainhub/internal/platform/logger"
	"domainhub/internal/platform/metrics"
	"domainhub/internal/platform/middleware"
	platformredis "domainhub/internal/platform/redis"
	"domainhub/internal/registrar/adapters"
	"domainhub/internal/scheduler"
	"domainhub/internal/sync"
	httptransport "domainhub/internal/transport/http"
	"domainhub/internal/verification"
)

// main wires dependencies and owns the process lifecycle. Business logic lives
// in the internal packages; everything here is construction and shutdown.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	log := logger.New()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	// Stores: PostgreSQL when configured, memory otherwise (dev mode).
	var (
		domains   invstore.DomainStore
		accounts  invstore.AccountStore
		blobs     credentials.BlobStore
		verLog    audit.VerificationLog
		syncLog   audit.SyncLog
		tokenBase verification.TokenStore
		tokenDB   *sql.DB
	)
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		domains = invstore.NewPostgresDomainStore(db)
		accounts = invstore.NewPostgresAccountStore(db)
		blobs = credentials.NewPostgresBlobStore(db)
		verLog = auditstore.NewPostgresVerificationLog(db)
		syncLog = auditstore.NewPostgresSyncLog(db)
		tokenDB = db
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		domains = invstore.NewInMemoryDomainStore()
		accounts = invstore.NewInMemoryAccountStore()
		blobs = credentials.NewInMemoryBlobStore()
		verLog = auditstore.NewInMemoryVerificationLog()
		syncLog = auditstore.NewInMemorySyncLog()
	}

	// Token storage preference: Redis when configured, then PostgreSQL, then
	// memory.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	switch {
	case redisClient != nil:
		defer redisClient.Close()
		tokenBase = verification.NewRedisTokenStore(redisClient.Client)
	case tokenDB != nil:
		tokenBase = verification.NewPostgresTokenStore(tokenDB)
	default:
		tokenBase = verification.NewInMemoryTokenStore()
	}

	var recorderOpts []audit.RecorderOption
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := auditkafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		recorderOpts = append(recorderOpts, audit.WithPublisher(publisher))
	}
	recorder := audit.NewRecorder(verLog, syncLog, log, recorderOpts...)

	vault, err := credentials.NewVault(cfg.VaultKey, blobs, accounts)
	if err != nil {
		log.Error("vault init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	factory := adapters.NewFactory()
	engine := sync.NewEngine(domains, accounts, vault, factory, recorder, log,
		sync.WithMetrics(m),
		sync.WithInterAccountDelay(cfg.Sync.InterAccountDelay),
	)
	verifier := verification.NewService(domains, tokenBase, verification.NewNetResolver(), recorder, log,
		verification.WithMetrics(m),
	)

	handler := httptransport.NewHandler(engine, verifier, vault, factory, domains, accounts, recorder, log)
	router := httptransport.NewRouter(handler, middleware.NewHMACValidator(cfg.Server.JWTSigningKey))
	srv := httpserver.New(cfg.Server.Addr, router)

	sched, err := scheduler.New(cfg.Sync.Schedule, engine, log)
	if err != nil {
		log.Error("invalid sync schedule", "schedule", cfg.Sync.Schedule, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting domainhub", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-ctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
