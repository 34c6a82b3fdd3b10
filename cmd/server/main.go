// Command server wires the claim-validation core: stores (postgres or
// in-memory), the audit pipeline, the notification queue, all module
// services, and the HTTP surface. Lifecycle is errgroup-managed with
// graceful shutdown on SIGINT/SIGTERM.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"stilltrue/internal/audit"
	"stilltrue/internal/claim"
	claimhandler "stilltrue/internal/claim/handler"
	claimservice "stilltrue/internal/claim/service"
	"stilltrue/internal/claimstate"
	httpapi "stilltrue/internal/http"
	"stilltrue/internal/jwttoken"
	"stilltrue/internal/notify"
	"stilltrue/internal/platform/config"
	"stilltrue/internal/platform/httpserver"
	"stilltrue/internal/platform/logger"
	"stilltrue/internal/platform/metrics"
	platformredis "stilltrue/internal/platform/redis"
	"stilltrue/internal/projection"
	projectionhandler "stilltrue/internal/projection/handler"
	"stilltrue/internal/validation"
	validationhandler "stilltrue/internal/validation/handler"
	validationservice "stilltrue/internal/validation/service"
	"stilltrue/internal/validator"
	validatorhandler "stilltrue/internal/validator/handler"
	validatorservice "stilltrue/internal/validator/service"
	"stilltrue/internal/workspace"
	workspacehandler "stilltrue/internal/workspace/handler"
	workspaceservice "stilltrue/internal/workspace/service"
)

const requestTimeout = 30 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence: postgres when a DSN is configured, in-memory otherwise.
	var (
		db              *sql.DB
		wsStore         workspace.Store
		claimStore      claim.Store
		registryStore   validator.Store
		validationStore validation.Store
		workflowTx      validationservice.Tx
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}
		wsStore = workspace.NewPostgresStore(db)
		claimStore = claim.NewPostgresStore(db)
		registryStore = validator.NewPostgresStore(db)
		validationStore = validation.NewPostgresStore(db)
		workflowTx = newValidationPostgresTx(db)
		log.Info("using postgres stores")
	} else {
		registry := validator.NewMemoryStore()
		memValidation := validation.NewMemoryStore(registry)
		memClaims := claim.NewMemoryStore()
		memClaims.AttachRequestCloser(memValidation)
		wsStore = workspace.NewMemoryStore()
		claimStore = memClaims
		registryStore = registry
		validationStore = memValidation
		workflowTx = validationservice.NewShardedMemoryTx(memValidation)
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	// Audit pipeline: events flow through a buffered channel into the sink
	// so publishing never blocks a request.
	var sink audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaStore(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events flowing to kafka", "topic", cfg.AuditTopic)
	} else {
		sink = audit.NewMemoryStore()
	}
	auditCh := make(chan audit.Event, 256)
	auditPublisher := audit.NewPublisher(audit.NewChannelStore(auditCh))
	auditWorker := audit.NewWorker(sink, auditCh, log)

	// Notification queue: redis-backed when configured.
	var dispatcher notify.Dispatcher
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		dispatcher = notify.NewRedisQueue(redisClient.Client, notify.DefaultQueueKey)
		log.Info("notification deliveries flowing to redis")
	} else {
		dispatcher = notify.NewMemoryQueue()
	}

	wsService := workspaceservice.New(wsStore,
		workspaceservice.WithLogger(log),
		workspaceservice.WithAuditPublisher(auditPublisher))
	claimService := claimservice.New(claimStore, wsService,
		claimservice.WithLogger(log),
		claimservice.WithAuditPublisher(auditPublisher),
		claimservice.WithMetrics(m))
	validatorService := validatorservice.New(registryStore, claimStore, wsStore, wsService,
		validatorservice.WithLogger(log),
		validatorservice.WithAuditPublisher(auditPublisher))
	validationService := validationservice.New(validationStore, workflowTx, claimStore, wsService, wsStore,
		validationservice.WithLogger(log),
		validationservice.WithAuditPublisher(auditPublisher),
		validationservice.WithMetrics(m),
		validationservice.WithDispatcher(dispatcher))
	stateService := claimstate.New(claimStore, validationStore, wsService, log)
	projectionService := projection.New(claimStore, validationStore, wsService, log)

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Metrics:        m,
		TokenValidator: jwtService,
		RequestTimeout: requestTimeout,
		Handlers: []httpapi.Registrar{
			workspacehandler.New(wsService, log),
			claimhandler.New(claimService, log),
			validatorhandler.New(validatorService, log),
			validationhandler.New(validationService, log),
			projectionhandler.New(projectionService, stateService, log),
		},
		Health: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(ctx)
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
