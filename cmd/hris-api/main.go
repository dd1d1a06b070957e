// cmd/hris-api/main.go
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

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hris-cloud/internal/api"
	"hris-cloud/internal/common/auth"
	awsclients "hris-cloud/internal/common/aws"
	"hris-cloud/internal/common/camunda"
	"hris-cloud/internal/common/config"
	"hris-cloud/internal/common/database"
	"hris-cloud/internal/common/llm"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/observability"
	"hris-cloud/internal/intake"
	"hris-cloud/internal/policy"
	"hris-cloud/internal/ratelimit"
	"hris-cloud/internal/recruitment"
	"hris-cloud/internal/store"
	"hris-cloud/internal/tasks"

	pse "hris-cloud/internal/workers/recruitment/publish-status-event"
	sa "hris-cloud/internal/workers/recruitment/score-applicant"
	sde "hris-cloud/internal/workers/recruitment/send-decision-email"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting HRIS API...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability init failed, task metrics disabled", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (optional) ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			// Policy log search falls back to the database.
			zapLog.Error("elasticsearch unavailable, policy log search uses postgres", zap.Error(err))
			esClient = nil
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Zeebe Client with retry (optional) ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled || cfg.Tasks.Backend == "zeebe" {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
	}

	// --- Persistence ---
	st := store.New(pg.DB, log)
	if cfg.App.AutoMigrate {
		applied, err := st.Migrate(ctx)
		if err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("schema up to date", zap.Strings("applied", applied))
	}

	extractor, err := intake.NewExtractorFor(cfg.PDF, log)
	if err != nil {
		zapLog.Fatal("pdf extractor init failed", zap.Error(err))
	}
	zapLog.Info("pdf extraction configured", zap.String("backend", extractor.Backend()))

	generator, err := llm.New(ctx, cfg.Scoring, log)
	if err != nil {
		zapLog.Fatal("llm client init failed", zap.Error(err))
	}

	// --- Notifications ---
	publisher := buildPublisher(ctx, cfg.Notifications, log, zapLog)

	emailCfg := sde.LoadConfig(cfg.Notifications)
	mailer, err := sde.NewMailer(ctx, emailCfg, log)
	if err != nil {
		zapLog.Fatal("email provider init failed", zap.Error(err))
	}
	emailHandler := sde.NewHandler(emailCfg, mailer, log)
	zapLog.Info("decision emails configured", zap.String("provider", mailer.Name()))

	scorer := sa.NewHandler(sa.LoadConfig(cfg.Scoring), generator, st, publisher, log)

	// --- Background scoring ---
	var (
		inproc     *tasks.InProcess
		amqpQueue  *tasks.AMQP
		dispatcher tasks.Dispatcher
	)
	switch cfg.Tasks.Backend {
	case "amqp":
		err = retryWithBackoff(func() error {
			var err error
			amqpQueue, err = tasks.DialAMQP(cfg.Tasks.AMQPURL, cfg.Tasks.QueueName, cfg.Tasks.Prefetch, obs, log)
			return err
		}, 10, 2*time.Second, zapLog, "AMQP connection")
		if err != nil {
			zapLog.Fatal("amqp failed after retries", zap.Error(err))
		}
		go func() {
			if err := amqpQueue.Consume(ctx, scorer.HandleTask); err != nil && !errors.Is(err, context.Canceled) {
				zapLog.Error("amqp consumer stopped", zap.Error(err))
			}
		}()
		dispatcher = amqpQueue
	case "zeebe":
		dispatcher = tasks.NewZeebe(zeebe, cfg.Tasks.ProcessID, log)
	default:
		inproc = tasks.NewInProcess(scorer.HandleTask, cfg.Tasks.Workers, cfg.Tasks.QueueSize, obs, log)
		inproc.Start(ctx)
		dispatcher = inproc
	}
	zapLog.Info("scoring dispatcher ready", zap.String("backend", cfg.Tasks.Backend))

	var workers []worker.JobWorker
	if zeebe != nil {
		opts := camunda.WorkerOptions{
			MaxJobsActive: cfg.Camunda.MaxJobsActive,
			Timeout:       config.GetDuration(cfg.Camunda.Timeout),
		}
		client := zeebe.GetClient()
		workers = append(workers,
			camunda.StartWorker(client, sa.TaskType, opts, scorer.Handle, log),
			camunda.StartWorker(client, sde.TaskType, opts, emailHandler.Handle, log),
			camunda.StartWorker(client, pse.TaskType, opts, publisher.Handle, log),
		)
	}

	recruiting := recruitment.NewService(recruitment.Deps{
		Repo:       st,
		Dispatcher: dispatcher,
		Mailer:     emailHandler,
		Events:     publisher,
		Extractor:  extractor,
		Intake:     intake.ConfigFrom(cfg.Intake),
	}, log)

	// --- Rate limiting ---
	var redisClient *redis.Client
	if rdb != nil {
		redisClient = rdb.Client
	}
	limiter, err := ratelimit.New(cfg.RateLimit, redisClient, log)
	if err != nil {
		zapLog.Fatal("rate limiter init failed", zap.Error(err))
	}
	if mem, ok := limiter.(*ratelimit.Memory); ok {
		go mem.Run(ctx, config.GetDuration(cfg.RateLimit.SweepInterval))
	}

	// --- Policy assistant ---
	var esRaw *elasticsearch.Client
	if esClient != nil {
		esRaw = esClient.Client
	}
	policyDeps := policy.Deps{
		Storage:   policy.NewStorage(cfg.Policy.Dir, log),
		Extractor: extractor,
		Generator: generator,
		Logs:      st,
		Indexer:   policy.NewIndexer(esRaw, cfg.Policy.Index, log),
		CacheTTL:  time.Duration(cfg.Policy.CacheTTL) * time.Second,
	}
	if redisClient != nil {
		policyDeps.Redis = redisClient
	}
	policySvc := policy.NewService(policyDeps, log)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.LeewaySeconds)*time.Second)
	if verifier.Insecure() {
		zapLog.Warn("JWT secret not set, bearer tokens are decoded without signature verification")
	}

	// --- HTTP API ---
	checks := map[string]api.Check{
		"postgres": pg.Ping,
	}
	if rdb != nil {
		checks["redis"] = rdb.Ping
	}
	if zeebe != nil {
		checks["zeebe"] = zeebe.HealthCheck
	}

	server := api.NewServer(api.Deps{
		Recruitment: recruiting,
		Employees:   st,
		Policy:      policySvc,
		PolicyFiles: policyDeps.Storage,
		Limiter:     limiter,
		Quotas:      ratelimit.PolicyFrom(cfg.RateLimit),
		Verifier:    verifier,
		Checks:      checks,
	}, api.Options{
		ServiceName:    "HRIS Cloud",
		Version:        cfg.App.Version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, log)

	httpServer := server.HTTPServer(cfg.Server.Addr(),
		config.GetDuration(cfg.Server.ReadTimeout),
		config.GetDuration(cfg.Server.WriteTimeout),
	)
	go func() {
		zapLog.Info("HTTP API listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownGrace))
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if inproc != nil {
		if err := inproc.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Scoring queue did not drain", zap.Error(err))
		}
	}
	cancel()
	if amqpQueue != nil {
		if err := amqpQueue.Close(); err != nil {
			zapLog.Error("Error closing AMQP connection", zap.Error(err))
		}
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if obs != nil {
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error shutting down observability", zap.Error(err))
		}
	}

	zapLog.Info("HRIS API stopped gracefully")
}

// buildPublisher returns an SNS-backed publisher when a topic is configured.
// Without one the publisher is disabled and Publish is a no-op.
func buildPublisher(ctx context.Context, cfg config.NotificationConfig, log logger.Logger, zapLog *zap.Logger) *pse.Publisher {
	pcfg := pse.LoadConfig(cfg)
	if cfg.Events.TopicARN == "" {
		zapLog.Info("status events disabled, no SNS topic configured")
		return pse.NewPublisher(pcfg, nil, log)
	}
	client, err := awsclients.NewSNSClient(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	return pse.NewPublisher(pcfg, client, log)
}
