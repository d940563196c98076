// Command matcher-service runs the program-matching HTTP API: it wires
// configuration, the vector store, the LLM client, and every matcher
// component (retrieval, scoring, calibration, violations, persistence,
// notification) behind the orchestrator and HTTP layers, then serves the
// API and Prometheus metrics until an interrupt or terminate signal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/db"
	"github.com/opportumatch/matcher/internal/config"
	"github.com/opportumatch/matcher/internal/database"
	"github.com/opportumatch/matcher/internal/projectstore"
	"github.com/opportumatch/matcher/pkg/matcher/httpapi"
	"github.com/opportumatch/matcher/pkg/matcher/llm"
	"github.com/opportumatch/matcher/pkg/matcher/notify"
	"github.com/opportumatch/matcher/pkg/matcher/orchestrator"
	"github.com/opportumatch/matcher/pkg/matcher/persist"
	"github.com/opportumatch/matcher/pkg/matcher/retriever"
	"github.com/opportumatch/matcher/pkg/matcher/scoring"
	"github.com/opportumatch/matcher/pkg/matcher/types"
	"github.com/opportumatch/matcher/pkg/matcher/violations"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
	"github.com/opportumatch/matcher/pkg/storage/vector"
)

func main() {
	configPath := flag.String("config", "./config/matcher-service.yaml", "path to the matcher-service configuration file")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithFields(sharedlogging.NewFields().Component("main").Operation("load_config").Error(err).ToLogrus()).
			Fatal("failed to load configuration")
	}
	configureLogger(logger, cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, err := database.Connect(dbConfigFromEnv(), logger)
	if err != nil {
		logger.WithFields(sharedlogging.NewFields().Component("main").Operation("connect_db").Error(err).ToLogrus()).
			Fatal("failed to connect to database")
	}
	defer sqlDB.Close()

	if err := database.Migrate(sqlDB, db.Migrations, logger); err != nil {
		logger.WithFields(sharedlogging.NewFields().Component("main").Operation("migrate").Error(err).ToLogrus()).
			Fatal("failed to apply database migrations")
	}

	orch, persister, err := buildOrchestrator(ctx, cfg, sqlDB, logger)
	if err != nil {
		logger.WithFields(sharedlogging.NewFields().Component("main").Operation("build_orchestrator").Error(err).ToLogrus()).
			Fatal("failed to build orchestrator")
	}

	store := projectstore.NewStore(sqlDB)
	weights := types.Weights{Rule: cfg.Matching.Weights.Rule, Content: cfg.Matching.Weights.Content, Goal: cfg.Matching.Weights.Goal}
	server := httpapi.NewServerWithDefaults(store, orch, persister, logger, weights, calibrationFromConfig(cfg.Matching.Calibration), cfg.Retrieval.TopKDefault)

	apiServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router(),
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.Handler(),
	}

	errs := make(chan error, 2)
	go func() { errs <- runServer(apiServer, "api", logger) }()
	go func() { errs <- runServer(metricsServer, "metrics", logger) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		logger.WithFields(sharedlogging.NewFields().Component("main").Error(err).ToLogrus()).
			Error("server exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
}

func runServer(srv *http.Server, name string, logger *logrus.Logger) error {
	logger.WithFields(sharedlogging.NewFields().Component("main").Operation("listen").Custom("server", name).Custom("addr", srv.Addr).ToLogrus()).
		Info("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func dbConfigFromEnv() *database.Config {
	c := database.DefaultConfig()
	c.LoadFromEnv()
	return c
}

// buildOrchestrator wires the retrieval/scoring/calibration/violation/
// persistence/notification chain described by cfg into a single
// Orchestrator, along with the Persister the HTTP layer reads matches
// back through.
func buildOrchestrator(ctx context.Context, cfg *config.Config, sqlDB *sqlx.DB, logger *logrus.Logger) (*orchestrator.Orchestrator, *persist.Persister, error) {
	embedder, err := buildEmbedder(ctx, cfg.Retrieval, logger)
	if err != nil {
		return nil, nil, err
	}

	storeFactory := vector.NewVectorStoreFactory(sqlDB, logger)
	vstore, err := storeFactory.Build(vector.StoreConfig{
		Backend:   vector.BackendPostgres,
		Table:     cfg.Retrieval.CollectionName,
		Dimension: embedder.GetEmbeddingDimension(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build vector store: %w", err)
	}

	llmClient := buildLLMClient(logger)

	r := retriever.NewRetriever(vstore, embedder, logger)
	r.PoolMultiplier = cfg.Retrieval.RetrievalMultiplier
	s := scoring.NewScorer(llmClient, cfg.LLM.Model, int64(cfg.LLM.Seed), cfg.LLM.MaxConcurrency, logger)

	evaluator, err := violations.NewEvaluator(ctx, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile violation policy: %w", err)
	}

	persister := persist.NewPersister(sqlDB, "match_results", logger)
	notifier := notify.NewNotifier(os.Getenv("SLACK_WEBHOOK_URL"), os.Getenv("SLACK_CHANNEL"), logger)

	models := orchestrator.ModelInfo{LLMModel: cfg.LLM.Model, EmbedModel: cfg.Retrieval.EmbedModel}
	orch := orchestrator.NewOrchestrator(r, s, evaluator, persister, notifier, models, logger)

	return orch, persister, nil
}

func buildEmbedder(ctx context.Context, cfg config.RetrievalConfig, logger *logrus.Logger) (vector.EmbeddingService, error) {
	local := vector.NewLocalEmbeddingService(vector.DefaultStoreConfig().Dimension)

	var embedder vector.EmbeddingService = local
	switch cfg.EmbeddingProvider {
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration for Bedrock embeddings: %w", err)
		}
		remote := vector.NewBedrockEmbeddingService(bedrockruntime.NewFromConfig(awsCfg), cfg.EmbedModel, local.GetEmbeddingDimension(), logger)
		embedder = vector.NewHybridEmbeddingService(remote, local, logger)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		cache := vector.NewEmbeddingCache(client, vector.DefaultEmbeddingCacheTTL, logger)
		embedder = vector.NewCachedEmbeddingService(embedder, cache, cfg.EmbedModel)
	}

	return embedder, nil
}

func buildLLMClient(logger *logrus.Logger) llm.Client {
	if os.Getenv("USE_MOCK_LLM") == "true" {
		return &llm.FakeClient{}
	}
	return llm.NewAnthropicClient(os.Getenv("ANTHROPIC_API_KEY"), logger)
}

// calibrationFromConfig resolves the configured calibration strategy name
// to a types.CalibrationStrategy, falling back to the relative min-max
// default for an unrecognized or empty value.
func calibrationFromConfig(name string) types.CalibrationStrategy {
	switch types.CalibrationStrategy(name) {
	case types.CalibrationAffineFloor, types.CalibrationSigmoid, types.CalibrationNone:
		return types.CalibrationStrategy(name)
	default:
		return types.CalibrationRelativeMinMax
	}
}
