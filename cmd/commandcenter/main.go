// Command commandcenter runs the off-grid solar control plane: it
// wires the knowledge base, telemetry pollers, context manager, and
// agent orchestrator together behind the HTTP API (spec.md §6).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/commandcenter/commandcenter/pkg/agent"
	"github.com/commandcenter/commandcenter/pkg/api"
	"github.com/commandcenter/commandcenter/pkg/cache"
	"github.com/commandcenter/commandcenter/pkg/cleanup"
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/contextmgr"
	"github.com/commandcenter/commandcenter/pkg/conversation"
	"github.com/commandcenter/commandcenter/pkg/database"
	"github.com/commandcenter/commandcenter/pkg/docprovider"
	"github.com/commandcenter/commandcenter/pkg/embedding"
	"github.com/commandcenter/commandcenter/pkg/kb"
	"github.com/commandcenter/commandcenter/pkg/llm"
	"github.com/commandcenter/commandcenter/pkg/observability"
	"github.com/commandcenter/commandcenter/pkg/runbook"
	"github.com/commandcenter/commandcenter/pkg/slack"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/commandcenter/commandcenter/pkg/telemetry"
	"github.com/commandcenter/commandcenter/pkg/version"
	"github.com/commandcenter/commandcenter/pkg/websearch"
	"github.com/joho/godotenv"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("starting", "version", version.Full())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("close database: %v", err)
		}
	}()
	logger.Info("connected to postgres")

	cch := cache.New(ctx, cfg.Cache.URL, logger)

	st := store.New(dbClient.DB())

	embedder := embedding.New(embedding.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	})

	llmClient, err := llm.NewAnthropicClient(llm.Config{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("build llm client: %v", err)
	}

	docs := buildDocProvider(logger)
	webSearch := buildWebSearch()
	runbookSvc := runbook.NewService(&cfg.Runbook, cfg.Runbook.GitHubToken,
		"No default maintenance runbook is configured for this installation.")

	kbSvc := kb.New(st.Documents, st.Chunks, st.SyncLog, docs, embedder, kb.Config{
		RootFolderID:      cfg.KB.RootFolderID,
		ContextFolderName: cfg.KB.ContextFolderName,
		ChunkSize:         cfg.KB.ChunkSize,
		ChunkOverlap:      cfg.KB.ChunkOverlap,
		EmbedMaxAttempts:  cfg.KB.EmbedMaxAttempts,
		SimilarityDefault: cfg.KB.SimilarityDefault,
		SearchDefaultTopK: cfg.KB.SearchDefaultTopK,
	}, logger)

	pollers := buildPollers(cfg, st.Telemetry, logger)
	telemetryMgr := telemetry.NewManager(pollers...)

	classifier := contextmgr.NewClassifier(cfg.Classifier)
	ctxMgr := contextmgr.New(classifier, kbSvc, st.Messages, st.Preferences, cch, cfg.Budgets, cfg.Cache.TTL, logger)

	convSvc := conversation.New(st.Conversations, st.Messages)

	orchestrator := agent.New(agent.Config{
		ContextMgr:              ctxMgr,
		Conversation:            convSvc,
		Executions:              st.Executions,
		Classifier:              classifier,
		LLMClient:               llmClient,
		Telemetry:               st.Telemetry,
		KB:                      kbSvc,
		WebSearch:               webSearch,
		Runbook:                 runbookSvc,
		ManagerMaxIterations:    cfg.Agent.ManagerMaxIterations,
		SpecialistMaxIterations: cfg.Agent.SpecialistMaxIterations,
		QueryDeadline:           time.Duration(cfg.Query.DeadlineSeconds) * time.Second,
		Logger:                  logger,
	})

	obsSvc := observability.New(dbClient.DB(), telemetryMgr, st.Executions, 24*time.Hour, logger)

	server := api.NewServer(orchestrator, convSvc, kbSvc, st.Telemetry, obsSvc, cfg.API.APIKey)

	cleanupSvc := cleanup.NewService(cfg.Retention, st.Telemetry, st.Executions, logger)
	cleanupSvc.Start(ctx)

	telemetryMgr.StartAll(ctx)
	logger.Info("telemetry pollers started", "count", len(pollers))

	addr := ":" + cfg.API.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	telemetryMgr.StopAll()
	cleanupSvc.Stop()
	logger.Info("commandcenter stopped")
}

// buildDocProvider constructs the document-store collaborator. The
// document-provider API itself is named out of scope (spec.md §1), but
// a plain HTTP client against a configurable endpoint is still wired
// so kb.sync has a real provider rather than the test-only Fake; with
// no endpoint configured it falls back to an empty Fake so sync is a
// deliberate no-op instead of a startup failure.
func buildDocProvider(logger *slog.Logger) docprovider.Provider {
	baseURL := os.Getenv("DOCPROVIDER_BASE_URL")
	if baseURL == "" {
		logger.Warn("DOCPROVIDER_BASE_URL not set, knowledge base sync will be a no-op")
		return docprovider.NewFake()
	}
	return docprovider.NewHTTPClient(baseURL, os.Getenv("DOCPROVIDER_API_KEY"))
}

// buildWebSearch constructs the Research Specialist's web_search/
// web_extract collaborator (spec.md §4.3), named out of scope in
// spec.md §1 the same way the document provider is.
func buildWebSearch() websearch.Provider {
	baseURL := os.Getenv("WEBSEARCH_BASE_URL")
	return websearch.NewHTTPClient(baseURL, os.Getenv("WEBSEARCH_API_KEY"))
}

// buildPollers constructs one telemetry.Poller per vendor named in
// cfg.Poll. Vendor connection details (base URL, API key, plant/
// install ID) are outside spec.md §6's configuration table, so they
// are read directly from environment variables here rather than
// threaded through config.Config.
func buildPollers(cfg *config.Config, telemetryStore *store.TelemetryStore, logger *slog.Logger) []*telemetry.Poller {
	var pollers []*telemetry.Poller
	alerts := buildAlertNotifier()

	if pc, ok := cfg.Poll[config.VendorSolArk]; ok {
		baseURL := os.Getenv("TELEMETRY_SOLARK_BASE_URL")
		apiKey := os.Getenv("TELEMETRY_SOLARK_API_KEY")
		plantID := os.Getenv("TELEMETRY_SOLARK_PLANT_ID")
		if baseURL == "" {
			logger.Warn("TELEMETRY_SOLARK_BASE_URL not set, skipping SolArk poller")
		} else {
			client := telemetry.NewSolArkClient(baseURL, apiKey, plantID)
			rl := cfg.RateLimit[config.VendorSolArk]
			p := telemetry.NewPoller(config.VendorSolArk, client, telemetryStore, pc, rl, logger)
			p.SetAlertNotifier(alerts)
			pollers = append(pollers, p)
		}
	}

	if pc, ok := cfg.Poll[config.VendorVictron]; ok {
		baseURL := os.Getenv("TELEMETRY_VICTRON_BASE_URL")
		apiKey := os.Getenv("TELEMETRY_VICTRON_API_KEY")
		installID := os.Getenv("TELEMETRY_VICTRON_INSTALL_ID")
		if baseURL == "" {
			logger.Warn("TELEMETRY_VICTRON_BASE_URL not set, skipping Victron poller")
		} else {
			client := telemetry.NewVictronClient(baseURL, apiKey, installID)
			rl := cfg.RateLimit[config.VendorVictron]
			p := telemetry.NewPoller(config.VendorVictron, client, telemetryStore, pc, rl, logger)
			p.SetAlertNotifier(alerts)
			pollers = append(pollers, p)
		}
	}

	return pollers
}

// buildAlertNotifier wires the optional Slack notification channel for
// critical telemetry conditions (e.g. low battery SOC). Nil-safe and
// entirely optional: with no SLACK_TOKEN configured, pollers alert to
// nobody and the rest of the system is unaffected.
func buildAlertNotifier() *slack.Service {
	return slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv("SLACK_TOKEN"),
		Channel:      os.Getenv("SLACK_CHANNEL"),
		DashboardURL: os.Getenv("SLACK_DASHBOARD_URL"),
	})
}
