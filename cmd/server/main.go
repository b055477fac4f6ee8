package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/api"
	"github.com/crystalford/canopticon-sub002/internal/cluster"
	"github.com/crystalford/canopticon-sub002/internal/config"
	"github.com/crystalford/canopticon-sub002/internal/engine"
	"github.com/crystalford/canopticon-sub002/internal/ingest"
	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/orchestrator"
	"github.com/crystalford/canopticon-sub002/internal/store"
	"github.com/crystalford/canopticon-sub002/internal/triage"
	"github.com/crystalford/canopticon-sub002/internal/worker"
)

func main() {
	cfg := config.Load()

	// Open SQLite.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// Initialize store and run migrations.
	s, err := store.New(db)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the source registry from YAML. A missing file just means no
	// sources yet; they can also live in the database from a previous run.
	if sources, err := config.LoadSources(cfg.SourcesPath); err != nil {
		log.Printf("warning: sources file: %v", err)
	} else {
		for _, src := range sources {
			if err := s.UpsertSource(ctx, src); err != nil {
				log.Fatalf("seed source %s: %v", src.ID, err)
			}
		}
		log.Printf("loaded %d sources from %s", len(sources), cfg.SourcesPath)
	}

	// Rescue signals stranded in processing by a previous crash.
	cutoff := time.Now().UTC().Add(-cfg.StallWindow).Format(time.RFC3339)
	if n, err := s.RescueStalled(ctx, cutoff); err != nil {
		log.Printf("warning: rescue stalled signals: %v", err)
	} else if n > 0 {
		log.Printf("rescued %d stalled signals back to pending", n)
	}

	modelClient := buildModelClient(cfg)

	ing := ingest.New(s, map[string]ingest.Fetcher{
		model.SourceKindRSS: ingest.NewRSSFetcher(),
		model.SourceKindAPI: ingest.NewAPIFetcher(cfg.FetchTimeout),
	}, ingest.NewEnricher(cfg.FetchTimeout), cfg.FetchTimeout)

	triager := triage.New(s, cfg.SignificanceThreshold, cfg.GraceWindow)
	runner := orchestrator.New(s, ing, cluster.New(s, cfg.BatchSize),
		engine.NewScorer(modelClient), engine.NewWriter(modelClient), triager,
		orchestrator.Options{
			AutoPublish:  cfg.EnableAutoPublish,
			Threshold:    cfg.SignificanceThreshold,
			BatchSize:    cfg.BatchSize,
			StallWindow:  cfg.StallWindow,
			LogRetention: cfg.LogRetention,
		})

	// Start the cycle scheduler unless cycles are manual-only.
	if cfg.CycleInterval > 0 {
		w := worker.New(runner, cfg.CycleInterval)
		go w.Start(ctx)
	} else {
		log.Println("CYCLE_INTERVAL not set, cycles run only via POST /api/automation/run")
	}

	// Start API server.
	srv := api.New(s, triager, runner, cfg.CORSOrigin, cfg.StallWindow)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	fmt.Printf("canopticon server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// buildModelClient selects the LLM backend from configuration, falling back
// to deterministic stubs when no key is available.
func buildModelClient(cfg config.Config) engine.ModelClient {
	if cfg.UseStubs() {
		log.Printf("no API key for provider %q, using stub model client", cfg.LLMProvider)
		return &engine.StubModelClient{}
	}
	switch cfg.LLMProvider {
	case "gemini":
		log.Printf("using Gemini model client (%s)", cfg.GeminiModel)
		return engine.NewGeminiClient(cfg.GeminiKey,
			engine.WithGeminiModel(cfg.GeminiModel),
			engine.WithGeminiTimeout(cfg.ModelTimeout))
	case "ollama":
		log.Printf("using Ollama model client (%s at %s)", cfg.OllamaModel, cfg.OllamaURL)
		return engine.NewOllamaClient(cfg.OllamaURL,
			engine.WithOllamaModel(cfg.OllamaModel),
			engine.WithOllamaTimeout(cfg.ModelTimeout))
	default:
		log.Printf("using OpenAI model client (%s)", cfg.OpenAIModel)
		return engine.NewOpenAIClient(cfg.OpenAIKey,
			engine.WithModel(cfg.OpenAIModel),
			engine.WithBaseURL(cfg.OpenAIBaseURL),
			engine.WithTimeout(cfg.ModelTimeout))
	}
}
