package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ziadkadry99/auto-analyst/internal/audit"
	"github.com/ziadkadry99/auto-analyst/internal/clarify"
	"github.com/ziadkadry99/auto-analyst/internal/config"
	"github.com/ziadkadry99/auto-analyst/internal/db"
	"github.com/ziadkadry99/auto-analyst/internal/embeddings"
	"github.com/ziadkadry99/auto-analyst/internal/facts"
	"github.com/ziadkadry99/auto-analyst/internal/flow"
	"github.com/ziadkadry99/auto-analyst/internal/knowledge"
	"github.com/ziadkadry99/auto-analyst/internal/llm"
	"github.com/ziadkadry99/auto-analyst/internal/options"
	"github.com/ziadkadry99/auto-analyst/internal/session"
	"github.com/ziadkadry99/auto-analyst/internal/synth"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `analyst init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr so stdout
// stays free for the conversation and the MCP protocol.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// createLLMProviderFromConfig creates the language model collaborator with
// rate limiting and retries applied. Provider "none" yields nil.
func createLLMProviderFromConfig(cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	if cfg.Provider == config.ProviderNone {
		return nil, nil
	}
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.Collaborators.RateLimitRPM > 0 {
		p = llm.NewRateLimitedProvider(p, cfg.Collaborators.RateLimitRPM)
	}
	return llm.WithRetry(p, cfg.RetryPolicy(), logger), nil
}

// createEmbedderFromConfig creates the embedder for the knowledge index.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Knowledge.Embedder {
	case "openai":
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.ModelTextEmbedding3Small), nil
	default:
		return embeddings.NewHashEmbedder(0), nil
	}
}

// openIndex loads the persisted knowledge index. A missing index is empty.
func openIndex(cfg *config.Config) (*knowledge.Index, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	index, err := knowledge.NewIndex(embedder, knowledge.IndexOptions{})
	if err != nil {
		return nil, err
	}
	if err := index.Load(cfg.Knowledge.IndexDir); err != nil {
		return nil, fmt.Errorf("loading knowledge index from %s: %w", cfg.Knowledge.IndexDir, err)
	}
	return index, nil
}

// createSearcher combines the local index and the language model. Either may
// be absent; nil means there is no knowledge collaborator at all.
func createSearcher(cfg *config.Config, provider llm.Provider, logger *slog.Logger) knowledge.Searcher {
	var multi knowledge.Multi
	policy := cfg.RetryPolicy()

	index, err := openIndex(cfg)
	switch {
	case err != nil:
		logger.Warn("knowledge index unavailable", "error", err)
	case index.Count() > 0:
		logger.Debug("knowledge index loaded", "notes", index.Count())
		multi = append(multi, knowledge.WithRetry(index, policy, logger))
	}
	if provider != nil {
		multi = append(multi, knowledge.NewLLMSearcher(provider, cfg.Model, cfg.Options.MaxOptions))
	}

	switch len(multi) {
	case 0:
		return nil
	case 1:
		return multi[0]
	default:
		return multi
	}
}

// checklistKeys qualifies bare checklist names with the analysis namespace.
func checklistKeys(names []string) []string {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !strings.Contains(n, ".") {
			n = facts.Key(facts.NamespaceAnalysis, n)
		}
		keys = append(keys, n)
	}
	return keys
}

// app holds everything a command needs to run sessions.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *db.DB
	audit    *audit.Store
	sessions *session.SQLStore
	options  *options.Generator
	service  *flow.Service
}

func (a *app) Close() error { return a.db.Close() }

// newApp wires the collaborators, the session store, and the state machine.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	provider, err := createLLMProviderFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	var generator *options.Generator
	if searcher := createSearcher(cfg, provider, logger); searcher != nil {
		generator = options.NewGenerator(searcher, options.Config{
			MaxOptions: cfg.Options.MaxOptions,
			Weights: options.Weights{
				Relevance:  cfg.Options.RelevanceWeight,
				Simplicity: cfg.Options.SimplicityWeight,
			},
			SimilarityThreshold: cfg.Options.SimilarityThreshold,
			Topics:              options.TopicsByName(cfg.Options.Topics),
			QueryTimeout:        cfg.Collaborators.Timeout.Std() * time.Duration(cfg.RetryPolicy().MaxRetries+1),
			Deadline:            cfg.Collaborators.Deadline.Std(),
		}, logger)
	} else {
		logger.Info("no knowledge source configured; solution options will use the generic fallback")
	}

	var drafter synth.StoryDrafter = synth.TemplateDrafter{}
	if cfg.Synthesis.UseLLM && provider != nil {
		drafter = synth.NewLLMDrafter(provider, cfg.Model, logger)
	}

	var extractor *clarify.Extractor
	if provider != nil && !cfg.Clarify.DisableExtraction {
		extractor = clarify.NewExtractor(provider, cfg.Model, logger)
	}

	dbPath := filepath.Join(cfg.DataDir, "analyst.db")
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	auditStore := audit.NewStore(database)
	sessions := session.NewSQLStore(database)
	machine := flow.New(flow.Deps{
		Clarify:   clarify.NewEngine(checklistKeys(cfg.Clarify.Checklist)),
		Extractor: extractor,
		Options:   generator,
		Synth:     synth.New(drafter, cfg.Synthesis.MaxStoriesPerEpic, logger),
		Audit:     auditStore,
		Logger:    logger,
	}, cfg.Synthesis.MaxRegenerations)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		audit:    auditStore,
		sessions: sessions,
		options:  generator,
		service:  flow.NewService(session.NewRegistry(sessions, logger), machine),
	}, nil
}

// setup loads the config and builds the app with logs on stderr.
func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, newLogger(cfg, os.Stderr))
}
