// Package main implements the profiled CLI for user profile operations.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/analysis"
	"github.com/fyrsmithlabs/profiled/internal/config"
	"github.com/fyrsmithlabs/profiled/internal/embeddings"
	"github.com/fyrsmithlabs/profiled/internal/instructions"
	"github.com/fyrsmithlabs/profiled/internal/llm"
	"github.com/fyrsmithlabs/profiled/internal/logging"
	"github.com/fyrsmithlabs/profiled/internal/profile"
	"github.com/fyrsmithlabs/profiled/internal/reflection"
	"github.com/fyrsmithlabs/profiled/internal/store"
)

var (
	// configPath is the optional config file override.
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "profiled",
	Short: "CLI for user profile analysis and personalization",
	Long: `profiled analyzes session reflections into user profiles and
composes personalized role instructions from them.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.config/profiled/config.yaml)")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(instructCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(reflectCmd)
}

// app holds the wired service graph for one command invocation.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       store.DocumentStore
	client      llm.Client
	repo        *profile.Repository
	aggregator  *profile.Aggregator
	patterns    *analysis.PatternExtractor
	composer    *instructions.Composer
	classifier  *instructions.RoleClassifier
	reflector   *reflection.Generator
	reflections *reflection.Repository
}

// newApp loads configuration and wires every service the commands use.
func newApp() (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	var docs store.DocumentStore
	if cfg.Store.Path != "" {
		docs, err = store.NewSQLiteStore(cfg.Store.Path)
	} else {
		docs = store.NewMemoryStore()
	}
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	engineCfg := analysis.Config{
		MinConfidence: cfg.Engine.MinConfidence,
		MaxLabels:     cfg.Engine.MaxLabels,
		Eps:           cfg.Engine.Eps,
		MinPoints:     cfg.Engine.MinPoints,
	}
	engine := analysis.NewEngine(
		analysis.NewLabelExtractor(client, engineCfg, logger),
		analysis.NewEmbeddingVectorizer(embedder, logger),
		analysis.NewClusterer(engineCfg, logger),
		logger,
	)

	repo := profile.NewRepository(docs, logger)
	cache := profile.NewAnalysisCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	aggregator := profile.NewAggregator(repo, engine, cache, client, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       docs,
		client:      client,
		repo:        repo,
		aggregator:  aggregator,
		patterns:    analysis.NewPatternExtractor(client, logger),
		composer:    instructions.NewComposer(repo, client, logger),
		classifier:  instructions.NewRoleClassifier(repo, client, logger),
		reflector:   reflection.NewGenerator(client, logger),
		reflections: reflection.NewRepository(docs, logger),
	}, nil
}

// Close releases the document store and flushes the logger.
func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// readInput reads from the named file, or stdin for "-" or no argument.
func readInput(args []string, idx int) ([]byte, error) {
	if len(args) <= idx || args[idx] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[idx])
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", args[idx], err)
	}
	return data, nil
}
