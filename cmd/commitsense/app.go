package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/commitsense/commitsense/application/service"
	domaincommit "github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/infrastructure/git"
	"github.com/commitsense/commitsense/infrastructure/hosting"
	"github.com/commitsense/commitsense/infrastructure/persistence"
	"github.com/commitsense/commitsense/infrastructure/provider"
	"github.com/commitsense/commitsense/internal/config"
	"github.com/commitsense/commitsense/internal/database"
	"github.com/commitsense/commitsense/internal/log"
)

// app wires configuration, storage, and services for the commands.
type app struct {
	cfg      config.AppConfig
	logger   *slog.Logger
	db       database.Database
	projects project.Store
	commits  domaincommit.Store
	poller   *service.Poller
	indexer  *service.Indexer
}

func newApp(ctx context.Context, envFile string) (*app, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := cfg.EnsureCloneDir(); err != nil {
		return nil, fmt.Errorf("create clone directory: %w", err)
	}

	logger := log.NewLogger(cfg).Slog()

	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	projects := persistence.NewProjectStore(db)
	commits := persistence.NewCommitStore(db)
	chunks := persistence.NewChunkStore(db)

	host := hosting.NewGitHubClient(cfg.Hosting())

	// The summarizer makes exactly one attempt per commit; a failure
	// falls back to the heuristic summary instead of retrying.
	var generator provider.TextGenerator
	if ep := cfg.SummaryEndpoint(); ep.IsConfigured() {
		generator = provider.NewOpenAIProviderFromEndpoint(ep, provider.WithMaxRetries(0))
	} else {
		logger.Warn("summary endpoint not configured, using fallback summaries only")
	}
	summarizer := service.NewSummarizer(generator, cfg.MaxDiffChars(), logger)

	var embedder provider.Embedder
	if ep := cfg.EmbeddingEndpoint(); ep.IsConfigured() {
		embedder = provider.NewOpenAIProviderFromEndpoint(ep)
	} else {
		logger.Warn("embedding endpoint not configured, indexing is unavailable")
	}

	cloner := git.NewCloner(cfg.CloneDir(), logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		projects: projects,
		commits:  commits,
		poller:   service.NewPoller(projects, commits, host, summarizer, logger),
		indexer:  service.NewIndexer(projects, chunks, cloner, embedder, cfg.Indexing(), logger),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("close database", slog.Any("error", err))
	}
}
