package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/commitsense/commitsense/infrastructure/api"
	v1 "github.com/commitsense/commitsense/infrastructure/api/v1"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                       Server host to bind to (default: 0.0.0.0)
  PORT                       Server port to listen on (default: 8080)
  DATA_DIR                   Data directory (default: ~/.commitsense)
  DB_URL                     Database URL (default: sqlite:///{data_dir}/commitsense.db)
  LOG_LEVEL                  Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                 Log format: pretty, json (default: pretty)
  MAX_DIFF_CHARS             Diff excerpt limit for summaries (default: 8000)

  HOSTING_BASE_URL           Hosting provider API base URL (default: https://api.github.com)
  HOSTING_TOKEN              Default hosting access token
  HOSTING_PAGE_SIZE          Commits per page (default: 100)
  HOSTING_MAX_RETRIES        Per-page retry attempts (default: 3)
  HOSTING_TIMEOUT            Per-request timeout in seconds (default: 30)

  SUMMARY_ENDPOINT_*         Summary AI service configuration
    BASE_URL                 Base URL (e.g. https://api.openai.com/v1)
    MODEL                    Model identifier
    API_KEY                  API key for authentication
    TIMEOUT                  Request timeout in seconds (default: 60)

  EMBEDDING_ENDPOINT_*       Embedding AI service configuration
    (same fields as SUMMARY_ENDPOINT, plus MAX_RETRIES)

  INDEXING_CHUNK_SIZE        Chunk size in runes (default: 1000)
  INDEXING_CHUNK_OVERLAP     Chunk overlap in runes (default: 100)
  INDEXING_BATCH_SIZE        Chunks per embedding request (default: 32)
  INDEXING_PARALLELISM       Concurrent embedding batches (default: 4)
  INDEXING_MAX_FILE_BYTES    Maximum indexable file size (default: 524288)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on")

	return cmd
}

func runServe(ctx context.Context, envFile, host string, port int) error {
	a, err := newApp(ctx, envFile)
	if err != nil {
		return err
	}
	defer a.Close()

	a.cfg = a.cfg.WithHost(host).WithPort(port)
	a.logger.Info("starting commitsense",
		slog.String("version", version),
		slog.String("addr", a.cfg.Addr()),
		slog.String("db_url", a.cfg.DBURL()),
	)

	server := api.NewServer(a.cfg.Addr(), a.logger)
	projectsRouter := v1.NewProjectsRouter(a.projects, a.commits, a.poller, a.indexer, a.logger)
	server.Router().Mount("/api/v1/projects", projectsRouter.Routes())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	return server.Start()
}
