package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/commitsense/commitsense/domain/chunk"
	"github.com/commitsense/commitsense/domain/ingest"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/infrastructure/chunking"
	"github.com/commitsense/commitsense/infrastructure/git"
	"github.com/commitsense/commitsense/infrastructure/provider"
	"github.com/commitsense/commitsense/internal/config"
	"github.com/commitsense/commitsense/internal/log"
)

// Indexer builds the semantic file index for a project: walk the working
// copy, chunk text files, embed changed chunks, and persist vectors.
type Indexer struct {
	projects project.Store
	chunks   chunk.Store
	cloner   *git.Cloner
	embedder provider.Embedder
	cfg      config.Indexing
	locks    *runLocks
	logger   *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(
	projects project.Store,
	chunks chunk.Store,
	cloner *git.Cloner,
	embedder provider.Embedder,
	cfg config.Indexing,
	logger *slog.Logger,
) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		projects: projects,
		chunks:   chunks,
		cloner:   cloner,
		embedder: embedder,
		cfg:      cfg,
		locks:    newRunLocks(),
		logger:   logger,
	}
}

// IndexRepository runs one indexing pass for the project. At most one run
// per project may be active; a concurrent call gets ErrAlreadyRunning
// without starting a second run. Per-file and per-batch failures are
// collected in the result and set Success to false; only run-scoped
// failures return an error.
func (ix *Indexer) IndexRepository(ctx context.Context, projectID int64) (ingest.IndexResult, error) {
	if ix.embedder == nil {
		return ingest.IndexResult{}, fmt.Errorf("embedding endpoint not configured")
	}
	if !ix.locks.tryAcquire(projectID) {
		return ingest.IndexResult{}, ingest.ErrAlreadyRunning
	}
	defer ix.locks.release(projectID)

	run := ingest.NewRun(ingest.RunKindIndex)
	ctx = log.WithRunID(ctx, run.ID())
	logger := ix.logger.With(slog.String("run_id", run.ID()), slog.Int64("project_id", projectID))

	proj, err := ix.projects.FindByID(ctx, projectID)
	if err != nil {
		return ingest.IndexResult{}, fmt.Errorf("load project %d: %w", projectID, err)
	}

	clonePath, err := ix.cloner.Ensure(ctx, proj.RemoteURL())
	if err != nil {
		return ingest.IndexResult{}, fmt.Errorf("prepare working copy: %w", err)
	}

	policy, err := git.LoadIgnorePolicy(clonePath, ix.cfg.MaxFileBytes())
	if err != nil {
		return ingest.IndexResult{}, err
	}

	walker := git.NewWalker(policy, logger)

	// Collect the snapshot's file list up front so a per-file failure
	// cannot disturb the walk itself.
	var files []git.File
	head, err := walker.Walk(ctx, clonePath, func(f git.File) error {
		files = append(files, f)
		return nil
	})
	if err != nil {
		return ingest.IndexResult{}, fmt.Errorf("walk repository: %w", err)
	}

	logger.Info("indexing repository",
		slog.String("head", head[:min(8, len(head))]),
		slog.Int("files", len(files)),
	)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return ingest.IndexResultFromRun(run, false), err
		}
		if err := ix.indexFile(ctx, run, projectID, f); err != nil {
			run.RecordError(fmt.Sprintf("file %s: %v", f.Path(), err))
		}
	}

	result := ingest.IndexResultFromRun(run, len(run.Errors()) == 0)
	logger.Info("indexing done",
		slog.Bool("success", result.Success),
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// indexFile chunks one file, embeds the chunks whose content changed, and
// persists them. Unchanged chunks are counted as skipped. Chunks past the
// end of a file that shrank are deleted.
func (ix *Indexer) indexFile(ctx context.Context, run *ingest.Run, projectID int64, f git.File) error {
	content, err := f.Content()
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	pieces, err := chunking.Split(content, chunking.Params{
		Size:    ix.cfg.ChunkSize(),
		Overlap: ix.cfg.ChunkOverlap(),
		MinSize: ix.cfg.ChunkMinSize(),
	})
	if err != nil {
		return err
	}

	stored, err := ix.chunks.ContentHashes(ctx, projectID, f.Path())
	if err != nil {
		return fmt.Errorf("load stored hashes: %w", err)
	}

	var changed []chunking.Chunk
	for _, piece := range pieces {
		if stored[piece.Index()] == piece.Hash() {
			run.RecordSkipped()
			continue
		}
		changed = append(changed, piece)
	}

	// Drop rows past the new chunk count when the file shrank.
	if len(pieces) < len(stored) {
		if err := ix.chunks.DeleteStale(ctx, projectID, f.Path(), len(pieces)); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
	}

	if len(changed) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(ix.cfg.Parallelism())

	for _, batch := range batches(changed, ix.cfg.BatchSize()) {
		batch := batch
		group.Go(func() error {
			if err := ix.embedBatch(groupCtx, projectID, f.Path(), batch); err != nil {
				// Batch failures are item-scoped: record and let the
				// remaining batches finish.
				run.RecordError(fmt.Sprintf("file %s: %v", f.Path(), err))
				return nil
			}
			run.RecordProcessedN(len(batch))
			return nil
		})
	}
	return group.Wait()
}

// embedBatch embeds one batch of chunks and persists them.
func (ix *Indexer) embedBatch(ctx context.Context, projectID int64, path string, batch []chunking.Chunk) error {
	texts := make([]string, len(batch))
	for i, piece := range batch {
		texts[i] = piece.Text()
	}

	resp, err := ix.embedder.Embed(ctx, provider.NewEmbeddingRequest(texts))
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(batch), err)
	}

	vectors := resp.Embeddings()
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed %d chunks: got %d embeddings", len(batch), len(vectors))
	}
	records := make([]chunk.FileChunk, len(batch))
	for i, piece := range batch {
		records[i] = chunk.New(projectID, path, piece.Index(), piece.Text(), vectors[i], piece.Hash())
	}

	if err := ix.chunks.UpsertAll(ctx, records); err != nil {
		return fmt.Errorf("persist %d chunks: %w", len(records), err)
	}
	return nil
}

// batches splits items into slices of at most size elements.
func batches(items []chunking.Chunk, size int) [][]chunking.Chunk {
	if size <= 0 {
		size = 1
	}
	var out [][]chunking.Chunk
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
