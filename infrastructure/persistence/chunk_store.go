package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commitsense/commitsense/domain/chunk"
	"github.com/commitsense/commitsense/internal/database"
)

var chunkConflictColumns = []clause.Column{
	{Name: "project_id"}, {Name: "path"}, {Name: "chunk_index"},
}

// ChunkStore implements chunk.Store using GORM.
type ChunkStore struct {
	db     database.Database
	mapper ChunkMapper
}

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(db database.Database) ChunkStore {
	return ChunkStore{db: db}
}

// Upsert inserts or replaces the chunk at (project id, path, index).
func (s ChunkStore) Upsert(ctx context.Context, c chunk.FileChunk) error {
	model := s.mapper.ToModel(c)
	model.UpdatedAt = time.Now()

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   chunkConflictColumns,
		DoUpdates: clause.AssignmentColumns([]string{"content", "embedding", "content_hash", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("upsert chunk: %w", result.Error)
	}
	return nil
}

// UpsertAll persists a batch of chunks.
func (s ChunkStore) UpsertAll(ctx context.Context, chunks []chunk.FileChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	models := make([]ChunkModel, len(chunks))
	now := time.Now()
	for i, c := range chunks {
		models[i] = s.mapper.ToModel(c)
		models[i].UpdatedAt = now
	}

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   chunkConflictColumns,
		DoUpdates: clause.AssignmentColumns([]string{"content", "embedding", "content_hash", "updated_at"}),
	}).Create(&models)
	if result.Error != nil {
		return fmt.Errorf("upsert chunks: %w", result.Error)
	}
	return nil
}

// ContentHash returns the stored hash at (project id, path, index), or empty
// when no chunk exists there.
func (s ChunkStore) ContentHash(ctx context.Context, projectID int64, path string, index int) (string, error) {
	var model ChunkModel
	err := s.db.Session(ctx).
		Select("content_hash").
		Where("project_id = ? AND path = ? AND chunk_index = ?", projectID, path, index).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("chunk content hash: %w", err)
	}
	return model.ContentHash, nil
}

// ContentHashes returns stored hashes for every chunk of a file, keyed by
// chunk index.
func (s ChunkStore) ContentHashes(ctx context.Context, projectID int64, path string) (map[int]string, error) {
	var models []ChunkModel
	err := s.db.Session(ctx).
		Select("chunk_index", "content_hash").
		Where("project_id = ? AND path = ?", projectID, path).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("chunk content hashes: %w", err)
	}

	hashes := make(map[int]string, len(models))
	for _, m := range models {
		hashes[m.ChunkIndex] = m.ContentHash
	}
	return hashes, nil
}

// CountForProject returns the number of stored chunks for a project.
func (s ChunkStore) CountForProject(ctx context.Context, projectID int64) (int64, error) {
	var count int64
	err := s.db.Session(ctx).Model(&ChunkModel{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// DeleteStale removes chunks of a file at indexes >= fromIndex, covering
// files that shrank since the previous indexing run.
func (s ChunkStore) DeleteStale(ctx context.Context, projectID int64, path string, fromIndex int) error {
	result := s.db.Session(ctx).
		Where("project_id = ? AND path = ? AND chunk_index >= ?", projectID, path, fromIndex).
		Delete(&ChunkModel{})
	if result.Error != nil {
		return fmt.Errorf("delete stale chunks: %w", result.Error)
	}
	return nil
}
