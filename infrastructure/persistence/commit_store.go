package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/internal/database"
)

// CommitStore implements commit.Store using GORM.
type CommitStore struct {
	db     database.Database
	mapper CommitMapper
}

// NewCommitStore creates a new CommitStore.
func NewCommitStore(db database.Database) CommitStore {
	return CommitStore{db: db}
}

// Upsert inserts the commit record unless a row already exists for its
// (project id, SHA) key. An existing row is left untouched so that a
// summary written by an earlier run survives repeated polling.
func (s CommitStore) Upsert(ctx context.Context, c commit.Commit) (commit.Commit, bool, error) {
	model := s.mapper.ToModel(c)
	model.UpdatedAt = time.Now()

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "sha"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return commit.Commit{}, false, fmt.Errorf("upsert commit: %w", result.Error)
	}

	existed := result.RowsAffected == 0
	if existed {
		var stored CommitModel
		err := s.db.Session(ctx).
			Where("project_id = ? AND sha = ?", c.ProjectID(), c.SHA()).
			First(&stored).Error
		if err != nil {
			return commit.Commit{}, false, fmt.Errorf("load existing commit: %w", err)
		}
		return s.mapper.ToDomain(stored), true, nil
	}
	return s.mapper.ToDomain(model), false, nil
}

// AttachSummary records the generated summary for a commit.
func (s CommitStore) AttachSummary(ctx context.Context, projectID int64, sha, summary string, usedFallback bool) error {
	result := s.db.Session(ctx).Model(&CommitModel{}).
		Where("project_id = ? AND sha = ?", projectID, sha).
		Updates(map[string]any{
			"summary":       summary,
			"used_fallback": usedFallback,
			"status":        string(commit.StatusSummarized),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("attach summary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// MarkFailed records that summarization failed unexpectedly.
func (s CommitStore) MarkFailed(ctx context.Context, projectID int64, sha string) error {
	result := s.db.Session(ctx).Model(&CommitModel{}).
		Where("project_id = ? AND sha = ?", projectID, sha).
		Updates(map[string]any{
			"status":     string(commit.StatusFailed),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("mark commit failed: %w", result.Error)
	}
	return nil
}

// SHAs returns the set of commit hashes already recorded for a project.
func (s CommitStore) SHAs(ctx context.Context, projectID int64) (map[string]struct{}, error) {
	var shas []string
	err := s.db.Session(ctx).Model(&CommitModel{}).
		Where("project_id = ?", projectID).
		Pluck("sha", &shas).Error
	if err != nil {
		return nil, fmt.Errorf("list commit shas: %w", err)
	}

	set := make(map[string]struct{}, len(shas))
	for _, sha := range shas {
		set[sha] = struct{}{}
	}
	return set, nil
}

// LatestSHA returns the hash of the last recorded commit for a project, or
// empty when none exist. Insertion order is the watermark: commits are
// processed oldest first, so the newest row is the last one processed.
// Timestamps would misorder same-second and rebased commits.
func (s CommitStore) LatestSHA(ctx context.Context, projectID int64) (string, error) {
	var model CommitModel
	err := s.db.Session(ctx).
		Where("project_id = ?", projectID).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("latest commit sha: %w", err)
	}
	return model.SHA, nil
}

// ForProject lists commit records for a project, newest first.
func (s CommitStore) ForProject(ctx context.Context, projectID int64, limit int) ([]commit.Commit, error) {
	tx := s.db.Session(ctx).
		Where("project_id = ?", projectID).
		Order("timestamp DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var models []CommitModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	commits := make([]commit.Commit, len(models))
	for i, m := range models {
		commits[i] = s.mapper.ToDomain(m)
	}
	return commits, nil
}
