package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitsense/commitsense/domain/chunk"
	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/internal/database"
)

// newTestDB creates an in-memory SQLite database for testing.
// Cannot use testdb package here due to import cycle (testdb imports persistence).
func newTestDB(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite:///:memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestProject(t *testing.T, db database.Database) project.Project {
	t.Helper()
	p, err := project.New("widgets", "https://github.com/acme/widgets")
	require.NoError(t, err)
	saved, err := NewProjectStore(db).Save(context.Background(), p)
	require.NoError(t, err)
	return saved
}

func TestProjectStoreSaveAssignsID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewProjectStore(db)

	p, err := project.New("widgets", "https://github.com/acme/widgets")
	require.NoError(t, err)

	saved, err := store.Save(ctx, p.WithAuthToken("tok"))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID())
	assert.Equal(t, "widgets", saved.Name())

	found, err := store.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, saved.RemoteURL(), found.RemoteURL())
	assert.Equal(t, "tok", found.AuthToken())
	assert.Equal(t, "main", found.DefaultBranch())
}

func TestProjectStoreFindByIDMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := NewProjectStore(db).FindByID(context.Background(), 999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestProjectStoreFindAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewProjectStore(db)

	for _, url := range []string{
		"https://github.com/acme/widgets",
		"https://github.com/acme/gadgets",
	} {
		p, err := project.New("", url)
		require.NoError(t, err)
		_, err = store.Save(ctx, p)
		require.NoError(t, err)
	}

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "widgets", all[0].Name())
	assert.Equal(t, "gadgets", all[1].Name())
}

func testDescriptor(sha string, at time.Time) commit.Descriptor {
	return commit.NewDescriptor(sha, "Alice", "alice@example.com", "fix: handle nil frame", at, "")
}

func TestCommitStoreUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewCommitStore(db)

	c := commit.FromDescriptor(p.ID(), testDescriptor("abc123", time.Now().UTC()))

	first, existed, err := store.Upsert(ctx, c)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotZero(t, first.ID())

	// Second insert with the same (project, sha) key is a no-op.
	second, existed, err := store.Upsert(ctx, c)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, first.ID(), second.ID())
}

func TestCommitStoreUpsertPreservesExistingSummary(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewCommitStore(db)

	c := commit.FromDescriptor(p.ID(), testDescriptor("abc123", time.Now().UTC()))
	_, _, err := store.Upsert(ctx, c)
	require.NoError(t, err)
	require.NoError(t, store.AttachSummary(ctx, p.ID(), "abc123", "Fixed nil frame handling.", false))

	stored, existed, err := store.Upsert(ctx, c)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "Fixed nil frame handling.", stored.Summary())
	assert.Equal(t, commit.StatusSummarized, stored.Status())
}

func TestCommitStoreAttachSummaryMissingRow(t *testing.T) {
	db := newTestDB(t)
	p := newTestProject(t, db)

	err := NewCommitStore(db).AttachSummary(context.Background(), p.ID(), "nope", "text", true)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCommitStoreMarkFailed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewCommitStore(db)

	c := commit.FromDescriptor(p.ID(), testDescriptor("abc123", time.Now().UTC()))
	_, _, err := store.Upsert(ctx, c)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, p.ID(), "abc123"))

	commits, err := store.ForProject(ctx, p.ID(), 0)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, commit.StatusFailed, commits[0].Status())
}

func TestCommitStoreSHAsAndLatest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewCommitStore(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, sha := range []string{"aaa", "bbb", "ccc"} {
		c := commit.FromDescriptor(p.ID(), testDescriptor(sha, base.Add(time.Duration(i)*time.Hour)))
		_, _, err := store.Upsert(ctx, c)
		require.NoError(t, err)
	}

	shas, err := store.SHAs(ctx, p.ID())
	require.NoError(t, err)
	assert.Len(t, shas, 3)
	assert.Contains(t, shas, "bbb")

	latest, err := store.LatestSHA(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "ccc", latest)

	// Newest first.
	commits, err := store.ForProject(ctx, p.ID(), 2)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "ccc", commits[0].SHA())
	assert.Equal(t, "bbb", commits[1].SHA())
}

func TestCommitStoreLatestSHAFollowsInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewCommitStore(db)

	// A rebase can put an older author timestamp on a later commit; the
	// watermark tracks processing order, not timestamps.
	newerTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	olderTime := newerTime.Add(-time.Hour)

	_, _, err := store.Upsert(ctx, commit.FromDescriptor(p.ID(), testDescriptor("first", newerTime)))
	require.NoError(t, err)
	_, _, err = store.Upsert(ctx, commit.FromDescriptor(p.ID(), testDescriptor("second", olderTime)))
	require.NoError(t, err)

	latest, err := store.LatestSHA(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "second", latest)
}

func TestCommitStoreLatestSHAEmpty(t *testing.T) {
	db := newTestDB(t)
	p := newTestProject(t, db)

	latest, err := NewCommitStore(db).LatestSHA(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestChunkStoreUpsertReplacesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewChunkStore(db)

	c := chunk.New(p.ID(), "pkg/server.go", 0, "package server", []float32{0.1, 0.2}, "hash-v1")
	require.NoError(t, store.Upsert(ctx, c))

	replaced := chunk.New(p.ID(), "pkg/server.go", 0, "package server // v2", []float32{0.3, 0.4}, "hash-v2")
	require.NoError(t, store.Upsert(ctx, replaced))

	count, err := store.CountForProject(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	hash, err := store.ContentHash(ctx, p.ID(), "pkg/server.go", 0)
	require.NoError(t, err)
	assert.Equal(t, "hash-v2", hash)
}

func TestChunkStoreContentHashes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewChunkStore(db)

	chunks := []chunk.FileChunk{
		chunk.New(p.ID(), "README.md", 0, "intro", []float32{1}, "h0"),
		chunk.New(p.ID(), "README.md", 1, "usage", []float32{2}, "h1"),
		chunk.New(p.ID(), "main.go", 0, "package main", []float32{3}, "h2"),
	}
	require.NoError(t, store.UpsertAll(ctx, chunks))

	hashes, err := store.ContentHashes(ctx, p.ID(), "README.md")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "h0", 1: "h1"}, hashes)

	missing, err := store.ContentHash(ctx, p.ID(), "gone.go", 0)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestChunkStoreDeleteStale(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewChunkStore(db)

	chunks := []chunk.FileChunk{
		chunk.New(p.ID(), "big.go", 0, "a", []float32{1}, "h0"),
		chunk.New(p.ID(), "big.go", 1, "b", []float32{2}, "h1"),
		chunk.New(p.ID(), "big.go", 2, "c", []float32{3}, "h2"),
	}
	require.NoError(t, store.UpsertAll(ctx, chunks))

	// File shrank to one chunk.
	require.NoError(t, store.DeleteStale(ctx, p.ID(), "big.go", 1))

	hashes, err := store.ContentHashes(ctx, p.ID(), "big.go")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "h0"}, hashes)
}

func TestChunkStoreVectorRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := newTestProject(t, db)
	store := NewChunkStore(db)

	vec := []float32{0.125, -0.5, 3}
	require.NoError(t, store.Upsert(ctx, chunk.New(p.ID(), "a.go", 0, "x", vec, "h")))

	var model ChunkModel
	require.NoError(t, db.Session(ctx).First(&model).Error)
	assert.Equal(t, FloatVector(vec), model.Embedding)
}
