package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/ingest"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/infrastructure/persistence"
	"github.com/commitsense/commitsense/internal/database"
	"github.com/commitsense/commitsense/internal/testdb"
)

type pollerFixture struct {
	db       database.Database
	projects persistence.ProjectStore
	commits  persistence.CommitStore
	host     *fakeHost
	gen      *fakeGenerator
	poller   *Poller
	project  project.Project
}

func newPollerFixture(t *testing.T) *pollerFixture {
	t.Helper()
	db := testdb.New(t)

	projects := persistence.NewProjectStore(db)
	commits := persistence.NewCommitStore(db)

	p, err := project.New("widgets", "https://github.com/acme/widgets")
	require.NoError(t, err)
	saved, err := projects.Save(context.Background(), p.WithAuthToken("tok"))
	require.NoError(t, err)

	host := &fakeHost{diffs: map[string]string{}}
	gen := &fakeGenerator{}
	poller := NewPoller(projects, commits, host, NewSummarizer(gen, 8000, nil), nil)

	return &pollerFixture{
		db:       db,
		projects: projects,
		commits:  commits,
		host:     host,
		gen:      gen,
		poller:   poller,
		project:  saved,
	}
}

func (f *pollerFixture) addCommits(n int) {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(len(f.history())) * time.Hour)
	for i := 0; i < n; i++ {
		sha := fmt.Sprintf("sha%03d", len(f.history()))
		d := commit.NewDescriptor(sha, "Alice", "alice@example.com",
			fmt.Sprintf("change %s", sha), base.Add(time.Duration(i)*time.Hour), sha)
		f.host.history = append(f.host.history, d)
		f.host.diffs[sha] = "diff --git a/f.go b/f.go\n+line\n"
	}
}

func (f *pollerFixture) history() []commit.Descriptor { return f.host.history }

func TestPollCommitsAllSucceed(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(3)

	result, err := f.poller.PollCommits(context.Background(), f.project.ID())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	stored, err := f.commits.ForProject(context.Background(), f.project.ID(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, c := range stored {
		assert.True(t, c.HasSummary())
		assert.False(t, c.UsedFallback())
		assert.Equal(t, commit.StatusSummarized, c.Status())
	}
}

func TestPollCommitsAIDownUsesFallback(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(2)
	f.gen.fail = true

	result, err := f.poller.PollCommits(context.Background(), f.project.ID())
	require.NoError(t, err)

	// A normal AI failure is degraded service, not an error.
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	stored, err := f.commits.ForProject(context.Background(), f.project.ID(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, c := range stored {
		assert.True(t, c.HasSummary())
		assert.True(t, c.UsedFallback())
	}
}

func TestPollCommitsIsIdempotent(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(3)
	ctx := context.Background()

	first, err := f.poller.PollCommits(ctx, f.project.ID())
	require.NoError(t, err)
	require.Equal(t, 3, first.Processed)

	second, err := f.poller.PollCommits(ctx, f.project.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Empty(t, second.Errors)

	stored, err := f.commits.ForProject(ctx, f.project.ID(), 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3, "no duplicate records")
}

func TestPollCommitsResumesFromLatest(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(2)
	ctx := context.Background()

	_, err := f.poller.PollCommits(ctx, f.project.ID())
	require.NoError(t, err)
	summarizedBefore := f.gen.calls.Load()

	// New commits appear upstream.
	f.addCommits(2)

	result, err := f.poller.PollCommits(ctx, f.project.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)

	// Only the new commits were summarized again.
	assert.Equal(t, summarizedBefore+2, f.gen.calls.Load())
}

func TestPollCommitsProcessesOldestFirst(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(4)

	_, err := f.poller.PollCommits(context.Background(), f.project.ID())
	require.NoError(t, err)

	// Diffs are requested in oldest-to-newest order.
	require.Len(t, f.host.diffSeen, 4)
	assert.Equal(t, []string{"sha000", "sha001", "sha002", "sha003"}, f.host.diffSeen)
}

func TestPollCommitsAuthFailureAbortsRun(t *testing.T) {
	f := newPollerFixture(t)
	f.host.pageErr = map[int]error{1: fmt.Errorf("page: %w", ingest.ErrAuth)}

	_, err := f.poller.PollCommits(context.Background(), f.project.ID())
	require.Error(t, err)
	assert.True(t, ingest.IsAuth(err))
}

func TestPollCommitsFailedPageDefersWholeBatch(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(4)
	f.host.pageSize = 2
	ctx := context.Background()
	// Page 1 (the two newest) loads, page 2 fails after retries.
	f.host.pageErr = map[int]error{2: &ingest.FetchError{Page: 2, Err: fmt.Errorf("gateway timeout")}}

	first, err := f.poller.PollCommits(ctx, f.project.ID())
	require.NoError(t, err)

	// Everything fetched is newer than the commits on the failed page.
	// Processing it would move the recorded mark past them for good.
	assert.Equal(t, 0, first.Processed)
	require.Len(t, first.Errors, 1)
	assert.Contains(t, first.Errors[0], "page 2")

	// The failure heals; the next poll starts from the unchanged mark and
	// picks up the full history.
	f.host.pageErr = nil

	second, err := f.poller.PollCommits(ctx, f.project.ID())
	require.NoError(t, err)
	assert.Equal(t, 4, second.Processed)
	assert.Empty(t, second.Errors)

	stored, err := f.commits.ForProject(ctx, f.project.ID(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 4)
}

func TestPollCommitsSameSecondCommitsKeepHistoryOrder(t *testing.T) {
	f := newPollerFixture(t)
	when := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for _, sha := range []string{"aaa1111", "bbb2222"} {
		d := commit.NewDescriptor(sha, "Alice", "alice@example.com", "change "+sha, when, sha)
		f.host.history = append(f.host.history, d)
		f.host.diffs[sha] = "diff --git a/f.go b/f.go\n+line\n"
	}

	result, err := f.poller.PollCommits(context.Background(), f.project.ID())
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)

	assert.Equal(t, []string{"aaa1111", "bbb2222"}, f.host.diffSeen)

	// The recorded mark is the last-processed commit, so a later poll
	// fetches nothing new.
	latest, err := f.commits.LatestSHA(context.Background(), f.project.ID())
	require.NoError(t, err)
	assert.Equal(t, "bbb2222", latest)
}

func TestPollCommitsDiffFailureDegradesToMessageOnly(t *testing.T) {
	f := newPollerFixture(t)
	f.addCommits(1)
	f.host.diffErr = fmt.Errorf("diff too large: %w", ingest.ErrContentTooLarge)
	f.gen.fail = true

	result, err := f.poller.PollCommits(context.Background(), f.project.ID())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	stored, err := f.commits.ForProject(context.Background(), f.project.ID(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].HasSummary())
}

func TestPollCommitsUnknownProject(t *testing.T) {
	f := newPollerFixture(t)

	_, err := f.poller.PollCommits(context.Background(), 4242)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
