package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/ingest"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/infrastructure/hosting"
	"github.com/commitsense/commitsense/internal/log"
)

// Poller fetches new commits for a project from the hosting provider and
// summarizes them.
type Poller struct {
	projects   project.Store
	commits    commit.Store
	client     hosting.Client
	summarizer *Summarizer
	logger     *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(
	projects project.Store,
	commits commit.Store,
	client hosting.Client,
	summarizer *Summarizer,
	logger *slog.Logger,
) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		projects:   projects,
		commits:    commits,
		client:     client,
		summarizer: summarizer,
		logger:     logger,
	}
}

// PollCommits fetches commits newer than the project's last recorded one
// and summarizes each, oldest first. Item-scoped failures are collected in
// the result; only run-scoped failures (unknown project, bad credentials)
// return an error.
func (p *Poller) PollCommits(ctx context.Context, projectID int64) (ingest.PollResult, error) {
	run := ingest.NewRun(ingest.RunKindPoll)
	ctx = log.WithRunID(ctx, run.ID())
	logger := p.logger.With(slog.String("run_id", run.ID()), slog.Int64("project_id", projectID))

	proj, err := p.projects.FindByID(ctx, projectID)
	if err != nil {
		return ingest.PollResult{}, fmt.Errorf("load project %d: %w", projectID, err)
	}

	repo, err := hostingRepo(proj)
	if err != nil {
		return ingest.PollResult{}, err
	}

	sinceSHA, err := p.commits.LatestSHA(ctx, projectID)
	if err != nil {
		return ingest.PollResult{}, fmt.Errorf("load latest commit: %w", err)
	}

	descriptors, fetchErr := p.fetchNew(ctx, repo, sinceSHA)
	if fetchErr != nil {
		if ingest.IsAuth(fetchErr) {
			return ingest.PollResult{}, fetchErr
		}
		// A page failed after retries. Everything fetched so far is newer
		// than the commits on the failed page; processing it would advance
		// the recorded mark past the gap and orphan those commits. Drop the
		// batch and retry from the unchanged mark on the next poll.
		run.RecordError(fetchErr.Error())
		logger.Warn("page fetch failed, deferring batch",
			slog.Int("deferred", len(descriptors)),
			slog.String("error", fetchErr.Error()),
		)
		return ingest.PollResultFromRun(run), nil
	}

	logger.Info("polling commits",
		slog.Int("fetched", len(descriptors)),
		slog.String("since", commit.ShortSHA(sinceSHA)),
	)

	for _, d := range commit.OldestFirst(descriptors) {
		p.processCommit(ctx, run, repo, projectID, d, logger)
	}

	result := ingest.PollResultFromRun(run)
	logger.Info("polling done",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// fetchNew drains the pager. On a page error the commits collected so far
// are returned alongside it.
func (p *Poller) fetchNew(ctx context.Context, repo hosting.Repo, sinceSHA string) ([]commit.Descriptor, error) {
	pager := p.client.Commits(repo, sinceSHA)

	var descriptors []commit.Descriptor
	for pager.Next(ctx) {
		descriptors = append(descriptors, pager.Page()...)
	}
	return descriptors, pager.Err()
}

// processCommit records one commit's descriptor and summary. Failures are
// recorded on the run; they never abort the loop.
func (p *Poller) processCommit(
	ctx context.Context,
	run *ingest.Run,
	repo hosting.Repo,
	projectID int64,
	d commit.Descriptor,
	logger *slog.Logger,
) {
	short := commit.ShortSHA(d.SHA())

	stored, existed, err := p.commits.Upsert(ctx, commit.FromDescriptor(projectID, d))
	if err != nil {
		run.RecordError(fmt.Sprintf("commit %s: %v", short, err))
		return
	}
	if existed && stored.HasSummary() {
		run.RecordSkipped()
		return
	}

	// Diff fetch failures degrade to a message-only summary rather than
	// skipping the commit.
	diff, err := p.client.CommitDiff(ctx, repo, d.SHA())
	if err != nil {
		logger.Warn("diff unavailable, summarizing message only",
			slog.String("sha", short),
			slog.String("error", err.Error()),
		)
		diff = ""
	}

	summary := p.summarizer.Summarize(ctx, d.Message(), diff)
	if err := p.commits.AttachSummary(ctx, projectID, d.SHA(), summary.Text(), summary.UsedFallback()); err != nil {
		run.RecordError(fmt.Sprintf("commit %s: attach summary: %v", short, err))
		if markErr := p.commits.MarkFailed(ctx, projectID, d.SHA()); markErr != nil {
			logger.Warn("cannot mark commit failed",
				slog.String("sha", short),
				slog.String("error", markErr.Error()),
			)
		}
		return
	}

	run.RecordProcessed()
	logger.Debug("commit summarized",
		slog.String("sha", short),
		slog.Bool("used_fallback", summary.UsedFallback()),
	)
}

// hostingRepo builds the hosting reference for a project.
func hostingRepo(proj project.Project) (hosting.Repo, error) {
	owner, name, err := proj.OwnerRepo()
	if err != nil {
		return hosting.Repo{}, fmt.Errorf("project %d remote %q: %w", proj.ID(), proj.RemoteURL(), err)
	}
	return hosting.NewRepo(owner, name).
		WithBranch(proj.DefaultBranch()).
		WithToken(proj.AuthToken()), nil
}
