// Package commit defines commit records and their summaries.
package commit

import (
	"context"
	"time"
)

// Status tracks the summarization lifecycle of a commit record.
type Status string

// Status values.
const (
	StatusPending    Status = "pending"
	StatusSummarized Status = "summarized"
	StatusFailed     Status = "failed"
)

// Commit is one observed commit of a project. The (project id, SHA) pair is
// unique; repeated ingestion of the same commit is a no-op.
type Commit struct {
	id           int64
	projectID    int64
	sha          string
	author       string
	authorEmail  string
	message      string
	timestamp    time.Time
	summary      string
	usedFallback bool
	status       Status
}

// FromDescriptor creates a pending commit record for a project from a
// fetched descriptor.
func FromDescriptor(projectID int64, d Descriptor) Commit {
	return Commit{
		projectID:   projectID,
		sha:         d.SHA(),
		author:      d.Author(),
		authorEmail: d.AuthorEmail(),
		message:     d.Message(),
		timestamp:   d.Timestamp(),
		status:      StatusPending,
	}
}

// Hydrate reconstructs a commit record from persisted state.
func Hydrate(id, projectID int64, sha, author, authorEmail, message string, timestamp time.Time, summary string, usedFallback bool, status Status) Commit {
	return Commit{
		id:           id,
		projectID:    projectID,
		sha:          sha,
		author:       author,
		authorEmail:  authorEmail,
		message:      message,
		timestamp:    timestamp,
		summary:      summary,
		usedFallback: usedFallback,
		status:       status,
	}
}

// ID returns the record identifier.
func (c Commit) ID() int64 { return c.id }

// ProjectID returns the owning project identifier.
func (c Commit) ProjectID() int64 { return c.projectID }

// SHA returns the commit hash.
func (c Commit) SHA() string { return c.sha }

// Author returns the author name.
func (c Commit) Author() string { return c.author }

// AuthorEmail returns the author email.
func (c Commit) AuthorEmail() string { return c.authorEmail }

// Message returns the full commit message.
func (c Commit) Message() string { return c.message }

// Timestamp returns the commit time.
func (c Commit) Timestamp() time.Time { return c.timestamp }

// Summary returns the generated summary text, empty until generated.
func (c Commit) Summary() string { return c.summary }

// HasSummary reports whether a summary has been attached.
func (c Commit) HasSummary() bool { return c.summary != "" }

// UsedFallback reports whether the summary came from the heuristic fallback
// rather than the AI backend. Carried explicitly so consumers never have to
// sniff the summary text.
func (c Commit) UsedFallback() bool { return c.usedFallback }

// Status returns the summarization status.
func (c Commit) Status() Status { return c.status }

// WithSummary returns a copy carrying the generated summary.
func (c Commit) WithSummary(text string, usedFallback bool) Commit {
	c.summary = text
	c.usedFallback = usedFallback
	c.status = StatusSummarized
	return c
}

// WithStatus returns a copy with the status replaced.
func (c Commit) WithStatus(s Status) Commit {
	c.status = s
	return c
}

// ShortSHA returns the first 8 characters of a SHA for log output.
func ShortSHA(sha string) string {
	if len(sha) <= 8 {
		return sha
	}
	return sha[:8]
}

// Store persists commit records. Upsert must treat an existing
// (project id, SHA) row as success, not a conflict error, so that repeated
// and concurrent polling runs stay idempotent.
type Store interface {
	// Upsert inserts the record if absent. It returns the stored record and
	// true when a row already existed for the (project id, SHA) key.
	Upsert(ctx context.Context, c Commit) (Commit, bool, error)

	// AttachSummary records the generated summary for a commit.
	AttachSummary(ctx context.Context, projectID int64, sha, summary string, usedFallback bool) error

	// MarkFailed records that summarization failed unexpectedly.
	MarkFailed(ctx context.Context, projectID int64, sha string) error

	// SHAs returns the set of commit hashes already recorded for a project.
	SHAs(ctx context.Context, projectID int64) (map[string]struct{}, error)

	// LatestSHA returns the hash of the newest recorded commit for a project,
	// or empty when none exist.
	LatestSHA(ctx context.Context, projectID int64) (string, error)

	// ForProject lists records for a project, newest first.
	ForProject(ctx context.Context, projectID int64, limit int) ([]Commit, error)
}
