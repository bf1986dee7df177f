// Package hosting provides clients for repository hosting provider APIs.
package hosting

import (
	"context"

	"github.com/commitsense/commitsense/domain/commit"
)

// Repo identifies one repository at a hosting provider.
type Repo struct {
	owner  string
	name   string
	branch string
	token  string
}

// NewRepo creates a Repo reference.
func NewRepo(owner, name string) Repo {
	return Repo{owner: owner, name: name}
}

// Owner returns the owning user or organisation.
func (r Repo) Owner() string { return r.owner }

// Name returns the repository name.
func (r Repo) Name() string { return r.name }

// Branch returns the branch to list commits from, empty for the provider
// default.
func (r Repo) Branch() string { return r.branch }

// Token returns the per-repository access token, empty when the client
// default applies.
func (r Repo) Token() string { return r.token }

// WithBranch returns a copy listing commits from the given branch.
func (r Repo) WithBranch(branch string) Repo {
	r.branch = branch
	return r
}

// WithToken returns a copy authenticating with the given token.
func (r Repo) WithToken(token string) Repo {
	r.token = token
	return r
}

// Client lists commits and fetches diffs from a hosting provider.
type Client interface {
	// Commits returns a pager over the repository's commit history,
	// newest first as the provider returns them. When sinceSHA is
	// non-empty, iteration stops just before that commit (exclusive).
	Commits(repo Repo, sinceSHA string) *CommitPager

	// CommitDiff fetches the unified diff of a single commit.
	CommitDiff(ctx context.Context, repo Repo, sha string) (string, error)
}

// pageFetch loads one page of descriptors, 1-based.
type pageFetch func(ctx context.Context, page int) ([]commit.Descriptor, error)

// CommitPager iterates the commit history one page at a time, fetching
// lazily so that callers stop paying for pages they never read.
//
//	pager := client.Commits(repo, since)
//	for pager.Next(ctx) {
//	    for _, d := range pager.Page() { ... }
//	}
//	if err := pager.Err(); err != nil { ... }
type CommitPager struct {
	fetch    pageFetch
	sinceSHA string

	page    int
	current []commit.Descriptor
	done    bool
	err     error
}

// NewCommitPager creates a pager backed by the given page fetcher.
func NewCommitPager(fetch pageFetch, sinceSHA string) *CommitPager {
	return &CommitPager{fetch: fetch, sinceSHA: sinceSHA}
}

// Next fetches the next page. It returns false when the history is
// exhausted, the since boundary was reached, or an error occurred.
func (p *CommitPager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}

	p.page++
	descriptors, err := p.fetch(ctx, p.page)
	if err != nil {
		p.err = err
		return false
	}
	if len(descriptors) == 0 {
		p.done = true
		return false
	}

	if p.sinceSHA != "" {
		for i, d := range descriptors {
			if d.SHA() == p.sinceSHA {
				descriptors = descriptors[:i]
				p.done = true
				break
			}
		}
	}

	p.current = descriptors
	return len(descriptors) > 0
}

// Page returns the most recently fetched page.
func (p *CommitPager) Page() []commit.Descriptor {
	return p.current
}

// Err returns the error that terminated iteration, if any.
func (p *CommitPager) Err() error {
	return p.err
}
