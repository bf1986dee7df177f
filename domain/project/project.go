// Package project defines the tracked-repository aggregate.
package project

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrInvalidRemoteURL indicates the remote URL cannot identify a repository.
var ErrInvalidRemoteURL = errors.New("invalid remote url")

// Project identifies a tracked repository. The ingestion pipeline reads
// projects but never mutates them.
type Project struct {
	id            int64
	name          string
	remoteURL     string
	authToken     string
	defaultBranch string
	createdAt     time.Time
}

// New creates a Project for registration.
func New(name, remoteURL string) (Project, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return Project{}, ErrInvalidRemoteURL
	}
	if name == "" {
		name = nameFromRemote(remoteURL)
	}
	return Project{
		name:          name,
		remoteURL:     remoteURL,
		defaultBranch: "main",
		createdAt:     time.Now().UTC(),
	}, nil
}

// Hydrate reconstructs a Project from persisted state.
func Hydrate(id int64, name, remoteURL, authToken, defaultBranch string, createdAt time.Time) Project {
	return Project{
		id:            id,
		name:          name,
		remoteURL:     remoteURL,
		authToken:     authToken,
		defaultBranch: defaultBranch,
		createdAt:     createdAt,
	}
}

// ID returns the project identifier.
func (p Project) ID() int64 { return p.id }

// Name returns the display name.
func (p Project) Name() string { return p.name }

// RemoteURL returns the hosting URL of the repository.
func (p Project) RemoteURL() string { return p.remoteURL }

// AuthToken returns the access token reference for the hosting provider.
func (p Project) AuthToken() string { return p.authToken }

// DefaultBranch returns the branch polled for commits.
func (p Project) DefaultBranch() string { return p.defaultBranch }

// CreatedAt returns the registration time.
func (p Project) CreatedAt() time.Time { return p.createdAt }

// WithAuthToken returns a copy carrying the given access token.
func (p Project) WithAuthToken(token string) Project {
	p.authToken = token
	return p
}

// WithDefaultBranch returns a copy with the default branch replaced.
func (p Project) WithDefaultBranch(branch string) Project {
	if branch != "" {
		p.defaultBranch = branch
	}
	return p
}

// OwnerRepo splits the remote URL into its owner and repository segments,
// e.g. "https://github.com/acme/widgets.git" -> ("acme", "widgets").
func (p Project) OwnerRepo() (string, string, error) {
	trimmed := strings.TrimSuffix(p.remoteURL, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", "", ErrInvalidRemoteURL
	}
	owner := parts[len(parts)-2]
	repo := parts[len(parts)-1]
	if owner == "" || repo == "" || strings.Contains(owner, ":") {
		return "", "", ErrInvalidRemoteURL
	}
	return owner, repo, nil
}

func nameFromRemote(remoteURL string) string {
	trimmed := strings.TrimSuffix(remoteURL, ".git")
	trimmed = strings.TrimSuffix(trimmed, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// Store persists projects.
type Store interface {
	Save(ctx context.Context, p Project) (Project, error)
	FindByID(ctx context.Context, id int64) (Project, error)
	FindAll(ctx context.Context) ([]Project, error)
}
