// Package v1 provides the v1 API routes.
package v1

import (
	"time"

	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/project"
)

// ProjectRequest is the body for registering a project.
type ProjectRequest struct {
	Name          string `json:"name"`
	RemoteURL     string `json:"remote_url"`
	AuthToken     string `json:"auth_token,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// ProjectResponse describes a registered project. The auth token is never
// echoed back.
type ProjectResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	RemoteURL     string    `json:"remote_url"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectListResponse wraps a list of projects.
type ProjectListResponse struct {
	Data []ProjectResponse `json:"data"`
}

// CommitResponse describes a summarized commit.
type CommitResponse struct {
	SHA          string    `json:"sha"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Summary      string    `json:"summary,omitempty"`
	UsedFallback bool      `json:"used_fallback"`
	Status       string    `json:"status"`
}

// CommitListResponse wraps a list of commits.
type CommitListResponse struct {
	Data []CommitResponse `json:"data"`
}

func projectToDTO(p project.Project) ProjectResponse {
	return ProjectResponse{
		ID:            p.ID(),
		Name:          p.Name(),
		RemoteURL:     p.RemoteURL(),
		DefaultBranch: p.DefaultBranch(),
		CreatedAt:     p.CreatedAt(),
	}
}

func projectsToDTO(projects []project.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(projects))
	for i, p := range projects {
		out[i] = projectToDTO(p)
	}
	return out
}

func commitToDTO(c commit.Commit) CommitResponse {
	return CommitResponse{
		SHA:          c.SHA(),
		Author:       c.Author(),
		AuthorEmail:  c.AuthorEmail(),
		Message:      c.Message(),
		Timestamp:    c.Timestamp(),
		Summary:      c.Summary(),
		UsedFallback: c.UsedFallback(),
		Status:       string(c.Status()),
	}
}

func commitsToDTO(commits []commit.Commit) []CommitResponse {
	out := make([]CommitResponse, len(commits))
	for i, c := range commits {
		out[i] = commitToDTO(c)
	}
	return out
}
