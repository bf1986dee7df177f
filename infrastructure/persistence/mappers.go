package persistence

import (
	"github.com/commitsense/commitsense/domain/chunk"
	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/project"
)

// ProjectMapper maps between domain Project and persistence ProjectModel.
type ProjectMapper struct{}

// ToDomain converts a ProjectModel to a domain Project.
func (m ProjectMapper) ToDomain(e ProjectModel) project.Project {
	return project.Hydrate(e.ID, e.Name, e.RemoteURL, e.AuthToken, e.DefaultBranch, e.CreatedAt)
}

// ToModel converts a domain Project to a ProjectModel.
func (m ProjectMapper) ToModel(p project.Project) ProjectModel {
	return ProjectModel{
		ID:            p.ID(),
		Name:          p.Name(),
		RemoteURL:     p.RemoteURL(),
		AuthToken:     p.AuthToken(),
		DefaultBranch: p.DefaultBranch(),
		CreatedAt:     p.CreatedAt(),
	}
}

// CommitMapper maps between domain Commit and persistence CommitModel.
type CommitMapper struct{}

// ToDomain converts a CommitModel to a domain Commit.
func (m CommitMapper) ToDomain(e CommitModel) commit.Commit {
	return commit.Hydrate(
		e.ID,
		e.ProjectID,
		e.SHA,
		e.Author,
		e.AuthorEmail,
		e.Message,
		e.Timestamp,
		e.Summary,
		e.UsedFallback,
		commit.Status(e.Status),
	)
}

// ToModel converts a domain Commit to a CommitModel.
func (m CommitMapper) ToModel(c commit.Commit) CommitModel {
	return CommitModel{
		ID:           c.ID(),
		ProjectID:    c.ProjectID(),
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

// ChunkMapper maps between domain FileChunk and persistence ChunkModel.
type ChunkMapper struct{}

// ToDomain converts a ChunkModel to a domain FileChunk.
func (m ChunkMapper) ToDomain(e ChunkModel) chunk.FileChunk {
	return chunk.New(e.ProjectID, e.Path, e.ChunkIndex, e.Content, []float32(e.Embedding), e.ContentHash)
}

// ToModel converts a domain FileChunk to a ChunkModel.
func (m ChunkMapper) ToModel(c chunk.FileChunk) ChunkModel {
	vec := c.Vector()
	cp := make(FloatVector, len(vec))
	copy(cp, vec)
	return ChunkModel{
		ProjectID:   c.ProjectID(),
		Path:        c.Path(),
		ChunkIndex:  c.Index(),
		Content:     c.Text(),
		Embedding:   cp,
		ContentHash: c.ContentHash(),
	}
}
