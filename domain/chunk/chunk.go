// Package chunk defines embedded file chunks for the semantic index.
package chunk

import "context"

// FileChunk is one embedded slice of a file's text content. The
// (project id, path, index) triple is unique; re-indexing replaces rows in
// place. ContentHash decides whether a chunk needs re-embedding.
type FileChunk struct {
	projectID   int64
	path        string
	index       int
	text        string
	vector      []float32
	contentHash string
}

// New creates a FileChunk.
func New(projectID int64, path string, index int, text string, vector []float32, contentHash string) FileChunk {
	return FileChunk{
		projectID:   projectID,
		path:        path,
		index:       index,
		text:        text,
		vector:      vector,
		contentHash: contentHash,
	}
}

// ProjectID returns the owning project identifier.
func (c FileChunk) ProjectID() int64 { return c.projectID }

// Path returns the repository-relative file path.
func (c FileChunk) Path() string { return c.path }

// Index returns the positional chunk index within the file.
func (c FileChunk) Index() int { return c.index }

// Text returns the raw chunk text.
func (c FileChunk) Text() string { return c.text }

// Vector returns the embedding vector.
func (c FileChunk) Vector() []float32 { return c.vector }

// ContentHash returns the hash of the chunk text.
func (c FileChunk) ContentHash() string { return c.contentHash }

// Store persists file chunks with upsert-by-unique-key semantics.
type Store interface {
	// Upsert inserts or replaces the chunk at (project id, path, index).
	Upsert(ctx context.Context, c FileChunk) error

	// UpsertAll persists a batch of chunks.
	UpsertAll(ctx context.Context, chunks []FileChunk) error

	// ContentHash returns the stored hash at (project id, path, index), or
	// empty when no chunk exists there.
	ContentHash(ctx context.Context, projectID int64, path string, index int) (string, error)

	// ContentHashes returns stored hashes for every chunk of a file, keyed
	// by chunk index.
	ContentHashes(ctx context.Context, projectID int64, path string) (map[int]string, error)

	// CountForProject returns the number of stored chunks for a project.
	CountForProject(ctx context.Context, projectID int64) (int64, error)

	// DeleteStale removes chunks of a file at indexes >= fromIndex, covering
	// files that shrank since the previous indexing run.
	DeleteStale(ctx context.Context, projectID int64, path string, fromIndex int) error
}
