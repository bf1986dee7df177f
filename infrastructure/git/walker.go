package git

import (
	"context"
	"fmt"
	"log/slog"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// File is one text file encountered during a tree walk. Content is read
// lazily from the object store, never from the worktree, so a walk sees a
// consistent snapshot even if the working copy changes underneath it.
type File struct {
	path    string
	blobSHA string
	size    int64
	read    func() (string, error)
}

// Path returns the repository-relative file path.
func (f File) Path() string { return f.path }

// BlobSHA returns the git blob hash of the file content.
func (f File) BlobSHA() string { return f.blobSHA }

// Size returns the file size in bytes.
func (f File) Size() int64 { return f.size }

// Content reads the file content.
func (f File) Content() (string, error) { return f.read() }

// Walker enumerates indexable files at the HEAD snapshot of a working copy.
type Walker struct {
	policy IgnorePolicy
	logger *slog.Logger
}

// NewWalker creates a Walker applying the given ignore policy.
func NewWalker(policy IgnorePolicy, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{policy: policy, logger: logger}
}

// Walk visits every file at HEAD that passes the ignore policy, in tree
// order, and returns the HEAD commit hash. Binary files are skipped. An
// error from visit stops the walk and is returned as-is, so callers can
// record per-file failures and restart.
func (w *Walker) Walk(ctx context.Context, repoPath string, visit func(File) error) (string, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("get HEAD commit: %w", err)
	}

	tree, err := headCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("get tree: %w", err)
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if w.policy.ShouldIgnore(f.Name, f.Size) {
			w.logger.Debug("skipping ignored file", slog.String("path", f.Name))
			return nil
		}

		if binary, err := f.IsBinary(); err != nil || binary {
			if err != nil {
				w.logger.Debug("cannot inspect file, skipping",
					slog.String("path", f.Name),
					slog.String("error", err.Error()),
				)
			}
			return nil
		}

		return visit(File{
			path:    f.Name,
			blobSHA: f.Hash.String(),
			size:    f.Size,
			read:    f.Contents,
		})
	})
	if err != nil {
		return "", err
	}

	return head.Hash().String(), nil
}
