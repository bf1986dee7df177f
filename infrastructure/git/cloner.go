// Package git manages local working copies and walks their file trees.
package git

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Cloner maintains per-project working copies under a clone directory.
type Cloner struct {
	cloneDir string
	logger   *slog.Logger
}

// NewCloner creates a Cloner storing working copies under cloneDir.
func NewCloner(cloneDir string, logger *slog.Logger) *Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cloner{cloneDir: cloneDir, logger: logger}
}

// ClonePathFor returns the local working copy path for a remote URL.
func (c *Cloner) ClonePathFor(remoteURL string) string {
	return filepath.Join(c.cloneDir, sanitizeURLForPath(remoteURL))
}

// Ensure makes a current working copy available for the remote URL,
// cloning on first use and fetching on subsequent ones. It returns the
// local path.
func (c *Cloner) Ensure(ctx context.Context, remoteURL string) (string, error) {
	clonePath := c.ClonePathFor(remoteURL)

	if _, err := gogit.PlainOpen(clonePath); err == nil {
		if err := c.fetch(ctx, clonePath); err != nil {
			return "", err
		}
		return clonePath, nil
	} else if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return "", fmt.Errorf("open working copy: %w", err)
	}

	c.logger.Info("cloning repository",
		slog.String("url", remoteURL),
		slog.String("path", clonePath),
	)

	_, err := gogit.PlainCloneContext(ctx, clonePath, false, &gogit.CloneOptions{
		URL: remoteURL,
	})
	if err != nil {
		_ = os.RemoveAll(clonePath)
		return "", fmt.Errorf("clone repository: %w", err)
	}
	return clonePath, nil
}

func (c *Cloner) fetch(ctx context.Context, clonePath string) error {
	repo, err := gogit.PlainOpen(clonePath)
	if err != nil {
		return fmt.Errorf("open working copy: %w", err)
	}

	err = repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch repository: %w", err)
	}

	if err := c.fastForward(clonePath); err != nil {
		return err
	}
	return nil
}

// fastForward moves the worktree to the fetched remote head so that later
// tree walks see the new commits.
func (c *Cloner) fastForward(clonePath string) error {
	repo, err := gogit.PlainOpen(clonePath)
	if err != nil {
		return fmt.Errorf("open working copy: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.Pull(&gogit.PullOptions{RemoteName: "origin", Force: true})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull repository: %w", err)
	}
	return nil
}

// sanitizeURLForPath turns a remote URL into a stable directory name. A
// short content hash keeps distinct URLs with the same tail from colliding.
func sanitizeURLForPath(remoteURL string) string {
	name := strings.TrimSuffix(remoteURL, ".git")
	if idx := strings.LastIndex(name, "/"); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	sum := sha256.Sum256([]byte(remoteURL))
	return b.String() + "-" + hex.EncodeToString(sum[:])[:12]
}
