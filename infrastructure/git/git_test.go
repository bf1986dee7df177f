package git

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeAndCommit writes files into dir (creating the repository on first
// use) and commits them all.
func writeAndCommit(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		require.NoError(t, err)
	}

	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)

	hash, err := wt.Commit("add files", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestIgnorePolicyDefaults(t *testing.T) {
	policy := NewIgnorePolicy(1024)

	assert.True(t, policy.ShouldIgnore("logo.png", 10))
	assert.True(t, policy.ShouldIgnore("assets/font.woff2", 10))
	assert.True(t, policy.ShouldIgnore("vendor/lib/lib.go", 10))
	assert.True(t, policy.ShouldIgnore("web/node_modules/x/index.js", 10))
	assert.True(t, policy.ShouldIgnore(".git/config", 10))
	assert.True(t, policy.ShouldIgnore("big.go", 2048), "over the size cap")

	assert.False(t, policy.ShouldIgnore("main.go", 10))
	assert.False(t, policy.ShouldIgnore("docs/README.md", 1024))
}

func TestLoadIgnorePolicyExtendsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "ignore:\n  - \"*.generated.go\"\n  - \"testdata/\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte(content), 0o644))

	policy, err := LoadIgnorePolicy(dir, 0)
	require.NoError(t, err)

	assert.True(t, policy.ShouldIgnore("api.generated.go", 10))
	assert.True(t, policy.ShouldIgnore("testdata/fixture.json", 10))
	assert.True(t, policy.ShouldIgnore("logo.png", 10), "defaults still apply")
	assert.False(t, policy.ShouldIgnore("main.go", 10))
}

func TestLoadIgnorePolicyMissingFile(t *testing.T) {
	policy, err := LoadIgnorePolicy(t.TempDir(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), policy.MaxFileBytes())
}

func TestLoadIgnorePolicyMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte("ignore: {{"), 0o644))

	_, err := LoadIgnorePolicy(dir, 0)
	require.Error(t, err)
}

func TestWalkerVisitsTextFilesOnly(t *testing.T) {
	dir := t.TempDir()
	head := writeAndCommit(t, dir, map[string]string{
		"main.go":            "package main\n",
		"README.md":          "# readme\n",
		"logo.png":           "\x89PNG\x00\x00binary",
		"vendor/dep/x.go":    "package dep\n",
		"data.bin":           "ignored by extension",
		"notes/design.txt":   "some notes\n",
		"raw-blob-no-suffix": "text\x00with nul byte",
	})

	walker := NewWalker(NewIgnorePolicy(0), nil)

	var paths []string
	gotHead, err := walker.Walk(context.Background(), dir, func(f File) error {
		content, err := f.Content()
		require.NoError(t, err)
		require.NotEmpty(t, content)
		require.NotEmpty(t, f.BlobSHA())
		paths = append(paths, f.Path())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, head, gotHead)

	sort.Strings(paths)
	assert.Equal(t, []string{"README.md", "main.go", "notes/design.txt"}, paths)
}

func TestWalkerSizeCap(t *testing.T) {
	dir := t.TempDir()
	writeAndCommit(t, dir, map[string]string{
		"small.go": "package small\n",
		"large.go": "package large\n" + strings.Repeat("// padding\n", 100),
	})

	walker := NewWalker(NewIgnorePolicy(64), nil)

	var paths []string
	_, err := walker.Walk(context.Background(), dir, func(f File) error {
		paths = append(paths, f.Path())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, paths)
}

func TestWalkerIsRestartable(t *testing.T) {
	dir := t.TempDir()
	writeAndCommit(t, dir, map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
	})

	walker := NewWalker(NewIgnorePolicy(0), nil)

	run := func() []string {
		var paths []string
		_, err := walker.Walk(context.Background(), dir, func(f File) error {
			paths = append(paths, f.Path())
			return nil
		})
		require.NoError(t, err)
		return paths
	}

	assert.Equal(t, run(), run())
}

func TestClonerEnsureClonesThenReuses(t *testing.T) {
	source := t.TempDir()
	writeAndCommit(t, source, map[string]string{"main.go": "package main\n"})

	cloneDir := t.TempDir()
	cloner := NewCloner(cloneDir, nil)

	ctx := context.Background()
	path, err := cloner.Ensure(ctx, source)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, cloneDir))
	assert.FileExists(t, filepath.Join(path, "main.go"))

	// Second call fetches instead of cloning.
	again, err := cloner.Ensure(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestClonerPicksUpNewCommits(t *testing.T) {
	source := t.TempDir()
	writeAndCommit(t, source, map[string]string{"main.go": "package main\n"})

	cloner := NewCloner(t.TempDir(), nil)
	ctx := context.Background()

	path, err := cloner.Ensure(ctx, source)
	require.NoError(t, err)

	newHead := writeAndCommit(t, source, map[string]string{"extra.go": "package main\n"})

	_, err = cloner.Ensure(ctx, source)
	require.NoError(t, err)

	walker := NewWalker(NewIgnorePolicy(0), nil)
	var paths []string
	gotHead, err := walker.Walk(ctx, path, func(f File) error {
		paths = append(paths, f.Path())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, newHead, gotHead)
	sort.Strings(paths)
	assert.Equal(t, []string{"extra.go", "main.go"}, paths)
}

func TestClonePathForIsStableAndDistinct(t *testing.T) {
	cloner := NewCloner("/tmp/clones", nil)

	a := cloner.ClonePathFor("https://github.com/acme/widgets.git")
	b := cloner.ClonePathFor("https://github.com/other/widgets.git")

	assert.Equal(t, a, cloner.ClonePathFor("https://github.com/acme/widgets.git"))
	assert.NotEqual(t, a, b, "same repo name under different owners must not collide")
	assert.Contains(t, a, "widgets")
}
