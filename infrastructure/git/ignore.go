package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IgnoreFileName is the optional per-repository ignore policy file.
const IgnoreFileName = ".csignore.yaml"

// binaryExtensions lists file extensions never worth embedding.
var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".webp": {}, ".svgz": {}, ".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {},
	".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {}, ".jar": {}, ".war": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".a": {}, ".o": {},
	".class": {}, ".pyc": {}, ".wasm": {}, ".bin": {}, ".dat": {},
	".sqlite": {}, ".db": {}, ".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
}

// vendoredDirs lists path segments whose contents are skipped by default.
var vendoredDirs = map[string]struct{}{
	".git":         {},
	"vendor":       {},
	"node_modules": {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"third_party":  {},
	".idea":        {},
	".vscode":      {},
}

// IgnorePolicy decides which repository files are excluded from the
// semantic index: binary extensions, vendored directories, files over the
// size cap, and any extra patterns from the repository's .csignore.yaml.
type IgnorePolicy struct {
	maxFileBytes int64
	patterns     []string
}

// ignoreFile is the on-disk shape of .csignore.yaml.
type ignoreFile struct {
	Ignore []string `yaml:"ignore"`
}

// NewIgnorePolicy creates a policy with the default rules and size cap.
func NewIgnorePolicy(maxFileBytes int64) IgnorePolicy {
	return IgnorePolicy{maxFileBytes: maxFileBytes}
}

// LoadIgnorePolicy creates a policy, extending the defaults with patterns
// from .csignore.yaml in the repository root when present. A missing file is
// not an error; a malformed one is.
func LoadIgnorePolicy(repoPath string, maxFileBytes int64) (IgnorePolicy, error) {
	policy := NewIgnorePolicy(maxFileBytes)

	data, err := os.ReadFile(filepath.Join(repoPath, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return policy, nil
		}
		return IgnorePolicy{}, fmt.Errorf("read %s: %w", IgnoreFileName, err)
	}

	var f ignoreFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return IgnorePolicy{}, fmt.Errorf("parse %s: %w", IgnoreFileName, err)
	}
	policy.patterns = f.Ignore
	return policy, nil
}

// MaxFileBytes returns the size cap, 0 meaning unlimited.
func (p IgnorePolicy) MaxFileBytes() int64 { return p.maxFileBytes }

// ShouldIgnore reports whether the file at the given repository-relative
// path and size is excluded from indexing.
func (p IgnorePolicy) ShouldIgnore(path string, size int64) bool {
	path = filepath.ToSlash(path)

	if p.maxFileBytes > 0 && size > p.maxFileBytes {
		return true
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := binaryExtensions[ext]; ok {
		return true
	}

	for _, segment := range strings.Split(path, "/") {
		if _, ok := vendoredDirs[segment]; ok {
			return true
		}
	}

	return p.matchesPattern(path)
}

func (p IgnorePolicy) matchesPattern(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range p.patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
		// Directory pattern: "docs/" ignores everything under docs.
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return false
}
