package commit

import (
	"time"
)

// Descriptor is the provider's view of one commit: hash, author, message,
// timestamp, and a reference for fetching the diff.
type Descriptor struct {
	sha         string
	author      string
	authorEmail string
	message     string
	timestamp   time.Time
	diffRef     string
}

// NewDescriptor creates a Descriptor.
func NewDescriptor(sha, author, authorEmail, message string, timestamp time.Time, diffRef string) Descriptor {
	return Descriptor{
		sha:         sha,
		author:      author,
		authorEmail: authorEmail,
		message:     message,
		timestamp:   timestamp,
		diffRef:     diffRef,
	}
}

// SHA returns the commit hash.
func (d Descriptor) SHA() string { return d.sha }

// Author returns the author name.
func (d Descriptor) Author() string { return d.author }

// AuthorEmail returns the author email.
func (d Descriptor) AuthorEmail() string { return d.authorEmail }

// Message returns the commit message.
func (d Descriptor) Message() string { return d.message }

// Timestamp returns the commit time.
func (d Descriptor) Timestamp() time.Time { return d.timestamp }

// DiffRef returns the provider reference used to fetch this commit's diff.
func (d Descriptor) DiffRef() string { return d.diffRef }

// OldestFirst returns descriptors in reverse order. Providers yield commit
// lists newest first along the branch history, so reversing recovers the
// history order. Author timestamps are not a usable key here: same-second
// commits, rebases, and cherry-picks all break their monotonicity.
func OldestFirst(descriptors []Descriptor) []Descriptor {
	ordered := make([]Descriptor, len(descriptors))
	for i, d := range descriptors {
		ordered[len(descriptors)-1-i] = d
	}
	return ordered
}
