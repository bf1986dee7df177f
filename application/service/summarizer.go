// Package service implements the ingestion pipeline: commit polling,
// summarization, and repository indexing.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/commitsense/commitsense/infrastructure/provider"
)

const summarySystemPrompt = `You are a concise release-notes writer. ` +
	`Given a commit message and diff, reply with one or two plain sentences ` +
	`describing what the change does. No markdown, no preamble.`

// conventionalPrefix matches conventional-commit subjects like
// "fix(parser): handle empty input".
var conventionalPrefix = regexp.MustCompile(`^(\w+)(\(([^)]*)\))?!?:\s*(.+)$`)

// Summary is the result of summarizing one commit. UsedFallback reports
// whether the text came from the local heuristic rather than the AI
// backend; consumers must rely on this flag, never on the summary text.
type Summary struct {
	text         string
	usedFallback bool
}

// Text returns the summary text.
func (s Summary) Text() string { return s.text }

// UsedFallback reports whether the heuristic produced the text.
func (s Summary) UsedFallback() bool { return s.usedFallback }

// Summarizer turns a commit's message and diff into a short human-readable
// summary. The AI backend gets a single attempt; any failure or unusable
// response degrades to the heuristic fallback, which cannot fail.
type Summarizer struct {
	generator    provider.TextGenerator
	maxDiffChars int
	logger       *slog.Logger
}

// NewSummarizer creates a Summarizer. A nil generator means the AI backend
// is not configured and every summary uses the fallback.
func NewSummarizer(generator provider.TextGenerator, maxDiffChars int, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if maxDiffChars <= 0 {
		maxDiffChars = 8000
	}
	return &Summarizer{
		generator:    generator,
		maxDiffChars: maxDiffChars,
		logger:       logger,
	}
}

// Summarize produces a summary for the commit. It never returns an error:
// when the AI backend is unreachable, misconfigured, or returns an empty
// response, the heuristic summary is returned with UsedFallback set.
func (s *Summarizer) Summarize(ctx context.Context, message, diff string) Summary {
	excerpt := truncateRunes(diff, s.maxDiffChars)

	if s.generator != nil {
		req := provider.NewChatCompletionRequest([]provider.Message{
			provider.SystemMessage(summarySystemPrompt),
			provider.UserMessage(buildPrompt(message, excerpt)),
		}).WithMaxTokens(200)

		resp, err := s.generator.ChatCompletion(ctx, req)
		if err == nil {
			if text := strings.TrimSpace(resp.Content()); text != "" {
				return Summary{text: text, usedFallback: false}
			}
			s.logger.Debug("AI summary was empty, using fallback")
		} else {
			s.logger.Warn("AI summary failed, using fallback", slog.String("error", err.Error()))
		}
	}

	return Summary{text: fallbackSummary(message, diff), usedFallback: true}
}

func buildPrompt(message, diffExcerpt string) string {
	var b strings.Builder
	b.WriteString("Commit message:\n")
	b.WriteString(message)
	if diffExcerpt != "" {
		b.WriteString("\n\nDiff:\n")
		b.WriteString(diffExcerpt)
	}
	return b.String()
}

// fallbackSummary derives a summary from the commit message and diff stats
// alone. It always returns non-empty text.
func fallbackSummary(message, diff string) string {
	subject := firstLine(message)

	if m := conventionalPrefix.FindStringSubmatch(subject); m != nil {
		kind, scope, rest := m[1], m[3], m[4]
		text := capitalize(rest)
		if scope != "" {
			return fmt.Sprintf("%s (%s, %s)", text, kind, scope)
		}
		return fmt.Sprintf("%s (%s)", text, kind)
	}

	if subject == "" {
		subject = "No commit message provided"
	}

	files, added, removed := diffStats(diff)
	if files > 0 {
		return fmt.Sprintf("%s (%d files changed, +%d/-%d)", capitalize(subject), files, added, removed)
	}
	return capitalize(subject)
}

// diffStats counts changed files and added/removed lines in a unified diff.
func diffStats(diff string) (files, added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			files++
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return files, added, removed
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
