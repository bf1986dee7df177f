// Package chunking provides fixed-size text chunking with overlap for the
// semantic file index.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Params configures the chunking algorithm. Size, Overlap, and MinSize are
// measured in runes (Unicode code points).
type Params struct {
	Size    int
	Overlap int
	MinSize int
}

// DefaultParams returns sensible defaults for source and prose files.
func DefaultParams() Params {
	return Params{
		Size:    1000,
		Overlap: 100,
		MinSize: 20,
	}
}

// Chunk is a single slice of file content with its position in the file.
type Chunk struct {
	index int
	text  string
	hash  string
}

// Index returns the 0-based position of the chunk within its file.
func (c Chunk) Index() int { return c.index }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Hash returns the SHA-256 hex digest of the chunk text. Stored alongside
// the embedding so unchanged chunks can skip re-embedding on later runs.
func (c Chunk) Hash() string { return c.hash }

// HashText returns the SHA-256 hex digest of the given text, matching the
// digest carried by chunks produced from it.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Split divides content into chunks of at most params.Size runes.
//
// Whole lines are accumulated until the next line would exceed the size,
// so chunk boundaries fall on line breaks wherever the content allows it.
// A single line longer than the size is split on rune boundaries instead.
// Consecutive chunks share params.Overlap trailing runes of context, and
// pieces shorter than params.MinSize are discarded.
func Split(content string, params Params) ([]Chunk, error) {
	if params.Size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %d", params.Size)
	}
	if params.Overlap >= params.Size {
		return nil, fmt.Errorf("overlap (%d) must be less than size (%d)", params.Overlap, params.Size)
	}
	if content == "" {
		return nil, nil
	}

	var texts []string
	var acc []string
	accRunes := 0
	carryOnly := false

	// Emitting acc while it holds nothing but the carried overlap would
	// duplicate the previous chunk's tail as its own chunk.
	flush := func() {
		if accRunes == 0 || carryOnly {
			return
		}
		texts = append(texts, strings.Join(acc, ""))
		acc, accRunes = carryOverlap(acc, params.Overlap)
		carryOnly = accRunes > 0
	}

	for _, line := range splitLines(content) {
		lineRunes := len([]rune(line))

		if lineRunes > params.Size {
			// A single oversized line: flush what we have, then cut the
			// line itself on rune boundaries.
			if accRunes > 0 && !carryOnly {
				texts = append(texts, strings.Join(acc, ""))
			}
			acc, accRunes, carryOnly = nil, 0, false
			texts = append(texts, splitRunes(line, params.Size, params.Overlap)...)
			continue
		}

		if accRunes+lineRunes > params.Size {
			flush()
			// A near-size line cannot share the carried context without
			// exceeding the size; it starts a chunk of its own.
			if accRunes+lineRunes > params.Size {
				acc, accRunes, carryOnly = nil, 0, false
			}
		}
		acc = append(acc, line)
		accRunes += lineRunes
		carryOnly = false
	}

	if accRunes > 0 && !carryOnly {
		texts = append(texts, strings.Join(acc, ""))
	}

	var chunks []Chunk
	for _, text := range texts {
		if len([]rune(text)) < params.MinSize {
			continue
		}
		chunks = append(chunks, Chunk{
			index: len(chunks),
			text:  text,
			hash:  HashText(text),
		})
	}
	return chunks, nil
}

// splitLines splits content into lines, preserving the trailing \n on each
// line. The last segment is included even if it doesn't end with \n.
func splitLines(content string) []string {
	var lines []string
	for len(content) > 0 {
		idx := strings.IndexByte(content, '\n')
		if idx < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:idx+1])
		content = content[idx+1:]
	}
	return lines
}

// carryOverlap walks backward through lines and returns the trailing lines
// whose total rune count fits within the overlap budget.
func carryOverlap(lines []string, overlap int) ([]string, int) {
	if overlap == 0 {
		return nil, 0
	}
	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		r := len([]rune(lines[i]))
		if total+r > overlap {
			break
		}
		total += r
		start = i
	}
	if start == len(lines) {
		return nil, 0
	}
	carried := make([]string, len(lines)-start)
	copy(carried, lines[start:])
	return carried, total
}

// splitRunes cuts content into pieces of at most size runes with overlap.
func splitRunes(content string, size, overlap int) []string {
	runes := []rune(content)
	step := size - overlap
	var result []string
	for i := 0; i < len(runes); i += step {
		end := min(i+size, len(runes))
		slice := runes[i:end]
		if i > 0 && len(slice) <= overlap {
			break
		}
		result = append(result, string(slice))
	}
	return result
}
