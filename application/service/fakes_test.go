package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/infrastructure/hosting"
	"github.com/commitsense/commitsense/infrastructure/provider"
)

// fakeGenerator is a scripted TextGenerator.
type fakeGenerator struct {
	calls   atomic.Int64
	fail    bool
	empty   bool
	reply   string
	lastReq provider.ChatCompletionRequest
}

func (g *fakeGenerator) ChatCompletion(_ context.Context, req provider.ChatCompletionRequest) (provider.ChatCompletionResponse, error) {
	g.calls.Add(1)
	g.lastReq = req
	if g.fail {
		return provider.ChatCompletionResponse{}, errors.New("backend unreachable")
	}
	if g.empty {
		return provider.NewChatCompletionResponse("", "stop", provider.NewUsage(0, 0, 0)), nil
	}
	reply := g.reply
	if reply == "" {
		reply = "A generated summary."
	}
	return provider.NewChatCompletionResponse(reply, "stop", provider.NewUsage(1, 1, 2)), nil
}

// fakeEmbedder returns deterministic vectors and counts embedded texts.
// An optional gate blocks each call until released, and fail makes every
// call error.
type fakeEmbedder struct {
	embedded atomic.Int64
	calls    atomic.Int64
	fail     bool
	short    bool
	started  chan struct{}
	release  chan struct{}
}

func (e *fakeEmbedder) Embed(ctx context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	e.calls.Add(1)
	if e.started != nil {
		select {
		case e.started <- struct{}{}:
		default:
		}
	}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return provider.EmbeddingResponse{}, ctx.Err()
		}
	}
	if e.fail {
		return provider.EmbeddingResponse{}, errors.New("embedding backend down")
	}

	texts := req.Texts()
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 0.5, -0.5}
	}
	if e.short && len(vectors) > 0 {
		vectors = vectors[:len(vectors)-1]
	}
	e.embedded.Add(int64(len(vectors)))
	return provider.NewEmbeddingResponse(vectors, provider.NewUsage(len(texts), 0, len(texts))), nil
}

// fakeHost serves commit history from memory, oldest first in h.history,
// yielding pages newest first like a real provider.
type fakeHost struct {
	history  []commit.Descriptor
	diffs    map[string]string
	pageSize int

	diffErr  error
	pageErr  map[int]error
	fetched  atomic.Int64
	diffSeen []string
}

func (h *fakeHost) Commits(_ hosting.Repo, sinceSHA string) *hosting.CommitPager {
	newestFirst := make([]commit.Descriptor, len(h.history))
	for i, d := range h.history {
		newestFirst[len(h.history)-1-i] = d
	}

	pageSize := h.pageSize
	if pageSize <= 0 {
		pageSize = 2
	}

	fetch := func(_ context.Context, page int) ([]commit.Descriptor, error) {
		h.fetched.Add(1)
		if err := h.pageErr[page]; err != nil {
			return nil, err
		}
		start := (page - 1) * pageSize
		if start >= len(newestFirst) {
			return nil, nil
		}
		end := min(start+pageSize, len(newestFirst))
		return newestFirst[start:end], nil
	}
	return hosting.NewCommitPager(fetch, sinceSHA)
}

func (h *fakeHost) CommitDiff(_ context.Context, _ hosting.Repo, sha string) (string, error) {
	if h.diffErr != nil {
		return "", h.diffErr
	}
	h.diffSeen = append(h.diffSeen, sha)
	return h.diffs[sha], nil
}

var _ hosting.Client = (*fakeHost)(nil)
