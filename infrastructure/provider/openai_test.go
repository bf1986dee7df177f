package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitsense/commitsense/internal/config"
)

// fakeEmbeddingServer returns an httptest.Server that mimics the OpenAI
// embeddings endpoint. It returns deterministic 3-dimensional vectors and
// tracks how many requests it received via the counter.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)

		var body struct {
			Input interface{} `json:"input"`
			Model string      `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var texts []string
		switch v := body.Input.(type) {
		case string:
			texts = []string{v}
		case []interface{}:
			for _, item := range v {
				texts = append(texts, item.(string))
			}
		}

		data := make([]map[string]interface{}, len(texts))
		for i := range texts {
			data[i] = map[string]interface{}{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{0.1, 0.2, 0.3},
			}
		}

		resp := map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage": map[string]int{
				"prompt_tokens": len(texts) * 4,
				"total_tokens":  len(texts) * 4,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func endpointFor(url string) config.Endpoint {
	return config.NewEndpointWith(
		config.WithBaseURL(url),
		config.WithModel("test-model"),
		config.WithAPIKey("test-key"),
		config.WithMaxRetries(2),
		config.WithInitialDelay(time.Millisecond),
	)
}

func TestOpenAIProviderEmbedEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)
	defer srv.Close()

	p := NewOpenAIProviderFromEndpoint(endpointFor(srv.URL))

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	require.Empty(t, resp.Embeddings())
	require.Equal(t, int64(0), counter.Load(), "no HTTP request for empty input")
}

func TestOpenAIProviderEmbedBatch(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)
	defer srv.Close()

	p := NewOpenAIProviderFromEndpoint(endpointFor(srv.URL))

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a", "b"}))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, resp.Embeddings()[0])
	assert.Equal(t, int64(1), counter.Load())
}

func TestOpenAIProviderRetriesServerErrors(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)
		if n < 3 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Fixed the frame bug."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProviderFromEndpoint(endpointFor(srv.URL))

	req := NewChatCompletionRequest([]Message{UserMessage("summarize this")})
	resp, err := p.ChatCompletion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Fixed the frame bug.", resp.Content())
	assert.Equal(t, int64(3), counter.Load())
}

func TestOpenAIProviderDoesNotRetryAuthFailure(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProviderFromEndpoint(endpointFor(srv.URL))

	req := NewChatCompletionRequest([]Message{UserMessage("hello")})
	_, err := p.ChatCompletion(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, int64(1), counter.Load(), "auth failures must not be retried")

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.IsAuthFailure())
}

func TestOpenAIProviderUpstreamFailureNotRetried(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.Header().Set("Content-Type", "application/json")
		// HTTP 200 with an empty body: routing provider upstream failure.
		_, _ = w.Write([]byte(`{"object": "list", "data": [], "model": "", "usage": {"prompt_tokens": 0, "total_tokens": 0}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProviderFromEndpoint(endpointFor(srv.URL))

	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a"}))
	require.Error(t, err)
	assert.Equal(t, int64(1), counter.Load())
}
