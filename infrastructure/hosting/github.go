package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/commitsense/commitsense/domain/commit"
	"github.com/commitsense/commitsense/domain/ingest"
	"github.com/commitsense/commitsense/internal/config"
)

const (
	acceptJSON = "application/vnd.github+json"
	acceptDiff = "application/vnd.github.diff"
	apiVersion = "2022-11-28"
)

// GitHubClient implements Client against the GitHub REST API, or any
// API-compatible service.
type GitHubClient struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	pageSize      int
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewGitHubClient creates a client from hosting configuration.
func NewGitHubClient(cfg config.Hosting) *GitHubClient {
	baseURL := cfg.BaseURL()
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubClient{
		httpClient:    &http.Client{Timeout: cfg.Timeout()},
		baseURL:       baseURL,
		token:         cfg.Token(),
		pageSize:      cfg.PageSize(),
		maxRetries:    cfg.MaxRetries(),
		initialDelay:  cfg.InitialDelay(),
		backoffFactor: cfg.BackoffFactor(),
	}
}

// Commits returns a pager over the repository's commit history.
func (c *GitHubClient) Commits(repo Repo, sinceSHA string) *CommitPager {
	fetch := func(ctx context.Context, page int) ([]commit.Descriptor, error) {
		descriptors, err := c.fetchCommitPage(ctx, repo, page)
		if err != nil {
			return nil, &ingest.FetchError{Page: page, Err: err}
		}
		return descriptors, nil
	}
	return NewCommitPager(fetch, sinceSHA)
}

// CommitDiff fetches the unified diff of a single commit.
func (c *GitHubClient) CommitDiff(ctx context.Context, repo Repo, sha string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.baseURL, repo.Owner(), repo.Name(), sha)

	body, err := c.doWithRetry(ctx, repo, endpoint, acceptDiff)
	if err != nil {
		return "", fmt.Errorf("fetch diff for %s: %w", commit.ShortSHA(sha), err)
	}
	return string(body), nil
}

// commitItem is the subset of the provider's commit listing payload we use.
type commitItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (c *GitHubClient) fetchCommitPage(ctx context.Context, repo Repo, page int) ([]commit.Descriptor, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(c.pageSize))
	query.Set("page", strconv.Itoa(page))
	if repo.Branch() != "" {
		query.Set("sha", repo.Branch())
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?%s", c.baseURL, repo.Owner(), repo.Name(), query.Encode())

	body, err := c.doWithRetry(ctx, repo, endpoint, acceptJSON)
	if err != nil {
		return nil, err
	}

	var items []commitItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode commit page: %w", err)
	}

	descriptors := make([]commit.Descriptor, len(items))
	for i, item := range items {
		descriptors[i] = commit.NewDescriptor(
			item.SHA,
			item.Commit.Author.Name,
			item.Commit.Author.Email,
			item.Commit.Message,
			item.Commit.Author.Date,
			item.SHA,
		)
	}
	return descriptors, nil
}

// doWithRetry performs a GET with bounded exponential backoff. Authentication
// failures abort immediately; rate-limit responses wait until the provider's
// reset time and retry without consuming an attempt.
func (c *GitHubClient) doWithRetry(ctx context.Context, repo Repo, endpoint, accept string) ([]byte, error) {
	delay := c.initialDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, retryable, err := c.do(ctx, repo, endpoint, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if resetAt, ok := ingest.IsRateLimited(err); ok {
			if err := sleepUntil(ctx, resetAt); err != nil {
				return nil, err
			}
			attempt--
			continue
		}
		if !retryable {
			return nil, err
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.backoffFactor)
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *GitHubClient) do(ctx context.Context, repo Repo, endpoint, accept string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if token := c.tokenFor(repo); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, ingest.Transient("hosting request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, ingest.Transient("read response", err)
		}
		return data, false, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, fmt.Errorf("%w: status %d", ingest.ErrAuth, resp.StatusCode)

	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		if resetAt, ok := rateLimitReset(resp); ok {
			return nil, true, ingest.RateLimited(resetAt)
		}
		// 403 without rate-limit headers is a permission problem.
		return nil, false, fmt.Errorf("%w: status %d", ingest.ErrAuth, resp.StatusCode)

	case resp.StatusCode >= 500:
		return nil, true, ingest.Transient("hosting request", fmt.Errorf("status %d", resp.StatusCode))

	default:
		return nil, false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
}

func (c *GitHubClient) tokenFor(repo Repo) string {
	if repo.Token() != "" {
		return repo.Token()
	}
	return c.token
}

// rateLimitReset extracts the provider's reset time from Retry-After or
// X-RateLimit-Reset headers. A 403 only counts as rate limiting when the
// remaining-request counter is actually exhausted.
func rateLimitReset(resp *http.Response) (time.Time, bool) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Now().Add(time.Duration(seconds) * time.Second), true
		}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining == "0" {
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				return time.Unix(epoch, 0), true
			}
		}
		// Exhausted but no reset header: back off for a minute.
		return time.Now().Add(time.Minute), true
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return time.Now().Add(time.Minute), true
	}
	return time.Time{}, false
}

func sleepUntil(ctx context.Context, at time.Time) error {
	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

var _ Client = (*GitHubClient)(nil)
