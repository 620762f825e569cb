package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/roasbeef/prreview/internal/candidate"
)

const (
	// defaultBaseURL is the public GitHub REST endpoint.
	defaultBaseURL = "https://api.github.com"

	// defaultCallTimeout bounds a single HTTP exchange. No external call
	// may hang indefinitely; a timeout surfaces as a transient error and
	// feeds the retry policy.
	defaultCallTimeout = 30 * time.Second

	// defaultReviewBody is the summary body attached to the batched
	// review that carries the inline comments.
	defaultReviewBody = "Automated code review"

	// filesPerPage is the page size used when listing changed files.
	filesPerPage = 100
)

// Config configures a GitHubGateway. The token and endpoint are explicit
// here rather than read from the environment so runs stay isolated and
// testable.
type Config struct {
	// Token is the bearer token used for authentication.
	Token string

	// BaseURL overrides the API endpoint, mainly for tests and GitHub
	// Enterprise. Defaults to the public API.
	BaseURL string

	// HTTPClient overrides the underlying client. Defaults to a client
	// with CallTimeout applied.
	HTTPClient *http.Client

	// CallTimeout bounds each individual HTTP exchange.
	CallTimeout time.Duration

	// Retry is the backoff policy for transient failures.
	Retry RetryPolicy

	// ReviewBody is the summary body of the posted review.
	ReviewBody string
}

// GitHubGateway implements Gateway against the GitHub REST API. Posting is
// serialized by the caller per run; the gateway's own shared state is the
// set of already-posted candidate keys, scoped to the gateway's lifetime so
// a retried PostComments call never re-posts a comment that already landed.
type GitHubGateway struct {
	cfg   Config
	httpc *http.Client
	log   *slog.Logger

	mu     sync.Mutex
	posted map[PullRequestRef]map[candidate.Key]struct{}
}

// A compile-time check that GitHubGateway satisfies Gateway.
var _ Gateway = (*GitHubGateway)(nil)

// NewGitHubGateway creates a gateway from the given configuration. A nil
// logger falls back to slog.Default.
func NewGitHubGateway(cfg Config, log *slog.Logger) *GitHubGateway {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.ReviewBody == "" {
		cfg.ReviewBody = defaultReviewBody
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.CallTimeout}
	}

	return &GitHubGateway{
		cfg:    cfg,
		httpc:  httpc,
		log:    log.With("component", "gateway"),
		posted: make(map[PullRequestRef]map[candidate.Key]struct{}),
	}
}

// prFile is the subset of the files API response the engine needs.
type prFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Patch    string `json:"patch"`
}

// FetchChangedFiles retrieves all changed files for the pull request,
// following Link-header pagination. Each page fetch is retried per the
// gateway's policy.
func (g *GitHubGateway) FetchChangedFiles(ctx context.Context,
	ref PullRequestRef) (*ChangeSet, error) {

	if err := ref.Validate(); err != nil {
		return nil, &FatalError{Op: "fetch files", Err: err}
	}

	var files []ChangedFile

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d",
		g.cfg.BaseURL, ref.Owner, ref.Repo, ref.Number, filesPerPage)

	for url != "" {
		var (
			page []prFile
			next string
		)
		err := retryWithBackoff(ctx, g.cfg.Retry, func() error {
			var opErr error
			next, opErr = g.getJSON(ctx, "fetch files", url, &page)
			return opErr
		})
		if err != nil {
			return nil, err
		}

		for _, f := range page {
			files = append(files, ChangedFile{
				Path:   f.Filename,
				Patch:  f.Patch,
				Status: f.Status,
				Binary: f.Patch == "",
			})
		}

		url = next
	}

	g.log.Debug("Fetched changed files",
		"pr", ref.String(), "files", len(files),
	)

	return &ChangeSet{
		Ref:       ref,
		Files:     files,
		FetchedAt: time.Now(),
	}, nil
}

// reviewComment is one inline comment in a review creation payload. The
// position field is the diff-relative counter, never the new-file line
// number; conflating the two is the classic way review comments end up
// anchored to the wrong lines.
type reviewComment struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
	Body     string `json:"body"`
}

// reviewPayload is the request body for creating a pull request review.
type reviewPayload struct {
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []reviewComment `json:"comments"`
}

// PostComments posts the candidates as a single COMMENT review. When the
// batch is rejected wholesale with a 422, it degrades to posting one
// single-comment review per candidate so that one bad position cannot block
// the rest; those per-candidate failures are reported in the result rather
// than as an error. Candidates that already succeeded through this gateway
// are skipped and reported as succeeded.
func (g *GitHubGateway) PostComments(ctx context.Context,
	ref PullRequestRef, cands []candidate.Candidate) (*PostResult, error) {

	if err := ref.Validate(); err != nil {
		return nil, &FatalError{Op: "post comments", Err: err}
	}

	result := NewPostResult()

	pending := make([]candidate.Candidate, 0, len(cands))
	for _, c := range cands {
		if g.alreadyPosted(ref, c.Key()) {
			result.Succeeded[c.Key()] = struct{}{}
			continue
		}
		pending = append(pending, c)
	}

	if len(pending) == 0 {
		return result, nil
	}

	err := retryWithBackoff(ctx, g.cfg.Retry, func() error {
		return g.postReview(ctx, ref, pending)
	})
	switch {
	case err == nil:
		for _, c := range pending {
			g.markPosted(ref, c.Key())
			result.Succeeded[c.Key()] = struct{}{}
		}
		return result, nil

	// A 422 means at least one comment in the batch was rejected,
	// usually a position the API will not accept. Salvage the rest by
	// posting individually.
	case errors.Is(err, ErrUnprocessable):
		g.log.Warn("Batch review rejected, posting individually",
			"pr", ref.String(), "candidates", len(pending),
			"error", err,
		)
		g.postIndividually(ctx, ref, pending, result)
		return result, nil

	default:
		return nil, err
	}
}

// postIndividually posts one single-comment review per candidate, recording
// per-candidate outcomes. Errors here, including exhausted retries, are
// captured in the result instead of escalating: this path is already the
// salvage route for a rejected batch.
func (g *GitHubGateway) postIndividually(ctx context.Context,
	ref PullRequestRef, cands []candidate.Candidate, result *PostResult) {

	for _, c := range cands {
		cand := c
		err := retryWithBackoff(ctx, g.cfg.Retry, func() error {
			return g.postReview(
				ctx, ref, []candidate.Candidate{cand},
			)
		})
		if err != nil {
			result.Failed[c.Key()] = err.Error()
			continue
		}

		g.markPosted(ref, c.Key())
		result.Succeeded[c.Key()] = struct{}{}
	}
}

// postReview creates one COMMENT review containing the given candidates.
func (g *GitHubGateway) postReview(ctx context.Context, ref PullRequestRef,
	cands []candidate.Candidate) error {

	comments := make([]reviewComment, 0, len(cands))
	for _, c := range cands {
		comments = append(comments, reviewComment{
			Path:     c.Path,
			Position: c.Position,
			Body:     c.Body,
		})
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews",
		g.cfg.BaseURL, ref.Owner, ref.Repo, ref.Number)

	return g.postJSON(ctx, "post comments", url, reviewPayload{
		Body:     g.cfg.ReviewBody,
		Event:    "COMMENT",
		Comments: comments,
	})
}

// alreadyPosted reports whether a candidate key succeeded on a previous
// attempt through this gateway.
func (g *GitHubGateway) alreadyPosted(ref PullRequestRef,
	key candidate.Key) bool {

	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.posted[ref][key]
	return ok
}

// markPosted records a successfully posted candidate key.
func (g *GitHubGateway) markPosted(ref PullRequestRef, key candidate.Key) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.posted[ref] == nil {
		g.posted[ref] = make(map[candidate.Key]struct{})
	}
	g.posted[ref][key] = struct{}{}
}

// getJSON performs a single GET, decodes the response into out, and returns
// the next-page URL from the Link header, if any.
func (g *GitHubGateway) getJSON(ctx context.Context, op, url string,
	out any) (string, error) {

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, url, nil,
	)
	if err != nil {
		return "", &FatalError{Op: op, Err: err}
	}
	g.setHeaders(req)

	resp, err := g.httpc.Do(req)
	if err != nil {
		// Network-class failures, DNS errors, and client timeouts
		// are all worth retrying.
		return "", &TransientError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", &TransientError{Op: op, Err: err}
	}

	if err := g.classify(op, resp, body); err != nil {
		return "", err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return "", &FatalError{
			Op:  op,
			Err: fmt.Errorf("decode response: %w", err),
		}
	}

	return nextPageURL(resp.Header.Get("Link")), nil
}

// postJSON performs a single POST with a JSON payload.
func (g *GitHubGateway) postJSON(ctx context.Context, op, url string,
	payload any) error {

	buf, err := json.Marshal(payload)
	if err != nil {
		return &FatalError{
			Op:  op,
			Err: fmt.Errorf("encode payload: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(buf),
	)
	if err != nil {
		return &FatalError{Op: op, Err: err}
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}

	return g.classify(op, resp, body)
}

// setHeaders applies the auth and accept headers GitHub expects.
func (g *GitHubGateway) setHeaders(req *http.Request) {
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
}

// classify maps an HTTP response onto the gateway error taxonomy: rate
// limiting and server-side failures are transient, authorization and
// not-found failures are fatal, and a 422 is fatal wrapping
// ErrUnprocessable so callers can detect rejected comment payloads.
func (g *GitHubGateway) classify(op string, resp *http.Response,
	body []byte) error {

	apiErr := func() error {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("github: %s: %s", resp.Status, msg)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusNotFound:

		return &FatalError{Op: op, Err: apiErr()}

	case resp.StatusCode == http.StatusForbidden:
		// A 403 is how the REST API reports an exhausted rate
		// limit; anything else under 403 is a permissions problem.
		if resp.Header.Get("X-RateLimit-Remaining") == "0" ||
			strings.Contains(
				strings.ToLower(string(body)), "rate limit",
			) {

			return &TransientError{Op: op, Err: apiErr()}
		}
		return &FatalError{Op: op, Err: apiErr()}

	case resp.StatusCode == http.StatusUnprocessableEntity:
		return &FatalError{
			Op:  op,
			Err: fmt.Errorf("%w: %v", ErrUnprocessable, apiErr()),
		}

	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:

		return &TransientError{Op: op, Err: apiErr()}

	default:
		return &FatalError{Op: op, Err: apiErr()}
	}
}

// nextPageURL extracts the rel="next" target from a Link header. An empty
// return means the current page was the last.
func nextPageURL(link string) string {
	for part := range strings.SplitSeq(link, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		target := strings.TrimSpace(section[0])
		return strings.Trim(target, "<>")
	}
	return ""
}
