package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/roasbeef/prreview/internal/candidate"
	"github.com/stretchr/testify/require"
)

var testRef = PullRequestRef{Owner: "octo", Repo: "widgets", Number: 7}

// newTestGateway points a gateway at the given test server with fast retries.
func newTestGateway(t *testing.T, srv *httptest.Server) *GitHubGateway {
	t.Helper()

	return NewGitHubGateway(Config{
		Token:   "test-token",
		BaseURL: srv.URL,
		Retry:   fastPolicy,
	}, nil)
}

func TestFetchChangedFilesPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t,
				"/repos/octo/widgets/pulls/7/files", r.URL.Path)
			require.Equal(t, "Bearer test-token",
				r.Header.Get("Authorization"))

			if r.URL.Query().Get("page") != "2" {
				w.Header().Set("Link", fmt.Sprintf(
					`<%s%s?page=2>; rel="next"`,
					srv.URL, r.URL.Path))
				fmt.Fprint(w, `[{"filename":"a.go",`+
					`"status":"modified",`+
					`"patch":"@@ -1,1 +1,2 @@\n x\n+y"}]`)
				return
			}

			fmt.Fprint(w, `[{"filename":"logo.png",`+
				`"status":"added","patch":""}]`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	cs, err := gw.FetchChangedFiles(context.Background(), testRef)
	require.NoError(t, err)
	require.Len(t, cs.Files, 2)

	require.Equal(t, "a.go", cs.Files[0].Path)
	require.False(t, cs.Files[0].Binary)

	// No patch means the file cannot be reviewed line by line.
	require.Equal(t, "logo.png", cs.Files[1].Path)
	require.True(t, cs.Files[1].Binary)
}

func TestFetchUnauthorizedIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Bad credentials"}`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	_, err := gw.FetchChangedFiles(context.Background(), testRef)
	require.True(t, IsFatal(err))

	// Fatal errors are never retried.
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `[]`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	cs, err := gw.FetchChangedFiles(context.Background(), testRef)
	require.NoError(t, err)
	require.Empty(t, cs.Files)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetchRateLimitedForbiddenIsTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			fmt.Fprint(w, `[]`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	_, err := gw.FetchChangedFiles(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetchPlainForbiddenIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"Resource not accessible"}`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	_, err := gw.FetchChangedFiles(context.Background(), testRef)
	require.True(t, IsFatal(err))
}

func testCandidates() []candidate.Candidate {
	return []candidate.Candidate{
		{Path: "a.go", Line: 11, Position: 2, Body: "first"},
		{Path: "b.go", Line: 3, Position: 5, Body: "second"},
	}
}

func TestPostCommentsBatch(t *testing.T) {
	var payload reviewPayload
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t,
				"/repos/octo/widgets/pulls/7/reviews",
				r.URL.Path)
			require.NoError(t,
				json.NewDecoder(r.Body).Decode(&payload))
			fmt.Fprint(w, `{"id":1}`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	result, err := gw.PostComments(
		context.Background(), testRef, testCandidates(),
	)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 2)
	require.Empty(t, result.Failed)

	// The whole run posts as one COMMENT review addressed by position.
	require.Equal(t, "COMMENT", payload.Event)
	require.Len(t, payload.Comments, 2)
	require.Equal(t, 2, payload.Comments[0].Position)
	require.Equal(t, "a.go", payload.Comments[0].Path)
}

func TestPostCommentsUnprocessableFallsBack(t *testing.T) {
	var reviews atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var payload reviewPayload
			require.NoError(t,
				json.NewDecoder(r.Body).Decode(&payload))

			reviews.Add(1)

			// Reject the batch and any review touching b.go,
			// accept the rest.
			reject := len(payload.Comments) > 1
			for _, c := range payload.Comments {
				if c.Path == "b.go" {
					reject = true
				}
			}
			if reject {
				w.WriteHeader(
					http.StatusUnprocessableEntity)
				fmt.Fprint(w, `{"message":"Unprocessable"}`)
				return
			}
			fmt.Fprint(w, `{"id":1}`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	result, err := gw.PostComments(
		context.Background(), testRef, testCandidates(),
	)
	require.NoError(t, err)

	// One batch attempt plus one individual review per candidate.
	require.Equal(t, int32(3), reviews.Load())

	require.Len(t, result.Succeeded, 1)
	require.Contains(t, result.Succeeded,
		candidate.Key{Path: "a.go", Line: 11})

	require.Len(t, result.Failed, 1)
	require.Contains(t, result.Failed,
		candidate.Key{Path: "b.go", Line: 3})
}

func TestPostCommentsIdempotent(t *testing.T) {
	var reviews atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			reviews.Add(1)
			fmt.Fprint(w, `{"id":1}`)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)
	cands := testCandidates()

	_, err := gw.PostComments(context.Background(), testRef, cands)
	require.NoError(t, err)
	require.Equal(t, int32(1), reviews.Load())

	// A re-post of the same candidates through the same gateway makes no
	// further API calls but still reports them as succeeded.
	result, err := gw.PostComments(context.Background(), testRef, cands)
	require.NoError(t, err)
	require.Equal(t, int32(1), reviews.Load())
	require.Len(t, result.Succeeded, 2)
}

func TestPostCommentsServerErrorEscalates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	))
	defer srv.Close()

	gw := newTestGateway(t, srv)

	_, err := gw.PostComments(
		context.Background(), testRef, testCandidates(),
	)
	require.Error(t, err)
	require.True(t, IsTransient(err))
}

func TestValidateRef(t *testing.T) {
	require.NoError(t, testRef.Validate())
	require.Equal(t, "octo/widgets#7", testRef.String())

	bad := []PullRequestRef{
		{Owner: "", Repo: "r", Number: 1},
		{Owner: "o", Repo: "", Number: 1},
		{Owner: "o", Repo: "r", Number: 0},
		{Owner: "o", Repo: "r", Number: -3},
	}
	for _, ref := range bad {
		require.Error(t, ref.Validate(), "%+v", ref)
	}
}

func TestNextPageURL(t *testing.T) {
	link := `<https://api.github.com/x?page=2>; rel="next", ` +
		`<https://api.github.com/x?page=9>; rel="last"`
	require.Equal(t,
		"https://api.github.com/x?page=2", nextPageURL(link))

	require.Empty(t, nextPageURL(`<https://x>; rel="last"`))
	require.Empty(t, nextPageURL(""))
}
