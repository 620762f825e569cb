package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/prreview/internal/candidate"
	"github.com/roasbeef/prreview/internal/diff"
	"github.com/roasbeef/prreview/internal/gateway"
)

// FetchPRFilesArgs are the arguments for the fetch_pr_files tool.
type FetchPRFilesArgs struct {
	Owner  string `json:"owner" jsonschema:"repository owner"`
	Repo   string `json:"repo" jsonschema:"repository name"`
	Number int    `json:"number" jsonschema:"pull request number"`
}

// PRFile is one changed file in the fetch result.
type PRFile struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Binary bool   `json:"binary"`
	Patch  string `json:"patch,omitempty"`
}

// FetchPRFilesResult is the result of the fetch_pr_files tool.
type FetchPRFilesResult struct {
	Ref   string   `json:"ref"`
	Files []PRFile `json:"files"`
}

// handleFetchPRFiles fetches the pull request's changed files with their
// patches.
func (s *Server) handleFetchPRFiles(ctx context.Context,
	req *mcp.CallToolRequest, args FetchPRFilesArgs) (*mcp.CallToolResult,
	FetchPRFilesResult, error) {

	ref := gateway.PullRequestRef{
		Owner:  args.Owner,
		Repo:   args.Repo,
		Number: args.Number,
	}
	if err := ref.Validate(); err != nil {
		return nil, FetchPRFilesResult{}, err
	}

	s.log.InfoContext(ctx, "Fetching PR files", "pr", ref.String())

	cs, err := s.gw.FetchChangedFiles(ctx, ref)
	if err != nil {
		return nil, FetchPRFilesResult{}, fmt.Errorf("unable to "+
			"fetch changed files: %w", err)
	}

	result := FetchPRFilesResult{Ref: ref.String()}
	for _, f := range cs.Files {
		result.Files = append(result.Files, PRFile{
			Path:   f.Path,
			Status: f.Status,
			Binary: f.Binary,
			Patch:  f.Patch,
		})
	}

	return nil, result, nil
}

// InlineComment is one requested comment, addressed by new-file line number.
type InlineComment struct {
	Path string `json:"path" jsonschema:"file path within the pull request"`
	Line int    `json:"line" jsonschema:"new-file line number of an added line"`
	Body string `json:"body" jsonschema:"markdown comment body"`
}

// PostInlineCommentsArgs are the arguments for the post_inline_comments
// tool.
type PostInlineCommentsArgs struct {
	Owner    string          `json:"owner" jsonschema:"repository owner"`
	Repo     string          `json:"repo" jsonschema:"repository name"`
	Number   int             `json:"number" jsonschema:"pull request number"`
	Comments []InlineComment `json:"comments" jsonschema:"comments to post"`
}

// CommentOutcome reports what happened to one requested comment.
type CommentOutcome struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Reason string `json:"reason,omitempty"`
}

// PostInlineCommentsResult is the result of the post_inline_comments tool.
type PostInlineCommentsResult struct {
	Posted   []CommentOutcome `json:"posted"`
	Failed   []CommentOutcome `json:"failed,omitempty"`
	Rejected []CommentOutcome `json:"rejected,omitempty"`
}

// handlePostInlineComments validates the requested comments against the
// pull request's current diff, then posts the accepted set as one review.
// Comments that do not land on an added line are rejected up front rather
// than bounced by the hosting API.
func (s *Server) handlePostInlineComments(ctx context.Context,
	req *mcp.CallToolRequest,
	args PostInlineCommentsArgs) (*mcp.CallToolResult,
	PostInlineCommentsResult, error) {

	ref := gateway.PullRequestRef{
		Owner:  args.Owner,
		Repo:   args.Repo,
		Number: args.Number,
	}
	if err := ref.Validate(); err != nil {
		return nil, PostInlineCommentsResult{}, err
	}
	if len(args.Comments) == 0 {
		return nil, PostInlineCommentsResult{}, fmt.Errorf(
			"no comments given",
		)
	}

	log := s.log.With("pr", ref.String())
	log.InfoContext(ctx, "Posting inline comments",
		"comments", len(args.Comments),
	)

	// Re-fetch the diff so positions are resolved against the PR as it
	// is now, not as the caller last saw it.
	cs, err := s.gw.FetchChangedFiles(ctx, ref)
	if err != nil {
		return nil, PostInlineCommentsResult{}, fmt.Errorf("unable "+
			"to fetch changed files: %w", err)
	}

	store := candidate.NewStore()
	for _, f := range cs.Files {
		if f.Patch == "" {
			continue
		}

		hunks, err := diff.Parse(f.Patch, f.Path)
		if err != nil {
			log.WarnContext(ctx, "Skipping unparseable file",
				"path", f.Path, "error", err,
			)
			continue
		}

		store.Register(diff.NewFileIndex(f.Path, hunks))
	}

	var result PostInlineCommentsResult
	for _, c := range args.Comments {
		_, err := store.Propose(candidate.Candidate{
			Path: c.Path,
			Line: c.Line,
			Body: c.Body,
		})
		if err != nil {
			result.Rejected = append(
				result.Rejected, CommentOutcome{
					Path:   c.Path,
					Line:   c.Line,
					Reason: err.Error(),
				},
			)
		}
	}

	drained := store.Drain()
	if len(drained) == 0 {
		return nil, result, nil
	}

	posted, err := s.gw.PostComments(ctx, ref, drained)
	if err != nil {
		return nil, PostInlineCommentsResult{}, fmt.Errorf("unable "+
			"to post comments: %w", err)
	}

	for _, c := range drained {
		key := c.Key()
		if _, ok := posted.Succeeded[key]; ok {
			result.Posted = append(result.Posted, CommentOutcome{
				Path: key.Path,
				Line: key.Line,
			})
			continue
		}
		result.Failed = append(result.Failed, CommentOutcome{
			Path:   key.Path,
			Line:   key.Line,
			Reason: posted.Failed[key],
		})
	}

	return nil, result, nil
}
