package rules

import (
	"context"
	"regexp"
	"testing"

	"github.com/roasbeef/prreview/internal/diff"
	"github.com/stretchr/testify/require"
)

func testRuleset(t *testing.T) *Ruleset {
	t.Helper()

	return &Ruleset{
		Name: "test",
		Rules: []Rule{
			{
				ID:    "no-todos",
				Title: "No TODOs",
				Body:  "Resolve TODOs before merging.",
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`TODO`),
				},
			},
			{
				ID:    "no-prints",
				Title: "No debug prints",
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`fmt\.Print`),
				},
			},
		},
	}
}

func TestPatternJudgeFlagsMatches(t *testing.T) {
	judge := NewPatternJudge(testRuleset(t), nil)

	judgment, err := judge.Evaluate(context.Background(), "a.go",
		[]diff.AddedLine{
			{Number: 4, Text: "// TODO handle overflow"},
			{Number: 9, Text: "return nil"},
			{Number: 12, Text: "fmt.Println(v)"},
		},
	)
	require.NoError(t, err)
	require.False(t, judgment.MorePasses)
	require.Len(t, judgment.Findings, 2)

	require.Equal(t, 4, judgment.Findings[0].Line)
	require.Equal(t, "no-todos", judgment.Findings[0].Rule)
	require.Equal(t, "**No TODOs**: Resolve TODOs before merging.",
		judgment.Findings[0].Body)

	// A rule without prose still renders a usable body.
	require.Equal(t, 12, judgment.Findings[1].Line)
	require.Equal(t, "**No debug prints**", judgment.Findings[1].Body)
}

func TestPatternJudgeOneFindingPerRulePerLine(t *testing.T) {
	rs := &Ruleset{Rules: []Rule{{
		ID:    "multi",
		Title: "Multi",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`TODO`),
			regexp.MustCompile(`fix`),
		},
	}}}
	judge := NewPatternJudge(rs, nil)

	judgment, err := judge.Evaluate(context.Background(), "a.go",
		[]diff.AddedLine{
			{Number: 1, Text: "TODO fix both matching"},
		},
	)
	require.NoError(t, err)

	// Both patterns match the line, but the rule fires once.
	require.Len(t, judgment.Findings, 1)
}

func TestPatternJudgeNoAddedLines(t *testing.T) {
	judge := NewPatternJudge(testRuleset(t), nil)

	judgment, err := judge.Evaluate(context.Background(), "a.go", nil)
	require.NoError(t, err)
	require.Empty(t, judgment.Findings)
}

func TestPatternJudgeCancelledContext(t *testing.T) {
	judge := NewPatternJudge(testRuleset(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := judge.Evaluate(ctx, "a.go", []diff.AddedLine{
		{Number: 1, Text: "TODO"},
	})
	require.ErrorIs(t, err, context.Canceled)
}
