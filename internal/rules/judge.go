package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/roasbeef/prreview/internal/diff"
	"github.com/roasbeef/prreview/internal/engine"
)

// PatternJudge is a deterministic engine.Judge that flags added lines
// matching any rule pattern in its ruleset. It is the default judge wired
// by the CLI; anything satisfying the engine.Judge contract, a model-backed
// judge included, can be substituted without touching the engine.
type PatternJudge struct {
	rs  *Ruleset
	log *slog.Logger
}

// A compile-time check that PatternJudge satisfies engine.Judge.
var _ engine.Judge = (*PatternJudge)(nil)

// NewPatternJudge creates a judge over the given ruleset.
func NewPatternJudge(rs *Ruleset, log *slog.Logger) *PatternJudge {
	if log == nil {
		log = slog.Default()
	}
	return &PatternJudge{
		rs:  rs,
		log: log.With("component", "pattern-judge"),
	}
}

// Evaluate checks each added line against every rule's patterns, raising at
// most one finding per rule per line. A single pass always suffices for
// pattern matching, so MorePasses is never requested.
func (j *PatternJudge) Evaluate(ctx context.Context, path string,
	added []diff.AddedLine) (engine.Judgment, error) {

	if err := ctx.Err(); err != nil {
		return engine.Judgment{}, err
	}

	var judgment engine.Judgment
	for _, line := range added {
		for _, rule := range j.rs.Rules {
			if !matchesAny(rule.Patterns, line.Text) {
				continue
			}

			judgment.Findings = append(
				judgment.Findings, engine.Finding{
					Line: line.Number,
					Body: findingBody(rule),
					Rule: rule.ID,
				},
			)
		}
	}

	if len(judgment.Findings) > 0 {
		j.log.Debug("Pattern judge raised findings",
			"path", path, "findings", len(judgment.Findings),
		)
	}

	return judgment, nil
}

// matchesAny reports whether the line text matches any of the patterns.
func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// findingBody renders a rule violation as a comment body.
func findingBody(rule Rule) string {
	if rule.Body == "" {
		return fmt.Sprintf("**%s**", rule.Title)
	}
	return fmt.Sprintf("**%s**: %s", rule.Title, rule.Body)
}
