// Package rules loads coding-standard bundles from markdown files into
// named rules. The engine itself treats rulesets as opaque judge input;
// only judges interpret rule content.
package rules

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Rule is one named coding standard extracted from a markdown bundle.
type Rule struct {
	// ID is a stable slug derived from the rule title, used as
	// candidate provenance.
	ID string

	// Title is the heading text that introduced the rule.
	Title string

	// Body is the prose under the heading.
	Body string

	// Patterns are regular expressions from ```pattern fences under the
	// heading. A line matching any pattern violates the rule.
	Patterns []*regexp.Regexp
}

// Ruleset is a named bundle of rules plus the raw concatenated markdown, so
// judges that want the full standards text (a model prompt, say) can have
// it without re-reading files.
type Ruleset struct {
	// Name is taken from the first level-1 heading seen, or the first
	// file's base name.
	Name string

	// Rules are the extracted rules in document order.
	Rules []Rule

	// Raw is the concatenated markdown of every loaded file.
	Raw string
}

// Empty reports whether the ruleset contains no rules at all.
func (r *Ruleset) Empty() bool {
	return len(r.Rules) == 0
}

// Load reads and merges the given markdown standards files. Missing files
// are tolerated but logged, matching how standards bundles are usually
// assembled from optional per-language files; a path that exists but cannot
// be parsed is impossible (markdown always parses), so the only hard error
// is having been given no paths.
func Load(log *slog.Logger, paths ...string) (*Ruleset, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "rules")

	if len(paths) == 0 {
		return nil, fmt.Errorf("no standards files given")
	}

	rs := &Ruleset{}

	var raw strings.Builder
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Skipping unreadable standards file",
				"path", path, "error", err,
			)
			continue
		}

		raw.WriteString(string(src))
		raw.WriteString("\n\n")

		parseMarkdown(log, src, rs)
	}
	rs.Raw = raw.String()

	log.Info("Loaded ruleset",
		"name", rs.Name, "rules", len(rs.Rules),
	)

	return rs, nil
}

// parseMarkdown walks one file's markdown AST, appending extracted rules to
// the ruleset. Level-2 and level-3 headings start rules; the first level-1
// heading names the ruleset; ```pattern fences attach regexps to the
// current rule.
func parseMarkdown(log *slog.Logger, src []byte, rs *Ruleset) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		cur  *Rule
		body strings.Builder
	)

	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(body.String())
		rs.Rules = append(rs.Rules, *cur)
		cur = nil
		body.Reset()
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			title := headingText(n, src)

			switch {
			case n.Level == 1:
				if rs.Name == "" {
					rs.Name = title
				}
				flush()

			case n.Level == 2 || n.Level == 3:
				flush()
				cur = &Rule{
					ID:    slugify(title),
					Title: title,
				}

			default:
				// Deeper headings are structure within a
				// rule's prose.
				if cur != nil {
					body.WriteString(title)
					body.WriteString("\n")
				}
			}

		case *ast.FencedCodeBlock:
			if cur == nil {
				continue
			}
			if string(n.Language(src)) != "pattern" {
				continue
			}

			for i := 0; i < n.Lines().Len(); i++ {
				seg := n.Lines().At(i)
				expr := strings.TrimSpace(
					string(seg.Value(src)),
				)
				if expr == "" {
					continue
				}

				re, err := regexp.Compile(expr)
				if err != nil {
					log.Warn("Skipping invalid rule "+
						"pattern",
						"rule", cur.ID,
						"pattern", expr,
						"error", err,
					)
					continue
				}
				cur.Patterns = append(cur.Patterns, re)
			}

		default:
			if cur == nil {
				continue
			}
			if txt := blockText(node, src); txt != "" {
				body.WriteString(txt)
				body.WriteString("\n")
			}
		}
	}

	flush()
}

// headingText extracts the plain text of a heading node.
func headingText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
		}
	}
	return strings.TrimSpace(sb.String())
}

// blockText extracts the raw source lines of a block node, which covers
// paragraphs and list content well enough for rule prose.
func blockText(n ast.Node, src []byte) string {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return ""
	}

	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimSpace(sb.String())
}

// slugRe strips everything but alphanumerics when building rule IDs.
var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a rule title into a stable lowercase identifier.
func slugify(title string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
