package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const standardsDoc = "# Go Standards\n\n" +
	"Intro prose that belongs to no rule.\n\n" +
	"## No TODOs\n\n" +
	"Resolve TODOs before merging.\n\n" +
	"```pattern\n" +
	"TODO\n" +
	"FIXME\n" +
	"```\n\n" +
	"## Error handling\n\n" +
	"Never discard errors.\n\n" +
	"```pattern\n" +
	"_ = err\n" +
	"```\n\n" +
	"```go\n" +
	"if err != nil { return err }\n" +
	"```\n"

// writeStandards writes a standards file into a temp dir.
func writeStandards(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadExtractsRules(t *testing.T) {
	path := writeStandards(t, "go.md", standardsDoc)

	rs, err := Load(nil, path)
	require.NoError(t, err)
	require.False(t, rs.Empty())

	require.Equal(t, "Go Standards", rs.Name)
	require.Len(t, rs.Rules, 2)

	todo := rs.Rules[0]
	require.Equal(t, "no-todos", todo.ID)
	require.Equal(t, "No TODOs", todo.Title)
	require.Equal(t, "Resolve TODOs before merging.", todo.Body)
	require.Len(t, todo.Patterns, 2)
	require.True(t, todo.Patterns[0].MatchString("// TODO later"))

	errs := rs.Rules[1]
	require.Equal(t, "error-handling", errs.ID)
	// Only ```pattern fences become patterns; the go fence is prose.
	require.Len(t, errs.Patterns, 1)
	require.True(t, errs.Patterns[0].MatchString("\t_ = err"))
}

func TestLoadMergesFiles(t *testing.T) {
	first := writeStandards(t, "a.md", "# First\n\n## Rule A\n\nBody A.\n")
	second := writeStandards(t, "b.md", "## Rule B\n\nBody B.\n")

	rs, err := Load(nil, first, second)
	require.NoError(t, err)

	require.Equal(t, "First", rs.Name)
	require.Len(t, rs.Rules, 2)
	require.Contains(t, rs.Raw, "Body A.")
	require.Contains(t, rs.Raw, "Body B.")
}

func TestLoadToleratesMissingFile(t *testing.T) {
	present := writeStandards(t, "a.md", "## Rule A\n\nBody.\n")

	rs, err := Load(nil, "/nonexistent/standards.md", present)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)
}

func TestLoadNoPaths(t *testing.T) {
	_, err := Load(nil)
	require.Error(t, err)
}

func TestLoadSkipsInvalidPatterns(t *testing.T) {
	doc := "## Broken\n\nBody.\n\n```pattern\n[unclosed\nTODO\n```\n"
	path := writeStandards(t, "broken.md", doc)

	rs, err := Load(nil, path)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)

	// The invalid expression is dropped, the valid one kept.
	require.Len(t, rs.Rules[0].Patterns, 1)
	require.True(t, rs.Rules[0].Patterns[0].MatchString("TODO"))
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "no-magic-numbers", slugify("No Magic Numbers"))
	require.Equal(t, "error-handling-101", slugify("Error Handling 101!"))
	require.Equal(t, "a-b", slugify("  A & B  "))
}
