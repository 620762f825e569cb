package diff

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// samplePatch is a single-hunk patch adding one line at new-file line 11.
const samplePatch = `@@ -10,3 +10,4 @@
 func main() {
+	log.Println("starting")
 	run()
 }`

func TestParseSingleHunk(t *testing.T) {
	hunks, err := Parse(samplePatch, "main.go")
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	h := hunks[0]
	require.Equal(t, 10, h.OldStart)
	require.Equal(t, 3, h.OldLines)
	require.Equal(t, 10, h.NewStart)
	require.Equal(t, 4, h.NewLines)
	require.Len(t, h.Lines, 4)

	// The first line below the hunk header is position 1, and positions
	// count every body line regardless of class.
	wantClasses := []LineClass{
		ClassContext, ClassAdded, ClassContext, ClassContext,
	}
	for i, ln := range h.Lines {
		require.Equal(t, wantClasses[i], ln.Class, "line %d", i)
		require.Equal(t, i+1, ln.Position, "line %d", i)
	}

	// New-file numbering: 10, 11, 12, 13.
	for i, ln := range h.Lines {
		require.Equal(t, 10+i, ln.NewLine.UnwrapOr(0), "line %d", i)
	}

	// The added line has no old-file number.
	require.False(t, h.Lines[1].OldLine.IsSome())
	require.Equal(t, "\tlog.Println(\"starting\")", h.Lines[1].Text)
}

func TestParseEmptyPatch(t *testing.T) {
	hunks, err := Parse("", "renamed.go")
	require.NoError(t, err)
	require.Nil(t, hunks)

	hunks, err = Parse("  \n\t\n", "renamed.go")
	require.NoError(t, err)
	require.Nil(t, hunks)
}

func TestParseBinaryPatch(t *testing.T) {
	_, err := Parse("Binary files a/logo.png and b/logo.png differ", "logo.png")
	require.ErrorIs(t, err, ErrBinaryPatch)

	_, err = Parse("GIT binary patch\nliteral 512\n", "logo.png")
	require.ErrorIs(t, err, ErrBinaryPatch)
}

func TestParseRemovedLines(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -5,3 +5,2 @@",
		" keep",
		"-dropped",
		" keep too",
	}, "\n")

	hunks, err := Parse(patch, "a.go")
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	removed := hunks[0].Lines[1]
	require.Equal(t, ClassRemoved, removed.Class)
	require.Equal(t, 6, removed.OldLine.UnwrapOr(0))
	require.False(t, removed.NewLine.IsSome())
}

func TestParseMultiHunkPositions(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" one",
		"+two",
		" three",
		"@@ -10,1 +11,2 @@",
		" ten",
		"+eleven",
	}, "\n")

	hunks, err := Parse(patch, "b.go")
	require.NoError(t, err)
	require.Len(t, hunks, 2)

	// Positions 1-3 cover the first hunk's body; the second hunk header
	// itself consumes position 4.
	require.Equal(t, 3, hunks[0].Lines[2].Position)
	require.Equal(t, 5, hunks[1].Lines[0].Position)
	require.Equal(t, 6, hunks[1].Lines[1].Position)

	// New-file numbering restarts from each hunk's declared start.
	require.Equal(t, 12, hunks[1].Lines[1].NewLine.UnwrapOr(0))
}

func TestParseNoNewlineMarker(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,1 +1,2 @@",
		" first",
		`\ No newline at end of file`,
		"+last",
	}, "\n")

	hunks, err := Parse(patch, "c.go")
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	// The marker consumes position 2 but never appears as a line.
	require.Len(t, hunks[0].Lines, 2)
	require.Equal(t, 1, hunks[0].Lines[0].Position)
	require.Equal(t, 3, hunks[0].Lines[1].Position)
}

func TestParseGitPreamble(t *testing.T) {
	patch := strings.Join([]string{
		"diff --git a/d.go b/d.go",
		"index 83db48f..f735c2d 100644",
		"--- a/d.go",
		"+++ b/d.go",
		"@@ -1,1 +1,2 @@",
		" x",
		"+y",
	}, "\n")

	hunks, err := Parse(patch, "d.go")
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	require.Equal(t, 1, hunks[0].Lines[0].Position)
}

func TestParseOmittedLengthDefaults(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1 +1 @@",
		"-old",
		"+new",
	}, "\n")

	hunks, err := Parse(patch, "e.go")
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	require.Equal(t, 1, hunks[0].OldLines)
	require.Equal(t, 1, hunks[0].NewLines)
}

func TestParseCountMismatch(t *testing.T) {
	// Declares 3 new lines but the body only provides 2.
	patch := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" one",
		"+two",
	}, "\n")

	_, err := Parse(patch, "f.go")

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "f.go", malformed.Path)
	require.Equal(t, 1, malformed.Offset)
}

func TestParseUnrecognizedPrefix(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,1 +1,1 @@",
		"*what is this",
	}, "\n")

	_, err := Parse(patch, "g.go")

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, 2, malformed.Offset)
}

func TestParseBodyBeforeHeader(t *testing.T) {
	_, err := Parse("+stray line\n", "h.go")

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestParseDeterministic(t *testing.T) {
	first, err := Parse(samplePatch, "main.go")
	require.NoError(t, err)

	second, err := Parse(samplePatch, "main.go")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestMalformedErrorMessage(t *testing.T) {
	err := &MalformedError{Path: "x.go", Offset: 3, Reason: "bad prefix"}
	require.Contains(t, err.Error(), "x.go")
	require.Contains(t, err.Error(), "bad prefix")

	var target *MalformedError
	require.True(t, errors.As(err, &target))
}
