package build

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// TestHandlerSetFansOut verifies one record reaches every handler in the set.
func TestHandlerSetFansOut(t *testing.T) {
	var console, file bytes.Buffer

	set := NewHandlerSet(
		btclog.LevelInfo,
		btclogv2.NewDefaultHandler(&console),
		btclogv2.NewDefaultHandler(&file),
	)

	log := slog.New(set)
	log.Info("review run finished", "posted", 3)

	for name, buf := range map[string]*bytes.Buffer{
		"console": &console, "file": &file,
	} {
		if !strings.Contains(buf.String(), "review run finished") {
			t.Fatalf("%s handler missed the record: %q",
				name, buf.String())
		}
	}
}

// TestHandlerSetLevel verifies a level change applies to the whole set.
func TestHandlerSetLevel(t *testing.T) {
	var console bytes.Buffer

	set := NewHandlerSet(
		btclog.LevelInfo, btclogv2.NewDefaultHandler(&console),
	)
	if set.Level() != btclog.LevelInfo {
		t.Fatalf("expected info level, got %v", set.Level())
	}

	set.SetLevel(btclog.LevelError)

	log := slog.New(set)
	log.Info("should be suppressed")

	if strings.Contains(console.String(), "should be suppressed") {
		t.Fatalf("info record passed an error-level set: %q",
			console.String())
	}
}

// TestHandlerSetWithAttrs verifies attrs survive the fan-out copy.
func TestHandlerSetWithAttrs(t *testing.T) {
	var console bytes.Buffer

	set := NewHandlerSet(
		btclog.LevelInfo, btclogv2.NewDefaultHandler(&console),
	)

	log := slog.New(set).With("component", "gateway")
	log.Info("fetched files")

	out := console.String()
	if !strings.Contains(out, "gateway") {
		t.Fatalf("attribute missing from output: %q", out)
	}
}

func TestVersionString(t *testing.T) {
	v := Version()
	if v == "" {
		t.Fatal("empty version")
	}
	if !strings.Contains(v, ".") {
		t.Fatalf("version %q is not dotted", v)
	}
}

func TestTags(t *testing.T) {
	if tags := Tags(); RawTags == "" && tags != nil {
		t.Fatalf("expected no tags, got %v", tags)
	}
}
