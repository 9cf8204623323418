package tailer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestPollCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "one\ntwo\n")

	tail := New(path, 0)
	lines, reset, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if reset {
		t.Error("unexpected reset on first poll")
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("got %q", lines)
	}
	if tail.Offset() != 8 {
		t.Errorf("offset = %d, want 8", tail.Offset())
	}

	// Nothing new: no lines.
	lines, _, err = tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %q", lines)
	}
}

func TestPollHoldsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "complete\npart")

	tail := New(path, 0)
	lines, _, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "complete" {
		t.Errorf("partial line must not be emitted, got %q", lines)
	}

	// Finish the partial line; it comes out whole.
	appendFile(t, path, "ial\nnext")
	lines, _, err = tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "partial" {
		t.Errorf("got %q, want [partial]", lines)
	}
}

func TestOffsetExcludesPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "{\"level\":\"INFO\"}\n{\"level\":")

	tail := New(path, 0)
	lines, _, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %q, want one complete line", lines)
	}
	// Only the complete line is consumed; the dangling fragment is not.
	if tail.Offset() != 17 {
		t.Errorf("offset = %d, want 17", tail.Offset())
	}

	// A new tailer resumed at that offset re-reads the fragment and
	// emits the finished line intact once it is completed.
	appendFile(t, path, "\"ERROR\"}\n")
	resumed := New(path, tail.Offset())
	lines, reset, err := resumed.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if reset {
		t.Error("unexpected reset on resume")
	}
	if len(lines) != 1 || lines[0] != `{"level":"ERROR"}` {
		t.Errorf("got %q, want the whole resumed line", lines)
	}
}

func TestPollMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.log")

	tail := New(path, 0)
	for i := 0; i < 3; i++ {
		lines, reset, err := tail.Poll()
		if err != nil {
			t.Fatalf("missing file must not error: %v", err)
		}
		if reset || len(lines) != 0 {
			t.Errorf("poll %d: lines=%q reset=%v", i, lines, reset)
		}
	}

	// File appears later: picked up from the start.
	writeFile(t, path, "late\n")
	lines, _, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "late" {
		t.Errorf("got %q", lines)
	}
}

func TestPollTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "l1\nl2\nl3\nl4\nl5\n")

	tail := New(path, 0)
	lines, _, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}

	// Replace the file with two shorter lines.
	writeFile(t, path, "a\nb\n")

	lines, reset, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if !reset {
		t.Error("shrunken file must signal reset")
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("got %q, want the replacement content", lines)
	}
	if tail.Offset() != 4 {
		t.Errorf("offset = %d, want 4", tail.Offset())
	}
}

func TestPollTruncationClearsPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "complete\ndanglin")

	tail := New(path, 0)
	if _, _, err := tail.Poll(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "x\n")
	lines, reset, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if !reset {
		t.Error("expected reset")
	}
	if len(lines) != 1 || lines[0] != "x" {
		t.Errorf("stale partial leaked into %q", lines)
	}
}

func TestPollCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "one\r\ntwo\r\n")

	tail := New(path, 0)
	lines, _, err := tail.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("got %q", lines)
	}
}

func TestCheckpointSaveLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "state.json")

	c1, err := NewCheckpoint(file)
	if err != nil {
		t.Fatal(err)
	}
	c1.Set("/var/log/app.jsonl", 4096)
	if err := c1.Save(); err != nil {
		t.Fatal(err)
	}

	c2, err := NewCheckpoint(file)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := c2.Get("/var/log/app.jsonl")
	if !ok || v != 4096 {
		t.Errorf("expected 4096, got %d (found=%v)", v, ok)
	}

	// Offset for a different file does not apply.
	if _, ok := c2.Get("/var/log/other.jsonl"); ok {
		t.Error("checkpoint must be keyed by path")
	}
}
