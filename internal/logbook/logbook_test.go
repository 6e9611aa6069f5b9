package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journey.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendFormatsAndNotifies(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	var got []string
	book, err := New(filepath.Join(t.TempDir(), "nested", "journey.log"),
		WithClock(func() time.Time { return stamp }),
		WithListener(func(line string) { got = append(got, line) }),
	)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Warn("  deployment %s superseded  ", "d_1")
	want := "2024-05-01T09:30:00Z WARN  deployment d_1 superseded"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("listener got %q, want %q", got, want)
	}
	lines, total := book.Tail(10)
	if total != 1 || lines[0] != want {
		t.Fatalf("tail = %q (%d)", lines, total)
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatal(err)
	}
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %q (%d)", lines, total)
	}
	var nilBook *Logbook
	nilBook.Info("ignored")
}
