package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const testDebounce = 30 * time.Millisecond

type recorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[path]++
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func startWatcher(t *testing.T, pattern string, rec *recorder) *Watcher {
	t.Helper()
	w, err := New(pattern, rec.record, WithDebounce(testDebounce))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_MatchingWritesAreDebounced(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, filepath.Join(dir, "**", "*.jsonl"), rec)

	path := filepath.Join(dir, "items.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.WriteString("{\"id\":\"x\",\"text\":\"y\"}\n"); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return rec.count(path) >= 1 })
	time.Sleep(5 * testDebounce)
	if got := rec.count(path); got != 1 {
		t.Errorf("burst of writes: got %d calls, want 1", got)
	}
	if got := rec.total(); got != 1 {
		t.Errorf("non-matching file triggered a call: %d calls total", got)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, filepath.Join(dir, "**", "*.jsonl"), rec)

	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "late.jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(path) >= 1 })

	// Once the directory is watched, later writes are seen too.
	time.Sleep(3 * testDebounce)
	before := rec.count(path)
	if err := os.WriteFile(path, []byte("{}\n{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(path) > before })
}

func TestWatcher_StopDropsPending(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(filepath.Join(dir, "*.jsonl"), rec.record, WithDebounce(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()
	if got := rec.total(); got != 0 {
		t.Errorf("got %d calls after Stop, want 0", got)
	}
}

func TestWatcher_ContextCancelStops(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(filepath.Join(dir, "*.jsonl"), rec.record, WithDebounce(testDebounce))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	waitFor(t, func() bool {
		select {
		case <-w.done:
			return true
		default:
			return false
		}
	})
	if err := os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * testDebounce)
	if got := rec.total(); got != 0 {
		t.Errorf("got %d calls after cancel, want 0", got)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("data/[", func(string) {}); err == nil {
		t.Error("expected error for malformed pattern")
	}
	w, err := New(filepath.Join(t.TempDir(), "missing", "*.jsonl"), func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error when the base directory does not exist")
	}
}

func TestNew_SplitsBase(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "x", "**", "*.jsonl"), func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if w.base != filepath.Join(dir, "x") {
		t.Errorf("base = %q, want %q", w.base, filepath.Join(dir, "x"))
	}
	if !w.matches(filepath.Join(dir, "x", "y", "z.jsonl")) || w.matches(filepath.Join(dir, "x", "z.txt")) {
		t.Error("pattern matching is wrong")
	}
}
