package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/basalt/internal/pathfilter"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+path)
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, e)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, vaultDir string) *recorder {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Watch(ctx, vaultDir, pathfilter.New(pathfilter.Config{}), logger, rec.record); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestWatch_NewFile(t *testing.T) {
	vaultDir := t.TempDir()
	rec := startWatcher(t, vaultDir)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:new.md")
	}, "expected created:new.md")
}

func TestWatch_Update(t *testing.T) {
	vaultDir := t.TempDir()
	p := filepath.Join(vaultDir, "edit.md")
	_ = os.WriteFile(p, []byte("v1"), 0o644)
	rec := startWatcher(t, vaultDir)

	_ = os.WriteFile(p, []byte("v2"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("updated:edit.md")
	}, "expected updated:edit.md")
}

func TestWatch_NewDir(t *testing.T) {
	vaultDir := t.TempDir()
	rec := startWatcher(t, vaultDir)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:subdir/deep.md")
	}, "file in new subdir not reported")
}

func TestWatch_DeleteAndRename(t *testing.T) {
	vaultDir := t.TempDir()
	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("x"), 0o644)
	rec := startWatcher(t, vaultDir)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))
	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("deleted:del.md") && rec.has("deleted:old.md") && rec.has("created:renamed.md")
	}, "delete/rename not reported")
}

func TestWatch_IgnoresHiddenAndIrrelevant(t *testing.T) {
	vaultDir := t.TempDir()
	_ = os.MkdirAll(filepath.Join(vaultDir, ".obsidian"), 0o755)
	rec := startWatcher(t, vaultDir)

	_ = os.WriteFile(filepath.Join(vaultDir, ".obsidian", "workspace.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "image.png"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "Books.base"), []byte("views: []"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:Books.base")
	}, "expected created:Books.base")

	time.Sleep(100 * time.Millisecond)
	for _, e := range rec.snapshot() {
		if e != "created:Books.base" && e != "updated:Books.base" {
			t.Errorf("unexpected event %q", e)
		}
	}
}

func TestRelevant(t *testing.T) {
	f := pathfilter.New(pathfilter.Config{IgnoredPatterns: []string{"private/**"}})
	tests := map[string]bool{
		"a.md":              true,
		"dir/Books.base":    true,
		"a.txt":             false,
		".obsidian/x.md":    false,
		"private/secret.md": false,
	}
	for p, want := range tests {
		if got := relevant(f, p); got != want {
			t.Errorf("relevant(%q) = %v, want %v", p, got, want)
		}
	}
}
