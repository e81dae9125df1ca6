package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/toolforge/internal/config"
)

const watcherBaseYAML = `
server:
  log_level: info
llm:
  primary:
    name: openai
    model: gpt-4o
generation:
  max_attempts: 3
  score_threshold: 70
`

// Raises max_attempts, a generation field the app hot-applies.
const watcherRetuneYAML = `
server:
  log_level: info
llm:
  primary:
    name: openai
    model: gpt-4o
generation:
  max_attempts: 5
  score_threshold: 70
`

// Swaps the model, which only takes effect after a restart.
const watcherModelSwapYAML = `
server:
  log_level: info
llm:
  primary:
    name: openai
    model: gpt-4o-mini
generation:
  max_attempts: 3
  score_threshold: 70
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// reloadRecorder collects onReload invocations.
type reloadRecorder struct {
	mu    sync.Mutex
	old   *config.Config
	new   *config.Config
	calls int
	fired chan struct{}
}

func newReloadRecorder() *reloadRecorder {
	return &reloadRecorder{fired: make(chan struct{}, 1)}
}

func (r *reloadRecorder) callback(old, new *config.Config) {
	r.mu.Lock()
	r.old, r.new = old, new
	r.calls++
	r.mu.Unlock()
	select {
	case r.fired <- struct{}{}:
	default:
	}
}

func (r *reloadRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func startWatcher(t *testing.T, yaml string, rec *reloadRecorder) (*config.Watcher, string) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, cfgPath, yaml)

	var cb func(old, new *config.Config)
	if rec != nil {
		cb = rec.callback
	}
	w, err := config.NewWatcher(cfgPath, cb, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, cfgPath
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherBaseYAML, nil)

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() is nil after initial load")
	}
	if cfg.Generation.MaxAttempts != 3 {
		t.Errorf("max_attempts: got %d, want 3", cfg.Generation.MaxAttempts)
	}
}

func TestWatcher_GenerationRetuneReachesCallback(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	w, cfgPath := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, watcherRetuneYAML)

	select {
	case <-rec.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback not invoked")
	}

	rec.mu.Lock()
	old, cur := rec.old, rec.new
	rec.mu.Unlock()

	if old.Generation.MaxAttempts != 3 {
		t.Errorf("old max_attempts: got %d, want 3", old.Generation.MaxAttempts)
	}
	if cur.Generation.MaxAttempts != 5 {
		t.Errorf("new max_attempts: got %d, want 5", cur.Generation.MaxAttempts)
	}
	// The diff the app applies must flag this as a hot-reloadable change.
	if d := config.Diff(old, cur); !d.GenerationChanged {
		t.Error("Diff must report the generation change")
	}
	if got := w.Current().Generation.MaxAttempts; got != 5 {
		t.Errorf("Current() max_attempts: got %d, want 5", got)
	}
}

func TestWatcher_ModelSwapIsRestartRequired(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	w, cfgPath := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, watcherModelSwapYAML)

	select {
	case <-rec.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback not invoked")
	}

	rec.mu.Lock()
	old, cur := rec.old, rec.new
	rec.mu.Unlock()

	// Current reflects the file, but the diff must not claim anything was
	// hot-applied: the running providers keep the old model until restart.
	if got := w.Current().LLM.Primary.Model; got != "gpt-4o-mini" {
		t.Errorf("Current() model: got %q, want gpt-4o-mini", got)
	}
	d := config.Diff(old, cur)
	if d.LogLevelChanged || d.GenerationChanged {
		t.Errorf("model swap flagged as hot-reloadable: %+v", d)
	}
}

func TestWatcher_InvalidEditKeepsPreviousConfig(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	w, cfgPath := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	writeFile(t, cfgPath, watcherInvalidYAML)
	time.Sleep(300 * time.Millisecond)

	if got := rec.callCount(); got != 0 {
		t.Errorf("callback fired %d times for an invalid edit, want 0", got)
	}
	if got := w.Current().Generation.MaxAttempts; got != 3 {
		t.Errorf("Current() max_attempts: got %d, want the pre-edit 3", got)
	}
}

func TestWatcher_TouchWithoutContentChange(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	_, cfgPath := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(cfgPath, now, now); err != nil {
		t.Fatalf("touch: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if got := rec.callCount(); got != 0 {
		t.Errorf("callback fired %d times for a touch-only change, want 0", got)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/config.yaml", nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherBaseYAML, nil)
	w.Stop()
	w.Stop()
}
