package tempfiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistryAt(t.TempDir(), zerolog.Nop())
}

func TestCreateFilePermissionsAndCleanup(t *testing.T) {
	r := newTestRegistry(t)

	path, err := r.CreateFile("cookies", ".txt", []byte("# cookie data"))
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("temp file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("temp file mode = %o, expected 0600", info.Mode().Perm())
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 tracked path, got %d", r.Len())
	}

	r.Cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Cleanup should remove the tracked file")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry after Cleanup, got %d", r.Len())
	}
}

func TestCreateFileUniqueNames(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.CreateFile("cookies", ".txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.CreateFile("cookies", ".txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("consecutive temp files share the name %q", first)
	}
}

func TestForgetLeavesFileInPlace(t *testing.T) {
	r := newTestRegistry(t)

	path, err := r.CreateFile("staged", ".mp4", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	r.Forget(path)
	r.Cleanup()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("forgotten file should survive Cleanup: %v", err)
	}
}

func TestSweepStale(t *testing.T) {
	r := newTestRegistry(t)

	stale := filepath.Join(r.Dir(), "stale.txt")
	fresh := filepath.Join(r.Dir(), "fresh.txt")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, nil, 0600); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	r.SweepStale(StaleAge)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file should be swept")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file should survive the sweep: %v", err)
	}
}

func TestSweepMissingDirIsQuiet(t *testing.T) {
	r := NewRegistryAt(filepath.Join(os.TempDir(), "mediaflow-does-not-exist"), zerolog.Nop())
	r.SweepStale(StaleAge) // must not panic
}
