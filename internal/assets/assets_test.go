package assets

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/bundle/bundletest"
	"github.com/Faultbox/midgard-anim/pkg/formats"
)

func newManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	m, err := NewManager(opts)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// makeStale rewrites the version field so the file no longer loads.
func makeStale(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(data, uint32(formats.ABMVersion-1))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBundleCaches(t *testing.T) {
	root := t.TempDir()
	writer := newManager(t, Options{Root: root})
	if err := writer.SaveBundle("chars/hero.abm", bundletest.Humanoid()); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	m := newManager(t, Options{Root: root})
	first, err := m.LoadBundle("chars/hero.abm")
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if len(first.Animations) != 5 {
		t.Errorf("loaded %d clips, want 5", len(first.Animations))
	}

	second, err := m.LoadBundle("chars/./hero.abm")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second load did not come from the cache")
	}
	if hits, misses := m.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1, 1", hits, misses)
	}

	m.Invalidate("chars/hero.abm")
	third, err := m.LoadBundle("chars/hero.abm")
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("Invalidate did not drop the cached bundle")
	}
}

func TestLoadBundleNotFound(t *testing.T) {
	m := newManager(t, Options{Root: t.TempDir()})
	if _, err := m.LoadBundle("missing.abm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadBundle() error = %v, want ErrNotFound", err)
	}
}

func TestLoadBundleRejectsCorrupt(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, Options{Root: root})

	cyclic := bundletest.TwoJoint()
	cyclic.Nodes[1].Children = []int32{0}
	if err := m.SaveBundle("loop.abm", cyclic); !errors.Is(err, bundle.ErrCyclicHierarchy) {
		t.Errorf("SaveBundle() error = %v, want %v", err, bundle.ErrCyclicHierarchy)
	}
	if _, err := os.Stat(filepath.Join(root, "loop.abm")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("rejected bundle was written: %v", err)
	}

	ctx, err := formats.NewCodecContext(formats.CompressorZstd, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()
	if err := formats.SaveABMFile(filepath.Join(root, "loop.abm"), cyclic, ctx); err != nil {
		t.Fatalf("SaveABMFile: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := m.LoadBundle("loop.abm"); !errors.Is(err, formats.ErrCorruptABMData) {
			t.Errorf("LoadBundle() error = %v, want %v", err, formats.ErrCorruptABMData)
		}
	}
	if hits, _ := m.Stats(); hits != 0 {
		t.Errorf("corrupt bundle served from cache %d times", hits)
	}
}

func TestStoreFallback(t *testing.T) {
	root := t.TempDir()
	storePath := filepath.Join(t.TempDir(), "store")

	m, err := NewManager(Options{Root: root, StorePath: storePath, Compressor: formats.CompressorSnappy})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SaveBundle("hero.abm", bundletest.TwoJoint()); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// stale file on disk, fresh copy in the reopened store
	makeStale(t, filepath.Join(root, "hero.abm"))
	m = newManager(t, Options{Root: root, StorePath: storePath})

	names, err := m.Stored()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"hero.abm"}) {
		t.Errorf("Stored() = %v", names)
	}

	b, err := m.LoadBundle("hero.abm")
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if len(b.Nodes) != 3 || b.Animations[0].Name != "Turn" {
		t.Errorf("store returned the wrong bundle: %d nodes", len(b.Nodes))
	}

	if err := m.Forget("hero.abm"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.LoadBundle("hero.abm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadBundle after Forget error = %v", err)
	}
}

func TestWatcherInvalidates(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, Options{Root: root, Watch: true})
	if err := m.SaveBundle("hero.abm", bundletest.TwoJoint()); err != nil {
		t.Fatal(err)
	}
	// drain events from the save itself
	time.Sleep(100 * time.Millisecond)
	for len(m.Invalidated()) > 0 {
		<-m.Invalidated()
	}

	first, err := m.LoadBundle("hero.abm")
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, "hero.abm"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "hero.abm"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-m.Invalidated():
		if name != "hero.abm" {
			t.Errorf("invalidated %q, want hero.abm", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation after rewriting the file")
	}

	second, err := m.LoadBundle("hero.abm")
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("bundle still cached after the file changed")
	}
}

func TestCloseTwice(t *testing.T) {
	m, err := NewManager(Options{Root: t.TempDir(), StorePath: filepath.Join(t.TempDir(), "db"), Watch: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
