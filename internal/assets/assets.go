// Package assets loads ABM bundles by name with an in-memory cache, an
// optional persistent store of encoded bundles, and an optional file
// watcher that drops cache entries when files change on disk.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/formats"
)

// ErrNotFound is returned when a bundle is neither on disk nor in the
// store.
var ErrNotFound = errors.New("asset not found")

// storePrefix namespaces encoded bundles in the store.
const storePrefix = "abm:"

// Options configures a Manager.
type Options struct {
	// Root is the directory bundle names are resolved against.
	Root string
	// StorePath is a goleveldb directory holding encoded bundles. Empty
	// disables the store.
	StorePath string
	// Watch invalidates cached bundles when their files change.
	Watch bool
	// Compressor and Level are used when saving bundles.
	Compressor formats.CompressorKind
	Level      int
}

// Manager loads and caches bundles. It is safe for concurrent use.
type Manager struct {
	opts  Options
	cache *Cache
	store *leveldb.DB
	log   *zap.Logger

	watcher     *fsnotify.Watcher
	invalidated chan string
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewManager opens the store and starts the watcher as configured.
func NewManager(opts Options) (*Manager, error) {
	m := &Manager{
		opts:        opts,
		cache:       NewCache(),
		log:         logger.Named("assets"),
		invalidated: make(chan string, 64),
		done:        make(chan struct{}),
	}

	if opts.StorePath != "" {
		db, err := leveldb.OpenFile(opts.StorePath, nil)
		if err != nil {
			return nil, fmt.Errorf("opening asset store %s: %w", opts.StorePath, err)
		}
		m.store = db
	}

	if opts.Watch {
		if err := m.startWatcher(); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// key normalizes a bundle name so equal files share a cache entry.
func key(name string) string {
	return filepath.ToSlash(filepath.Clean(name))
}

func (m *Manager) path(name string) string {
	if filepath.IsAbs(name) || m.opts.Root == "" {
		return name
	}
	return filepath.Join(m.opts.Root, name)
}

// LoadBundle returns the bundle called name. Lookup order is the cache,
// the ABM file if it carries the current version, then the store.
func (m *Manager) LoadBundle(name string) (*bundle.Bundle, error) {
	k := key(name)
	if b, ok := m.cache.Get(k); ok {
		return b, nil
	}

	path := m.path(name)
	if formats.IsCurrentABM(path) {
		b, err := formats.ParseABMFile(path)
		if err != nil {
			return nil, err
		}
		m.cache.Set(k, b)
		return b, nil
	}

	b, err := m.loadStored(k)
	if err != nil {
		return nil, err
	}
	if b == nil {
		m.log.Warn("bundle not found", zap.String("name", name), zap.String("path", path))
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	m.log.Debug("bundle loaded from store", zap.String("name", name))
	m.cache.Set(k, b)
	return b, nil
}

func (m *Manager) loadStored(k string) (*bundle.Bundle, error) {
	if m.store == nil {
		return nil, nil
	}
	data, err := m.store.Get([]byte(storePrefix+k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s from store: %w", k, err)
	}
	b, err := formats.ParseABM(data)
	if err != nil {
		return nil, fmt.Errorf("decoding stored %s: %w", k, err)
	}
	return b, nil
}

// SaveBundle encodes b, writes it to name under the root and records it
// in the store. Bundles that fail Validate are rejected before anything
// is written.
func (m *Manager) SaveBundle(name string, b *bundle.Bundle) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}

	ctx, err := formats.NewCodecContext(m.opts.Compressor, m.opts.Level)
	if err != nil {
		return err
	}
	defer ctx.Close()

	data, err := formats.EncodeABM(b, ctx)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := m.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	k := key(name)
	if m.store != nil {
		if err := m.store.Put([]byte(storePrefix+k), data, nil); err != nil {
			return fmt.Errorf("storing %s: %w", k, err)
		}
	}
	m.cache.Set(k, b)
	return nil
}

// Stored lists the bundle names held by the store.
func (m *Manager) Stored() ([]string, error) {
	if m.store == nil {
		return nil, nil
	}
	var names []string
	iter := m.store.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if k := string(iter.Key()); strings.HasPrefix(k, storePrefix) {
			names = append(names, strings.TrimPrefix(k, storePrefix))
		}
	}
	return names, iter.Error()
}

// Forget removes name from the cache and the store.
func (m *Manager) Forget(name string) error {
	k := key(name)
	m.cache.Delete(k)
	if m.store == nil {
		return nil
	}
	return m.store.Delete([]byte(storePrefix+k), nil)
}

// Invalidate drops name from the cache so the next load rereads it.
func (m *Manager) Invalidate(name string) {
	m.cache.Delete(key(name))
}

// Invalidated delivers the names of bundles dropped by the watcher.
func (m *Manager) Invalidated() <-chan string {
	return m.invalidated
}

// Stats returns cache hit and miss counts.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close stops the watcher and closes the store.
func (m *Manager) Close() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}
	m.wg.Wait()

	var errs []error
	if m.watcher != nil {
		errs = append(errs, m.watcher.Close())
	}
	if m.store != nil {
		errs = append(errs, m.store.Close())
	}
	m.cache.Clear()
	return errors.Join(errs...)
}
