package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func (m *Manager) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	m.watcher = w

	root := m.opts.Root
	if root == "" {
		root = "."
	}
	if err := m.watchRecursive(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	m.wg.Add(1)
	go m.watch()
	return nil
}

// watchRecursive adds root and every directory below it.
func (m *Manager) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return m.watcher.Add(path)
		}
		return nil
	})
}

func (m *Manager) watch() {
	defer m.wg.Done()
	for {
		select {
		case e, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(e)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Error("watcher error", zap.Error(err))

		case <-m.done:
			return
		}
	}
}

func (m *Manager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
			if err := m.watchRecursive(e.Name); err != nil {
				m.log.Warn("cannot watch new directory", zap.String("path", e.Name), zap.Error(err))
			}
			return
		}
	}
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !strings.EqualFold(filepath.Ext(e.Name), ".abm") {
		return
	}

	name := e.Name
	if m.opts.Root != "" {
		if rel, err := filepath.Rel(m.opts.Root, e.Name); err == nil {
			name = rel
		}
	}
	k := key(name)
	if !m.cache.Delete(k) {
		return
	}
	m.log.Debug("bundle changed on disk", zap.String("name", k), zap.Stringer("op", e.Op))

	select {
	case m.invalidated <- k:
	default:
	}
}
