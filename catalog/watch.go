package catalog

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/fsnotify/fsnotify"
)

// Source holds the catalog currently in use. It is safe for concurrent use.
type Source struct {
	current atomic.Pointer[Catalog]
}

// NewSource creates a source serving the given catalog.
func NewSource(c *Catalog) *Source {
	var s Source
	s.current.Store(c)
	return &s
}

// Current returns the catalog in use. Rooms keep the catalog they were
// created with.
func (s *Source) Current() *Catalog {
	return s.current.Load()
}

// Store replaces the catalog in use.
func (s *Source) Store(c *Catalog) {
	s.current.Store(c)
}

// Watch reloads the catalog file into the source each time it is written,
// until the context is canceled. A file that fails to load is reported and
// the previous catalog stays in use.
func Watch(ctx context.Context, path string, s *Source) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("creating catalog watcher failed").Wrap(err)
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them, so the directory
	// is watched rather than the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.New("watching catalog file failed").
			WithTag("path", path).
			Wrap(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&fsnotify.Write != fsnotify.Write &&
				event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}

			c, err := Load(path)
			if err != nil {
				logs.WithTag("path", path).
					Warn(errors.New("reloading catalog failed").Wrap(err))
				continue
			}
			s.Store(c)
			logs.WithTag("path", path).
				WithTag("kinds", c.Kinds()).
				Info("catalog reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logs.WithTag("path", path).
				Warn(errors.New("catalog watcher error").Wrap(err))
		}
	}
}
