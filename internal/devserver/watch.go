package devserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetpack/internal/config"
	"git.home.luguber.info/inful/assetpack/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpack/internal/logfields"
)

const defaultDebounce = 300 * time.Millisecond

// watcher follows the source root and the configuration-relevant files outside it.
type watcher struct {
	fs     *fsnotify.Watcher
	root   string
	outDir string
	logger *slog.Logger
}

func newWatcher(cfg *config.Config, outDir string, logger *slog.Logger) (*watcher, error) {
	root, err := filepath.Abs(cfg.SourceRoot())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve source root").Build()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDevServer, "create file watcher").Build()
	}
	w := &watcher{fs: fw, root: root, outDir: outDir, logger: logger}
	if err := w.addRecursive(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *watcher) Close() error { return w.fs.Close() }

// addRecursive watches dir and every directory below it that a build would walk.
func (w *watcher) addRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryDevServer, "watch source root").
			WithContext("path", dir).
			Build()
	}
	return nil
}

// run forwards relevant events to trigger until ctx is canceled.
func (w *watcher) run(ctx context.Context, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addRecursive(ev.Name)
				}
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

// ignored reports whether a change at p can not affect the build.
func (w *watcher) ignored(p string) bool {
	if p == w.outDir || strings.HasPrefix(p, w.outDir+string(filepath.Separator)) {
		return true
	}
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "node_modules" || (strings.HasPrefix(part, ".") && part != "." && part != "..") {
			return true
		}
	}
	return isEditorTemp(filepath.Base(p))
}

func isEditorTemp(base string) bool {
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) ||
		base == "Thumbs.db"
}

// startRebuildWorker returns a debounced trigger and a channel closed when the
// worker exits. Bursts of triggers within the quiet window become one
// rebuild; triggers during a rebuild queue exactly one follow-up.
func (s *Server) startRebuildWorker(ctx context.Context) (func(), <-chan struct{}) {
	requests := make(chan struct{}, 1)
	done := make(chan struct{})

	var mu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.debounce, func() {
			select {
			case requests <- struct{}{}:
			default:
			}
		})
	}

	go func() {
		defer close(done)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				s.logger.Info("Change detected; rebuilding")
				if report, err := s.Rebuild(ctx); err == nil {
					s.logger.Info("Rebuilt",
						logfields.BuildID(report.BuildID),
						logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
				}
			}
		}
	}()
	return trigger, done
}
