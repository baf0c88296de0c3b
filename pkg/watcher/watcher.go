// Package watcher rebuilds a skill catalog when files under its root change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/pkg/errors"
)

// DefaultDebounce is the quiet period before a burst of changes triggers a
// rebuild.
const DefaultDebounce = 500 * time.Millisecond

// DefaultIgnore lists root-relative patterns whose changes never trigger a
// rebuild. Paths inside hidden directories are always ignored.
var DefaultIgnore = []string{
	"**/__pycache__/**",
	"**.pyc",
	"**.swp",
	"**~",
}

const (
	rebuildAttempts = 3
	rebuildDelay    = 100 * time.Millisecond
)

// Rebuilder is the part of *skills.Catalog the watcher drives.
type Rebuilder interface {
	Root() string
	Rebuild(ctx context.Context) (*skills.Report, error)
}

// Config is the watch section of the configuration.
type Config struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
}

// Validate rejects a negative debounce and patterns that do not compile.
func (c *Config) Validate() error {
	if c.Debounce < 0 {
		return errors.Errorf("debounce time cannot be negative: %s", c.Debounce)
	}
	if _, err := compileIgnore(c.Ignore); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration into watcher options.
func (c *Config) Options() []Option {
	opts := []Option{WithDebounce(c.Debounce)}
	if c.Ignore != nil {
		opts = append(opts, WithIgnore(c.Ignore...))
	}
	return opts
}

// RebuildFunc is called after every rebuild triggered by a change.
type RebuildFunc func(changed []string, report *skills.Report, err error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithIgnore replaces DefaultIgnore. Invalid patterns are reported by Start.
func WithIgnore(patterns ...string) Option {
	return func(w *Watcher) {
		w.ignorePatterns = patterns
	}
}

// OnRebuild registers fn to be called after each rebuild.
func OnRebuild(fn RebuildFunc) Option {
	return func(w *Watcher) {
		w.onRebuild = fn
	}
}

// Watcher watches every directory below the catalog root.
type Watcher struct {
	catalog        Rebuilder
	debounce       time.Duration
	ignorePatterns []string
	ignore         []glob.Glob
	onRebuild      RebuildFunc

	fs   *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// New creates a watcher for catalog. Nothing is watched until Start.
func New(catalog Rebuilder, opts ...Option) *Watcher {
	w := &Watcher{
		catalog:        catalog,
		debounce:       DefaultDebounce,
		ignorePatterns: DefaultIgnore,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func compileIgnore(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ignore pattern %q", pattern)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Start registers the directory tree with fsnotify and begins processing
// events in the background. It returns once every directory is watched.
func (w *Watcher) Start(ctx context.Context) error {
	ignore, err := compileIgnore(w.ignorePatterns)
	if err != nil {
		return err
	}
	w.ignore = ignore

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	w.fs = fsw

	count, err := w.addTree(ctx, w.catalog.Root())
	if err != nil {
		fsw.Close()
		return errors.Wrap(err, "failed to watch directories")
	}
	logger.G(ctx).WithField("root", w.catalog.Root()).
		WithField("directories", count).
		Info("file watcher initialized")

	changes := make(chan string)
	batches := make(chan []string)
	go debounceChanges(ctx, changes, batches, w.debounce)
	go w.rebuildLoop(ctx, batches)
	go w.eventLoop(ctx, changes)
	return nil
}

// Run is Start followed by blocking until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Close()
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		if w.fs != nil {
			err = w.fs.Close()
		}
	})
	return err
}

// addTree watches dir and every visible directory below it. Symlinked
// directories are followed, as the catalog builder follows them, and are
// watched under their path inside the tree so events stay root-relative.
func (w *Watcher) addTree(ctx context.Context, dir string) (int, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return 0, err
	}
	return w.addLinkedTree(ctx, dir, resolved, map[string]bool{})
}

// addLinkedTree walks resolved and watches each directory as the matching path
// under display. visited holds resolved directories and breaks link cycles.
func (w *Watcher) addLinkedTree(ctx context.Context, display, resolved string, visited map[string]bool) (int, error) {
	count := 0
	err := filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The directory may be gone by the time a create event is handled.
			if errors.Is(err, fs.ErrNotExist) && path != resolved {
				return nil
			}
			return err
		}
		if path != resolved && hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		watchPath := filepath.Join(display, rel)

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if info, err := os.Stat(target); err != nil || !info.IsDir() {
				return nil
			}
			n, err := w.addLinkedTree(ctx, watchPath, target, visited)
			count += n
			if err != nil {
				logger.G(ctx).WithError(err).WithField("directory", watchPath).Warn("failed to watch linked directory")
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if visited[path] {
			return filepath.SkipDir
		}
		visited[path] = true

		logger.G(ctx).WithField("directory", watchPath).Debug("adding directory to watcher")
		if err := w.fs.Add(watchPath); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) eventLoop(ctx context.Context, changes chan<- string) {
	defer close(w.done)
	defer close(changes)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, err := w.addTree(ctx, event.Name); err != nil {
						logger.G(ctx).WithError(err).WithField("directory", event.Name).Warn("failed to watch new directory")
					}
				}
			}
			logger.G(ctx).WithField("file", event.Name).
				WithField("operation", event.Op.String()).
				Debug("file change detected")

			select {
			case changes <- event.Name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Error("error watching files")
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) rebuildLoop(ctx context.Context, batches <-chan []string) {
	for changed := range batches {
		report, err := w.rebuild(ctx)
		log := logger.G(ctx).WithField("changes", len(changed))
		if err != nil {
			log.WithError(err).Error("catalog rebuild failed, keeping previous index")
		} else {
			log.WithField("skills", report.Skills).
				WithField("failures", len(report.Failures)).
				Info("catalog rebuilt")
		}
		if w.onRebuild != nil {
			w.onRebuild(changed, report, err)
		}
	}
}

// rebuild retries failed builds, e.g. a directory renamed away mid-walk.
// Cancellation is never retried.
func (w *Watcher) rebuild(ctx context.Context) (*skills.Report, error) {
	var report *skills.Report
	err := retry.Do(
		func() error {
			var err error
			report, err = w.catalog.Rebuild(ctx)
			return err
		},
		retry.Attempts(rebuildAttempts),
		retry.Delay(rebuildDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("retrying catalog rebuild")
		}),
	)
	return report, err
}

// relevant drops events inside hidden directories and paths matching an
// ignore pattern.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.catalog.Root(), path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if hidden(part) {
			return false
		}
	}
	for _, g := range w.ignore {
		if g.Match(rel) {
			return false
		}
	}
	return true
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// debounceChanges collects changed paths and emits them as one batch once
// no new change has arrived for delay. When input closes, a pending batch
// is flushed before output is closed; cancelling ctx drops it.
func debounceChanges(ctx context.Context, input <-chan string, output chan<- []string, delay time.Duration) {
	defer close(output)

	var (
		pending []string
		seen    = map[string]bool{}
		timer   *time.Timer
		fire    <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case path, ok := <-input:
			if !ok {
				if len(pending) > 0 {
					select {
					case output <- pending:
					case <-ctx.Done():
					}
				}
				return
			}
			if !seen[path] {
				seen[path] = true
				pending = append(pending, path)
			}
			stop()
			timer = time.NewTimer(delay)
			fire = timer.C
		case <-fire:
			batch := pending
			pending, seen, fire = nil, map[string]bool{}, nil
			select {
			case output <- batch:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
