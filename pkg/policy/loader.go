package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// defaultWatchDebounce batches bursts of file events, such as an editor
// writing a file in several chunks, into a single reload.
const defaultWatchDebounce = 500 * time.Millisecond

// Loader reads lint policies from .rego and .json files and can keep
// watched paths live via filesystem notifications.
type Loader struct {
	logger   zerolog.Logger
	mu       sync.RWMutex
	cache    map[string]*Policy
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewLoader creates a policy loader with an empty cache.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger:   logger.With().Str("component", "policy-loader").Logger(),
		cache:    make(map[string]*Policy),
		debounce: defaultWatchDebounce,
	}
}

// isPolicyFile reports whether a path names a loadable policy file.
func isPolicyFile(path string) bool {
	switch filepath.Ext(path) {
	case ".rego", ".json":
		return true
	}
	return false
}

// LoadFromPaths loads policies from a list of file or directory paths.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var all []Policy

	for _, path := range paths {
		policies, err := l.loadFromPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
		all = append(all, policies...)
	}

	l.logger.Info().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return all, nil
}

// loadFromPath loads a single path, recursing when it is a directory.
func (l *Loader) loadFromPath(ctx context.Context, path string) ([]Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return l.loadFromDirectory(ctx, path)
	}

	policy, err := l.loadFromFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return []Policy{*policy}, nil
}

// loadFromDirectory walks a directory tree and loads every policy file
// in it. A file that fails to load is logged and skipped so one bad
// file does not block the rest of the tree.
func (l *Loader) loadFromDirectory(ctx context.Context, dir string) ([]Policy, error) {
	var policies []Policy

	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPolicyFile(path) {
			return nil
		}

		policy, err := l.loadFromFile(ctx, path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to load policy file")
			return nil
		}
		policies = append(policies, *policy)
		return nil
	}

	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return policies, nil
}

// loadFromFile loads one policy file, serving repeat reads from the
// cache until the file is invalidated by a watch event or ClearCache.
func (l *Loader) loadFromFile(_ context.Context, path string) (*Policy, error) {
	l.mu.RLock()
	cached, ok := l.cache[path]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var policy *Policy
	switch filepath.Ext(path) {
	case ".rego":
		policy = l.policyFromRego(path, data)
	case ".json":
		policy, err = l.policyFromJSON(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	l.mu.Lock()
	l.cache[path] = policy
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", path).
		Str("policy", policy.Name).
		Msg("Policy loaded from file")

	return policy, nil
}

// policyFromRego wraps raw Rego source in a Policy. The name comes from
// the file name and the description from the leading comment block.
func (l *Loader) policyFromRego(path string, data []byte) *Policy {
	now := time.Now()
	return &Policy{
		Name:        strings.TrimSuffix(filepath.Base(path), ".rego"),
		Description: l.extractDescription(string(data)),
		Rego:        string(data),
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{},
		Metadata: map[string]interface{}{
			"source": path,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// policyFromJSON decodes a JSON policy definition and fills defaults.
func (l *Loader) policyFromJSON(data []byte) (*Policy, error) {
	var policy Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse JSON policy: %w", err)
	}

	if policy.Severity == "" {
		policy.Severity = SeverityWarning
	}
	now := time.Now()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = now
	}
	return &policy, nil
}

// extractDescription joins the leading comment lines of a Rego source
// into one line, stopping at the first line of actual code.
func (l *Loader) extractDescription(content string) string {
	var parts []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		if comment != "" && !strings.HasPrefix(comment, "package") {
			parts = append(parts, comment)
		}
	}
	return strings.Join(parts, " ")
}

// Watch reloads policies from paths whenever a policy file under them
// changes. Each reload passes the full freshly loaded set to reloadFn.
// Directories created under a watched path after Watch starts are
// picked up too. Watching stops when ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		if err := l.watchTree(path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch path")
		}
	}

	go l.runWatcher(ctx, paths, reloadFn)

	l.logger.Info().
		Int("paths", len(paths)).
		Msg("Started watching policy paths")

	return nil
}

// watchTree registers a file, or a directory and all its
// subdirectories, with the watcher.
func (l *Loader) watchTree(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return l.watcher.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return l.watcher.Add(p)
		}
		return nil
	})
}

// runWatcher drains watcher events until ctx is cancelled, coalescing
// policy file changes into debounced reloads.
func (l *Loader) runWatcher(ctx context.Context, paths []string, reloadFn func([]Policy) error) {
	timer := time.NewTimer(l.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if l.handleEvent(event) {
				timer.Reset(l.debounce)
			}

		case <-timer.C:
			policies, err := l.LoadFromPaths(ctx, paths)
			if err != nil {
				l.logger.Error().Err(err).Msg("Failed to reload policies")
				continue
			}
			if err := reloadFn(policies); err != nil {
				l.logger.Error().Err(err).Msg("Failed to apply reloaded policies")
				continue
			}
			l.logger.Info().
				Int("count", len(policies)).
				Msg("Policies reloaded")

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// handleEvent reacts to one filesystem event and reports whether a
// reload should be scheduled.
func (l *Loader) handleEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New subdirectory under a watched path joins the watch so
			// policies dropped into it are picked up.
			if err := l.watchTree(event.Name); err != nil {
				l.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
			return true
		}
	}

	if !isPolicyFile(event.Name) {
		return false
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	l.logger.Debug().
		Str("file", event.Name).
		Str("op", event.Op.String()).
		Msg("Policy file changed")

	l.mu.Lock()
	delete(l.cache, event.Name)
	l.mu.Unlock()

	return true
}

// StopWatching closes the filesystem watcher.
func (l *Loader) StopWatching() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// ClearCache drops all cached policies so the next load rereads files.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]*Policy)
	l.logger.Debug().Msg("Policy cache cleared")
}
