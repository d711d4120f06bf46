// services/housekeeping.go
package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// PruneError names the file or directory that could not be removed.
type PruneError struct {
	Path string
	Err  error
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("prune %s: %v", e.Path, e.Err)
}

func (e *PruneError) Unwrap() error {
	return e.Err
}

// PruneRule removes regular files under Dir older than MaxAge. A zero MaxAge disables the rule.
type PruneRule struct {
	Dir    string
	MaxAge time.Duration
}

// Housekeeper prepares the folder layout and ages out old files.
type Housekeeper struct {
	Dirs   []string
	Rules  []PruneRule
	Logger *log.Logger
	Now    func() time.Time
}

// EnsureDirs creates every configured directory.
func (h *Housekeeper) EnsureDirs() error {
	for _, d := range h.Dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

// Prune applies every rule and returns the failures joined; nil when all removals worked.
func (h *Housekeeper) Prune() error {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}

	var errs []error
	for _, rule := range h.Rules {
		if rule.MaxAge <= 0 || rule.Dir == "" {
			continue
		}
		removed, ruleErrs := pruneDir(rule.Dir, now.Add(-rule.MaxAge))
		errs = append(errs, ruleErrs...)
		if h.Logger != nil && removed > 0 {
			h.Logger.Info("pruned old files", "dir", rule.Dir, "removed", removed, "max_age", rule.MaxAge)
		}
	}
	return errors.Join(errs...)
}

func pruneDir(root string, cutoff time.Time) (int, []error) {
	var (
		removed int
		errs    []error
		dirs    []string
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			errs = append(errs, &PruneError{Path: path, Err: err})
			return nil
		}
		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			errs = append(errs, &PruneError{Path: path, Err: err})
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				errs = append(errs, &PruneError{Path: path, Err: err})
				return nil
			}
			removed++
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, &PruneError{Path: root, Err: walkErr})
	}

	// Deepest first so emptied dated folders disappear with their parents.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dirs[i])
		}
	}
	return removed, errs
}
