package plan

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/errors"
)

//nolint:gochecknoglobals // fixed set of plan file extensions
var planExtensions = []string{".txt", ".yaml", ".yml"}

// Resolve finds a plan by file path, or by name among the plan files in dir.
// A name matches a plan's name key or its file name; case and the difference
// between spaces and underscores are ignored. Unreadable files in dir are
// logged and skipped.
func Resolve(dir, name string, logger zerolog.Logger) (Plan, string, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		p, err := LoadFile(name)
		return p, name, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Plan{}, "", errors.Wrapf(errors.ErrRoutineNotFound, "%s: cannot read routines directory %s: %v", name, dir, err)
	}

	want := matchKey(name)
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(planExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := LoadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable plan")
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if matchKey(p.Name) == want || matchKey(stem) == want {
			return p, path, nil
		}
	}

	return Plan{}, "", errors.Wrapf(errors.ErrRoutineNotFound, "%q in %s", name, dir)
}

// List loads every readable plan in dir, sorted by name.
func List(dir string) ([]Plan, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read routines directory %s", dir)
	}
	plans := make([]Plan, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(planExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		plans = append(plans, p)
	}
	slices.SortFunc(plans, func(a, b Plan) int { return strings.Compare(a.Name, b.Name) })
	return plans, nil
}

func matchKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
