// Package session implements the persistence stage: a session directory
// holding captured images, a CSV of capture metadata, and JSON indexes.
//
// Layout:
//
//	<sessions_dir>/session_list.json
//	<sessions_dir>/<name>/session.json
//	<sessions_dir>/<name>/data.csv
//	<sessions_dir>/<name>/output.log
//	<sessions_dir>/<name>/images/<name>_000.png
//
// Import rules:
//   - CAN import: internal/backlog, internal/capture, internal/clock,
//     internal/constants, internal/device, internal/errors, internal/flock, std lib
//   - MUST NOT import: internal/routine, internal/control, internal/cli
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/aegir/internal/backlog"
	"github.com/mrz1836/aegir/internal/capture"
	"github.com/mrz1836/aegir/internal/clock"
	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
	"github.com/mrz1836/aegir/internal/flock"
)

// Details summarizes a session. It is the value stored per session in
// session_list.json.
type Details struct {
	Name        string    `json:"name"`
	RunID       string    `json:"run_id"`
	Routine     string    `json:"routine,omitempty"`
	StartTime   time.Time `json:"start_time"`
	LastUpdated time.Time `json:"last_updated"`
	Path        string    `json:"path"`
	ImageCount  int       `json:"image_count"`
}

// Record is the content of session.json.
type Record struct {
	Details

	// Runs lists the run IDs that wrote to this session, oldest first.
	Runs   []string `json:"runs"`
	Images []Image  `json:"images"`
}

// Options configures Open.
type Options struct {
	// Dir is the sessions directory.
	Dir string
	// Name of the session. Empty names default to the start timestamp.
	Name    string
	Routine string
	Clock   clock.Clock
	Logger  zerolog.Logger
}

// Store writes one session. It holds the session lock until Close.
type Store struct {
	dir       string
	imagesDir string
	fileStem  string
	logger    zerolog.Logger
	lock      *flock.Lock

	mu     sync.Mutex
	record Record
}

// DirName is the directory name used for a session: spaces become underscores.
func DirName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// Open creates the session directory or reopens an existing session, in
// which case numbering continues after its last image.
func Open(opts Options) (*Store, error) {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	now := opts.Clock.Now()

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = now.Format(constants.SessionTimeFormat)
	}
	stem := DirName(name)
	dir := filepath.Join(opts.Dir, stem)
	imagesDir := filepath.Join(dir, constants.ImagesDir)

	if err := os.MkdirAll(imagesDir, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to create session directory %s", dir)
	}

	lock, err := flock.Acquire(filepath.Join(dir, constants.LockFileName))
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:       dir,
		imagesDir: imagesDir,
		fileStem:  stem,
		lock:      lock,
	}

	runID := uuid.NewString()
	rec, resumed, err := loadRecord(filepath.Join(dir, constants.SessionFileName))
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	if !resumed {
		rec = Record{Details: Details{
			Name:        name,
			StartTime:   now,
			LastUpdated: now,
			Path:        dir,
		}}
	}
	rec.RunID = runID
	rec.Routine = opts.Routine
	rec.Runs = append(rec.Runs, runID)
	rec.ImageCount = len(rec.Images)
	s.record = rec

	s.logger = opts.Logger.With().
		Str("component", "session").
		Str("session", name).
		Str("run_id", runID).
		Logger()

	if err := s.writeRecord(); err != nil {
		_ = lock.Release()
		return nil, err
	}
	if err := s.updateList(); err != nil {
		s.logger.Error().Err(err).Msg("failed to update session list")
	}

	s.logger.Info().
		Bool("resumed", resumed).
		Int("images", rec.ImageCount).
		Str("dir", dir).
		Msg("session opened")
	return s, nil
}

func loadRecord(path string) (Record, bool, error) {
	var rec Record
	err := readJSON(path, &rec)
	switch {
	case err == nil:
		return rec, true, nil
	case stderrors.Is(err, os.ErrNotExist):
		return rec, false, nil
	default:
		return rec, false, errors.Wrapf(errors.ErrSessionCorrupt, "%s: %v", path, err)
	}
}

// Name returns the session name.
func (s *Store) Name() string {
	return s.record.Name
}

// RunID returns the identifier of this run.
func (s *Store) RunID() string {
	return s.record.RunID
}

// Dir returns the session directory.
func (s *Store) Dir() string {
	return s.dir
}

// LogPath is the per-session log file.
func (s *Store) LogPath() string {
	return filepath.Join(s.dir, constants.SessionLogFileName)
}

// Details returns a copy of the session summary.
func (s *Store) Details() Details {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Details
}

// Images returns a copy of the stored image records.
func (s *Store) Images() []Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Image(nil), s.record.Images...)
}

// Run persists artifacts until q is closed and drained. Write failures are
// logged and do not stop the stage.
func (s *Store) Run(ctx context.Context, q *backlog.Queue[*capture.Artifact]) error {
	s.logger.Info().Msg("persistence stage started")
	for {
		a, err := q.Get(ctx)
		if err != nil {
			if stderrors.Is(err, errors.ErrBacklogClosed) {
				s.logger.Info().Int("images", s.Details().ImageCount).Msg("persistence stage drained")
				return nil
			}
			return err
		}
		if err := s.Persist(a); err != nil {
			s.logger.Error().
				Err(err).
				Int("item", a.Index).
				Int("number", a.Number).
				Int("backlog", q.Len()).
				Msg("artifact persisted with errors")
		}
	}
}

// Persist numbers a and writes its image, CSV row, and metadata. Every
// write is attempted; the returned error joins the ones that failed.
func (s *Store) Persist(a *capture.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Number = len(s.record.Images)
	file := fmt.Sprintf("%s_%0*d.png", s.fileStem, constants.ImageNumberWidth, a.Number)
	img := newImage(a, filepath.Join(constants.ImagesDir, file))

	s.record.Images = append(s.record.Images, img)
	s.record.ImageCount = len(s.record.Images)
	s.record.LastUpdated = a.CapturedAt

	var errs []error
	if err := writePNG(filepath.Join(s.imagesDir, file), a.Frame); err != nil {
		errs = append(errs, errors.Wrap(err, "image"))
	}
	if err := appendCSV(filepath.Join(s.dir, constants.DataFileName), csvHeader, img.csvRow()); err != nil {
		errs = append(errs, errors.Wrap(err, "csv"))
	}
	if err := s.writeRecord(); err != nil {
		errs = append(errs, errors.Wrap(err, "session file"))
	}
	if err := s.updateList(); err != nil {
		errs = append(errs, errors.Wrap(err, "session list"))
	}

	s.logger.Debug().
		Int("item", a.Index).
		Int("number", a.Number).
		Str("file", file).
		Msg("artifact stored")
	return stderrors.Join(errs...)
}

// Close releases the session lock.
func (s *Store) Close() error {
	return s.lock.Release()
}

func (s *Store) writeRecord() error {
	return errors.Wrap(writeJSON(filepath.Join(s.dir, constants.SessionFileName), s.record), "failed to write session file")
}

// updateList rewrites this session's entry in session_list.json. The list
// is shared by every session, so it is guarded by its own lock.
func (s *Store) updateList() error {
	parent := filepath.Dir(s.dir)
	lock, err := flock.Wait(filepath.Join(parent, "."+constants.SessionListFileName+".lock"))
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	list, err := ReadList(parent)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session list unreadable, starting a new one")
		list = map[string]Details{}
	}
	list[s.record.Name] = s.record.Details
	return writeJSON(filepath.Join(parent, constants.SessionListFileName), list)
}

// ReadList returns the entries of session_list.json in dir. A missing
// list is empty.
func ReadList(dir string) (map[string]Details, error) {
	list := map[string]Details{}
	err := readJSON(filepath.Join(dir, constants.SessionListFileName), &list)
	if err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(errors.ErrSessionCorrupt, "%s: %v", constants.SessionListFileName, err)
	}
	if list == nil {
		list = map[string]Details{}
	}
	return list, nil
}
