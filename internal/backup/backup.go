// Package backup keeps rotating snapshots of a SQLite board database.
package backup

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitboard/internal/constants"
	"github.com/julianstephens/habitboard/internal/logger"
)

const (
	// DefaultRetention is how many snapshots Create keeps
	DefaultRetention = 14
	// DirName is the snapshot directory, beside the database
	DirName = "backups"

	fileExt     = ".db"
	stampLayout = "20060102-150405"
	maxSuffix   = 100
)

// ErrNoDatabase is returned when the database to snapshot does not exist.
var ErrNoDatabase = errors.New("database does not exist")

// Snapshot is one backup file.
type Snapshot struct {
	Path  string
	Taken time.Time
	Size  int64

	seq int
}

// Name returns the snapshot's file name.
func (s Snapshot) Name() string {
	return filepath.Base(s.Path)
}

type Manager struct {
	dbPath string
	dir    string
	keep   int
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRetention sets how many snapshots survive rotation.
func WithRetention(n int) Option {
	return func(m *Manager) { m.keep = n }
}

// NewManager manages snapshots of dbPath in a backups directory next to it.
func NewManager(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		keep:   DefaultRetention,
		now:    time.Now,
		logger: logger.With("component", "backup"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the snapshot directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots the database and prunes snapshots beyond the retention limit.
func (m *Manager) Create() (Snapshot, error) {
	snap, err := m.snapshot()
	if err != nil {
		return Snapshot{}, err
	}
	if err := m.rotate(); err != nil {
		m.logger.Warn("Failed to prune old snapshots", "dir", m.dir, "error", err)
	}
	return snap, nil
}

// List returns the snapshots, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	snaps := []Snapshot{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		taken, seq, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			Path:  filepath.Join(m.dir, entry.Name()),
			Taken: taken,
			Size:  info.Size(),
			seq:   seq,
		})
	}

	slices.SortFunc(snaps, func(a, b Snapshot) int {
		if c := b.Taken.Compare(a.Taken); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return snaps, nil
}

// Restore replaces the database with the snapshot at path. The current
// database, if any, is snapshotted first and that snapshot is returned.
// Callers must close any open handle on the database beforehand.
func (m *Manager) Restore(path string) (Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return Snapshot{}, fmt.Errorf("backup file not found: %w", err)
	}
	if err := verify(path); err != nil {
		return Snapshot{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous Snapshot
	if _, err := os.Stat(m.dbPath); err == nil {
		previous, err = m.snapshot()
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to snapshot current database before restore: %w", err)
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return Snapshot{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			m.logger.Warn("Failed to remove temporary restore file", "path", tmp, "error", rmErr)
		}
		return Snapshot{}, fmt.Errorf("failed to restore database: %w", err)
	}
	m.logger.Info("Restored database", "from", path, "to", m.dbPath)
	return previous, nil
}

// snapshot writes a new snapshot without rotating.
func (m *Manager) snapshot() (Snapshot, error) {
	if _, err := os.Stat(m.dbPath); errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoDatabase, m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	taken := m.now().Truncate(time.Second)
	path, seq, err := m.freeName(taken)
	if err != nil {
		return Snapshot{}, err
	}
	if err := m.vacuumInto(path); err != nil {
		return Snapshot{}, fmt.Errorf("failed to back up database: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, err
	}
	m.logger.Debug("Created snapshot", "path", path)
	return Snapshot{Path: path, Taken: taken, Size: info.Size(), seq: seq}, nil
}

// freeName picks an unused file name for a snapshot taken at t.
func (m *Manager) freeName(t time.Time) (string, int, error) {
	for seq := 0; seq < maxSuffix; seq++ {
		path := filepath.Join(m.dir, formatName(t, seq))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, seq, nil
		}
	}
	return "", 0, fmt.Errorf("failed to find a free backup file name")
}

// vacuumInto writes a compacted copy of the database, falling back to a
// plain file copy when VACUUM INTO is unavailable.
func (m *Manager) vacuumInto(dest string) error {
	db, err := sql.Open("sqlite", m.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := ping(db); err != nil {
		return fmt.Errorf("database appears to be corrupted: %w", err)
	}
	if _, err := db.Exec("VACUUM INTO ?", dest); err != nil {
		m.logger.Debug("VACUUM INTO failed, copying file", "error", err)
		db.Close()
		return copyFile(m.dbPath, dest)
	}
	return nil
}

func (m *Manager) rotate() error {
	snaps, err := m.List()
	if err != nil {
		return err
	}
	if m.keep <= 0 || len(snaps) <= m.keep {
		return nil
	}
	for _, s := range snaps[m.keep:] {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", s.Name(), err)
		}
	}
	return nil
}

// formatName builds habitboard-YYYYMMDD-HHMMSS[-N].db.
func formatName(t time.Time, seq int) string {
	name := constants.AppName + "-" + t.Format(stampLayout)
	if seq > 0 {
		name += "-" + strconv.Itoa(seq)
	}
	return name + fileExt
}

func parseName(name string) (time.Time, int, bool) {
	rest, ok := strings.CutPrefix(name, constants.AppName+"-")
	if !ok {
		return time.Time{}, 0, false
	}
	rest, ok = strings.CutSuffix(rest, fileExt)
	if !ok || len(rest) < len(stampLayout) {
		return time.Time{}, 0, false
	}

	taken, err := time.ParseInLocation(stampLayout, rest[:len(stampLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 0
	if suffix := rest[len(stampLayout):]; suffix != "" {
		n, ok := strings.CutPrefix(suffix, "-")
		if !ok {
			return time.Time{}, 0, false
		}
		seq, err = strconv.Atoi(n)
		if err != nil || seq <= 0 {
			return time.Time{}, 0, false
		}
	}
	return taken, seq, true
}

func verify(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	return ping(db)
}

func ping(db *sql.DB) error {
	var count int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
