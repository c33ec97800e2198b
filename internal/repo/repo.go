// Package repo manages the pim data directory: the main database, the
// journal folder and the log folder.
//
//	<dir>/database.db      main store (plus -wal and -shm while open)
//	<dir>/journal/*.md     markdown journal, one file per day
//	<dir>/log/pim-log.db   audit log
//	<dir>/log/pim.log      diagnostic log
package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jpl-au/pim/internal/store"
)

// DBFile is the main database filename.
const DBFile = "database.db"

// ErrNotInitialised is returned when the data directory has no database.
var ErrNotInitialised = errors.New("pim not initialised (run 'pim init')")

// DBPath returns the database path inside dir.
func DBPath(dir string) string { return filepath.Join(dir, DBFile) }

// JournalDir returns the journal folder inside dir.
func JournalDir(dir string) string { return filepath.Join(dir, "journal") }

// Exists reports whether dir already holds a database.
func Exists(dir string) bool {
	_, err := os.Stat(DBPath(dir))
	return err == nil
}

// Init creates the data directory and an initialised database. With force an
// existing database is removed first.
func Init(ctx context.Context, dir string, force bool, opts store.Options) error {
	if Exists(dir) {
		if !force {
			return fmt.Errorf("database %s already exists (use --force to reinitialise)", DBPath(dir))
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(DBPath(dir) + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove database: %w", err)
			}
		}
	}
	s, err := Open(ctx, dir, opts)
	if err != nil {
		return err
	}
	return s.Close()
}

// Open opens the store in dir, creating the directory when missing, and
// brings the schema up to date.
func Open(ctx context.Context, dir string, opts store.Options) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s, err := store.Open(DBPath(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	return s, nil
}

// File describes one file in the data directory.
type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Files lists the database and log files present in dir.
func Files(dir string) []File {
	names := []string{
		DBFile, DBFile + "-wal",
		filepath.Join("log", "pim-log.db"), filepath.Join("log", "pim.log"),
	}
	var out []File
	for _, n := range names {
		p := filepath.Join(dir, n)
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		out = append(out, File{Name: n, Path: p, Size: info.Size()})
	}
	return out
}
