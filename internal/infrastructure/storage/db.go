// Package storage is a file-backed JSON database holding releases, release
// actions, content entries and the settings record.
//
// Writes happen inside transactions. A transaction works on a private copy of
// the dataset and holds the writer lock until it finishes, so concurrent
// transactions serialize and always read the latest committed state. Commit
// persists the copy with an atomic rename before publishing it to readers;
// any error discards the copy.
//
// Several processes may share the file. A transaction holds an exclusive
// lock on <path>.lock from its reload through the rename, so transactions
// of different processes serialize the same way as those of one process.
// Every transaction first reloads the file when another process replaced
// it, and long-running processes call Refresh to pick up foreign writes
// between transactions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	"github.com/strapi/strapi-sub004/internal/infrastructure/logging"
	"github.com/strapi/strapi-sub004/internal/ports"
)

const (
	fileVersion = "1.0"

	// lockRetry is how often a blocked transaction retries the file lock.
	lockRetry = 10 * time.Millisecond
)

// dataset is the persisted file format.
type dataset struct {
	Version  string                    `json:"version"`
	Sequence int64                     `json:"sequence"`
	Releases map[string]release.Release `json:"releases"`
	Actions  map[string]release.Action  `json:"actions"`
	Entries  map[string]content.Entry   `json:"entries"`
	Settings release.Settings          `json:"settings"`
}

func newDataset() *dataset {
	return &dataset{
		Version:  fileVersion,
		Releases: make(map[string]release.Release),
		Actions:  make(map[string]release.Action),
		Entries:  make(map[string]content.Entry),
	}
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		Version:  d.Version,
		Sequence: d.Sequence,
		Releases: make(map[string]release.Release, len(d.Releases)),
		Actions:  make(map[string]release.Action, len(d.Actions)),
		Entries:  make(map[string]content.Entry, len(d.Entries)),
		Settings: d.Settings,
	}
	for id, r := range d.Releases {
		out.Releases[id] = cloneRelease(r)
	}
	for id, a := range d.Actions {
		out.Actions[id] = a
	}
	for key, e := range d.Entries {
		out.Entries[key] = e.Clone()
	}
	return out
}

// DB is the storage handle. The zero value is not usable; call Open.
type DB struct {
	path    string
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *dataset
	logger  ports.Logger

	// fileLock guards the file across processes. Nil for in-memory databases.
	fileLock *flock.Flock
	// stamp identifies the file version last loaded or written.
	stamp fileStamp
}

type fileStamp struct {
	info os.FileInfo
}

// same reports whether both stamps describe the same file. Every commit
// renames a fresh file into place, so the identity changes with each write.
func (s fileStamp) same(other fileStamp) bool {
	if s.info == nil || other.info == nil {
		return s.info == other.info
	}
	return os.SameFile(s.info, other.info) &&
		s.info.Size() == other.info.Size() &&
		s.info.ModTime().Equal(other.info.ModTime())
}

// Options configures Open.
type Options struct {
	// Path of the JSON file. Empty keeps the database in memory only.
	Path   string
	Logger ports.Logger
}

// Open loads the database file, creating its directory when needed. A missing
// file starts an empty database.
func Open(opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	db := &DB{
		path:   opts.Path,
		data:   newDataset(),
		logger: logger.With("component", "storage"),
	}
	if db.path == "" {
		return db, nil
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	db.fileLock = flock.New(db.path + ".lock")
	if err := db.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return db, nil
}

func (db *DB) statFile() (fileStamp, error) {
	info, err := os.Stat(db.path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{info: info}, nil
}

// lockFile takes the cross-process lock, exclusive for transactions and
// shared for refreshes, and returns its release function.
func (db *DB) lockFile(ctx context.Context, exclusive bool) (func(), error) {
	if db.fileLock == nil {
		return func() {}, nil
	}
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = db.fileLock.TryLockContext(ctx, lockRetry)
	} else {
		locked, err = db.fileLock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, release.NewError(release.ErrCodeCancelled, "waiting for storage lock cancelled", err, map[string]interface{}{"path": db.fileLock.Path()})
		}
		return nil, fmt.Errorf("lock storage file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock storage file %s: not acquired", db.fileLock.Path())
	}
	return func() {
		if err := db.fileLock.Unlock(); err != nil {
			db.logger.Warn(context.Background(), "storage unlock failed", "path", db.fileLock.Path(), "error", err)
		}
	}, nil
}

// Refresh reloads the file when another process wrote it since this handle
// last did. It reports whether a reload happened.
func (db *DB) Refresh(ctx context.Context) (bool, error) {
	if txFrom(ctx) != nil {
		return false, nil
	}
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	unlock, err := db.lockFile(ctx, false)
	if err != nil {
		return false, err
	}
	defer unlock()
	return db.refreshLocked(ctx)
}

// refreshLocked requires writeMu and the file lock.
func (db *DB) refreshLocked(ctx context.Context) (bool, error) {
	if db.path == "" {
		return false, nil
	}
	stamp, err := db.statFile()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat storage file: %w", err)
	}
	if stamp.same(db.stamp) {
		return false, nil
	}
	if err := db.load(); err != nil {
		return false, err
	}
	db.logger.Debug(ctx, "storage reloaded", "path", db.path, "size", stamp.info.Size())
	return true, nil
}

func (db *DB) load() error {
	stamp, err := db.statFile()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(db.path)
	if err != nil {
		return err
	}

	loaded := newDataset()
	if err := json.Unmarshal(raw, loaded); err != nil {
		return fmt.Errorf("parse storage file %s: %w", db.path, err)
	}
	if loaded.Releases == nil {
		loaded.Releases = make(map[string]release.Release)
	}
	if loaded.Actions == nil {
		loaded.Actions = make(map[string]release.Action)
	}
	if loaded.Entries == nil {
		loaded.Entries = make(map[string]content.Entry)
	}

	db.mu.Lock()
	db.data = loaded
	db.mu.Unlock()
	db.stamp = stamp
	return nil
}

// persist writes the dataset to disk atomically.
func (db *DB) persist(data *dataset) error {
	if db.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}

	tmpPath := db.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, db.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temporary file: %w", err)
	}
	if stamp, err := db.statFile(); err == nil {
		db.stamp = stamp
	}
	return nil
}

type txKey struct{}

type tx struct {
	data *dataset
}

func txFrom(ctx context.Context) *tx {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// InTx runs fn inside a transaction. A ctx that already carries a transaction
// joins it; the outermost call commits. The outermost call blocks while
// another handle, in this or another process, holds the file lock.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return release.NewError(release.ErrCodeCancelled, "transaction cancelled", err, nil)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	unlock, err := db.lockFile(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := db.refreshLocked(ctx); err != nil {
		return err
	}

	db.mu.RLock()
	working := db.data.clone()
	db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, &tx{data: working})); err != nil {
		db.logger.Debug(ctx, "transaction rolled back", "error", err)
		return err
	}

	if err := db.persist(working); err != nil {
		db.logger.Error(ctx, "transaction commit failed", "error", err)
		return fmt.Errorf("commit: %w", err)
	}

	db.mu.Lock()
	db.data = working
	db.mu.Unlock()
	return nil
}

// read runs fn against the transaction's view, or the committed state.
func (db *DB) read(ctx context.Context, fn func(d *dataset) error) error {
	if t := txFrom(ctx); t != nil {
		return fn(t.data)
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.data)
}

// write runs fn inside the caller's transaction, or a single-statement one.
func (db *DB) write(ctx context.Context, fn func(d *dataset) error) error {
	if t := txFrom(ctx); t != nil {
		return fn(t.data)
	}
	return db.InTx(ctx, func(ctx context.Context) error {
		return fn(txFrom(ctx).data)
	})
}

var _ ports.Transactor = (*DB)(nil)
