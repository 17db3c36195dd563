package bitcask

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ananthvk/bitcask/internal/filemanager"
	"github.com/ananthvk/bitcask/internal/keydir"
	"github.com/ananthvk/bitcask/internal/record"
	"github.com/ananthvk/bitcask/internal/recovery"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// DataStore is a log structured key value store. All writes are appended to the active segment, and an in-memory
// keydir points at the latest record of every live key.
//
// A DataStore is owned by a single goroutine, none of its methods are safe for concurrent use. Only one process
// may open a data directory at a time.
type DataStore struct {
	fs          afero.Fs
	path        string
	options     Options
	logger      *slog.Logger
	lock        *flock.Flock
	fileManager *filemanager.FileManager
	keydir      *keydir.Keydir
	closed      bool
}

// Open opens the datastore in the directory at path, creating the directory and the active segment if they do not
// exist. The keydir is rebuilt by replaying every segment in the directory. If any segment cannot be read, an error
// wrapping ErrOpen is returned
func Open(fs afero.Fs, path string, opts ...Option) (*DataStore, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	store, err := open(fs, path, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return store, nil
}

func open(fs afero.Fs, path string, options Options) (*DataStore, error) {
	start := time.Now()
	if err := fs.MkdirAll(path, os.ModePerm); err != nil {
		return nil, err
	}
	isDir, err := afero.IsDir(fs, path)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fmt.Errorf("%s is not a directory", path)
	}

	store := &DataStore{
		fs:      fs,
		path:    path,
		options: options,
		logger:  options.Logger.With("path", path),
	}

	// Advisory locks only work on the real filesystem
	if _, ok := fs.(*afero.OsFs); ok {
		store.lock = flock.New(filepath.Join(path, lockFileName))
		locked, err := store.lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrLocked
		}
	}

	store.fileManager, err = filemanager.NewFileManager(fs, path, options.MaxSegmentSize)
	if err != nil {
		store.unlock()
		return nil, err
	}

	kd, stats, err := recovery.Rebuild(fs, path)
	if err != nil {
		store.fileManager.Close()
		store.unlock()
		return nil, err
	}
	store.keydir = kd

	if stats.HintFallbacks > 0 {
		store.logger.Warn("damaged hint files, segments were scanned instead", "count", stats.HintFallbacks)
	}
	store.logger.Info("opened datastore",
		"segments", stats.Segments,
		"hint_files", stats.HintFiles,
		"records", stats.Records,
		"keys", stats.LiveKeys,
		"took", time.Since(start),
	)
	return store, nil
}

// Get returns the value associated with the key. If the key does not exist, `ErrKeyNotFound` is returned. If the
// keydir entry does not lead to the record of the key, an error wrapping `ErrRead` is returned
func (dataStore *DataStore) Get(key []byte) ([]byte, error) {
	if dataStore.closed {
		return nil, ErrClosed
	}
	entry, ok := dataStore.keydir.Lookup(string(key))
	if !ok {
		return nil, ErrKeyNotFound
	}
	rec, err := dataStore.fileManager.ReadRecordAt(entry.FileID, entry.EntryPos, entry.EntrySize)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrRead, key, err)
	}
	if rec.Key != string(key) || rec.IsTombstone() {
		return nil, fmt.Errorf("%w: key %q: %s at offset %d holds a record for %q", ErrRead, key, entry.FileID, entry.EntryPos, rec.Key)
	}
	return []byte(rec.Value), nil
}

// Put sets the value for the specified key. Both key and value must be valid UTF-8. If the write fails,
// the previous value of the key stays visible
func (dataStore *DataStore) Put(key []byte, value []byte) error {
	if dataStore.closed {
		return ErrClosed
	}
	result, err := dataStore.write(record.NewPut(string(key), string(value), time.Now()))
	if err != nil {
		return err
	}
	dataStore.keydir.Insert(string(key), keydir.Entry{
		FileID:    result.Path,
		EntrySize: result.Size,
		EntryPos:  result.Offset,
		Timestamp: result.Timestamp,
	})
	return dataStore.syncWrite()
}

// Remove deletes the key by appending a tombstone. `ErrKeyNotFound` is returned if the key does not exist
func (dataStore *DataStore) Remove(key []byte) error {
	if dataStore.closed {
		return ErrClosed
	}
	if _, ok := dataStore.keydir.Lookup(string(key)); !ok {
		return ErrKeyNotFound
	}
	if _, err := dataStore.write(record.NewTombstone(string(key), time.Now())); err != nil {
		return err
	}
	dataStore.keydir.Remove(string(key))
	return dataStore.syncWrite()
}

type writeResult struct {
	filemanager.WriteResult
	Timestamp time.Time
}

// write appends the record, and keeps the keydir pointing at valid data if the active segment was rotated
func (dataStore *DataStore) write(rec *record.Record) (writeResult, error) {
	result, err := dataStore.fileManager.Write(rec)
	if result.RotatedTo != "" {
		moved := dataStore.keydir.RepointFile(dataStore.fileManager.ActivePath(), result.RotatedTo)
		dataStore.logger.Info("rotated active segment", "archive", result.RotatedTo, "keys", moved)
	}
	if err != nil {
		return writeResult{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return writeResult{WriteResult: result, Timestamp: rec.Timestamp}, nil
}

func (dataStore *DataStore) syncWrite() error {
	if !dataStore.options.SyncWrites {
		return nil
	}
	return dataStore.Sync()
}

// ListKeys returns all live keys in ascending order
func (dataStore *DataStore) ListKeys() ([]string, error) {
	if dataStore.closed {
		return nil, ErrClosed
	}
	return dataStore.keydir.Keys(), nil
}

// Fold calls fn for every live key and its value in ascending key order. Iteration stops at the first error,
// which is returned. fn must not modify the store
func (dataStore *DataStore) Fold(fn func(key []byte, value []byte) error) error {
	keys, err := dataStore.ListKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		value, err := dataStore.Get([]byte(key))
		if err != nil {
			return err
		}
		if err := fn([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes the active segment to stable storage
func (dataStore *DataStore) Sync() error {
	if dataStore.closed {
		return ErrClosed
	}
	if err := dataStore.fileManager.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrSync, err)
	}
	return nil
}

// Size returns the number of keys present in the datastore
func (dataStore *DataStore) Size() int {
	return dataStore.keydir.Size()
}

func (dataStore *DataStore) Path() string {
	return dataStore.path
}

// Close syncs pending writes, and frees resources. If the sync fails, the store is left open so that Close
// can be retried
func (dataStore *DataStore) Close() error {
	if err := dataStore.Sync(); err != nil {
		return err
	}
	dataStore.closed = true
	err1 := dataStore.fileManager.Close()
	err2 := dataStore.unlock()
	dataStore.logger.Info("closed datastore", "keys", dataStore.keydir.Size())
	return errors.Join(err1, err2)
}

func (dataStore *DataStore) unlock() error {
	if dataStore.lock == nil {
		return nil
	}
	return dataStore.lock.Unlock()
}
