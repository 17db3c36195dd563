package bitcask

import (
	"errors"
	"fmt"
	"time"

	"github.com/ananthvk/bitcask/internal/keydir"
)

// Merge compacts all archived segments into a single segment holding only the records that are still live, and
// writes a hint file for it so that the next Open does not have to scan it. Records of the active segment are not
// touched. Get returns the same results before and after a merge, and running Merge again is harmless.
func (dataStore *DataStore) Merge() error {
	if dataStore.closed {
		return ErrClosed
	}
	start := time.Now()
	if err := dataStore.Sync(); err != nil {
		return err
	}
	archived, err := dataStore.fileManager.ArchivedSegments()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	if len(archived) == 0 {
		return nil
	}
	isArchived := make(map[string]bool, len(archived))
	for _, path := range archived {
		isArchived[path] = true
	}

	mergeWriter, err := dataStore.fileManager.NewMergeWriter()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	type update struct {
		key   string
		entry keydir.Entry
	}
	var updates []update
	var copyErr error
	dataStore.keydir.Ascend(func(key string, entry keydir.Entry) bool {
		if !isArchived[entry.FileID] {
			return true
		}
		rec, err := dataStore.fileManager.ReadRecordAt(entry.FileID, entry.EntryPos, entry.EntrySize)
		if err != nil {
			copyErr = fmt.Errorf("%w: key %q: %w", ErrRead, key, err)
			return false
		}
		offset, size, err := mergeWriter.Write(rec)
		if err != nil {
			copyErr = fmt.Errorf("%w: %w", ErrWrite, err)
			return false
		}
		updates = append(updates, update{key: key, entry: keydir.Entry{
			EntrySize: size,
			EntryPos:  offset,
			Timestamp: rec.Timestamp,
		}})
		return true
	})
	if copyErr != nil {
		return errors.Join(copyErr, mergeWriter.Abort())
	}

	mergedPath := ""
	if mergeWriter.Count() == 0 {
		if err := mergeWriter.Abort(); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	} else {
		mergedPath, err = mergeWriter.Commit()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, errors.Join(err, mergeWriter.Abort()))
		}
		for _, u := range updates {
			u.entry.FileID = mergedPath
			dataStore.keydir.Insert(u.key, u.entry)
		}
	}

	// Oldest first, so that a segment left behind by a failed removal is never outlived by the
	// tombstones that shadow its records
	for _, path := range archived {
		if err := dataStore.fileManager.RemoveSegment(path); err != nil {
			return fmt.Errorf("%w: remove %s: %w", ErrWrite, path, err)
		}
	}

	dataStore.logger.Info("merge finished",
		"segments", len(archived),
		"keys", len(updates),
		"merged_segment", mergedPath,
		"took", time.Since(start),
	)
	return nil
}
