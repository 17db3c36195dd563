// Package recovery rebuilds the keydir of a data directory by replaying its segment files.
//
// Every record is ordered by (timestamp, segment rank, offset): segment rank is the position of the segment
// in the listing returned by filemanager.ListSegments (archived segments by name, active segment last), and
// offset is the position of the record inside its segment. For each key the greatest record wins. If the
// winner is a tombstone, the key is not live. Because the order is total, the result does not depend on the
// order in which segments are read, and a tombstone only deletes a key when it is newer than every put of it.
package recovery

import (
	"errors"
	"fmt"
	"io"

	"github.com/ananthvk/bitcask/internal/filemanager"
	"github.com/ananthvk/bitcask/internal/hintfile"
	"github.com/ananthvk/bitcask/internal/keydir"
	"github.com/ananthvk/bitcask/internal/record"
	"github.com/spf13/afero"
)

// Stats summarizes a replay
type Stats struct {
	Segments   int
	HintFiles  int
	Records    int
	Tombstones int
	LiveKeys   int
	// Segments whose hint file could not be used, and which were scanned instead
	HintFallbacks int
}

type candidate struct {
	entry     keydir.Entry
	rank      int
	tombstone bool
}

func (c candidate) newerThan(other candidate) bool {
	if !c.entry.Timestamp.Equal(other.entry.Timestamp) {
		return c.entry.Timestamp.After(other.entry.Timestamp)
	}
	if c.rank != other.rank {
		return c.rank > other.rank
	}
	return c.entry.EntryPos > other.entry.EntryPos
}

type replay struct {
	fs      afero.Fs
	winners map[string]candidate
	stats   Stats
}

func (r *replay) apply(key string, c candidate) {
	if current, ok := r.winners[key]; ok && !c.newerThan(current) {
		return
	}
	r.winners[key] = c
}

// Rebuild scans every segment in dir and returns the keydir describing the live keys. It does not modify
// any file. An error is returned if the directory cannot be listed or if any segment is unreadable or corrupted
func Rebuild(fs afero.Fs, dir string) (*keydir.Keydir, Stats, error) {
	segments, err := filemanager.ListSegments(fs, dir)
	if err != nil {
		return nil, Stats{}, err
	}

	r := &replay{
		fs:      fs,
		winners: make(map[string]candidate),
	}
	for rank, path := range segments {
		r.stats.Segments++
		if !filemanager.IsActiveSegment(path) {
			loaded, err := r.replayHintFile(path, rank)
			if err != nil {
				return nil, Stats{}, err
			}
			if loaded {
				continue
			}
		}
		if err := r.replaySegment(path, rank); err != nil {
			return nil, Stats{}, fmt.Errorf("replay %s: %w", path, err)
		}
	}

	kd := keydir.NewKeydir()
	for key, c := range r.winners {
		if !c.tombstone {
			kd.Insert(key, c.entry)
		}
	}
	r.stats.LiveKeys = kd.Size()
	return kd, r.stats, nil
}

// replaySegment reads the records of a segment in append order
func (r *replay) replaySegment(path string, rank int) error {
	scanner, err := record.NewScanner(r.fs, path)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for {
		rec, offset, size, err := scanner.Scan()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		r.stats.Records++
		if rec.IsTombstone() {
			r.stats.Tombstones++
		}
		r.apply(rec.Key, candidate{
			entry: keydir.Entry{
				FileID:    path,
				EntrySize: size,
				EntryPos:  offset,
				Timestamp: rec.Timestamp,
			},
			rank:      rank,
			tombstone: rec.IsTombstone(),
		})
	}
}

// replayHintFile loads the entries of a segment from its hint file. It returns false if there is no hint file,
// or if the hint file is damaged, in which case the segment has to be scanned
func (r *replay) replayHintFile(segmentPath string, rank int) (bool, error) {
	hintPath := filemanager.GetHintFilePath(segmentPath)
	exists, err := afero.Exists(r.fs, hintPath)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	scanner, err := hintfile.NewScanner(r.fs, hintPath)
	if err != nil {
		return false, err
	}
	defer scanner.Close()

	// Only apply the hints once the whole file has been read, so that a damaged hint file
	// leaves no partial state behind
	var hints []hintfile.HintRecord
	for {
		hint, err := scanner.Scan()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			r.stats.HintFallbacks++
			return false, nil
		}
		hints = append(hints, hint)
	}

	r.stats.HintFiles++
	for _, hint := range hints {
		r.stats.Records++
		r.apply(string(hint.Key), candidate{
			entry: keydir.Entry{
				FileID:    segmentPath,
				EntrySize: hint.EntrySize,
				EntryPos:  hint.EntryPos,
				Timestamp: hint.Timestamp,
			},
			rank: rank,
		})
	}
	return true, nil
}
