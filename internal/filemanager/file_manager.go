package filemanager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ananthvk/bitcask/internal/hintfile"
	"github.com/ananthvk/bitcask/internal/record"
	"github.com/spf13/afero"
)

// FileManager owns the segment files of a single data directory: the writable active segment and
// the immutable archived segments. It is not safe for concurrent use
type FileManager struct {
	fs           afero.Fs
	dir          string
	rotateWriter *RotateWriter
}

// NewFileManager opens the active segment in dir (creating it if absent). Leftover files from an
// interrupted merge, and hint files whose segment is gone, are removed
func NewFileManager(fs afero.Fs, dir string, maxSegmentSize int64) (*FileManager, error) {
	if err := removeStaleFiles(fs, dir); err != nil {
		return nil, err
	}
	rotateWriter, err := NewRotateWriter(fs, filepath.Join(dir, ActiveSegmentName), maxSegmentSize, func() (string, error) {
		id, err := NewSegmentID()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, GetSegmentFileName(id)), nil
	})
	if err != nil {
		return nil, err
	}
	return &FileManager{
		fs:           fs,
		dir:          dir,
		rotateWriter: rotateWriter,
	}, nil
}

// Write appends the record to the active segment
func (f *FileManager) Write(rec *record.Record) (WriteResult, error) {
	return f.rotateWriter.Write(rec)
}

// ReadRecordAt reads the record of the given size at offset in the segment at path
func (f *FileManager) ReadRecordAt(path string, offset int64, size uint32) (*record.Record, error) {
	return record.ReadAt(f.fs, path, offset, size)
}

func (f *FileManager) ActivePath() string {
	return filepath.Join(f.dir, ActiveSegmentName)
}

// ActiveSize returns the number of bytes in the active segment
func (f *FileManager) ActiveSize() int64 {
	return f.rotateWriter.Size()
}

// ArchivedSegments returns the paths of all immutable segments, oldest first
func (f *FileManager) ArchivedSegments() ([]string, error) {
	segments, err := ListSegments(f.fs, f.dir)
	if err != nil {
		return nil, err
	}
	archived := segments[:0]
	for _, path := range segments {
		if !IsActiveSegment(path) {
			archived = append(archived, path)
		}
	}
	return archived, nil
}

// RemoveSegment deletes an archived segment along with its hint file (if any)
func (f *FileManager) RemoveSegment(path string) error {
	if IsActiveSegment(path) {
		return fmt.Errorf("refusing to remove active segment %s", path)
	}
	if err := f.fs.Remove(GetHintFilePath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return f.fs.Remove(path)
}

func (f *FileManager) Sync() error {
	return f.rotateWriter.Sync()
}

func (f *FileManager) Close() error {
	return f.rotateWriter.Close()
}

// MergeWriter writes compacted records into a temporary segment together with its hint file.
// Nothing is visible to recovery until Commit renames both files into place.
// Note: Does not lock anything internally and is hence unsafe for concurrent use
type MergeWriter struct {
	fs         afero.Fs
	dir        string
	dataPath   string
	hintPath   string
	writer     *record.Writer
	hintWriter *hintfile.Writer
	count      int
}

// NewMergeWriter returns a merge writer that writes to temporary files in the data directory
func (f *FileManager) NewMergeWriter() (*MergeWriter, error) {
	id, err := NewSegmentID()
	if err != nil {
		return nil, err
	}
	m := &MergeWriter{
		fs:       f.fs,
		dir:      f.dir,
		dataPath: filepath.Join(f.dir, mergePrefix+id+SegmentExt+tempExt),
		hintPath: filepath.Join(f.dir, mergePrefix+id+HintExt+tempExt),
	}
	if m.writer, err = record.NewWriter(f.fs, m.dataPath); err != nil {
		return nil, err
	}
	if m.hintWriter, err = hintfile.NewWriter(f.fs, m.hintPath); err != nil {
		m.writer.Close()
		f.fs.Remove(m.dataPath)
		return nil, err
	}
	return m, nil
}

// Write copies the record into the merged segment, keeping its timestamp, and records a hint for it.
// It returns the offset and size of the record inside the merged segment
func (m *MergeWriter) Write(rec *record.Record) (int64, uint32, error) {
	offset, size, err := m.writer.WriteRecord(rec)
	if err != nil {
		return 0, 0, err
	}
	err = m.hintWriter.WriteHintRecord(&hintfile.HintRecord{
		Timestamp: rec.Timestamp,
		EntrySize: size,
		EntryPos:  offset,
		Key:       []byte(rec.Key),
	})
	if err != nil {
		return 0, 0, err
	}
	m.count++
	return offset, size, nil
}

// Count returns the number of records written so far
func (m *MergeWriter) Count() int {
	return m.count
}

// Commit syncs the merged segment and its hint file, and moves them to their final names. The hint file is
// moved first, since a hint file without a segment is ignored by recovery. It returns the path of the new segment
func (m *MergeWriter) Commit() (string, error) {
	if err := m.hintWriter.Close(); err != nil {
		m.writer.Close()
		return "", err
	}
	if err := m.writer.Close(); err != nil {
		return "", err
	}
	id, err := NewSegmentID()
	if err != nil {
		return "", err
	}
	segmentPath := filepath.Join(m.dir, GetSegmentFileName(id))
	if err := m.fs.Rename(m.hintPath, GetHintFilePath(segmentPath)); err != nil {
		return "", err
	}
	if err := m.fs.Rename(m.dataPath, segmentPath); err != nil {
		return "", err
	}
	return segmentPath, nil
}

// Abort discards the temporary files. Files already moved away by a failed Commit are skipped
func (m *MergeWriter) Abort() error {
	m.hintWriter.Close()
	m.writer.Close()
	var errs []error
	for _, path := range []string{m.hintPath, m.dataPath} {
		if err := m.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func removeStaleFiles(fs afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, name)
		stale := strings.HasPrefix(name, mergePrefix) && filepath.Ext(name) == tempExt
		if filepath.Ext(name) == HintExt {
			// A crash between the two renames of a merge commit leaves a hint file behind
			exists, err := afero.Exists(fs, strings.TrimSuffix(path, HintExt)+SegmentExt)
			if err != nil {
				return err
			}
			stale = !exists
		}
		if !stale {
			continue
		}
		if err := fs.Remove(path); err != nil {
			return err
		}
	}
	return nil
}
