package filemanager

import (
	"fmt"
	"io"
	"os"

	"github.com/ananthvk/bitcask/internal/record"
	"github.com/spf13/afero"
)

// WriteResult describes where a record was written
type WriteResult struct {
	Path   string
	Offset int64
	Size   uint32
	// RotatedTo is set when the active segment was archived before this write. It holds the path
	// of the archive, which contains every record previously stored in the active segment
	RotatedTo string
}

// RotateWriter appends records to the active segment. When the next record would take the segment past the
// size limit, the contents of the active segment are copied to a new archived segment and the active segment
// is truncated. The active segment keeps its path for the lifetime of the store. This struct and it's associated
// methods are not safe for concurrent use, and does not implement any locking
type RotateWriter struct {
	fs             afero.Fs
	writer         *record.Writer
	activePath     string
	maxSegmentSize int64

	// Callback function to get the path for the next archived segment
	getArchivePath func() (string, error)
}

// NewRotateWriter opens (or creates) the active segment at activePath, new records are written after the existing ones
func NewRotateWriter(fs afero.Fs, activePath string, maxSegmentSize int64, getArchivePath func() (string, error)) (*RotateWriter, error) {
	writer, err := record.NewWriter(fs, activePath)
	if err != nil {
		return nil, err
	}
	return &RotateWriter{
		fs:             fs,
		writer:         writer,
		activePath:     activePath,
		maxSegmentSize: maxSegmentSize,
		getArchivePath: getArchivePath,
	}, nil
}

// Write encodes the record and appends it to the active segment, rotating first if required.
// If the encoded record does not fit even in an empty segment, it is written to the empty active segment anyway
func (r *RotateWriter) Write(rec *record.Record) (WriteResult, error) {
	encoded, err := record.Encode(rec)
	if err != nil {
		return WriteResult{}, err
	}

	result := WriteResult{Path: r.activePath, Size: uint32(len(encoded))}
	position := r.writer.Size()
	if position > 0 && position+int64(len(encoded)) >= r.maxSegmentSize {
		archivePath, err := r.rotate()
		if err != nil {
			return WriteResult{}, fmt.Errorf("rotate: %w", err)
		}
		result.RotatedTo = archivePath
	}

	offset, err := r.writer.Append(encoded)
	if err != nil {
		return result, err
	}
	result.Offset = offset
	return result, nil
}

// rotate copies the active segment to a new archived segment, and then truncates the active segment.
// A crash between the copy and the truncate leaves the same records in both files, which recovery handles
func (r *RotateWriter) rotate() (string, error) {
	if err := r.writer.Sync(); err != nil {
		return "", err
	}
	archivePath, err := r.getArchivePath()
	if err != nil {
		return "", err
	}
	if err := copyFile(r.fs, r.activePath, archivePath); err != nil {
		return "", err
	}
	if err := r.writer.Truncate(); err != nil {
		return "", err
	}
	if err := r.writer.Sync(); err != nil {
		return "", err
	}
	return archivePath, nil
}

// Size returns the current size of the active segment
func (r *RotateWriter) Size() int64 {
	return r.writer.Size()
}

func (r *RotateWriter) Sync() error {
	return r.writer.Sync()
}

func (r *RotateWriter) Close() error {
	return r.writer.Close()
}

// copyFile copies src to dst and syncs dst. It fails if dst already exists, and removes dst if the copy fails
func copyFile(fs afero.Fs, src, dst string) (err error) {
	source, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	dest, err := fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			fs.Remove(dst)
		}
	}()
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	if err := dest.Sync(); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}
