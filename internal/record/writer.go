package record

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

const lineTerminator = '\n'

// Writer is responsible for appending log records to a segment file. There are no locks in this implementation, so it's
// unsafe to call Writer methods concurrently
type Writer struct {
	fs         afero.Fs
	file       afero.File
	path       string
	buf        []byte
	currentPos int64
}

// NewWriter creates a new Record Writer that opens (or creates) the file at the specified path for appending records.
// The write position starts at the current size of the file
func NewWriter(fs afero.Fs, path string) (*Writer, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}

	// Seek to end to find the size of the file (position for the next record)
	pos, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, err
	}

	// A crash can leave the last record without its line terminator, finish that line so that the
	// next record starts on a line of its own
	if pos > 0 {
		last := make([]byte, 1)
		if _, err := file.ReadAt(last, pos-1); err != nil {
			file.Close()
			return nil, err
		}
		if last[0] != lineTerminator {
			if _, err := file.Write([]byte{lineTerminator}); err != nil {
				file.Close()
				return nil, err
			}
			pos++
		}
	}

	return &Writer{
		fs:         fs,
		file:       file,
		path:       path,
		currentPos: pos,
	}, nil
}

// Append writes an already encoded record followed by the line terminator. It returns the offset at which
// the record begins, measured from the start of the file. It does not call sync()
func (w *Writer) Append(encoded []byte) (int64, error) {
	start := w.currentPos
	w.buf = append(w.buf[:0], encoded...)
	w.buf = append(w.buf, lineTerminator)
	n, err := w.file.Write(w.buf)
	if err != nil {
		// Cut off a partially written record, so that the next record starts on a fresh line
		if n > 0 {
			if truncErr := w.file.Truncate(start); truncErr == nil {
				w.file.Seek(start, io.SeekStart)
			} else {
				w.currentPos += int64(n)
			}
		}
		return 0, err
	}
	w.currentPos += int64(n)
	return start, nil
}

// WriteRecord encodes and appends the record. It returns the offset of the record and its encoded
// size (without the line terminator)
func (w *Writer) WriteRecord(r *Record) (int64, uint32, error) {
	encoded, err := Encode(r)
	if err != nil {
		return 0, 0, err
	}
	offset, err := w.Append(encoded)
	if err != nil {
		return 0, 0, err
	}
	return offset, uint32(len(encoded)), nil
}

// Size returns the position at which the next record will be written
func (w *Writer) Size() int64 {
	return w.currentPos
}

func (w *Writer) Path() string {
	return w.path
}

// Truncate discards all records in the file, the next record is written at offset 0
func (w *Writer) Truncate() error {
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w.currentPos = 0
	return nil
}

// Sync flushes any buffered data to the underlying file. It calls sync() on the file
func (w *Writer) Sync() error {
	return w.file.Sync()
}

// Close closes the underlying file, it also syncs pending changes to the disk
func (w *Writer) Close() error {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
