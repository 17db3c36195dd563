package hintfile

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/spf13/afero"
)

/*
Hint files are used to speed up startup, and are written during the merge process.

In the bitcask paper, the following fields are written: Tstamp, ksz, value_sz, value_pos, and key.
Here the entry size and position refer to the whole encoded record in the data file, matching
what the keydir stores.

The merged data file `<id>.btk` gets a sibling `<id>.hint`. During recovery, if a hint file exists for a
segment, the keydir is populated from it instead of scanning the data file.

Layout (little endian): timestamp (unix nano, 8 bytes), entry size (4), entry pos (8), key size (4), key
*/

const writerBufferSize = 4 * 1000 * 1000 // 4 MB

type Writer struct {
	file   afero.File
	writer *bufio.Writer
	buf    [HintRecordHeaderSize]byte
}

func NewWriter(fs afero.Fs, path string) (*Writer, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	return &Writer{
		file:   file,
		writer: bufio.NewWriterSize(file, writerBufferSize),
	}, nil
}

// WriteHintRecord writes the hint to the given file
func (w *Writer) WriteHintRecord(h *HintRecord) error {
	if len(h.Key) > maxKeySize {
		return ErrKeyTooLarge
	}

	binary.LittleEndian.PutUint64(w.buf[0:], uint64(h.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint32(w.buf[8:], h.EntrySize)
	binary.LittleEndian.PutUint64(w.buf[12:], uint64(h.EntryPos))
	binary.LittleEndian.PutUint32(w.buf[20:], uint32(len(h.Key)))

	// Write the hint header
	if _, err := w.writer.Write(w.buf[:]); err != nil {
		return err
	}

	// Write the key
	if _, err := w.writer.Write(h.Key); err != nil {
		return err
	}
	return nil
}

// Sync flushes any buffered data to the underlying file. It calls sync() on the file
func (w *Writer) Sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the underlying file, it also writes any pending changes and syncs the changes to the disk
func (w *Writer) Close() error {
	if err := w.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
