package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

const readerBufferSize = 4 * 1000 * 1000 // 4 MB

// Scanner sequentially reads records from the given segment file. It internally uses
// a buffered reader to improve performance. This is not meant to be used in Get operation, and is
// intended to be used for recovery and merge (or other sequential scans of a segment)
type Scanner struct {
	fs     afero.Fs
	file   afero.File
	offset int64
	reader *bufio.Reader
}

func NewScanner(fs afero.Fs, path string) (*Scanner, error) {
	file, err := fs.OpenFile(path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		fs:     fs,
		file:   file,
		reader: bufio.NewReaderSize(file, readerBufferSize),
	}, nil
}

// Scan returns the next record, the offset for the start of the record and the size of the encoded record
// (excluding the line terminator). io.EOF is returned once all records have been read.
// A trailing record without a line terminator is still returned if it decodes.
func (scanner *Scanner) Scan() (*Record, int64, uint32, error) {
	line, err := scanner.reader.ReadBytes(lineTerminator)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, 0, err
	}
	if len(line) == 0 {
		return nil, 0, 0, io.EOF
	}
	recordOffset := scanner.offset
	scanner.offset += int64(len(line))

	line = bytes.TrimSuffix(line, []byte{lineTerminator})
	rec, decodeErr := Decode(line)
	if decodeErr != nil {
		return nil, 0, 0, fmt.Errorf("offset %d: %w", recordOffset, decodeErr)
	}
	return rec, recordOffset, uint32(len(line)), nil
}

// Offset returns the number of bytes consumed so far
func (scanner *Scanner) Offset() int64 {
	return scanner.offset
}

func (scanner *Scanner) Close() error {
	return scanner.file.Close()
}
