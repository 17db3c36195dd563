package hintfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
)

const readerBufferSize = 4 * 1000 * 1000 // 4 MB

type Scanner struct {
	file   afero.File
	reader *bufio.Reader
	header [HintRecordHeaderSize]byte
}

func NewScanner(fs afero.Fs, path string) (*Scanner, error) {
	file, err := fs.OpenFile(path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		file:   file,
		reader: bufio.NewReaderSize(file, readerBufferSize),
	}, nil
}

// Scan returns the next hint record in the file, io.EOF is returned after the last record.
// A record cut short in the middle returns io.ErrUnexpectedEOF
func (scanner *Scanner) Scan() (HintRecord, error) {
	if _, err := io.ReadFull(scanner.reader, scanner.header[:]); err != nil {
		return HintRecord{}, err
	}

	hintRecord := HintRecord{}
	hintRecord.Timestamp = time.Unix(0, int64(binary.LittleEndian.Uint64(scanner.header[0:])))
	hintRecord.EntrySize = binary.LittleEndian.Uint32(scanner.header[8:])
	hintRecord.EntryPos = int64(binary.LittleEndian.Uint64(scanner.header[12:]))
	keySize := binary.LittleEndian.Uint32(scanner.header[20:])

	// Detect corruption to header (i.e. if the size gets corrupted and it becomes a very huge value)
	if keySize > maxKeySize {
		return HintRecord{}, ErrKeyTooLarge
	}

	hintRecord.Key = make([]byte, keySize)
	if _, err := io.ReadFull(scanner.reader, hintRecord.Key); err != nil {
		if err == io.EOF {
			return HintRecord{}, io.ErrUnexpectedEOF
		}
		return HintRecord{}, err
	}

	return hintRecord, nil
}

func (scanner *Scanner) Close() error {
	return scanner.file.Close()
}
