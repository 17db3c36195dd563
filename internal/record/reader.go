package record

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

// ReadAt reads a single record of exactly size bytes located at offset in the file at path. A short-lived read only
// handle is used, so this can be called for both the active segment and archived segments
func ReadAt(fs afero.Fs, path string, offset int64, size uint32) (*Record, error) {
	file, err := fs.OpenFile(path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, err
	}
	return Decode(buf)
}
