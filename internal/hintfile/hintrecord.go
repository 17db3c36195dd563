package hintfile

import (
	"errors"
	"time"
)

const HintRecordHeaderSize = 24 // 24 bytes

// Upper bound on the key size read from a hint file, used to detect a corrupted header
const maxKeySize = 64 * 1024 * 1024

var ErrKeyTooLarge = errors.New("hint record key too large")

// HintRecord describes where the record for Key lives in the data file that this hint file belongs to
type HintRecord struct {
	Timestamp time.Time
	EntrySize uint32
	EntryPos  int64
	Key       []byte
}
