package record

import "errors"

// ErrDecode is returned when a line from a segment is not a valid encoded record
var ErrDecode = errors.New("record decode failed")

var ErrInvalidUTF8 = errors.New("key or value is not valid utf-8")
