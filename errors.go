package bitcask

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrOpen        = errors.New("datastore could not be opened")
	ErrWrite       = errors.New("write failed")
	ErrRead        = errors.New("read failed")
	ErrSync        = errors.New("sync failed")
	ErrClosed      = errors.New("datastore is closed")
	ErrLocked      = errors.New("datastore is locked by another process")
)
