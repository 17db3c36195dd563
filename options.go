package bitcask

import "log/slog"

// DefaultMaxSegmentSize is the size (in bytes) at which the active segment is archived
const DefaultMaxSegmentSize = 5 * 1024 * 1024

const lockFileName = "LOCK"

// Options configure a DataStore
type Options struct {
	// MaxSegmentSize is the rotation threshold of the active segment
	MaxSegmentSize int64
	// SyncWrites calls sync() after every Put and Remove. By default data is only guaranteed
	// to be on disk after Sync or Close
	SyncWrites bool
	Logger     *slog.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		MaxSegmentSize: DefaultMaxSegmentSize,
		SyncWrites:     false,
		Logger:         slog.Default(),
	}
}

// WithMaxSegmentSize sets the maximum size of the active segment. Values <= 0 are ignored
func WithMaxSegmentSize(size int64) Option {
	return func(o *Options) {
		if size > 0 {
			o.MaxSegmentSize = size
		}
	}
}

// WithSyncWrites sets whether every write is synced to disk
func WithSyncWrites(sync bool) Option {
	return func(o *Options) {
		o.SyncWrites = sync
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}
