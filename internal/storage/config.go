package storage

import "time"

// Config configures the snapshot store.
type Config struct {
	// Dir is the badger directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in RAM. Used by tests and ephemeral nodes.
	InMemory bool

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the value log discard ratio (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites fsyncs after each write.
	// Default: false (snapshots are rewritten every interval)
	SyncWrites bool

	// CacheSize is the block cache size in bytes.
	// Default: 8MB
	CacheSize int64
}

// DefaultConfig returns the default store configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   8 << 20,
	}
}
