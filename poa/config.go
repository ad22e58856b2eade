package poa

import (
	"time"

	"github.com/rony4d/go-opera-poa/inter"
)

// Config tunes the engine. None of it affects which headers are valid.
type Config struct {
	// SnapshotCacheSize is the number of snapshots kept in memory.
	SnapshotCacheSize int
	// SignatureCacheSize is the number of recovered signers kept in memory.
	SignatureCacheSize int
	// PersistInterval stores every snapshot whose number is a multiple of it,
	// checkpoints included. Zero stores checkpoints only.
	PersistInterval uint64
	// WiggleTime is the unit of delay added per rotation step an out-of-turn
	// signer is away from the in-turn one.
	WiggleTime time.Duration
	// SignTimeout bounds a single call into the key holder.
	SignTimeout time.Duration
	// Vanity is copied into the extra data of proposed headers.
	Vanity [inter.ExtraVanity]byte `toml:"-"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		SnapshotCacheSize:  128,
		SignatureCacheSize: 4096,
		PersistInterval:    1024,
		WiggleTime:         500 * time.Millisecond,
		SignTimeout:        2 * time.Second,
	}
}

// LiteConfig returns a small-footprint tuning for tests and fake networks.
func LiteConfig() Config {
	cfg := DefaultConfig()
	cfg.SnapshotCacheSize = 16
	cfg.SignatureCacheSize = 256
	cfg.PersistInterval = 128
	cfg.WiggleTime = 100 * time.Millisecond
	cfg.SignTimeout = 500 * time.Millisecond
	return cfg
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SnapshotCacheSize <= 0 {
		c.SnapshotCacheSize = def.SnapshotCacheSize
	}
	if c.SignatureCacheSize <= 0 {
		c.SignatureCacheSize = def.SignatureCacheSize
	}
	if c.SignTimeout <= 0 {
		c.SignTimeout = def.SignTimeout
	}
	if c.WiggleTime < 0 {
		c.WiggleTime = 0
	}
	return c
}
