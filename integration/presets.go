// Package integration bundles engine tuning into named presets and assembles
// the storage an engine runs on.
//
//	preset, err := integration.GetPresetByName("lite")
//	db, err := integration.OpenSnapshotDB(preset, datadir)
//	engine, err := poa.New(rules, genesisHeader, preset.Engine, db)
package integration

import (
	"fmt"

	"github.com/rony4d/go-opera-poa/poa"
)

// Snapshot database layouts.
const (
	DBMemory  = "memory"
	DBLevelDB = "ldb"
)

// PresetConfig captures the knobs that vary between node profiles. Nothing in
// it affects which headers are valid.
type PresetConfig struct {
	Name string
	// CacheMB is handed to the snapshot database.
	CacheMB int
	// DBPreset selects the snapshot database layout, DBMemory or DBLevelDB.
	DBPreset string
	// EnableLightKDF makes keystore unlocks fast and weak.
	EnableLightKDF bool
	Engine         poa.Config
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:           "default",
		CacheMB:        64,
		DBPreset:       DBLevelDB,
		EnableLightKDF: false,
		Engine:         poa.DefaultConfig(),
	}
}

// LitePreset keeps everything in memory with small caches. For development
// and tests only: nothing survives a restart and keystores use light KDF.
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.CacheMB = 16
	cfg.DBPreset = DBMemory
	cfg.EnableLightKDF = true
	cfg.Engine = poa.LiteConfig()
	return cfg
}

// FullPreset is sized for a signer on a busy network: large caches so forks
// near the head never replay.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.CacheMB = 256
	cfg.Engine.SnapshotCacheSize = 1024
	cfg.Engine.SignatureCacheSize = 16384
	return cfg
}

// ArchivePreset persists snapshots densely, so deep historical queries replay
// at most a few blocks.
func ArchivePreset() PresetConfig {
	cfg := FullPreset()
	cfg.Name = "archive"
	cfg.CacheMB = 512
	cfg.Engine.PersistInterval = 64
	return cfg
}

// GetPresetByName looks a preset up by name.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "archive":
		return ArchivePreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, archive, default)", name)
	}
}

// ApplyPreset copies the non-zero fields of preset over target.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.DBPreset != "" {
		target.DBPreset = preset.DBPreset
	}
	target.EnableLightKDF = preset.EnableLightKDF
	if preset.Name != "" {
		target.Name = preset.Name
	}

	e := preset.Engine
	if e.SnapshotCacheSize > 0 {
		target.Engine.SnapshotCacheSize = e.SnapshotCacheSize
	}
	if e.SignatureCacheSize > 0 {
		target.Engine.SignatureCacheSize = e.SignatureCacheSize
	}
	if e.PersistInterval > 0 {
		target.Engine.PersistInterval = e.PersistInterval
	}
	if e.WiggleTime > 0 {
		target.Engine.WiggleTime = e.WiggleTime
	}
	if e.SignTimeout > 0 {
		target.Engine.SignTimeout = e.SignTimeout
	}
	if e.Vanity != ([32]byte{}) {
		target.Engine.Vanity = e.Vanity
	}
}
