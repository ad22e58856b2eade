package integration

import (
	"fmt"
	"path/filepath"

	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"

	"github.com/rony4d/go-opera-poa/poa"
)

// SnapshotDB is a closable snapshot store.
type SnapshotDB interface {
	poa.SnapshotStore
	Close() error
}

// dbHandles is the number of open files granted to leveldb.
const dbHandles = 64

// OpenSnapshotDB opens the snapshot database the preset asks for. On-disk
// layouts live under datadir/poa.
func OpenSnapshotDB(preset PresetConfig, datadir string) (SnapshotDB, error) {
	switch preset.DBPreset {
	case DBMemory:
		return memorydb.New(), nil
	case DBLevelDB:
		if datadir == "" {
			return nil, fmt.Errorf("db preset %q needs a data directory", preset.DBPreset)
		}
		db, err := leveldb.New(filepath.Join(datadir, "poa"), preset.CacheMB, dbHandles, "poa/db/", false)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown db preset: %q (valid: %s, %s)", preset.DBPreset, DBMemory, DBLevelDB)
	}
}
