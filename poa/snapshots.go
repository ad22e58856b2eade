package poa

import (
	"fmt"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-poa/inter"
)

// SnapshotStore is the key-value store snapshots are persisted into. Both
// lachesis-base kvdb stores and go-ethereum ethdb databases satisfy it. Get
// may report a miss either as a nil value or as an error.
type SnapshotStore interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
}

var snapshotPrefix = []byte("poa-snap-")

func snapshotKey(number idx.Block, hash common.Hash) []byte {
	key := make([]byte, 0, len(snapshotPrefix)+8+common.HashLength)
	key = append(key, snapshotPrefix...)
	key = append(key, bigendian.Uint64ToBytes(uint64(number))...)
	return append(key, hash[:]...)
}

// Snapshot returns the authority state after the block with the given hash.
// The result is shared and must not be modified.
func (e *Engine) Snapshot(chain HeaderReader, hash common.Hash) (*Snapshot, error) {
	if s, ok := e.recents.Get(hash); ok {
		return s.(*Snapshot), nil
	}
	v, err, _ := e.inflight.Do(string(hash[:]), func() (interface{}, error) {
		return e.deriveSnapshot(chain, hash)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// deriveSnapshot walks back from hash to the nearest snapshot that is cached,
// persisted or bootstrappable from a checkpoint, then replays forward.
func (e *Engine) deriveSnapshot(chain HeaderReader, hash common.Hash) (*Snapshot, error) {
	start := time.Now()
	defer snapshotTimer.UpdateSince(start)

	var (
		headers []*inter.Header
		base    *Snapshot
		cursor  = hash
	)
	for base == nil {
		if cursor == e.genesis.Hash {
			base = e.genesis
			break
		}
		if s, ok := e.recents.Get(cursor); ok {
			base = s.(*Snapshot)
			break
		}
		header := chain.GetHeader(cursor)
		if header == nil {
			return nil, &MissingAncestorError{Hash: cursor}
		}
		if header.Number == 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidGenesis, cursor.Hex())
		}
		if e.persistable(header.Number) {
			if s := e.loadSnapshot(header.Number, cursor); s != nil {
				base = s
				break
			}
		}
		if header.IsCheckpoint(e.rules.Epoch) {
			s, err := checkpointSnapshot(chain, header, e.ecrecover)
			if err != nil {
				return nil, err
			}
			e.storeSnapshot(s)
			base = s
			break
		}
		headers = append(headers, header)
		cursor = header.ParentHash
	}
	e.recents.Add(base.Hash, base)

	for i, j := 0, len(headers)-1; i < j; i, j = i+1, j-1 {
		headers[i], headers[j] = headers[j], headers[i]
	}
	snap, err := base.apply(chain, headers, e.ecrecover, e.rules.Epoch, e.log)
	if err != nil {
		return nil, err
	}
	e.recents.Add(snap.Hash, snap)
	if len(headers) > 0 && e.persistable(snap.Number) {
		e.storeSnapshot(snap)
	}
	return snap, nil
}

// persistable reports whether snapshots at number go to the store.
func (e *Engine) persistable(number idx.Block) bool {
	if e.store == nil {
		return false
	}
	if uint64(number)%e.rules.Epoch == 0 {
		return true
	}
	return e.cfg.PersistInterval != 0 && uint64(number)%e.cfg.PersistInterval == 0
}

func (e *Engine) loadSnapshot(number idx.Block, hash common.Hash) *Snapshot {
	raw, err := e.store.Get(snapshotKey(number, hash))
	if err != nil || len(raw) == 0 {
		return nil
	}
	s := new(Snapshot)
	if err := s.UnmarshalBinary(raw); err != nil || s.Hash != hash || s.Number != number {
		e.log.WithFields(logrus.Fields{
			"number": number,
			"hash":   hash.Hex(),
		}).WithError(err).Warn("Ignoring corrupt authority snapshot")
		return nil
	}
	e.log.WithFields(logrus.Fields{
		"number": number,
		"hash":   hash.Hex(),
	}).Trace("Loaded authority snapshot")
	return s
}

// storeSnapshot persists s if a store is configured. Failures only cost a
// replay later, so they are logged and dropped.
func (e *Engine) storeSnapshot(s *Snapshot) {
	if e.store == nil {
		return
	}
	raw, err := s.MarshalBinary()
	if err == nil {
		err = e.store.Put(snapshotKey(s.Number, s.Hash), raw)
	}
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"number": s.Number,
			"hash":   s.Hash.Hex(),
		}).WithError(err).Error("Failed to store authority snapshot")
		return
	}
	snapshotPersisted.Inc(1)
	e.log.WithFields(logrus.Fields{
		"number": s.Number,
		"hash":   s.Hash.Hex(),
	}).Debug("Stored authority snapshot")
}
