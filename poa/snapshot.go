package poa

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/utils/cser"
)

// Recent is one entry of the cooldown ring.
type Recent struct {
	Number idx.Block
	Signer common.Address
}

// Snapshot is the authority state after the block it is keyed by. A
// snapshot is never modified once built; apply returns a new one.
type Snapshot struct {
	Number idx.Block
	Hash   common.Hash
	// Signers is sorted ascending and never empty.
	Signers []common.Address
	// Recents lists, oldest first, the signers barred from sealing block
	// Number+1.
	Recents []Recent
}

// recoverFn maps a header to its sealer.
type recoverFn func(*inter.Header) (common.Address, error)

// cooldown is the number of consecutive blocks a signer spends in the ring,
// the one it sealed included.
func cooldown(signers int) uint64 {
	return uint64(signers/2 + 1)
}

func sortAddresses(list []common.Address) {
	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i][:], list[j][:]) < 0
	})
}

// canonicalSigners returns a sorted copy of list, failing on duplicates.
func canonicalSigners(list []common.Address) ([]common.Address, error) {
	out := make([]common.Address, len(list))
	copy(out, list)
	sortAddresses(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, fmt.Errorf("%w: duplicate signer %s", ErrMalformedExtraData, out[i].Hex())
		}
	}
	return out, nil
}

// checkpointSnapshot builds the snapshot of a checkpoint header from its own
// extra data and the seals of the ancestors still cooling down. Replaying
// across the same checkpoint yields an identical value.
func checkpointSnapshot(chain HeaderReader, header *inter.Header, recover recoverFn) (*Snapshot, error) {
	extra, err := inter.DecodeExtra(header.Extra)
	if err != nil {
		return nil, err
	}
	if !extra.HasSigners() {
		return nil, fmt.Errorf("checkpoint #%d: %w", header.Number, ErrMissingSignerList)
	}
	signers, err := canonicalSigners(extra.Signers)
	if err != nil {
		return nil, err
	}
	recents, err := checkpointRecents(chain, header, len(signers), recover)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Number:  header.Number,
		Hash:    header.Hash(),
		Signers: signers,
		Recents: recents,
	}, nil
}

// checkpointRecents rebuilds the ring after a checkpoint from chain history,
// sized for the checkpoint's own signer count. The ring kept before the
// checkpoint may be too short when the set grows, so it is never reused.
// Genesis carries no seal and never enters the ring.
func checkpointRecents(chain HeaderReader, header *inter.Header, signers int, recover recoverFn) ([]Recent, error) {
	if header.Number == 0 {
		return nil, nil
	}
	signer, err := recover(header)
	if err != nil {
		return nil, err
	}
	limit := cooldown(signers)
	next := uint64(header.Number) + 1
	recents := []Recent{{header.Number, signer}}

	cursor := header.ParentHash
	for n := header.Number - 1; n > 0 && uint64(n)+limit > next; n-- {
		h := chain.GetHeader(cursor)
		if h == nil {
			return nil, &MissingAncestorError{Hash: cursor}
		}
		if h.Number != n {
			return nil, fmt.Errorf("%w: #%d where #%d expected", errNonContiguous, h.Number, n)
		}
		s, err := recover(h)
		if err != nil {
			return nil, err
		}
		recents = append(recents, Recent{h.Number, s})
		cursor = h.ParentHash
	}
	for i, j := 0, len(recents)-1; i < j; i, j = i+1, j-1 {
		recents[i], recents[j] = recents[j], recents[i]
	}
	return trimRecents(recents, header.Number, signers), nil
}

// trimRecents drops the entries that no longer bar anyone from sealing
// block number+1.
func trimRecents(recents []Recent, number idx.Block, signers int) []Recent {
	limit := cooldown(signers)
	next := uint64(number) + 1
	out := recents[:0:0]
	for _, r := range recents {
		if uint64(r.Number)+limit > next {
			out = append(out, r)
		}
	}
	return out
}

func (s *Snapshot) copy() *Snapshot {
	cp := &Snapshot{
		Number:  s.Number,
		Hash:    s.Hash,
		Signers: make([]common.Address, len(s.Signers)),
		Recents: make([]Recent, len(s.Recents)),
	}
	copy(cp.Signers, s.Signers)
	copy(cp.Recents, s.Recents)
	return cp
}

// apply folds headers, which must extend s in order, into a new snapshot.
// Every header is checked for authorization and cooldown. chain must resolve
// the ancestors of any checkpoint among headers.
func (s *Snapshot) apply(chain HeaderReader, headers []*inter.Header, recover recoverFn, epoch uint64, log logrus.FieldLogger) (*Snapshot, error) {
	if len(headers) == 0 {
		return s, nil
	}
	snap := s.copy()

	var (
		start  = time.Now()
		logged = time.Now()
	)
	for i, header := range headers {
		if header.Number != snap.Number+1 || header.ParentHash != snap.Hash {
			return nil, fmt.Errorf("%w: #%d does not extend #%d", errNonContiguous, header.Number, snap.Number)
		}
		signer, err := recover(header)
		if err != nil {
			return nil, err
		}
		if !snap.IsAuthorized(signer) {
			return nil, fmt.Errorf("%w: %s at #%d", ErrUnauthorizedSigner, signer.Hex(), header.Number)
		}
		if snap.RecentlySigned(signer) {
			return nil, fmt.Errorf("%w: %s at #%d", ErrSignedTooRecently, signer.Hex(), header.Number)
		}

		if header.IsCheckpoint(epoch) {
			extra, err := inter.DecodeExtra(header.Extra)
			if err != nil {
				return nil, err
			}
			if !extra.HasSigners() {
				return nil, fmt.Errorf("checkpoint #%d: %w", header.Number, ErrMissingSignerList)
			}
			if snap.Signers, err = canonicalSigners(extra.Signers); err != nil {
				return nil, err
			}
			if snap.Recents, err = checkpointRecents(chain, header, len(snap.Signers), recover); err != nil {
				return nil, err
			}
		} else {
			snap.Recents = trimRecents(append(snap.Recents, Recent{header.Number, signer}), header.Number, len(snap.Signers))
		}
		snap.Number = header.Number
		snap.Hash = header.Hash()

		if time.Since(logged) > 8*time.Second {
			log.WithFields(logrus.Fields{
				"processed": i + 1,
				"total":     len(headers),
				"elapsed":   time.Since(start),
			}).Info("Reconstructing authority snapshot")
			logged = time.Now()
		}
	}
	if time.Since(start) > 8*time.Second {
		log.WithFields(logrus.Fields{
			"processed": len(headers),
			"elapsed":   time.Since(start),
		}).Info("Reconstructed authority snapshot")
	}
	snapshotReplayed.Inc(int64(len(headers)))
	return snap, nil
}

// IsAuthorized reports whether addr may seal blocks extending s.
func (s *Snapshot) IsAuthorized(addr common.Address) bool {
	_, ok := s.index(addr)
	return ok
}

// RecentlySigned reports whether addr is cooling down.
func (s *Snapshot) RecentlySigned(addr common.Address) bool {
	for _, r := range s.Recents {
		if r.Signer == addr {
			return true
		}
	}
	return false
}

// InTurn returns the signer expected to seal block number.
func (s *Snapshot) InTurn(number idx.Block) common.Address {
	return s.Signers[uint64(number)%uint64(len(s.Signers))]
}

// Distance is how many rotation steps addr is behind the in-turn signer of
// block number: zero in turn, up to len(Signers)-1.
func (s *Snapshot) Distance(number idx.Block, addr common.Address) (int, bool) {
	pos, ok := s.index(addr)
	if !ok {
		return 0, false
	}
	n := len(s.Signers)
	turn := int(uint64(number) % uint64(n))
	return (pos - turn + n) % n, true
}

// Difficulty is the difficulty addr must announce when sealing block number.
func (s *Snapshot) Difficulty(number idx.Block, addr common.Address) uint64 {
	if s.InTurn(number) == addr {
		return DiffInTurn
	}
	return DiffNoTurn
}

func (s *Snapshot) index(addr common.Address) (int, bool) {
	i := sort.Search(len(s.Signers), func(i int) bool {
		return bytes.Compare(s.Signers[i][:], addr[:]) >= 0
	})
	if i < len(s.Signers) && s.Signers[i] == addr {
		return i, true
	}
	return 0, false
}

// MarshalBinary encodes s canonically.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(func(w *cser.Writer) error {
		w.U64(uint64(s.Number))
		w.FixedBytes(s.Hash[:])
		w.U32(uint32(len(s.Signers)))
		for _, a := range s.Signers {
			w.FixedBytes(a[:])
		}
		w.U32(uint32(len(s.Recents)))
		for _, r := range s.Recents {
			w.U64(uint64(r.Number))
			w.FixedBytes(r.Signer[:])
		}
		return nil
	})
}

// maxSigners bounds decoded lists so corrupt input cannot force huge
// allocations.
const maxSigners = cser.MaxAlloc / common.AddressLength

// UnmarshalBinary decodes the output of MarshalBinary.
func (s *Snapshot) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, func(r *cser.Reader) error {
		s.Number = idx.Block(r.U64())
		r.FixedBytes(s.Hash[:])

		n := r.U32()
		if n == 0 || n > maxSigners {
			return cser.ErrMalformedEncoding
		}
		s.Signers = make([]common.Address, n)
		for i := range s.Signers {
			r.FixedBytes(s.Signers[i][:])
		}

		n = r.U32()
		if n > maxSigners {
			return cser.ErrTooLargeAlloc
		}
		s.Recents = make([]Recent, n)
		for i := range s.Recents {
			s.Recents[i].Number = idx.Block(r.U64())
			r.FixedBytes(s.Recents[i].Signer[:])
		}
		return nil
	})
}
