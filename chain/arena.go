// Package chain keeps block headers in a hash-indexed arena and tracks the
// heaviest known head.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-poa/inter"
)

var (
	ErrUnknownParent = errors.New("unknown parent")
	ErrNotGenesis    = errors.New("genesis must have number 0")
)

// Arena stores headers by hash. Headers are copied on the way in and treated
// as immutable afterwards, so the pointers it returns must not be modified.
type Arena struct {
	mu      sync.RWMutex
	headers map[common.Hash]*inter.Header
	// weight is the summed difficulty from genesis up to each header.
	weight map[common.Hash]uint64
	// tips holds the hashes of headers without known children.
	tips    mapset.Set
	genesis common.Hash
	head    common.Hash
}

// NewArena creates an arena rooted at genesis.
func NewArena(genesis *inter.Header) (*Arena, error) {
	if genesis.Number != 0 {
		return nil, ErrNotGenesis
	}
	g := genesis.Copy()
	hash := g.Hash()
	tips := mapset.NewThreadUnsafeSet()
	tips.Add(hash)
	return &Arena{
		headers: map[common.Hash]*inter.Header{hash: g},
		weight:  map[common.Hash]uint64{hash: g.Difficulty},
		tips:    tips,
		genesis: hash,
		head:    hash,
	}, nil
}

// GetHeader returns the header with the given hash, or nil.
func (a *Arena) GetHeader(hash common.Hash) *inter.Header {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.headers[hash]
}

// Has reports whether hash is known.
func (a *Arena) Has(hash common.Hash) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.headers[hash]
	return ok
}

// Insert adds header, whose parent must already be present, and reports
// whether it became the new head. Inserting a known header is a no-op.
func (a *Arena) Insert(header *inter.Header) (bool, error) {
	h := header.Copy()
	hash := h.Hash()

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.headers[hash]; ok {
		return false, nil
	}
	parentWeight, ok := a.weight[h.ParentHash]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownParent, h.ParentHash.Hex())
	}
	weight := parentWeight + h.Difficulty
	a.headers[hash] = h
	a.weight[hash] = weight
	a.tips.Remove(h.ParentHash)
	a.tips.Add(hash)

	// Heavier chain wins; on a tie the first seen head stays.
	if weight > a.weight[a.head] {
		a.head = hash
		return true, nil
	}
	return false, nil
}

// Head returns the heaviest known header.
func (a *Arena) Head() *inter.Header {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.headers[a.head]
}

// Genesis returns the root header.
func (a *Arena) Genesis() *inter.Header {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.headers[a.genesis]
}

// Weight returns the total difficulty of the chain ending at hash.
func (a *Arena) Weight(hash common.Hash) (uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	w, ok := a.weight[hash]
	return w, ok
}

// GetHeaderByNumber walks back from the head to the header at number.
func (a *Arena) GetHeaderByNumber(number idx.Block) *inter.Header {
	a.mu.RLock()
	defer a.mu.RUnlock()

	h := a.headers[a.head]
	for h != nil && h.Number > number {
		h = a.headers[h.ParentHash]
	}
	if h == nil || h.Number != number {
		return nil
	}
	return h
}

// Len returns the number of stored headers.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.headers)
}

// Tips returns the leaves of every known fork, the head included.
func (a *Arena) Tips() []common.Hash {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]common.Hash, 0, a.tips.Cardinality())
	for _, tip := range a.tips.ToSlice() {
		out = append(out, tip.(common.Hash))
	}
	return out
}
