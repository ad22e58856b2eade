// Package genesis builds the first header of an authority chain. Genesis is
// always a checkpoint, so its extra data carries the initial signer list and
// an all-zero seal.
package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/opera"
)

var (
	ErrNoSigners       = errors.New("genesis has no signers")
	ErrDuplicateSigner = errors.New("duplicate genesis signer")
	ErrZeroSigner      = errors.New("zero address signer")
)

// Genesis describes the first block of a network.
type Genesis struct {
	Rules   opera.Rules
	Signers []common.Address
	// Vanity is copied verbatim into the genesis extra data.
	Vanity   [inter.ExtraVanity]byte
	Time     inter.Timestamp
	GasLimit uint64
}

// Validate checks the rules and the initial signer list.
func (g *Genesis) Validate() error {
	if err := g.Rules.Validate(); err != nil {
		return fmt.Errorf("genesis rules: %w", err)
	}
	if len(g.Signers) == 0 {
		return ErrNoSigners
	}
	seen := make(map[common.Address]struct{}, len(g.Signers))
	for _, s := range g.Signers {
		if s == (common.Address{}) {
			return ErrZeroSigner
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSigner, s.Hex())
		}
		seen[s] = struct{}{}
	}
	return nil
}

// SortedSigners returns the signer list in canonical ascending order.
func (g *Genesis) SortedSigners() []common.Address {
	out := make([]common.Address, len(g.Signers))
	copy(out, g.Signers)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Header builds the genesis header.
func (g *Genesis) Header() (*inter.Header, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	extra := inter.Extra{
		Vanity:  g.Vanity,
		Signers: g.SortedSigners(),
	}
	gasLimit := g.GasLimit
	if gasLimit == 0 {
		gasLimit = g.Rules.Blocks.MaxBlockGas
	}
	return &inter.Header{
		Number:      0,
		Time:        g.Time,
		Difficulty:  1,
		Extra:       extra.Encode(),
		Root:        types.EmptyRootHash,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		GasLimit:    gasLimit,
	}, nil
}
