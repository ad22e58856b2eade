package inter

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Header is a block header as seen by the authority engine.
//
// The engine reads and writes ParentHash, Number, Time, Coinbase, Difficulty
// and Extra. The execution fields are hashed along with the rest but are
// otherwise owned by the execution layer.
type Header struct {
	ParentHash common.Hash
	Number     idx.Block
	Time       Timestamp
	// Coinbase is always zero on an authority chain. The signer is recovered
	// from the seal instead.
	Coinbase common.Address
	// Difficulty is DiffInTurn or DiffNoTurn.
	Difficulty uint64
	// Extra is laid out as described in extra.go.
	Extra []byte

	Root        common.Hash
	TxHash      common.Hash
	ReceiptHash common.Hash
	GasLimit    uint64
	GasUsed     uint64
}

// Hash is the keccak256 of the RLP encoded header, seal included.
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

// SealHash is the hash a signer signs: the header with the trailing seal cut
// from Extra. Vanity and any signer list stay covered.
func (h *Header) SealHash() common.Hash {
	cp := *h
	cp.Extra = StripSeal(h.Extra)
	return rlpHash(&cp)
}

// Copy returns a deep copy of h.
func (h *Header) Copy() *Header {
	cp := *h
	cp.Extra = common.CopyBytes(h.Extra)
	return &cp
}

// IsCheckpoint reports whether the header must carry a signer list for the
// given epoch length. Genesis always does.
func (h *Header) IsCheckpoint(epoch uint64) bool {
	return epoch != 0 && uint64(h.Number)%epoch == 0
}

func (h *Header) String() string {
	return fmt.Sprintf("#%d %s", h.Number, h.Hash().TerminalString())
}

func rlpHash(h *Header) common.Hash {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		// every field is a fixed-size array, integer or byte slice
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}
