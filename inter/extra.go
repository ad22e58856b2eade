package inter

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-poa/utils/fast"
)

// Header extra data layout:
//
//	[ExtraVanity bytes vanity][N x 20 bytes signers][ExtraSeal bytes seal]
//
// N is non-zero only on checkpoint headers.
const (
	ExtraVanity = 32
	ExtraSeal   = crypto.SignatureLength
)

// ErrMalformedExtraData is returned for extra data that does not follow the
// layout.
var ErrMalformedExtraData = errors.New("malformed extra data")

// Extra is decoded header extra data.
type Extra struct {
	Vanity  [ExtraVanity]byte
	Signers []common.Address
	Seal    [ExtraSeal]byte
}

// DecodeExtra splits raw extra data into its parts. The returned value does
// not alias b.
func DecodeExtra(b []byte) (*Extra, error) {
	if len(b) < ExtraVanity+ExtraSeal {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedExtraData, len(b), ExtraVanity+ExtraSeal)
	}
	listLen := len(b) - ExtraVanity - ExtraSeal
	if listLen%common.AddressLength != 0 {
		return nil, fmt.Errorf("%w: signer list of %d bytes", ErrMalformedExtraData, listLen)
	}

	e := &Extra{}
	r := fast.NewReader(b)
	copy(e.Vanity[:], r.Read(ExtraVanity))
	if n := listLen / common.AddressLength; n > 0 {
		e.Signers = make([]common.Address, n)
		for i := range e.Signers {
			copy(e.Signers[i][:], r.Read(common.AddressLength))
		}
	}
	copy(e.Seal[:], r.Read(ExtraSeal))
	return e, nil
}

// Encode concatenates the parts back, the exact inverse of DecodeExtra.
func (e *Extra) Encode() []byte {
	w := fast.NewWriter(make([]byte, 0, e.Size()))
	w.Write(e.Vanity[:])
	for _, s := range e.Signers {
		w.Write(s[:])
	}
	w.Write(e.Seal[:])
	return w.Bytes()
}

// Size is the encoded length.
func (e *Extra) Size() int {
	return ExtraVanity + len(e.Signers)*common.AddressLength + ExtraSeal
}

// HasSigners reports whether a signer list is embedded.
func (e *Extra) HasSigners() bool {
	return len(e.Signers) != 0
}

// StripSeal returns extra without its trailing seal. Input shorter than a
// seal is returned unchanged.
func StripSeal(extra []byte) []byte {
	if len(extra) < ExtraSeal {
		return extra
	}
	return extra[:len(extra)-ExtraSeal]
}

// SealOf returns the trailing seal of extra, or nil when it is too short.
func SealOf(extra []byte) []byte {
	if len(extra) < ExtraVanity+ExtraSeal {
		return nil
	}
	return extra[len(extra)-ExtraSeal:]
}

// VanityFromBytes left-aligns b into a vanity field, truncating if needed.
func VanityFromBytes(b []byte) (v [ExtraVanity]byte) {
	copy(v[:], b)
	return v
}
