package poa

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-poa/inter"
)

// Difficulty values announcing whether a block was sealed in turn.
const (
	DiffInTurn uint64 = 2
	DiffNoTurn uint64 = 1
)

// Sign seals hash with prv. Signatures are deterministic (RFC 6979).
func Sign(hash common.Hash, prv *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(hash[:], prv)
}

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// LowS rewrites a high-S signature into its canonical low-S twin, which
// recovers to the same key. Other signatures are returned unchanged.
func LowS(sig []byte) []byte {
	if len(sig) != crypto.SignatureLength || sig[crypto.RecoveryIDOffset] > 1 {
		return sig
	}
	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(secp256k1HalfN) <= 0 {
		return sig
	}
	out := make([]byte, len(sig))
	copy(out, sig)
	copy(out[32:64], common.LeftPadBytes(s.Sub(secp256k1N, s).Bytes(), 32))
	out[crypto.RecoveryIDOffset] ^= 1
	return out
}

// Recover returns the address whose key produced sig over hash. Only
// canonical low-S signatures with a 0/1 recovery id are accepted.
func Recover(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	v := sig[crypto.RecoveryIDOffset]
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if v > 1 || !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, fmt.Errorf("%w: values out of range", ErrInvalidSignature)
	}
	pub, err := crypto.Ecrecover(hash[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var signer common.Address
	copy(signer[:], crypto.Keccak256(pub[1:])[12:])
	return signer, nil
}

// Author returns the signer that sealed header.
func (e *Engine) Author(header *inter.Header) (common.Address, error) {
	return e.ecrecover(header)
}

// ecrecover recovers the sealer of a header, memoized by header hash.
func (e *Engine) ecrecover(header *inter.Header) (common.Address, error) {
	hash := header.Hash()
	if signer, ok := e.signatures.Get(hash); ok {
		return signer.(common.Address), nil
	}
	seal := inter.SealOf(header.Extra)
	if seal == nil {
		return common.Address{}, fmt.Errorf("%w: no room for a seal", ErrMalformedExtraData)
	}
	signer, err := Recover(header.SealHash(), seal)
	if err != nil {
		return common.Address{}, err
	}
	e.signatures.Add(hash, signer)
	return signer, nil
}
