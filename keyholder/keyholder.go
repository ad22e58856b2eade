// Package keyholder provides the signing side of block production. A key
// holder exposes the addresses it can seal for and signs seal hashes on
// request; it keeps no consensus state.
package keyholder

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrTimeout        = errors.New("key holder timed out")
	ErrUnavailable    = errors.New("key holder unavailable")
)

// KeyHolder signs seal hashes for a set of accounts.
type KeyHolder interface {
	// Accounts lists the addresses that can currently sign.
	Accounts() []common.Address
	// SignHash returns a 65-byte [R || S || V] signature of hash by signer.
	// Implementations may block; callers bound them with a context.
	SignHash(ctx context.Context, signer common.Address, hash common.Hash) ([]byte, error)
}
