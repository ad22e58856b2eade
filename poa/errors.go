package poa

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-poa/inter"
)

// Header rejection reasons. A rejected header is invalid for its exact
// content; the engine keeps no state about it.
var (
	ErrMalformedExtraData   = inter.ErrMalformedExtraData
	ErrUnexpectedSignerList = errors.New("signer list on non-checkpoint header")
	ErrMissingSignerList    = errors.New("missing signer list on checkpoint header")
	ErrInvalidParent        = errors.New("parent does not precede header")
	ErrTooEarly             = errors.New("header timestamp too early")
	ErrFutureBlock          = errors.New("header timestamp in the future")
	ErrInvalidSignature     = errors.New("invalid seal signature")
	ErrUnauthorizedSigner   = errors.New("unauthorized signer")
	ErrSignedTooRecently    = errors.New("signer signed too recently")
	ErrInvalidDifficulty    = errors.New("invalid difficulty")
	ErrInvalidCoinbase      = errors.New("non-zero coinbase")
	ErrInvalidGenesis       = errors.New("block 0 is not the configured genesis")
)

// ErrIncompleteHistory is neither acceptance nor rejection: an ancestor
// needed to derive a snapshot is unknown. Fetch it and retry.
var ErrIncompleteHistory = errors.New("incomplete history")

// ErrNoProposal marks a skipped production slot.
var ErrNoProposal = errors.New("no proposal")

// Reasons a slot is skipped, reachable through errors.Is on the error
// returned by ProposeHeader.
var (
	ErrNoEligibleSigner = errors.New("no eligible local signer")
	ErrBadLocalSeal     = errors.New("key holder produced a seal for another signer")
)

// errNonContiguous is returned when replayed headers do not chain onto the
// snapshot they are applied to.
var errNonContiguous = errors.New("non-contiguous header chain")

// MissingAncestorError names the header that could not be found.
type MissingAncestorError struct {
	Hash common.Hash
}

func (e *MissingAncestorError) Error() string {
	return fmt.Sprintf("%v: unknown ancestor %s", ErrIncompleteHistory, e.Hash.Hex())
}

func (e *MissingAncestorError) Unwrap() error {
	return ErrIncompleteHistory
}

// NoProposalError explains a skipped slot. It matches ErrNoProposal and
// unwraps to the underlying cause.
type NoProposalError struct {
	Number uint64
	Err    error
}

func (e *NoProposalError) Error() string {
	return fmt.Sprintf("no proposal for #%d: %v", e.Number, e.Err)
}

func (e *NoProposalError) Unwrap() error {
	return e.Err
}

func (e *NoProposalError) Is(target error) bool {
	return target == ErrNoProposal
}
