package poa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/keyholder"
)

// Proposal is a sealed header ready for the host, and the earliest moment the
// host should publish it.
type Proposal struct {
	Header *inter.Header
	Signer common.Address
	InTurn bool
	// NotBefore is the header time for the in-turn signer. Out-of-turn signers
	// wait longer, the further they are from the turn.
	NotBefore time.Time
}

// Delay is how long to wait from now before publishing.
func (p *Proposal) Delay(now time.Time) time.Duration {
	if d := p.NotBefore.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ProposeHeader builds and seals the header following parent with the local
// account nearest to its turn. A skipped slot is reported as an error
// matching ErrNoProposal; missing ancestry as ErrIncompleteHistory.
func (e *Engine) ProposeHeader(ctx context.Context, chain HeaderReader, parent *inter.Header, keys KeyHolder) (*Proposal, error) {
	p, err := e.proposeHeader(ctx, chain, parent, keys)
	if err != nil {
		if errors.Is(err, ErrNoProposal) {
			skippedCounter.Inc(1)
		}
		return nil, err
	}
	proposedCounter.Inc(1)
	e.log.WithFields(logrus.Fields{
		"number": p.Header.Number,
		"signer": p.Signer.Hex(),
		"inturn": p.InTurn,
		"delay":  p.Delay(e.now()),
	}).Debug("Proposed header")
	return p, nil
}

func (e *Engine) proposeHeader(ctx context.Context, chain HeaderReader, parent *inter.Header, keys KeyHolder) (*Proposal, error) {
	number := parent.Number + 1
	skip := func(err error) error {
		return &NoProposalError{Number: uint64(number), Err: err}
	}

	snap, err := e.Snapshot(chain, parent.Hash())
	if err != nil {
		return nil, err
	}
	signer, distance, ok := e.pickSigner(snap, keys.Accounts())
	if !ok {
		return nil, skip(ErrNoEligibleSigner)
	}

	now := e.now()
	header := &inter.Header{
		ParentHash:  parent.Hash(),
		Number:      number,
		Time:        inter.MaxTimestamp(parent.Time.Add(e.rules.Period), inter.FromTime(now)),
		Difficulty:  snap.Difficulty(number, signer),
		Root:        parent.Root,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		GasLimit:    e.rules.Blocks.MaxBlockGas,
	}
	extra := inter.Extra{Vanity: e.cfg.Vanity}
	if header.IsCheckpoint(e.rules.Epoch) {
		if extra.Signers = e.Scheduled(); len(extra.Signers) == 0 {
			extra.Signers = snap.Signers
		}
	}
	header.Extra = extra.Encode()

	sealHash := header.SealHash()
	sig, err := keyholder.WithTimeout(keys, e.cfg.SignTimeout).SignHash(ctx, signer, sealHash)
	if err != nil {
		return nil, skip(err)
	}
	// Recover only takes low-S; remote signers are not bound to emit it.
	sig = LowS(sig)
	if got, err := Recover(sealHash, sig); err != nil || got != signer {
		return nil, skip(fmt.Errorf("%w: %s", ErrBadLocalSeal, signer.Hex()))
	}
	copy(inter.SealOf(header.Extra), sig)

	notBefore := header.Time.Time()
	if distance > 0 {
		wiggle := e.cfg.WiggleTime
		notBefore = notBefore.Add(time.Duration(distance)*wiggle + e.jitter(wiggle))
	}
	return &Proposal{
		Header:    header,
		Signer:    signer,
		InTurn:    distance == 0,
		NotBefore: notBefore,
	}, nil
}

// pickSigner returns the eligible account closest to the turn of the block
// following snap.
func (e *Engine) pickSigner(snap *Snapshot, accounts []common.Address) (common.Address, int, bool) {
	var (
		best     common.Address
		bestDist = -1
	)
	number := snap.Number + 1
	for _, acc := range accounts {
		dist, ok := snap.Distance(number, acc)
		if !ok || snap.RecentlySigned(acc) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = acc, dist
		}
	}
	return best, bestDist, bestDist >= 0
}
