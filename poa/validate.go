package poa

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-poa/inter"
)

// ValidateHeader checks header against its parent, which chain must know.
// A nil result means the header is accepted and its snapshot is cached.
// Errors matching ErrIncompleteHistory mean an ancestor is missing; all other
// errors reject the header for good.
func (e *Engine) ValidateHeader(chain HeaderReader, header *inter.Header) error {
	err := e.validateHeader(chain, header)
	switch {
	case err == nil:
		acceptedCounter.Inc(1)
	case errors.Is(err, ErrIncompleteHistory):
		incompleteCounter.Inc(1)
		e.log.WithFields(logrus.Fields{
			"number": header.Number,
			"parent": header.ParentHash.Hex(),
		}).WithError(err).Debug("Header ancestry incomplete")
	default:
		rejectedCounter.Inc(1)
		e.log.WithFields(logrus.Fields{
			"number": header.Number,
			"hash":   header.Hash().Hex(),
		}).WithError(err).Debug("Rejected header")
	}
	return err
}

func (e *Engine) validateHeader(chain HeaderReader, header *inter.Header) error {
	if header.Number == 0 {
		return e.validateGenesis(header)
	}

	extra, err := inter.DecodeExtra(header.Extra)
	if err != nil {
		return err
	}
	checkpoint := header.IsCheckpoint(e.rules.Epoch)
	if checkpoint && !extra.HasSigners() {
		return ErrMissingSignerList
	}
	if !checkpoint && extra.HasSigners() {
		return ErrUnexpectedSignerList
	}
	if checkpoint {
		if _, err := canonicalSigners(extra.Signers); err != nil {
			return err
		}
	}

	parent := chain.GetHeader(header.ParentHash)
	if parent == nil {
		return &MissingAncestorError{Hash: header.ParentHash}
	}
	if parent.Number+1 != header.Number {
		return fmt.Errorf("%w: parent #%d, header #%d", ErrInvalidParent, parent.Number, header.Number)
	}

	if header.Time < parent.Time.Add(e.rules.Period) {
		return fmt.Errorf("%w: %d < %d+%d", ErrTooEarly, header.Time, parent.Time, e.rules.Period)
	}
	if limit := inter.FromTime(e.now()).Add(e.rules.MaxFutureDrift); header.Time > limit {
		return fmt.Errorf("%w: %s, limit %s", ErrFutureBlock, header.Time, limit)
	}

	signer, err := e.ecrecover(header)
	if err != nil {
		return err
	}

	snap, err := e.Snapshot(chain, header.ParentHash)
	if err != nil {
		return err
	}
	if !snap.IsAuthorized(signer) {
		return fmt.Errorf("%w: %s", ErrUnauthorizedSigner, signer.Hex())
	}
	if snap.RecentlySigned(signer) {
		return fmt.Errorf("%w: %s", ErrSignedTooRecently, signer.Hex())
	}
	if want := snap.Difficulty(header.Number, signer); header.Difficulty != want {
		return fmt.Errorf("%w: have %d, want %d", ErrInvalidDifficulty, header.Difficulty, want)
	}
	if header.Coinbase != (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrInvalidCoinbase, header.Coinbase.Hex())
	}

	next, err := snap.apply(chain, []*inter.Header{header}, e.ecrecover, e.rules.Epoch, e.log)
	if err != nil {
		return err
	}
	e.recents.Add(next.Hash, next)
	if e.persistable(next.Number) {
		e.storeSnapshot(next)
	}
	return nil
}

// validateGenesis accepts only the genesis the engine was created with.
func (e *Engine) validateGenesis(header *inter.Header) error {
	if hash := header.Hash(); hash != e.genesis.Hash {
		return fmt.Errorf("%w: have %s, want %s", ErrInvalidGenesis, hash.Hex(), e.genesis.Hash.Hex())
	}
	e.recents.Add(e.genesis.Hash, e.genesis)
	return nil
}

// genesisSnapshot checks the shape of a genesis header and returns its
// snapshot. Genesis has no parent, no coinbase and no seal.
func genesisSnapshot(header *inter.Header) (*Snapshot, error) {
	if header == nil || header.Number != 0 {
		return nil, fmt.Errorf("%w: not block 0", ErrInvalidGenesis)
	}
	if header.ParentHash != (common.Hash{}) {
		return nil, fmt.Errorf("%w: parent %s", ErrInvalidGenesis, header.ParentHash.Hex())
	}
	if header.Coinbase != (common.Address{}) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoinbase, header.Coinbase.Hex())
	}
	extra, err := inter.DecodeExtra(header.Extra)
	if err != nil {
		return nil, err
	}
	if extra.Seal != ([inter.ExtraSeal]byte{}) {
		return nil, fmt.Errorf("%w: sealed", ErrInvalidGenesis)
	}
	return checkpointSnapshot(nil, header, nil)
}

// ValidateHeaders validates a contiguous batch in order, each header allowed
// to reference its predecessors in the batch. Results are sent in input order
// until the batch ends or abort is closed.
func (e *Engine) ValidateHeaders(chain HeaderReader, headers []*inter.Header) (chan<- struct{}, <-chan error) {
	abort := make(chan struct{})
	results := make(chan error, len(headers))

	go func() {
		overlay := &overlayReader{
			chain:   chain,
			pending: make(map[common.Hash]*inter.Header, len(headers)),
		}
		start := time.Now()
		for _, header := range headers {
			err := e.ValidateHeader(overlay, header)
			if err == nil {
				overlay.pending[header.Hash()] = header
			}
			select {
			case <-abort:
				return
			case results <- err:
			}
		}
		e.log.WithFields(logrus.Fields{
			"count":   len(headers),
			"elapsed": time.Since(start),
		}).Trace("Validated header batch")
	}()
	return abort, results
}

// overlayReader resolves headers accepted earlier in a batch before falling
// back to the chain.
type overlayReader struct {
	chain   HeaderReader
	pending map[common.Hash]*inter.Header
}

func (r *overlayReader) GetHeader(hash common.Hash) *inter.Header {
	if h, ok := r.pending[hash]; ok {
		return h
	}
	return r.chain.GetHeader(hash)
}
