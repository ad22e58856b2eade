package poa

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptySchedule = errors.New("scheduled signer list is empty")
	ErrZeroSigner    = errors.New("zero address cannot be a signer")
)

// ScheduleSigners sets the signer list this node embeds in the checkpoints it
// proposes, until DiscardSchedule is called. Without a schedule checkpoints
// carry the current set.
func (e *Engine) ScheduleSigners(list []common.Address) error {
	if len(list) == 0 {
		return ErrEmptySchedule
	}
	signers, err := canonicalSigners(list)
	if err != nil {
		return err
	}
	for _, s := range signers {
		if s == (common.Address{}) {
			return ErrZeroSigner
		}
	}

	e.scheduleMu.Lock()
	e.scheduled = signers
	e.scheduleMu.Unlock()

	e.log.WithFields(logrus.Fields{
		"signers": len(signers),
	}).Info("Scheduled signer list for next checkpoint")
	return nil
}

// Scheduled returns a copy of the scheduled signer list, nil if none.
func (e *Engine) Scheduled() []common.Address {
	e.scheduleMu.RLock()
	defer e.scheduleMu.RUnlock()

	if e.scheduled == nil {
		return nil
	}
	out := make([]common.Address, len(e.scheduled))
	copy(out, e.scheduled)
	return out
}

// DiscardSchedule drops the scheduled signer list.
func (e *Engine) DiscardSchedule() {
	e.scheduleMu.Lock()
	e.scheduled = nil
	e.scheduleMu.Unlock()
}
