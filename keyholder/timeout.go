package keyholder

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type timeoutHolder struct {
	KeyHolder
	timeout time.Duration
}

// WithTimeout bounds every SignHash call of inner by d. A call that overruns
// returns ErrTimeout even if inner ignores its context; the late result is
// dropped.
func WithTimeout(inner KeyHolder, d time.Duration) KeyHolder {
	if d <= 0 {
		return inner
	}
	return &timeoutHolder{KeyHolder: inner, timeout: d}
}

type signResult struct {
	sig []byte
	err error
}

func (h *timeoutHolder) SignHash(ctx context.Context, signer common.Address, hash common.Hash) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan signResult, 1)
	go func() {
		sig, err := h.KeyHolder.SignHash(ctx, signer, hash)
		done <- signResult{sig, err}
	}()

	select {
	case res := <-done:
		if res.err == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return res.sig, res.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}
