// Package emitter drives block production: one timer, at most one proposal
// in flight, restarted whenever the chain head moves.
package emitter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/poa"
)

// Host is the node the emitter produces blocks for.
type Host interface {
	// Head returns the current chain head.
	Head() *inter.Header
	// Submit imports a locally sealed header.
	Submit(*inter.Header) error
}

// Emitter proposes headers on top of the host's head.
type Emitter struct {
	cfg   Config
	hooks poa.Hooks
	chain poa.HeaderReader
	keys  poa.KeyHolder
	host  Host

	heads chan *inter.Header
	quit  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	running bool

	now func() time.Time
	log logrus.FieldLogger
}

// Option customizes an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Emitter) {
		e.log = log
	}
}

// WithClock sets the clock proposals are timed against. It must match the
// clock of the engine behind hooks.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		e.now = now
	}
}

// New creates a stopped emitter.
func New(cfg Config, hooks poa.Hooks, chain poa.HeaderReader, keys poa.KeyHolder, host Host, opts ...Option) *Emitter {
	e := &Emitter{
		cfg:   cfg,
		hooks: hooks,
		chain: chain,
		keys:  keys,
		host:  host,
		heads: make(chan *inter.Header, 1),
		now:   time.Now,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("module", "emitter")
	return e
}

// Start launches the production loop.
func (e *Emitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.quit = make(chan struct{})
	e.wg.Add(1)
	go e.loop()
}

// Stop cancels any attempt in flight and waits for the loop to exit.
func (e *Emitter) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.quit)
	e.mu.Unlock()

	e.wg.Wait()
}

// OnNewHead tells the emitter the head moved. An attempt on the old head is
// abandoned. It never blocks; only the latest head is kept.
func (e *Emitter) OnNewHead(head *inter.Header) {
	for {
		select {
		case e.heads <- head:
			return
		default:
		}
		select {
		case <-e.heads:
		default:
		}
	}
}

func (e *Emitter) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.tick())
	defer ticker.Stop()

	var (
		cancel  context.CancelFunc
		done    chan struct{}
		current *inter.Header
	)
	stop := func() {
		if cancel != nil {
			cancel()
			<-done
			cancel, done = nil, nil
		}
	}
	start := func(head *inter.Header) {
		stop()
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		current = head
		go func(done chan struct{}) {
			defer close(done)
			e.attempt(ctx, head)
		}(done)
	}
	idle := func() bool {
		if done == nil {
			return true
		}
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	start(e.host.Head())
	for {
		select {
		case <-e.quit:
			stop()
			return
		case head := <-e.heads:
			if current != nil && head.Hash() == current.Hash() && !idle() {
				continue
			}
			start(head)
		case <-ticker.C:
			if idle() {
				start(e.host.Head())
			}
		}
	}
}

// attempt runs one proposal on head: build, wait for the slot, submit.
func (e *Emitter) attempt(ctx context.Context, head *inter.Header) {
	p, err := e.hooks.ProposeHeader(ctx, e.chain, head, e.keys)
	if err != nil {
		log := e.log.WithField("number", head.Number+1).WithError(err)
		switch {
		case errors.Is(err, context.Canceled):
		case errors.Is(err, poa.ErrNoProposal):
			log.Debug("Skipped slot")
		default:
			log.Warn("Failed to propose")
		}
		return
	}

	timer := time.NewTimer(p.Delay(e.now()))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		e.log.WithField("number", p.Header.Number).Debug("Abandoned proposal, head moved")
		return
	case <-timer.C:
	}

	if h := e.host.Head(); h.Hash() != head.Hash() {
		e.log.WithField("number", p.Header.Number).Debug("Abandoned proposal, head moved")
		return
	}
	if err := e.host.Submit(p.Header); err != nil {
		e.log.WithFields(logrus.Fields{
			"number": p.Header.Number,
			"hash":   p.Header.Hash().Hex(),
		}).WithError(err).Warn("Failed to submit proposal")
		return
	}
	e.log.WithFields(logrus.Fields{
		"number": p.Header.Number,
		"hash":   p.Header.Hash().Hex(),
		"signer": p.Signer.Hex(),
		"inturn": p.InTurn,
	}).Info("Sealed new block")
}
