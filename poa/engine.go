package poa

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/keyholder"
	"github.com/rony4d/go-opera-poa/opera"
)

// HeaderReader resolves ancestry by hash. It returns nil for unknown headers.
type HeaderReader interface {
	GetHeader(hash common.Hash) *inter.Header
}

// KeyHolder signs seal hashes on behalf of local accounts.
type KeyHolder = keyholder.KeyHolder

// Hooks are the entry points a host node calls into.
type Hooks interface {
	// ValidateHeader returns nil if header is acceptable on top of its parent.
	ValidateHeader(chain HeaderReader, header *inter.Header) error
	// ProposeHeader builds and seals the next header on top of parent, or
	// returns an error matching ErrNoProposal if this node skips the slot.
	ProposeHeader(ctx context.Context, chain HeaderReader, parent *inter.Header, keys KeyHolder) (*Proposal, error)
}

var _ Hooks = (*Engine)(nil)

// Engine is the proof-of-authority engine. It is safe for concurrent use.
type Engine struct {
	rules opera.Rules
	cfg   Config
	store SnapshotStore

	// genesis is pinned; no other block 0 is ever accepted.
	genesis *Snapshot

	recents    *lru.Cache    // snapshots by block hash
	signatures *lru.ARCCache // signers by block hash
	inflight   singleflight.Group

	scheduleMu sync.RWMutex
	scheduled  []common.Address

	randMu sync.Mutex
	rand   *rand.Rand

	now func() time.Time
	log logrus.FieldLogger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithClock replaces the wall clock used for future-block checks and
// proposal timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRandSeed makes the out-of-turn delay jitter reproducible.
func WithRandSeed(seed int64) Option {
	return func(e *Engine) {
		e.rand = rand.New(rand.NewSource(seed))
	}
}

// New creates an engine for the given chain rules and genesis header. store
// may be nil, in which case snapshots live in memory only.
func New(rules opera.Rules, genesis *inter.Header, cfg Config, store SnapshotStore, opts ...Option) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	gs, err := genesisSnapshot(genesis)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	recents, err := lru.New(cfg.SnapshotCacheSize)
	if err != nil {
		return nil, err
	}
	signatures, err := lru.NewARC(cfg.SignatureCacheSize)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		rules:      rules.Copy(),
		cfg:        cfg,
		store:      store,
		genesis:    gs,
		recents:    recents,
		signatures: signatures,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("module", "poa")
	e.recents.Add(gs.Hash, gs)
	return e, nil
}

// Genesis returns the hash of the pinned genesis header.
func (e *Engine) Genesis() common.Hash {
	return e.genesis.Hash
}

// Rules returns the chain rules the engine enforces.
func (e *Engine) Rules() opera.Rules {
	return e.rules.Copy()
}

// Config returns the engine tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return time.Duration(e.rand.Int63n(int64(max)))
}
