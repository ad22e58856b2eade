package poa

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-poa/chain"
	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/opera"
	"github.com/rony4d/go-opera-poa/opera/genesis"
)

// testChain is a fake network: fake signer keys, an arena and an engine
// whose clock sits well after every header the tests produce.
type testChain struct {
	t       *testing.T
	rules   opera.Rules
	engine  *Engine
	arena   *chain.Arena
	genesis *inter.Header
	// signers is the genesis set in canonical order.
	signers []common.Address
	keys    map[common.Address]*ecdsa.PrivateKey
}

func testClock() time.Time {
	return genesis.FakeGenesisTime.Add(1000000).Time()
}

func newTestChain(t *testing.T, n int, period, epoch uint64, opts ...Option) *testChain {
	rules := opera.FakeNetRules()
	rules.Period = period
	rules.Epoch = epoch

	g := genesis.FakeGenesis(rules, n)
	gh, err := g.Header()
	require.NoError(t, err)
	arena, err := chain.NewArena(gh)
	require.NoError(t, err)

	tc := &testChain{
		t:       t,
		rules:   rules,
		arena:   arena,
		genesis: gh,
		signers: g.SortedSigners(),
		keys:    make(map[common.Address]*ecdsa.PrivateKey, n),
	}
	for i := 0; i < n; i++ {
		key := genesis.FakeKey(i)
		tc.keys[crypto.PubkeyToAddress(key.PublicKey)] = key
	}
	tc.engine = tc.newEngine(nil, opts...)
	return tc
}

// newEngine returns a fresh engine over the same rules, with a cold cache.
func (tc *testChain) newEngine(store SnapshotStore, opts ...Option) *Engine {
	opts = append([]Option{WithClock(testClock), WithRandSeed(1)}, opts...)
	e, err := New(tc.rules, tc.genesis, LiteConfig(), store, opts...)
	require.NoError(tc.t, err)
	return e
}

// child returns an unsealed header on top of parent, dated Period later.
func (tc *testChain) child(parent *inter.Header) *inter.Header {
	h := &inter.Header{
		ParentHash: parent.Hash(),
		Number:     parent.Number + 1,
		Time:       parent.Time.Add(tc.rules.Period),
		Difficulty: DiffNoTurn,
		GasLimit:   parent.GasLimit,
	}
	extra := inter.Extra{}
	if h.IsCheckpoint(tc.rules.Epoch) {
		extra.Signers = tc.signers
	}
	h.Extra = extra.Encode()
	return h
}

// seal signs h with signer's key in place and returns it.
func (tc *testChain) seal(h *inter.Header, signer common.Address) *inter.Header {
	key, ok := tc.keys[signer]
	require.True(tc.t, ok, "no key for %s", signer.Hex())
	sig, err := Sign(h.SealHash(), key)
	require.NoError(tc.t, err)
	copy(inter.SealOf(h.Extra), sig)
	return h
}

// next builds, seals and accepts the header following parent, signed by
// signer with the difficulty its turn demands.
func (tc *testChain) next(parent *inter.Header, signer common.Address) *inter.Header {
	h := tc.child(parent)
	snap, err := tc.engine.Snapshot(tc.arena, parent.Hash())
	require.NoError(tc.t, err)
	h.Difficulty = snap.Difficulty(h.Number, signer)
	tc.seal(h, signer)
	tc.accept(h)
	return h
}

func (tc *testChain) accept(h *inter.Header) {
	require.NoError(tc.t, tc.engine.ValidateHeader(tc.arena, h))
	_, err := tc.arena.Insert(h)
	require.NoError(tc.t, err)
}

// build extends parent by count blocks, each sealed in turn.
func (tc *testChain) build(parent *inter.Header, count int) *inter.Header {
	for i := 0; i < count; i++ {
		snap, err := tc.engine.Snapshot(tc.arena, parent.Hash())
		require.NoError(tc.t, err)
		parent = tc.next(parent, snap.InTurn(parent.Number+1))
	}
	return parent
}

// headerMap is a HeaderReader over an explicit set of headers.
type headerMap map[common.Hash]*inter.Header

func (m headerMap) GetHeader(hash common.Hash) *inter.Header {
	return m[hash]
}
