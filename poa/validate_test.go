package poa

import (
	"errors"
	"sync"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/opera/genesis"
)

func TestRotation(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 2, 30000)
	a, b, c := tc.signers[0], tc.signers[1], tc.signers[2]

	snap, err := tc.engine.Snapshot(tc.arena, tc.genesis.Hash())
	require.NoError(err)
	for number, want := range []common.Address{a, b, c, a} {
		n := idx.Block(number)
		require.Equal(want, snap.InTurn(n))
		require.Equal(DiffInTurn, snap.Difficulty(n, want))
		for _, other := range tc.signers {
			if other != want {
				require.Equal(DiffNoTurn, snap.Difficulty(n, other))
			}
		}
	}

	// b is in turn for block 1
	h := tc.child(tc.genesis)
	h.Difficulty = DiffInTurn
	tc.seal(h, b)
	require.NoError(tc.engine.ValidateHeader(tc.arena, h))

	wrong := tc.child(tc.genesis)
	wrong.Difficulty = DiffInTurn
	tc.seal(wrong, a)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, wrong), ErrInvalidDifficulty))

	wrong.Difficulty = DiffNoTurn
	tc.seal(wrong, a)
	require.NoError(tc.engine.ValidateHeader(tc.arena, wrong))

	lazy := tc.child(tc.genesis)
	lazy.Difficulty = DiffNoTurn
	tc.seal(lazy, b)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, lazy), ErrInvalidDifficulty))

	// full rotation on the canonical chain
	head := tc.build(tc.genesis, 4)
	var sealers []common.Address
	for h := head; h.Number > 0; h = tc.arena.GetHeader(h.ParentHash) {
		s, err := tc.engine.Author(h)
		require.NoError(err)
		sealers = append([]common.Address{s}, sealers...)
	}
	require.Equal([]common.Address{b, c, a, b}, sealers)
}

func TestCooldown(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 0, 30000)
	a, b := tc.signers[0], tc.signers[1]

	h1 := tc.next(tc.genesis, b)

	again := tc.child(h1)
	tc.seal(again, b)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, again), ErrSignedTooRecently))

	// limit is 2 for three signers: b may sign again at height 3
	h2 := tc.next(h1, a)
	h3 := tc.child(h2)
	h3.Difficulty = DiffNoTurn
	tc.seal(h3, b)
	require.NoError(tc.engine.ValidateHeader(tc.arena, h3))

	// a signed h2 and is still cooling down for height 3
	h3a := tc.child(h2)
	h3a.Difficulty = DiffInTurn
	tc.seal(h3a, a)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, h3a), ErrSignedTooRecently))
}

func TestCooldownAcrossCheckpoint(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 4, 0, 4)
	cp := tc.build(tc.genesis, 4)
	h3 := tc.arena.GetHeaderByNumber(3)
	h2 := tc.arena.GetHeaderByNumber(2)

	// four signers cool down for three blocks: #3 and #4 stay barred
	snap, err := tc.engine.Snapshot(tc.arena, cp.Hash())
	require.NoError(err)
	sealer3, err := tc.engine.Author(h3)
	require.NoError(err)
	require.True(snap.RecentlySigned(sealer3))

	again := tc.child(cp)
	again.Difficulty = snap.Difficulty(again.Number, sealer3)
	tc.seal(again, sealer3)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, again), ErrSignedTooRecently))

	sealer2, err := tc.engine.Author(h2)
	require.NoError(err)
	ok := tc.child(cp)
	ok.Difficulty = snap.Difficulty(ok.Number, sealer2)
	tc.seal(ok, sealer2)
	require.NoError(tc.engine.ValidateHeader(tc.arena, ok))
}

func TestSoleSignerCrossesCheckpoints(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 1, 0, 2)
	head := tc.build(tc.genesis, 5)

	snap, err := tc.engine.Snapshot(tc.arena, tc.arena.GetHeaderByNumber(4).Hash())
	require.NoError(err)
	require.Empty(snap.Recents)
	require.Equal(uint64(5), uint64(head.Number))
}

func TestCooldownWhenSetGrows(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 4, 0, 4)
	grown := make([]common.Address, 0, 8)
	for i := 0; i < 8; i++ {
		key := genesis.FakeKey(i)
		a := crypto.PubkeyToAddress(key.PublicKey)
		tc.keys[a] = key
		grown = append(grown, a)
	}
	sortAddresses(grown)

	h3 := tc.build(tc.genesis, 3)
	parent, err := tc.engine.Snapshot(tc.arena, h3.Hash())
	require.NoError(err)
	sealer := parent.InTurn(4)
	cp := tc.child(h3)
	cp.Extra = (&inter.Extra{Signers: grown}).Encode()
	cp.Difficulty = DiffInTurn
	tc.seal(cp, sealer)
	tc.accept(cp)

	// eight signers cool down for five blocks, reaching back to #1 which
	// the four-signer ring had already released
	snap, err := tc.engine.Snapshot(tc.arena, cp.Hash())
	require.NoError(err)
	require.Len(snap.Recents, 4)
	sealer1, err := tc.engine.Author(tc.arena.GetHeaderByNumber(1))
	require.NoError(err)
	require.True(snap.RecentlySigned(sealer1))

	h5 := tc.child(cp)
	h5.Difficulty = snap.Difficulty(h5.Number, sealer1)
	tc.seal(h5, sealer1)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, h5), ErrSignedTooRecently))

	// a bootstrap from the checkpoint sees the same ring
	tail := headerMap{}
	for h := cp; h.Number >= 1; h = tc.arena.GetHeader(h.ParentHash) {
		tail[h.Hash()] = h
	}
	bootstrapped, err := tc.newEngine(nil).Snapshot(tail, cp.Hash())
	require.NoError(err)
	require.Equal(snap, bootstrapped)
}

func TestSingleSignerIsLive(t *testing.T) {
	tc := newTestChain(t, 1, 0, 5)
	head := tc.build(tc.genesis, 12)
	require.Equal(t, idx.Block(12), head.Number)
}

func TestEpochUpdate(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 0, 3)
	a, b, c := tc.signers[0], tc.signers[1], tc.signers[2]

	h2 := tc.build(tc.genesis, 2)

	cp := tc.child(h2)
	cp.Extra = (&inter.Extra{Signers: []common.Address{b, a}}).Encode()
	cp.Difficulty = DiffInTurn
	tc.seal(cp, a)
	tc.accept(cp)

	snap, err := tc.engine.Snapshot(tc.arena, cp.Hash())
	require.NoError(err)
	require.Equal([]common.Address{a, b}, snap.Signers)
	require.False(snap.IsAuthorized(c))
	// two signers cool down for two blocks: #2 is already released
	require.Equal([]Recent{{Number: 3, Signer: a}}, snap.Recents)

	dropped := tc.child(cp)
	tc.seal(dropped, c)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, dropped), ErrUnauthorizedSigner))

	kept := tc.child(cp)
	kept.Difficulty = DiffNoTurn
	tc.seal(kept, b)
	require.NoError(tc.engine.ValidateHeader(tc.arena, kept))
}

func TestCheckpointSignerList(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 0, 3)
	a := tc.signers[0]
	h2 := tc.build(tc.genesis, 2)

	missing := tc.child(h2)
	missing.Extra = (&inter.Extra{}).Encode()
	missing.Difficulty = DiffInTurn
	tc.seal(missing, a)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, missing), ErrMissingSignerList))

	dup := tc.child(h2)
	dup.Extra = (&inter.Extra{Signers: []common.Address{a, a}}).Encode()
	dup.Difficulty = DiffInTurn
	tc.seal(dup, a)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, dup), ErrMalformedExtraData))

	h1 := tc.arena.GetHeader(h2.ParentHash)
	unexpected := tc.child(h1)
	unexpected.Extra = (&inter.Extra{Signers: tc.signers}).Encode()
	tc.seal(unexpected, a)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, unexpected), ErrUnexpectedSignerList))
}

func TestTimestamps(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 2, 30000)
	b := tc.signers[1]

	early := tc.child(tc.genesis)
	early.Time = tc.genesis.Time.Add(1)
	early.Difficulty = DiffInTurn
	tc.seal(early, b)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, early), ErrTooEarly))

	ok := tc.child(tc.genesis)
	ok.Time = tc.genesis.Time.Add(2)
	ok.Difficulty = DiffInTurn
	tc.seal(ok, b)
	require.NoError(tc.engine.ValidateHeader(tc.arena, ok))

	future := tc.child(tc.genesis)
	future.Time = inter.FromTime(testClock()).Add(tc.rules.MaxFutureDrift + 1)
	future.Difficulty = DiffInTurn
	tc.seal(future, b)
	require.True(errors.Is(tc.engine.ValidateHeader(tc.arena, future), ErrFutureBlock))

	edge := tc.child(tc.genesis)
	edge.Time = inter.FromTime(testClock()).Add(tc.rules.MaxFutureDrift)
	edge.Difficulty = DiffInTurn
	tc.seal(edge, b)
	require.NoError(tc.engine.ValidateHeader(tc.arena, edge))
}

func TestRejections(t *testing.T) {
	tc := newTestChain(t, 3, 0, 30000)
	b := tc.signers[1]
	outsider := genesis.FakeKey(7)
	tc.keys[crypto.PubkeyToAddress(outsider.PublicKey)] = outsider

	for _, tt := range []struct {
		name   string
		mutate func(h *inter.Header)
		want   error
	}{
		{"short extra", func(h *inter.Header) { h.Extra = h.Extra[:40] }, ErrMalformedExtraData},
		{"ragged list", func(h *inter.Header) {
			h.Extra = append(append(append([]byte{}, h.Extra[:inter.ExtraVanity]...), 1, 2, 3), inter.SealOf(h.Extra)...)
		}, ErrMalformedExtraData},
		{"coinbase", func(h *inter.Header) {
			h.Coinbase = common.Address{1}
			tc.seal(h, b)
		}, ErrInvalidCoinbase},
		{"unauthorized", func(h *inter.Header) {
			h.Difficulty = DiffNoTurn
			tc.seal(h, crypto.PubkeyToAddress(outsider.PublicKey))
		}, ErrUnauthorizedSigner},
		{"high recovery id", func(h *inter.Header) {
			inter.SealOf(h.Extra)[64] = 27
		}, ErrInvalidSignature},
		{"zero seal", func(h *inter.Header) {
			copy(inter.SealOf(h.Extra), make([]byte, inter.ExtraSeal))
		}, ErrInvalidSignature},
		{"bad number", func(h *inter.Header) {
			h.Number++
			tc.seal(h, b)
		}, ErrInvalidParent},
		{"unknown parent", func(h *inter.Header) {
			h.ParentHash = common.Hash{0xde, 0xad}
			tc.seal(h, b)
		}, ErrIncompleteHistory},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := tc.child(tc.genesis)
			h.Difficulty = DiffInTurn
			tc.seal(h, b)
			tt.mutate(h)
			err := tc.engine.ValidateHeader(tc.arena, h)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}

	// rejections leave the engine usable
	tc.build(tc.genesis, 3)
}

func TestMissingAncestor(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 0, 30000)
	head := tc.build(tc.genesis, 5)

	// a fresh engine over a reader that lost block 2
	partial := headerMap{}
	for h := head; h != nil; h = tc.arena.GetHeader(h.ParentHash) {
		if h.Number != 2 {
			partial[h.Hash()] = h
		}
	}
	next := tc.child(head)
	snap, err := tc.engine.Snapshot(tc.arena, head.Hash())
	require.NoError(err)
	next.Difficulty = DiffInTurn
	tc.seal(next, snap.InTurn(next.Number))

	err = tc.newEngine(nil).ValidateHeader(partial, next)
	require.True(errors.Is(err, ErrIncompleteHistory))
	var missing *MissingAncestorError
	require.True(errors.As(err, &missing))
	require.Equal(tc.arena.GetHeaderByNumber(2).Hash(), missing.Hash)
}

func TestValidateGenesis(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 2, 0, 30000)
	require.NoError(tc.engine.ValidateHeader(tc.arena, tc.genesis))
	require.Equal(tc.genesis.Hash(), tc.engine.Genesis())

	attacker := genesis.FakeKey(9)
	forged := tc.genesis.Copy()
	forged.Extra = (&inter.Extra{Signers: []common.Address{crypto.PubkeyToAddress(attacker.PublicKey)}}).Encode()
	for name, mutate := range map[string]func(h *inter.Header){
		"signers":    func(h *inter.Header) {},
		"parent":     func(h *inter.Header) { h.ParentHash = common.HexToHash("0xdead") },
		"coinbase":   func(h *inter.Header) { h.Coinbase = common.HexToAddress("0x1234") },
		"difficulty": func(h *inter.Header) { h.Difficulty = 99 },
	} {
		h := forged.Copy()
		mutate(h)
		err := tc.engine.ValidateHeader(tc.arena, h)
		require.True(errors.Is(err, ErrInvalidGenesis), "%s: %v", name, err)
		_, ok := tc.engine.recents.Get(h.Hash())
		require.False(ok, "%s: forged genesis cached", name)
	}

	// a chain rooted in another block 0 is not derivable
	fake := headerMap{forged.Hash(): forged}
	child := tc.child(forged)
	fake[child.Hash()] = child
	_, err := tc.engine.Snapshot(fake, child.Hash())
	require.True(errors.Is(err, ErrInvalidGenesis), "%v", err)
}

func TestNewRejectsMalformedGenesis(t *testing.T) {
	tc := newTestChain(t, 2, 0, 30000)
	for _, tt := range []struct {
		name   string
		mutate func(h *inter.Header)
		want   error
	}{
		{"number", func(h *inter.Header) { h.Number = 1 }, ErrInvalidGenesis},
		{"parent", func(h *inter.Header) { h.ParentHash = common.Hash{1} }, ErrInvalidGenesis},
		{"coinbase", func(h *inter.Header) { h.Coinbase = common.Address{1} }, ErrInvalidCoinbase},
		{"sealed", func(h *inter.Header) { inter.SealOf(h.Extra)[0] = 1 }, ErrInvalidGenesis},
		{"no signers", func(h *inter.Header) { h.Extra = (&inter.Extra{}).Encode() }, ErrMissingSignerList},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := tc.genesis.Copy()
			tt.mutate(h)
			_, err := New(tc.rules, h, LiteConfig(), nil)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestConcurrentForks(t *testing.T) {
	tc := newTestChain(t, 5, 0, 30000)
	base := tc.build(tc.genesis, 3)

	// every signer not cooling down proposes its own fork of block 4
	snap, err := tc.engine.Snapshot(tc.arena, base.Hash())
	require.NoError(t, err)
	var forks []*inter.Header
	for _, s := range snap.Signers {
		if snap.RecentlySigned(s) {
			continue
		}
		h := tc.child(base)
		h.Difficulty = snap.Difficulty(h.Number, s)
		forks = append(forks, tc.seal(h, s))
	}
	require.Len(t, forks, 3)

	engine := tc.newEngine(nil)
	var wg sync.WaitGroup
	errs := make([]error, len(forks))
	for i, h := range forks {
		wg.Add(1)
		go func(i int, h *inter.Header) {
			defer wg.Done()
			errs[i] = engine.ValidateHeader(tc.arena, h)
		}(i, h)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "fork %d", i)
		s, err := engine.Snapshot(tc.arena, forks[i].Hash())
		require.NoError(t, err)
		require.Equal(t, forks[i].Number, s.Number)
	}
}

func TestValidateHeaders(t *testing.T) {
	require := require.New(t)
	tc := newTestChain(t, 3, 0, 30000)
	head := tc.build(tc.genesis, 6)

	var batch []*inter.Header
	for h := head; h.Number > 0; h = tc.arena.GetHeader(h.ParentHash) {
		batch = append([]*inter.Header{h}, batch...)
	}
	onlyGenesis := headerMap{tc.genesis.Hash(): tc.genesis}

	_, results := tc.newEngine(nil).ValidateHeaders(onlyGenesis, batch)
	for range batch {
		require.NoError(<-results)
	}

	broken := make([]*inter.Header, len(batch))
	copy(broken, batch)
	broken[2] = broken[2].Copy()
	broken[2].Coinbase = common.Address{1}
	author, err := tc.engine.Author(batch[2])
	require.NoError(err)
	tc.seal(broken[2], author)
	_, results = tc.newEngine(nil).ValidateHeaders(onlyGenesis, broken)
	for i := range broken {
		err := <-results
		switch {
		case i < 2:
			require.NoError(err)
		case i == 2:
			require.True(errors.Is(err, ErrInvalidCoinbase), "%v", err)
		default:
			require.True(errors.Is(err, ErrIncompleteHistory), "%v", err)
		}
	}

	abort, results := tc.newEngine(nil).ValidateHeaders(onlyGenesis, batch)
	close(abort)
	for range batch {
		select {
		case err := <-results:
			require.NoError(err)
		default:
		}
	}
}
