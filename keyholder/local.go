package keyholder

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-poa/inter/validatorpk"
)

// LocalKeys holds private keys in memory.
type LocalKeys struct {
	mu   sync.RWMutex
	keys map[common.Address]*ecdsa.PrivateKey
}

// NewLocalKeys returns a holder preloaded with keys.
func NewLocalKeys(keys ...*ecdsa.PrivateKey) *LocalKeys {
	k := &LocalKeys{keys: make(map[common.Address]*ecdsa.PrivateKey)}
	for _, key := range keys {
		k.Add(key)
	}
	return k
}

// Add stores key and returns its address.
func (k *LocalKeys) Add(key *ecdsa.PrivateKey) common.Address {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	k.mu.Lock()
	k.keys[addr] = key
	k.mu.Unlock()
	return addr
}

// AddHex parses a hex private key, with or without 0x, and stores it.
func (k *LocalKeys) AddHex(hexKey string) (common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return k.Add(key), nil
}

func (k *LocalKeys) Has(addr common.Address) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[addr]
	return ok
}

// Remove forgets addr and reports whether it was present.
func (k *LocalKeys) Remove(addr common.Address) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.keys[addr]
	delete(k.keys, addr)
	return ok
}

// PubKey returns the public key of addr.
func (k *LocalKeys) PubKey(addr common.Address) (validatorpk.PubKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[addr]
	if !ok {
		return validatorpk.PubKey{}, false
	}
	return validatorpk.FromECDSA(&key.PublicKey), true
}

// Accounts returns the held addresses in ascending order.
func (k *LocalKeys) Accounts() []common.Address {
	k.mu.RLock()
	out := make([]common.Address, 0, len(k.keys))
	for addr := range k.keys {
		out = append(out, addr)
	}
	k.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func (k *LocalKeys) SignHash(ctx context.Context, signer common.Address, hash common.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.RLock()
	key, ok := k.keys[signer]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, signer.Hex())
	}
	return crypto.Sign(hash[:], key)
}
