package keyholder

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// Keystore signs with password-protected key files. Only unlocked accounts
// are offered for signing.
type Keystore struct {
	ks *keystore.KeyStore

	mu       sync.RWMutex
	unlocked map[common.Address]struct{}
}

// NewKeystore opens the key directory. lightKDF trades key file security for
// unlock speed and belongs on fake networks only.
func NewKeystore(dir string, lightKDF bool) *Keystore {
	n, p := keystore.StandardScryptN, keystore.StandardScryptP
	if lightKDF {
		n, p = keystore.LightScryptN, keystore.LightScryptP
	}
	return &Keystore{
		ks:       keystore.NewKeyStore(dir, n, p),
		unlocked: make(map[common.Address]struct{}),
	}
}

// Import stores key encrypted with password. Importing a key that is
// already present is not an error.
func (k *Keystore) Import(key *ecdsa.PrivateKey, password string) (common.Address, error) {
	acc, err := k.ks.ImportECDSA(key, password)
	if errors.Is(err, keystore.ErrAccountAlreadyExists) {
		return acc.Address, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return acc.Address, nil
}

// Unlock decrypts addr for signing until Lock is called.
func (k *Keystore) Unlock(addr common.Address, password string) error {
	if err := k.ks.Unlock(accounts.Account{Address: addr}, password); err != nil {
		if errors.Is(err, keystore.ErrNoMatch) {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, addr.Hex())
		}
		return err
	}
	k.mu.Lock()
	k.unlocked[addr] = struct{}{}
	k.mu.Unlock()
	return nil
}

// Lock drops the decrypted key of addr.
func (k *Keystore) Lock(addr common.Address) error {
	k.mu.Lock()
	delete(k.unlocked, addr)
	k.mu.Unlock()
	return k.ks.Lock(addr)
}

// Stored lists every account in the directory, locked or not.
func (k *Keystore) Stored() []common.Address {
	accs := k.ks.Accounts()
	out := make([]common.Address, len(accs))
	for i, a := range accs {
		out[i] = a.Address
	}
	return out
}

func (k *Keystore) Accounts() []common.Address {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]common.Address, 0, len(k.unlocked))
	for _, addr := range k.Stored() {
		if _, ok := k.unlocked[addr]; ok {
			out = append(out, addr)
		}
	}
	return out
}

func (k *Keystore) SignHash(ctx context.Context, signer common.Address, hash common.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := k.ks.SignHash(accounts.Account{Address: signer}, hash[:])
	switch {
	case errors.Is(err, keystore.ErrLocked):
		return nil, fmt.Errorf("%w: %s is locked", ErrUnavailable, signer.Hex())
	case errors.Is(err, keystore.ErrNoMatch):
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, signer.Hex())
	}
	return sig, err
}
