package genesis

import (
	"crypto/ecdsa"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/opera"
)

// FakeGenesisTime is the genesis timestamp of fake networks (2020-12-22).
const FakeGenesisTime = inter.Timestamp(1608600000)

// devKeys are the well known development accounts, so a fake network can be
// driven from standard wallets.
var devKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
}

// FakeKey returns the deterministic private key of fake signer i.
func FakeKey(i int) *ecdsa.PrivateKey {
	if i >= 0 && i < len(devKeys) {
		key, err := crypto.HexToECDSA(devKeys[i])
		if err != nil {
			panic(err)
		}
		return key
	}
	seed := crypto.Keccak256([]byte("fakenet signer"), bigendian.Uint64ToBytes(uint64(i)))
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		panic(err)
	}
	return key
}

// FakeSigners returns the addresses of the first n fake keys.
func FakeSigners(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = crypto.PubkeyToAddress(FakeKey(i).PublicKey)
	}
	return out
}

// FakeGenesis returns a genesis signed off by n fake signers.
func FakeGenesis(rules opera.Rules, n int) *Genesis {
	return &Genesis{
		Rules:    rules,
		Signers:  FakeSigners(n),
		Vanity:   inter.VanityFromBytes([]byte(rules.Name)),
		Time:     FakeGenesisTime,
		GasLimit: rules.Blocks.MaxBlockGas,
	}
}
