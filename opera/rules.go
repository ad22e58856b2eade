// Package opera defines the network rules of an authority chain: network
// identity, block period and the checkpoint epoch at which the signer set is
// re-published in header extra data.
package opera

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethparams "github.com/ethereum/go-ethereum/params"
)

const (
	// MainNetworkID is the chain ID of the main network (250).
	MainNetworkID uint64 = 0xfa
	// TestNetworkID is the chain ID of the public test network (4002).
	TestNetworkID uint64 = 0xfa2
	// FakeNetworkID is the chain ID of local fake networks (4003).
	FakeNetworkID uint64 = 0xfa3

	// DefaultEpoch is the checkpoint interval used by every preset network.
	DefaultEpoch uint64 = 30000

	// DefaultMaxFutureDrift is how far, in seconds, a header timestamp may run
	// ahead of the local clock before the header is refused.
	DefaultMaxFutureDrift uint64 = 15

	berlinBit = 1 << 0
	londonBit = 1 << 1
)

var (
	ErrZeroEpoch      = errors.New("epoch must be positive")
	ErrZeroNetworkID  = errors.New("network id must be positive")
	ErrZeroBlockGas   = errors.New("max block gas must be positive")
	ErrUnknownNetwork = errors.New("unknown network")
)

// Rules describes an authority network. Rules are loaded once and never
// change while a node runs.
type Rules struct {
	Name      string
	NetworkID uint64

	// Period is the minimum number of seconds between a block and its parent.
	// Zero is allowed on development networks.
	Period uint64

	// Epoch is the checkpoint interval in blocks. Headers whose number is a
	// multiple of Epoch carry the full signer list.
	Epoch uint64

	// MaxFutureDrift bounds, in seconds, how far a header may be dated ahead
	// of the local clock.
	MaxFutureDrift uint64

	Blocks BlocksRules

	Upgrades Upgrades `json:"-"`
}

// BlocksRules carries the block limits handed to the execution layer.
type BlocksRules struct {
	// MaxBlockGas is the gas limit proposers put into new headers.
	MaxBlockGas uint64
}

// Upgrades lists the EVM upgrades active from genesis.
type Upgrades struct {
	Berlin bool
	London bool
}

// Bits packs the upgrade flags for logging and storage keys.
func (u Upgrades) Bits() uint64 {
	var b uint64
	if u.Berlin {
		b |= berlinBit
	}
	if u.London {
		b |= londonBit
	}
	return b
}

// PeriodDuration is Period as a time.Duration.
func (r Rules) PeriodDuration() time.Duration {
	return time.Duration(r.Period) * time.Second
}

// IsCheckpoint reports whether block n must embed the signer list.
func (r Rules) IsCheckpoint(n uint64) bool {
	return r.Epoch != 0 && n%r.Epoch == 0
}

// Validate rejects rules no node could run with.
func (r Rules) Validate() error {
	if r.Epoch == 0 {
		return ErrZeroEpoch
	}
	if r.NetworkID == 0 {
		return ErrZeroNetworkID
	}
	if r.Blocks.MaxBlockGas == 0 {
		return ErrZeroBlockGas
	}
	return nil
}

// EvmChainConfig converts the rules into the chain config the execution
// layer expects. Active upgrades are enabled from genesis.
func (r Rules) EvmChainConfig() *ethparams.ChainConfig {
	cfg := *ethparams.AllCliqueProtocolChanges
	cfg.ChainID = new(big.Int).SetUint64(r.NetworkID)
	cfg.Clique = &ethparams.CliqueConfig{
		Period: r.Period,
		Epoch:  r.Epoch,
	}
	cfg.BerlinBlock = nil
	cfg.LondonBlock = nil
	if r.Upgrades.Berlin {
		cfg.BerlinBlock = new(big.Int)
	}
	if r.Upgrades.London {
		cfg.LondonBlock = new(big.Int)
	}
	return &cfg
}

// MainNetRules returns the rules of the main network.
func MainNetRules() Rules {
	return Rules{
		Name:           "main",
		NetworkID:      MainNetworkID,
		Period:         5,
		Epoch:          DefaultEpoch,
		MaxFutureDrift: DefaultMaxFutureDrift,
		Blocks:         DefaultBlocksRules(),
		Upgrades:       Upgrades{Berlin: true, London: true},
	}
}

// TestNetRules returns the rules of the public test network. They match the
// main network apart from identity.
func TestNetRules() Rules {
	r := MainNetRules()
	r.Name = "test"
	r.NetworkID = TestNetworkID
	return r
}

// FakeNetRules returns fast rules for local networks: two second blocks and
// every upgrade enabled.
func FakeNetRules() Rules {
	return Rules{
		Name:           "fake",
		NetworkID:      FakeNetworkID,
		Period:         2,
		Epoch:          DefaultEpoch,
		MaxFutureDrift: DefaultMaxFutureDrift,
		Blocks:         DefaultBlocksRules(),
		Upgrades:       Upgrades{Berlin: true, London: true},
	}
}

// DefaultBlocksRules returns the block limits shared by the presets.
func DefaultBlocksRules() BlocksRules {
	return BlocksRules{
		MaxBlockGas: 30000000,
	}
}

// RulesByName looks a preset up by its Name.
func RulesByName(name string) (Rules, error) {
	switch name {
	case "main":
		return MainNetRules(), nil
	case "test":
		return TestNetRules(), nil
	case "fake":
		return FakeNetRules(), nil
	}
	return Rules{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}

// Copy returns a copy of r. Rules hold no references, so a value copy is
// already deep.
func (r Rules) Copy() Rules {
	return r
}

// String returns r as JSON.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
