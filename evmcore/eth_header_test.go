package evmcore

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethparams "github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/opera"
)

func sampleHeader() *inter.Header {
	return &inter.Header{
		ParentHash:  common.HexToHash("0x01"),
		Number:      77,
		Time:        1608600000,
		Difficulty:  2,
		Extra:       make([]byte, inter.ExtraVanity+inter.ExtraSeal),
		Root:        common.HexToHash("0x02"),
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		GasLimit:    30000000,
		GasUsed:     21000,
	}
}

func TestEthHeaderRoundTrip(t *testing.T) {
	require := require.New(t)
	h := sampleHeader()

	eth := ToEthHeader(h, opera.FakeNetRules())
	require.Equal(uint64(77), eth.Number.Uint64())
	require.Equal(uint64(2), eth.Difficulty.Uint64())
	require.Equal(types.EmptyUncleHash, eth.UncleHash)
	require.Equal(big.NewInt(ethparams.InitialBaseFee), eth.BaseFee)

	back, err := FromEthHeader(eth)
	require.NoError(err)
	require.Equal(h, back)
	require.Equal(h.Hash(), back.Hash())

	rules := opera.FakeNetRules()
	rules.Upgrades.London = false
	require.Nil(ToEthHeader(h, rules).BaseFee)
}

func TestFromEthHeaderOverflow(t *testing.T) {
	require := require.New(t)
	eth := ToEthHeader(sampleHeader(), opera.FakeNetRules())

	eth.Number = new(big.Int).Lsh(big.NewInt(1), 64)
	_, err := FromEthHeader(eth)
	require.Equal(ErrNumberOverflow, err)

	eth.Number = big.NewInt(1)
	eth.Difficulty = nil
	_, err = FromEthHeader(eth)
	require.Equal(ErrDifficultyOverflow, err)
}

func TestEvmBlock(t *testing.T) {
	require := require.New(t)
	h := sampleHeader()

	evm := ToEvmHeader(h, opera.FakeNetRules())
	require.Equal(h.Hash(), evm.Hash)
	require.Equal(h.Hash().Bytes(), evm.EthHeader().Extra)

	empty := NewEvmBlock(evm, nil)
	require.Equal(types.EmptyRootHash, empty.TxHash)

	tx := types.NewTransaction(0, common.Address{1}, big.NewInt(1), 21000, big.NewInt(1), nil)
	full := NewEvmBlock(evm, types.Transactions{tx})
	require.NotEqual(types.EmptyRootHash, full.TxHash)

	var nilHeader *EvmHeader
	require.Nil(nilHeader.EthHeader())
}
