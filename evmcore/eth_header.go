// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package evmcore converts authority headers to and from the go-ethereum
// header format consumed by the execution layer.
package evmcore

import (
	"errors"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethparams "github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/opera"
)

var (
	ErrNumberOverflow     = errors.New("block number does not fit 64 bits")
	ErrDifficultyOverflow = errors.New("difficulty does not fit 64 bits")
)

type (
	// EvmHeader is the execution view of an authority header.
	EvmHeader struct {
		Number     *big.Int
		Hash       common.Hash
		ParentHash common.Hash
		Root       common.Hash
		TxHash     common.Hash
		Time       inter.Timestamp
		Coinbase   common.Address

		GasLimit uint64
		GasUsed  uint64

		BaseFee *big.Int
	}

	EvmBlock struct {
		EvmHeader

		Transactions types.Transactions
	}
)

// NewEvmBlock constructs a block, filling TxHash from txs.
func NewEvmBlock(h *EvmHeader, txs types.Transactions) *EvmBlock {
	b := &EvmBlock{
		EvmHeader:    *h,
		Transactions: txs,
	}
	if len(txs) == 0 {
		b.EvmHeader.TxHash = types.EmptyRootHash
	} else {
		b.EvmHeader.TxHash = types.DeriveSha(txs, trie.NewStackTrie(nil))
	}
	return b
}

// ToEvmHeader returns the execution view of h. Hash is the authority hash
// of h, not the hash of the go-ethereum encoding.
func ToEvmHeader(h *inter.Header, rules opera.Rules) *EvmHeader {
	return &EvmHeader{
		Number:     new(big.Int).SetUint64(uint64(h.Number)),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Root:       h.Root,
		TxHash:     h.TxHash,
		Time:       h.Time,
		Coinbase:   h.Coinbase,
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		BaseFee:    baseFee(rules),
	}
}

func baseFee(rules opera.Rules) *big.Int {
	if !rules.Upgrades.London {
		return nil
	}
	return big.NewInt(ethparams.InitialBaseFee)
}

// ToEthHeader converts h into a go-ethereum header. Fields the authority
// chain has no use for (uncles, bloom, mix digest, nonce) are left empty.
func ToEthHeader(h *inter.Header, rules opera.Rules) *types.Header {
	return &types.Header{
		ParentHash:  h.ParentHash,
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    h.Coinbase,
		Root:        h.Root,
		TxHash:      h.TxHash,
		ReceiptHash: h.ReceiptHash,
		Difficulty:  new(big.Int).SetUint64(h.Difficulty),
		Number:      new(big.Int).SetUint64(uint64(h.Number)),
		GasLimit:    h.GasLimit,
		GasUsed:     h.GasUsed,
		Time:        uint64(h.Time),
		Extra:       common.CopyBytes(h.Extra),
		BaseFee:     baseFee(rules),
	}
}

// FromEthHeader is the inverse of ToEthHeader.
func FromEthHeader(h *types.Header) (*inter.Header, error) {
	if h.Number == nil || !h.Number.IsUint64() {
		return nil, ErrNumberOverflow
	}
	if h.Difficulty == nil || !h.Difficulty.IsUint64() {
		return nil, ErrDifficultyOverflow
	}
	return &inter.Header{
		ParentHash:  h.ParentHash,
		Number:      idx.Block(h.Number.Uint64()),
		Time:        inter.Timestamp(h.Time),
		Coinbase:    h.Coinbase,
		Difficulty:  h.Difficulty.Uint64(),
		Extra:       common.CopyBytes(h.Extra),
		Root:        h.Root,
		TxHash:      h.TxHash,
		ReceiptHash: h.ReceiptHash,
		GasLimit:    h.GasLimit,
		GasUsed:     h.GasUsed,
	}, nil
}

// EthHeader returns the go-ethereum header of the execution view. Extra
// carries the authority hash so tools can map back to the chain.
func (h *EvmHeader) EthHeader() *types.Header {
	if h == nil {
		return nil
	}
	return &types.Header{
		Number:     h.Number,
		Coinbase:   h.Coinbase,
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		Root:       h.Root,
		TxHash:     h.TxHash,
		ParentHash: h.ParentHash,
		Time:       uint64(h.Time),
		Extra:      h.Hash.Bytes(),
		BaseFee:    h.BaseFee,
		Difficulty: new(big.Int),
	}
}
