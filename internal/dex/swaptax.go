package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"burnwatch/internal/model"
)

// LogSource is the log-fetching surface the SwapTax source needs.
// *chain.Client satisfies it.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// SwapTaxSource reads SwapTax burn events emitted by one tax-swap contract.
type SwapTaxSource struct {
	source   LogSource
	contract common.Address
	topic0   common.Hash
}

// NewSwapTaxSource builds a source bound to the tax-swap contract address.
func NewSwapTaxSource(source LogSource, contract common.Address) (*SwapTaxSource, error) {
	parsed, err := SwapTaxABI()
	if err != nil {
		return nil, fmt.Errorf("parse swap tax abi: %w", err)
	}
	event, ok := parsed.Events["SwapTax"]
	if !ok {
		return nil, fmt.Errorf("swap tax abi missing SwapTax event")
	}
	return &SwapTaxSource{
		source:   source,
		contract: contract,
		topic0:   event.ID,
	}, nil
}

// Head returns the current chain head block number.
func (s *SwapTaxSource) Head(ctx context.Context) (uint64, error) {
	return s.source.LatestBlockNumber(ctx)
}

// BurnsInRange fetches and decodes SwapTax events in the inclusive block
// range, in the order the node returns them (ascending block, stable within
// a block).
func (s *SwapTaxSource) BurnsInRange(ctx context.Context, fromBlock, toBlock uint64) ([]model.RawBurnEvent, error) {
	logs, err := s.source.FilterLogs(ctx, fromBlock, toBlock, []common.Address{s.contract}, []common.Hash{s.topic0})
	if err != nil {
		return nil, err
	}

	events := make([]model.RawBurnEvent, 0, len(logs))
	for _, entry := range logs {
		event, err := DecodeSwapTax(entry)
		if err != nil {
			return nil, fmt.Errorf("decode log %s: %w", entry.TxHash.Hex(), err)
		}
		events = append(events, event)
	}
	return events, nil
}

// DecodeSwapTax turns one raw log into a RawBurnEvent. The token is the
// single indexed argument, the amount the single data word.
func DecodeSwapTax(entry types.Log) (model.RawBurnEvent, error) {
	if len(entry.Topics) < 2 {
		return model.RawBurnEvent{}, fmt.Errorf("expected indexed token topic, got %d topics", len(entry.Topics))
	}
	if len(entry.Data) != 32 {
		return model.RawBurnEvent{}, fmt.Errorf("expected 32-byte amount, got %d bytes", len(entry.Data))
	}

	return model.RawBurnEvent{
		Token:       common.BytesToAddress(entry.Topics[1].Bytes()).Hex(),
		Amount:      new(big.Int).SetBytes(entry.Data),
		TxHash:      entry.TxHash.Hex(),
		BlockNumber: entry.BlockNumber,
	}, nil
}
