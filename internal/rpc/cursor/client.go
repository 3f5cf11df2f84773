// Package cursor implements the cursor-paginated backfill client: given a
// block range and optional address/topic filter, it yields every matching
// log, resuming through server-imposed partial results via eth_getLogsWithCursor.
// The extension method isn't part of ethclient's surface, so this dials a
// raw *rpc.Client the way geth-17-indexer reaches past ethclient for custom
// methods, rather than go-ethereum's FilterLogs.
package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

// DefaultMaxCursorBatches bounds how many cursor pages a single fetch will
// follow before surfacing errs.KindCursorLimitExceeded.
const DefaultMaxCursorBatches = 100

// DefaultRecentLogsChunk is the block-range width get_recent_logs walks
// backward in.
const DefaultRecentLogsChunk = 50_000

// Filter selects the range and optional address/topic restriction for a
// cursor-paginated fetch.
type Filter struct {
	FromBlock primitives.BlockNumber
	ToBlock   primitives.BlockNumber
	Addresses []common.Address
	Topics    [][]common.Hash
}

// Stats summarizes a completed (or limit-terminated) fetch.
type Stats struct {
	TotalLogs int
	Batches   int
	Complete  bool
}

// rpcRequest mirrors the filter shape eth_getLogsWithCursor accepts: block
// numbers as hex strings, an optional resume cursor.
type rpcRequest struct {
	FromBlock string          `json:"fromBlock"`
	ToBlock   string          `json:"toBlock"`
	Address   []common.Address `json:"address,omitempty"`
	Topics    [][]common.Hash  `json:"topics,omitempty"`
	Cursor    *string          `json:"cursor,omitempty"`
}

// rpcResponseShapeA is the paginated response shape: {logs, cursor?}.
type rpcResponseShapeA struct {
	Logs   []types.Log `json:"logs"`
	Cursor *string     `json:"cursor"`
}

// Client fetches logs over eth_getLogsWithCursor, falling back gracefully
// when the endpoint doesn't support the extension method.
type Client struct {
	rpc              *rpc.Client
	maxCursorBatches int
	maxLogs          int
	log              *logrus.Entry
}

// New constructs a Client over an already-dialed raw RPC client.
// maxCursorBatches of 0 selects DefaultMaxCursorBatches; maxLogs of 0 means
// unlimited.
func New(client *rpc.Client, maxCursorBatches, maxLogs int, log *logrus.Entry) *Client {
	if maxCursorBatches <= 0 {
		maxCursorBatches = DefaultMaxCursorBatches
	}
	return &Client{rpc: client, maxCursorBatches: maxCursorBatches, maxLogs: maxLogs, log: log}
}

// SupportsCursorPagination probes the endpoint with a trivial call and
// interprets a method-not-found/invalid-request JSON-RPC error (-32601,
// -32600) as a negative result rather than a fatal error.
func (c *Client) SupportsCursorPagination(ctx context.Context) (bool, error) {
	req := rpcRequest{FromBlock: "0x0", ToBlock: "0x0"}
	var raw json.RawMessage
	err := c.rpc.CallContext(ctx, &raw, "eth_getLogsWithCursor", req)
	if err == nil {
		return true, nil
	}
	if code, ok := jsonRPCErrorCode(err); ok && (code == -32601 || code == -32600) {
		return false, nil
	}
	return false, errs.Wrap(errs.KindRPC, "cursor: supports_cursor_pagination probe", err)
}

// jsonRPCErrorCode extracts the JSON-RPC error code from err if it carries
// one (go-ethereum's rpc.Client wraps it behind an rpc.Error interface).
func jsonRPCErrorCode(err error) (int, bool) {
	type rpcError interface {
		Error() string
		ErrorCode() int
	}
	if e, ok := err.(rpcError); ok {
		return e.ErrorCode(), true
	}
	return 0, false
}

// FetchRange runs the cursor-resume loop for filter, honoring the
// max_cursor_batches and max_logs caps. complete is true only if the last
// response carried no cursor (meaning every log in range was returned).
func (c *Client) FetchRange(ctx context.Context, filter Filter) ([]types.Log, Stats, error) {
	var (
		all     []types.Log
		cursor  *string
		batches int
	)
	for {
		req := rpcRequest{
			FromBlock: hexBlock(filter.FromBlock),
			ToBlock:   hexBlock(filter.ToBlock),
			Address:   filter.Addresses,
			Topics:    filter.Topics,
			Cursor:    cursor,
		}

		var raw json.RawMessage
		if err := c.rpc.CallContext(ctx, &raw, "eth_getLogsWithCursor", req); err != nil {
			return all, Stats{TotalLogs: len(all), Batches: batches, Complete: false},
				errs.Wrap(errs.KindRPC, "cursor: eth_getLogsWithCursor", err)
		}

		logs, next, err := unwrapResponse(raw)
		if err != nil {
			return all, Stats{TotalLogs: len(all), Batches: batches, Complete: false},
				errs.Wrap(errs.KindSerialization, "cursor: unwrap response", err)
		}

		all = append(all, logs...)
		batches++
		cursor = next

		if c.maxLogs > 0 && len(all) > c.maxLogs {
			return all, Stats{TotalLogs: len(all), Batches: batches, Complete: false},
				errs.New(errs.KindLogLimitExceeded, fmt.Sprintf("cursor: exceeded max_logs=%d", c.maxLogs))
		}
		if batches >= c.maxCursorBatches {
			complete := cursor == nil
			if !complete {
				return all, Stats{TotalLogs: len(all), Batches: batches, Complete: false},
					errs.New(errs.KindCursorLimitExceeded, fmt.Sprintf("cursor: exceeded max_cursor_batches=%d", c.maxCursorBatches))
			}
			return all, Stats{TotalLogs: len(all), Batches: batches, Complete: true}, nil
		}
		if cursor == nil {
			return all, Stats{TotalLogs: len(all), Batches: batches, Complete: true}, nil
		}
	}
}

// unwrapResponse handles both the paginated shape ({logs, cursor?}) and the
// fallback plain-array shape a non-cursor-aware endpoint returns for
// eth_getLogs.
func unwrapResponse(raw json.RawMessage) ([]types.Log, *string, error) {
	var arr []types.Log
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil, nil
	}
	var shapeA rpcResponseShapeA
	if err := json.Unmarshal(raw, &shapeA); err != nil {
		return nil, nil, fmt.Errorf("unrecognized eth_getLogsWithCursor response shape: %w", err)
	}
	return shapeA.Logs, shapeA.Cursor, nil
}

func hexBlock(b primitives.BlockNumber) string {
	return fmt.Sprintf("0x%x", b.Uint64())
}

// GetContractLogs is a convenience wrapper around FetchRange for a single
// contract address.
func (c *Client) GetContractLogs(ctx context.Context, from, to primitives.BlockNumber, address common.Address) ([]types.Log, Stats, error) {
	return c.FetchRange(ctx, Filter{FromBlock: from, ToBlock: to, Addresses: []common.Address{address}})
}

// GetRecentLogs walks backward from latest in DefaultRecentLogsChunk-sized
// windows, accumulating logs until limit are collected or block 0 is
// reached, then returns the most recent limit logs in ascending order.
func (c *Client) GetRecentLogs(ctx context.Context, address common.Address, latest primitives.BlockNumber, limit int) ([]types.Log, error) {
	if limit <= 0 {
		return nil, nil
	}

	var collected []types.Log
	to := latest
	for {
		var from primitives.BlockNumber
		if to.Uint64() > DefaultRecentLogsChunk {
			from = primitives.BlockNumber(to.Uint64() - DefaultRecentLogsChunk)
		} else {
			from = primitives.GenesisBlock
		}

		logs, _, err := c.GetContractLogs(ctx, from, to, address)
		if err != nil {
			return nil, err
		}
		collected = append(collected, logs...)

		if len(collected) >= limit || from == primitives.GenesisBlock {
			break
		}
		to = from.Prev()
	}

	sortLogsAscending(collected)
	if len(collected) > limit {
		collected = collected[len(collected)-limit:]
	}
	return collected, nil
}

func sortLogsAscending(logs []types.Log) {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}
