// Package subscription maintains a best-effort, ~10ms-latency realtime log
// stream over a raw WebSocket connection. go-ethereum's rpc.Client knows how
// to frame eth_subscribe for methods it recognizes, but the mini-block
// "pending" filter this system relies on isn't one of them, so this frames
// JSON-RPC by hand the way the teacher dials ethclient.DialContext but
// drops to a raw transport whenever a call falls outside ethclient's
// surface.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

const (
	// DefaultConnectTimeout bounds how long opening the WebSocket may take.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultKeepAliveInterval is strictly less than the server's ~30s
	// idle-close window.
	DefaultKeepAliveInterval = 25 * time.Second
	// DefaultReconnectDelay is the base backoff between reconnect attempts.
	DefaultReconnectDelay = 1 * time.Second
	// DefaultMaxReconnectAttempts bounds retries before a terminal error.
	DefaultMaxReconnectAttempts = 10

	blockTimeCacheCapacity = 10_000
	blockTimeCacheTTL      = 1 * time.Hour
)

// BlockTimeFetcher fetches a block's Unix timestamp by number, used to
// resolve the timestamp a log notification doesn't carry.
type BlockTimeFetcher interface {
	BlockTimeAt(ctx context.Context, block primitives.BlockNumber) (uint64, error)
}

// jsonRPCRequest and jsonRPCResponse frame the hand-rolled JSON-RPC exchange
// over the raw WebSocket connection.
type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonRPCResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// subFilter mirrors eth_subscribe("logs", filter)'s second parameter.
type subFilter struct {
	Address   []common.Address `json:"address,omitempty"`
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
}

// Processor owns one WebSocket connection's worth of subscribe/dispatch/
// keep-alive/reconnect lifecycle.
type Processor struct {
	url        string
	addresses  []common.Address
	fetcher    BlockTimeFetcher
	route      RouterFunc
	blockTimes *lru.LRU[uint64, uint64]
	log        *logrus.Entry

	connectTimeout       time.Duration
	keepAliveInterval    time.Duration
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// RouterFunc adapts any concrete router's Route method (e.g.
// internal/router.Router.Route, whose second return is the router package's
// own Outcome type) into a signature this package can hold without
// importing internal/router and creating a cycle risk.
type RouterFunc func(ctx context.Context, log types.Log, blockTime uint64) error

// New constructs a Processor. route is typically a closure wrapping
// (*router.Router).Route, discarding its Outcome return and surfacing only
// the error.
func New(url string, addresses []common.Address, fetcher BlockTimeFetcher, route RouterFunc, log *logrus.Entry) *Processor {
	return &Processor{
		url:                  url,
		addresses:            addresses,
		fetcher:              fetcher,
		route:                route,
		blockTimes:           lru.NewLRU[uint64, uint64](blockTimeCacheCapacity, nil, blockTimeCacheTTL),
		log:                  log,
		connectTimeout:       DefaultConnectTimeout,
		keepAliveInterval:    DefaultKeepAliveInterval,
		reconnectDelay:       DefaultReconnectDelay,
		maxReconnectAttempts: DefaultMaxReconnectAttempts,
	}
}

// Run drives the connect/subscribe/dispatch/keep-alive/reconnect loop until
// ctx is canceled or reconnect attempts are exhausted. Every await in this
// loop races ctx, so cancellation always wins and returns cleanly.
func (p *Processor) Run(ctx context.Context) error {
	attempts := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := p.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			// Clean stream end still counts as a disconnect to recover from.
			err = fmt.Errorf("subscription stream ended")
		}
		attempts++
		p.log.WithError(err).WithField("attempt", attempts).Warn("subscription: connection lost, reconnecting")
		if attempts >= p.maxReconnectAttempts {
			return errs.Wrap(errs.KindStreaming, "subscription: reconnect attempts exhausted", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.reconnectDelay):
		}
	}
}

func (p *Processor) runOnce(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: p.connectTimeout}
	conn, _, err := dialer.DialContext(connectCtx, p.url, nil)
	if err != nil {
		return errs.Wrap(errs.KindRPC, "subscription: dial", err)
	}
	defer conn.Close()

	subID, err := p.subscribe(ctx, conn)
	if err != nil {
		return errs.Wrap(errs.KindRPC, "subscription: subscribe", err)
	}
	p.log.WithField("subscription_id", subID).Info("subscription: subscribed to logs")

	connDone := make(chan error, 1)
	msgs := make(chan jsonRPCResponse, 64)
	go p.readLoop(conn, msgs, connDone)

	keepAliveFail := make(chan error, 1)
	keepAliveCtx, stopKeepAlive := context.WithCancel(ctx)
	defer stopKeepAlive()
	go p.keepAlive(keepAliveCtx, conn, keepAliveFail)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-connDone:
			return err
		case err := <-keepAliveFail:
			return err
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("subscription: dispatch channel closed")
			}
			if msg.Method != "eth_subscription" {
				continue
			}
			if err := p.dispatch(ctx, msg.Params.Result); err != nil {
				p.log.WithError(err).Warn("subscription: dispatch failed for one log")
			}
		}
	}
}

func (p *Processor) subscribe(ctx context.Context, conn *websocket.Conn) (string, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_subscribe",
		Params: []interface{}{
			"logs",
			subFilter{Address: p.addresses, FromBlock: "pending", ToBlock: "pending"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return "", err
	}
	var resp jsonRPCResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("subscribe error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	var subID string
	if err := json.Unmarshal(resp.Result, &subID); err != nil {
		return "", fmt.Errorf("subscribe: unexpected result shape: %w", err)
	}
	return subID, nil
}

func (p *Processor) readLoop(conn *websocket.Conn, out chan<- jsonRPCResponse, done chan<- error) {
	defer close(out)
	for {
		var msg jsonRPCResponse
		if err := conn.ReadJSON(&msg); err != nil {
			done <- err
			return
		}
		out <- msg
	}
}

func (p *Processor) keepAlive(ctx context.Context, conn *websocket.Conn, fail chan<- error) {
	ticker := time.NewTicker(p.keepAliveInterval)
	defer ticker.Stop()
	id := int64(1000)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			req := jsonRPCRequest{JSONRPC: "2.0", ID: id, Method: "eth_chainId"}
			if err := conn.WriteJSON(req); err != nil {
				select {
				case fail <- fmt.Errorf("keep-alive write: %w", err):
				default:
				}
				return
			}
		}
	}
}

// dispatch builds the metadata envelope for a single notified log and routes
// it. Block timestamps are resolved through a bounded TTL cache; on miss,
// the header is fetched and the result cached; if that fails, wall-clock
// time is used and deliberately not cached.
func (p *Processor) dispatch(ctx context.Context, raw json.RawMessage) error {
	var lg types.Log
	if err := json.Unmarshal(raw, &lg); err != nil {
		return errs.Wrap(errs.KindSerialization, "subscription: unmarshal log notification", err)
	}

	blockTime, cached := p.blockTimes.Get(lg.BlockNumber)
	if !cached {
		fetched, err := p.fetcher.BlockTimeAt(ctx, primitives.BlockNumber(lg.BlockNumber))
		if err != nil {
			blockTime = uint64(time.Now().Unix())
			p.log.WithError(err).WithField("block", lg.BlockNumber).Debug("subscription: block header fetch failed, using wall clock")
		} else {
			blockTime = fetched
			p.blockTimes.Add(lg.BlockNumber, blockTime)
		}
	}

	return p.route(ctx, lg, blockTime)
}
