package cursor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

var zeroHash = strings.Repeat("0", 63) + "a"
var zeroAddr = strings.Repeat("0", 40)

// logJSON builds a minimal but complete types.Log JSON object — go-ethereum's
// generated (Un)MarshalJSON requires every field below to be present.
func logJSON(blockNumber, logIndex uint64) string {
	return `{"address":"0x` + zeroAddr + `","topics":[],"data":"0x",` +
		`"blockNumber":"0x` + itoaHex(blockNumber) + `",` +
		`"transactionHash":"0x` + zeroHash + `","transactionIndex":"0x0",` +
		`"blockHash":"0x` + zeroHash + `","logIndex":"0x` + itoaHex(logIndex) + `","removed":false}`
}

func itoaHex(n uint64) string {
	if n == 0 {
		return "0"
	}
	const digits = "0123456789abcdef"
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%16]}, buf...)
		n /= 16
	}
	return string(buf)
}

type jsonRPCEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
}

// rpcHandlerFunc produces the raw "result" (or an error) for the nth call
// (0-indexed) to eth_getLogsWithCursor.
type rpcHandlerFunc func(call int) (result string, errCode int, errMsg string)

func newTestServer(t *testing.T, handle rpcHandlerFunc) (*httptest.Server, *gethrpc.Client) {
	t.Helper()
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var env jsonRPCEnvelope
		require.NoError(t, json.Unmarshal(body, &env))

		result, code, msg := handle(call)
		call++

		w.Header().Set("Content-Type", "application/json")
		if code != 0 {
			resp := map[string]any{
				"jsonrpc": "2.0", "id": json.RawMessage(env.ID),
				"error": map[string]any{"code": code, "message": msg},
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(env.ID), "result": json.RawMessage(result)}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client, err := gethrpc.DialHTTP(srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return srv, client
}

func testLog() *logrus.Entry { return logrus.NewEntry(logrus.New()) }

func TestSupportsCursorPaginationTrueOnSuccess(t *testing.T) {
	_, rpcClient := newTestServer(t, func(call int) (string, int, string) {
		return `{"logs":[],"cursor":null}`, 0, ""
	})
	c := New(rpcClient, 0, 0, testLog())

	ok, err := c.SupportsCursorPagination(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSupportsCursorPaginationFalseOnMethodNotFound(t *testing.T) {
	_, rpcClient := newTestServer(t, func(call int) (string, int, string) {
		return "", -32601, "method not found"
	})
	c := New(rpcClient, 0, 0, testLog())

	ok, err := c.SupportsCursorPagination(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFetchRangeFollowsCursorUntilComplete(t *testing.T) {
	_, rpcClient := newTestServer(t, func(call int) (string, int, string) {
		switch call {
		case 0:
			return `{"logs":[` + logJSON(1, 0) + `],"cursor":"abc"}`, 0, ""
		default:
			return `{"logs":[` + logJSON(2, 0) + `],"cursor":null}`, 0, ""
		}
	})
	c := New(rpcClient, 0, 0, testLog())

	logs, stats, err := c.FetchRange(context.Background(), Filter{FromBlock: primitives.GenesisBlock, ToBlock: primitives.BlockNumber(10)})
	require.NoError(t, err)
	require.True(t, stats.Complete)
	require.Equal(t, 2, stats.Batches)
	require.Len(t, logs, 2)
}

func TestFetchRangeFallsBackToPlainArrayShape(t *testing.T) {
	_, rpcClient := newTestServer(t, func(call int) (string, int, string) {
		return `[` + logJSON(1, 0) + `]`, 0, ""
	})
	c := New(rpcClient, 0, 0, testLog())

	logs, stats, err := c.FetchRange(context.Background(), Filter{FromBlock: 0, ToBlock: 1})
	require.NoError(t, err)
	require.True(t, stats.Complete)
	require.Len(t, logs, 1)
}

func TestFetchRangeExceedsMaxCursorBatches(t *testing.T) {
	_, rpcClient := newTestServer(t, func(call int) (string, int, string) {
		return `{"logs":[],"cursor":"keep-going"}`, 0, ""
	})
	c := New(rpcClient, 2, 0, testLog())

	_, _, err := c.FetchRange(context.Background(), Filter{FromBlock: 0, ToBlock: 1})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindCursorLimitExceeded))
}

func TestFetchRangeExceedsMaxLogs(t *testing.T) {
	_, rpcClient := newTestServer(t, func(call int) (string, int, string) {
		return `{"logs":[` + logJSON(1, 0) + `,` + logJSON(1, 1) + `],"cursor":null}`, 0, ""
	})
	c := New(rpcClient, 0, 1, testLog())

	_, _, err := c.FetchRange(context.Background(), Filter{FromBlock: 0, ToBlock: 1})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindLogLimitExceeded))
}
