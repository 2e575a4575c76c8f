package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every request with result produced by fn.
func rpcServer(t *testing.T, wantMethod string, fn func(req rpcRequest) map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if wantMethod != "" && req.Method != wantMethod {
			t.Errorf("expected method %s, got %s", wantMethod, req.Method)
		}
		resp := fn(req)
		resp["jsonrpc"] = "2.0"
		resp["id"] = req.ID
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

// accountsResult is a getMultipleAccounts response with one lamports-only account.
func accountsResult(lamports int) map[string]any {
	return map[string]any{
		"result": map[string]any{
			"value": []any{map[string]any{"lamports": lamports, "owner": "o", "data": []string{"", "base64"}}},
		},
	}
}

func TestHTTPClient_GetMultipleAccounts(t *testing.T) {
	server := rpcServer(t, "getMultipleAccounts", func(req rpcRequest) map[string]any {
		keys, _ := req.Params[0].([]any)
		assert.Len(t, keys, 2)
		cfg, ok := req.Params[1].(map[string]any)
		if assert.True(t, ok) {
			assert.Equal(t, "base64", cfg["encoding"])
			assert.Equal(t, "confirmed", cfg["commitment"])
		}
		return map[string]any{
			"result": map[string]any{
				"value": []any{
					map[string]any{"lamports": 5, "owner": "o", "data": []string{"AAAA", "base64"}},
					nil,
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	infos, err := client.GetMultipleAccounts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.NotNil(t, infos[0])
	assert.Equal(t, "AAAA", infos[0].Data)
	assert.Nil(t, infos[1])
}

func TestHTTPClient_WithCommitment(t *testing.T) {
	server := rpcServer(t, "getMultipleAccounts", func(req rpcRequest) map[string]any {
		cfg, _ := req.Params[1].(map[string]any)
		assert.Equal(t, "finalized", cfg["commitment"])
		return accountsResult(1)
	})

	client := NewHTTPClient(server.URL, WithCommitment("finalized"))
	_, err := client.GetMultipleAccounts(context.Background(), []string{"a"})
	require.NoError(t, err)
}

func TestHTTPClient_GetMultipleAccounts_Limits(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1")

	infos, err := client.GetMultipleAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, infos)

	_, err = client.GetMultipleAccounts(context.Background(), make([]string, MaxMultipleAccounts+1))
	assert.Error(t, err)
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		resp := accountsResult(999)
		resp["jsonrpc"] = "2.0"
		resp["id"] = req.ID
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	infos, err := client.GetMultipleAccounts(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, uint64(999), infos[0].Lamports)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	_, err := client.GetMultipleAccounts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := rpcServer(t, "", func(rpcRequest) map[string]any {
		return map[string]any{"error": map[string]any{"code": -32600, "message": "Invalid Request"}}
	})

	client := NewHTTPClient(server.URL)
	_, err := client.GetMultipleAccounts(context.Background(), []string{"a"})
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)
}

func TestHTTPClient_RateLimit(t *testing.T) {
	server := rpcServer(t, "getMultipleAccounts", func(rpcRequest) map[string]any {
		return accountsResult(1)
	})

	client := NewHTTPClient(server.URL, WithRateLimit(20, 1))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.GetMultipleAccounts(context.Background(), []string{"a"})
		require.NoError(t, err)
	}
	// burst 1 at 20 rps: the 2nd and 3rd calls each wait ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetMultipleAccounts(ctx, []string{"a"})
	assert.Error(t, err)
}

func TestHTTPClient_WithTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClient(server.URL, WithTimeout(20*time.Millisecond), WithMaxRetries(0))
	start := time.Now()
	_, err := client.GetMultipleAccounts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
