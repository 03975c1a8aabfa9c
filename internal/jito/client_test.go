package jito

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayHandler func(t *testing.T, path string, req rpcRequest) interface{}

func newRelay(t *testing.T, h relayHandler) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		resp := h(t, r.URL.Path, req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_SendBundle(t *testing.T) {
	server := newRelay(t, func(t *testing.T, path string, req rpcRequest) interface{} {
		assert.Equal(t, "/api/v1/bundles", path)
		assert.Equal(t, "sendBundle", req.Method)
		require.Len(t, req.Params, 1)
		assert.Equal(t, []interface{}{"tx1"}, req.Params[0])
		return map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "2id3YC2jpUY9zbvq4ttPrrsQbSWVmapKkPJqUGKeTuuf"}
	})
	defer server.Close()

	client := NewClient(server.URL + "/api/v1/")
	id, err := client.SendBundle(context.Background(), []string{"tx1"})
	require.NoError(t, err)
	assert.Equal(t, "2id3YC2jpUY9zbvq4ttPrrsQbSWVmapKkPJqUGKeTuuf", id)
}

func TestClient_SendBundle_Rejected(t *testing.T) {
	tests := []struct {
		name string
		resp func(id uint64) interface{}
	}{
		{"rpc error", func(id uint64) interface{} {
			return map[string]interface{}{"jsonrpc": "2.0", "id": id, "error": map[string]interface{}{"code": -32602, "message": "bundle contains an expired blockhash"}}
		}},
		{"missing result", func(id uint64) interface{} {
			return map[string]interface{}{"jsonrpc": "2.0", "id": id}
		}},
		{"non-string result", func(id uint64) interface{} {
			return map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": 17}
		}},
		{"empty id", func(id uint64) interface{} {
			return map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": ""}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newRelay(t, func(t *testing.T, _ string, req rpcRequest) interface{} {
				return tt.resp(req.ID)
			})
			defer server.Close()

			_, err := NewClient(server.URL).SendBundle(context.Background(), []string{"tx"})
			assert.ErrorIs(t, err, ErrRelayRejected)
		})
	}
}

func TestClient_SendBundle_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).SendBundle(context.Background(), []string{"tx"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRelayRejected)
}

func TestClient_RandomTipAccount_Cached(t *testing.T) {
	var calls atomic.Int32
	accounts := []string{
		"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
		"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
		"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	}
	server := newRelay(t, func(t *testing.T, path string, req rpcRequest) interface{} {
		calls.Add(1)
		assert.Equal(t, "/getTipAccounts", path)
		assert.Equal(t, "getTipAccounts", req.Method)
		return map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": accounts}
	})
	defer server.Close()

	picks := []int{2, 0}
	client := NewClient(server.URL, WithPicker(func(n int) int {
		assert.Equal(t, 3, n)
		p := picks[0]
		picks = picks[1:]
		return p
	}))

	acc, err := client.RandomTipAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, accounts[2], acc)

	acc, err = client.RandomTipAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, accounts[0], acc)

	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TipAccounts_Empty(t *testing.T) {
	server := newRelay(t, func(t *testing.T, _ string, req rpcRequest) interface{} {
		return map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": []string{}}
	})
	defer server.Close()

	_, err := NewClient(server.URL).RandomTipAccount(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_GetInflightBundleStatuses(t *testing.T) {
	server := newRelay(t, func(t *testing.T, path string, req rpcRequest) interface{} {
		assert.Equal(t, "/getInflightBundleStatuses", path)
		assert.Equal(t, []interface{}{[]interface{}{"b1"}}, req.Params)
		return map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": map[string]interface{}{
			"context": map[string]interface{}{"slot": 280999028},
			"value": []interface{}{map[string]interface{}{
				"bundle_id":   "b1",
				"status":      "Landed",
				"landed_slot": 280999027,
			}},
		}}
	})
	defer server.Close()

	st, err := NewClient(server.URL).GetInflightBundleStatuses(context.Background(), []string{"b1"})
	require.NoError(t, err)
	assert.Equal(t, StatusLanded, st.Status)
	assert.Equal(t, uint64(280999027), st.Slot)
}

func TestClient_GetBundleStatuses(t *testing.T) {
	server := newRelay(t, func(t *testing.T, path string, req rpcRequest) interface{} {
		assert.Equal(t, "/getBundleStatuses", path)
		return map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": map[string]interface{}{
			"context": map[string]interface{}{"slot": 242806119},
			"value": []interface{}{map[string]interface{}{
				"bundle_id":           "b1",
				"transactions":        []string{"3bC2M9fiACSjkTXZDgeNAuQ4ScTsdKGwR42ytFdhUvikqTmBheUxfsR1fDVsM5ADCMMspuwGkdm1uKbU246x5aE3"},
				"slot":                242804011,
				"confirmation_status": "finalized",
				"err":                 map[string]interface{}{"Ok": nil},
			}},
		}}
	})
	defer server.Close()

	st, err := NewClient(server.URL).GetBundleStatuses(context.Background(), []string{"b1"})
	require.NoError(t, err)
	assert.Equal(t, StatusFinalized, st.Status)
	assert.True(t, st.Succeeded())
	require.Len(t, st.TransactionIDs, 1)
}

func TestClient_GetBundleStatuses_Unparseable(t *testing.T) {
	server := newRelay(t, func(t *testing.T, _ string, req rpcRequest) interface{} {
		return map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": map[string]interface{}{
			"value": []interface{}{nil},
		}}
	})
	defer server.Close()

	_, err := NewClient(server.URL).GetBundleStatuses(context.Background(), []string{"b1"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.True(t, isRetryable(err))
}
