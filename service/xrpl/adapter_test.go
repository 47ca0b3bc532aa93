package xrpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "r4yc85M1hwsegVGZ1pawpZPwj65SVs8PzD"

func TestRealRPCClient_AccountTx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Method string             `json:"method"`
			Params []AccountTxRequest `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "account_tx", body.Method)
		require.Len(t, body.Params, 1)
		assert.Equal(t, testAccount, body.Params[0].Account)
		assert.Equal(t, 100, body.Params[0].Limit)
		assert.JSONEq(t, `{"ledger":5,"seq":1}`, string(body.Params[0].Marker))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{
			"status":"success",
			"account":"` + testAccount + `",
			"transactions":[{"hash":"H1","close_time_iso":"2024-05-01T00:00:00Z","tx_json":{"TransactionType":"Payment","Destination":"rDest"},"meta":{"TransactionIndex":1}}],
			"marker":{"ledger":4,"seq":9}
		}}`))
	}))
	defer server.Close()

	client := NewRPCClient(server.URL, nil)
	result, err := client.AccountTx(context.Background(), AccountTxRequest{
		Account: testAccount,
		Limit:   100,
		Marker:  json.RawMessage(`{"ledger":5,"seq":1}`),
	})
	require.NoError(t, err)
	assert.True(t, result.IsSuccessful())
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "H1", result.Transactions[0].Hash)
	assert.JSONEq(t, `{"TransactionType":"Payment","Destination":"rDest"}`, string(result.Transactions[0].TxJSON))
	assert.JSONEq(t, `{"ledger":4,"seq":9}`, string(result.Marker))

	txn, ok := ParseTransaction(result.Transactions[0])
	require.True(t, ok)
	assert.Equal(t, "rDest", txn.Destination)
}

func TestRealRPCClient_OmitsEmptyMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Params []map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Params, 1)
		assert.Nil(t, body.Params[0]["marker"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"status":"success","transactions":[]}}`))
	}))
	defer server.Close()

	result, err := NewRPCClient(server.URL, nil).AccountTx(context.Background(), AccountTxRequest{Account: testAccount, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	assert.False(t, (&Page{Marker: result.Marker}).HasMore())
}

func TestRealRPCClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer server.Close()

	_, err := NewRPCClient(server.URL, nil).AccountTx(context.Background(), AccountTxRequest{Account: testAccount})
	require.Error(t, err)
}

func TestRealRPCClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRPCClient(server.URL, nil).AccountTx(ctx, AccountTxRequest{Account: testAccount})
	require.Error(t, err)
}
