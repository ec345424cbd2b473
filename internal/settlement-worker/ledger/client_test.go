package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerdto "github.com/radieske/matka-exchange/internal/settlement-worker/ledger/dto"
)

func TestClient_Credit(t *testing.T) {
	var got ledgerdto.CreditRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ledger/credit", r.URL.Path)
		assert.Equal(t, "bet-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ledgerdto.CreditResponse{EntryID: "e1", Status: "CREDITED"})
	}))
	defer srv.Close()

	err := New(srv.URL).Credit(context.Background(), "u1", 950, "bet-1")
	require.NoError(t, err)
	assert.Equal(t, ledgerdto.CreditRequest{UserID: "u1", Amount: 950, ExternalRef: "bet-1"}, got)
}

func TestClient_CreditStatus(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantErr  bool
		rejected bool
	}{
		{"already credited", http.StatusConflict, "", false, false},
		{"duplicate status", http.StatusOK, `{"entry_id":"e1","status":"DUPLICATE"}`, false, false},
		{"unknown status", http.StatusOK, `{"entry_id":"e1","status":"PENDING"}`, true, false},
		{"ledger down", http.StatusServiceUnavailable, "", true, false},
		{"rejected", http.StatusBadRequest, `{"error":"unknown user"}`, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := New(srv.URL).Credit(context.Background(), "u1", 10, "bet-2")
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.rejected, errors.Is(err, ErrRejected))
			if tc.rejected {
				assert.Contains(t, err.Error(), "unknown user")
			}
		})
	}
}

func TestClient_CreditUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, New(url).Credit(context.Background(), "u1", 10, "bet-3"))
}
