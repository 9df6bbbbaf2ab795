package gateway

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

func TestSign_Success(t *testing.T) {
	var captured signRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/signatures", r.URL.Path)
		require.Equal(t, "Bearer test-secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		respondWith(w, http.StatusOK, signResponse{Signature: "sig-abc"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-secret", time.Second)

	signature, err := client.Sign(context.Background(), "order-1", 238_000, "COP")
	require.NoError(t, err)
	assert.Equal(t, "sig-abc", signature)
	assert.Equal(t, "order-1", captured.OrderID)
	assert.Equal(t, int64(238_000), captured.Amount)
	assert.Equal(t, "COP", captured.Currency)
}

func TestSign_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-secret", time.Second)

	_, err := client.Sign(context.Background(), "order-1", 1_000, "COP")
	assert.ErrorIs(t, err, ErrSigningUnavailable)
}

func TestSign_EmptySignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWith(w, http.StatusOK, signResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-secret", time.Second)

	_, err := client.Sign(context.Background(), "order-1", 1_000, "COP")
	assert.ErrorIs(t, err, ErrSigningUnavailable)
}

func TestSign_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-secret", time.Second)

	for i := 0; i < 5; i++ {
		_, err := client.Sign(context.Background(), "order-1", 1_000, "COP")
		assert.Error(t, err)
	}

	_, err := client.Sign(context.Background(), "order-1", 1_000, "COP")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func respondWith(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
