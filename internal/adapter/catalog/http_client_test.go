package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/p%201", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_Success(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"success": true,
		"message": "ok",
		"data": {"id": "p 1", "name": "Mug", "price": 10.50, "imageUrl": "https://img/p1", "status": "ACTIVE"}
	}`)

	p, err := NewHTTPClient(srv.URL+"/", time.Second, nil).Product(context.Background(), "p 1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
	assert.True(t, decimal.RequireFromString("10.5").Equal(p.Price))
	assert.Equal(t, "https://img/p1", p.ImageURL)
	assert.Equal(t, "ACTIVE", p.Status)
}

func TestHTTPClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found status", http.StatusNotFound, `{"success": false, "message": "Product not found"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"success false", http.StatusOK, `{"success": false, "message": "nope"}`},
		{"missing data", http.StatusOK, `{"success": true}`},
		{"missing name", http.StatusOK, `{"success": true, "data": {"id": "p 1", "price": 1}}`},
		{"missing price", http.StatusOK, `{"success": true, "data": {"id": "p 1", "name": "Mug"}}`},
		{"negative price", http.StatusOK, `{"success": true, "data": {"id": "p 1", "name": "Mug", "price": -1}}`},
		{"not json", http.StatusOK, `<html>`},
		{"bare product", http.StatusOK, `{"id": "p 1", "name": "Mug", "price": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body)

			_, err := NewHTTPClient(srv.URL, time.Second, nil).Product(context.Background(), "p 1")
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewHTTPClient(srv.URL, 50*time.Millisecond, nil).Product(context.Background(), "p1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, time.Second, nil).Product(context.Background(), "p1")
	assert.Error(t, err)
}
