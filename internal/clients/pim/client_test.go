package pim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pimsync/internal/clients"
	"pimsync/internal/config"
	"pimsync/internal/logger"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{
		PIMBaseURL:            baseURL,
		PIMAPIKey:             "key",
		PIMPassword:           "secret",
		PIMRateLimit:          1000,
		RetryAttempts:         1,
		RequestTimeoutSeconds: 5,
	}
	return NewClient(cfg, logger.New("error"))
}

func authResponse(token string) map[string]interface{} {
	return map[string]interface{}{
		"data": []map[string]string{{"access_token": token}},
	}
}

func TestAuthTokenExchangedOnceAndReused(t *testing.T) {
	var authCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/auth-key":
			atomic.AddInt64(&authCalls, 1)
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "key", creds["api_key"])
			assert.Equal(t, "secret", creds["api_password"])
			json.NewEncoder(w).Encode(authResponse("tok-1"))
		case "/products/p-1/variants":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchVariants(context.Background(), "p-1")
	require.NoError(t, err)
	_, err = client.FetchVariants(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&authCalls))
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	var authCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/auth-key":
			n := atomic.AddInt64(&authCalls, 1)
			token := "tok-1"
			if n > 1 {
				token = "tok-2"
			}
			json.NewEncoder(w).Encode(authResponse(token))
		case "/products/p-1/variants":
			if r.Header.Get("Authorization") == "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
		}
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchVariants(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&authCalls))
}

func TestFetchPageSendsPaginationAndModifiedFilter(t *testing.T) {
	since := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/auth-key":
			json.NewEncoder(w).Encode(authResponse("tok"))
		case "/products/search":
			assert.Equal(t, http.MethodPost, r.Method)
			var payload struct {
				Pagination map[string]int        `json:"pagination"`
				Filters    [][]map[string]string `json:"filters"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, 2, payload.Pagination["page"])
			assert.Equal(t, 2, payload.Pagination["page_size"])
			require.Len(t, payload.Filters, 1)
			require.Len(t, payload.Filters[0], 1)
			assert.Equal(t, "modified", payload.Filters[0][0]["field"])
			assert.Equal(t, "gt", payload.Filters[0][0]["operator"])
			assert.Equal(t, "2026-08-15", payload.Filters[0][0]["value"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "p-1", "sku": "WID-1", "label": "Widget", "price": 19.99, "status": "active", "modified": "2026-08-20 09:00:00"},
					{"id": "p-2", "sku": "WID-2", "label": "Gadget", "status": "archived"},
				},
			})
		}
	}))
	defer server.Close()

	products, hasMore, err := newTestClient(server.URL).FetchPage(context.Background(), 2, 2, &since)
	require.NoError(t, err)
	assert.True(t, hasMore, "full page means more may remain")
	require.Len(t, products, 2)

	assert.Equal(t, "p-1", products[0].ID)
	assert.True(t, products[0].Active)
	require.NotNil(t, products[0].Price)
	assert.Equal(t, 19.99, *products[0].Price)
	require.NotNil(t, products[0].ModifiedAt)
	assert.Equal(t, 2026, products[0].ModifiedAt.Year())

	assert.False(t, products[1].Active)
	assert.Nil(t, products[1].ModifiedAt)
}

func TestFetchPageShortPageEndsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/auth-key":
			json.NewEncoder(w).Encode(authResponse("tok"))
		case "/products/search":
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			_, hasFilters := payload["filters"]
			assert.False(t, hasFilters, "full sync sends no modified filter")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"id": "p-1", "sku": "WID-1"}},
			})
		}
	}))
	defer server.Close()

	products, hasMore, err := newTestClient(server.URL).FetchPage(context.Background(), 1, 50, nil)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, products, 1)
}

func TestFetchDetailsUnwrapsFirstRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/auth-key":
			json.NewEncoder(w).Encode(authResponse("tok"))
		case "/products/p-1":
			assert.Equal(t, "all", r.URL.Query().Get("attributes"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"attributes": map[string]interface{}{"color": "red"}}},
			})
		}
	}))
	defer server.Close()

	details, err := newTestClient(server.URL).FetchDetails(context.Background(), "p-1")
	require.NoError(t, err)
	attrs, ok := details["attributes"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "red", attrs["color"])
}

func TestAuthFailureSurfacesAsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchVariants(context.Background(), "p-1")
	require.Error(t, err)
	assert.True(t, clients.IsAuthError(err))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var searchCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/api/auth-key":
			json.NewEncoder(w).Encode(authResponse("tok"))
		case "/products/search":
			if atomic.AddInt64(&searchCalls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
		}
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).FetchPage(context.Background(), 1, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&searchCalls))
}
