package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenFunc func() (string, error)

func (f tokenFunc) Token() (string, error) { return f() }

// stubGraph answers every request with status and body and counts hits.
func stubGraph(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("request-id", "rid-42")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func TestGetJSON_SendsBearerAndDecodes(t *testing.T) {
	var seen http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		assert.Equal(t, "/sites/root/drives", r.URL.Path)
		fmt.Fprint(w, `{"value":[{"id":"D1","name":"Documents"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), StaticToken("graph-access"), slog.Default(), "spwalk-test")

	var out drivesListResponse
	require.NoError(t, c.getJSON(context.Background(), "/sites/root/drives", &out))

	require.NotNil(t, out.Value)
	require.Len(t, *out.Value, 1)
	assert.Equal(t, "Bearer graph-access", seen.Get("Authorization"))
	assert.Equal(t, "spwalk-test", seen.Get("User-Agent"))
	assert.Equal(t, "application/json", seen.Get("Accept"))
}

func TestGetJSON_MalformedBody(t *testing.T) {
	srv, _ := stubGraph(t, http.StatusOK, `{"value":[`)

	c := NewClient(srv.URL, srv.Client(), StaticToken("x"), slog.Default(), "")

	var out drivesListResponse
	err := c.getJSON(context.Background(), "/sites/root/drives", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response from /sites/root/drives")
}

func TestDo_StatusSentinels(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusServiceUnavailable, ErrServerError},
		{http.StatusGone, ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, hits := stubGraph(t, tt.status, `{"error":{"code":"x"}}`)

			c := NewClient(srv.URL, srv.Client(), StaticToken("x"), slog.Default(), "")
			_, err := c.Do(context.Background(), http.MethodGet, "/sites/root/drives/D1/items/root/children", nil)

			require.ErrorIs(t, err, tt.sentinel)

			var ge *GraphError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.status, ge.StatusCode)
			assert.Equal(t, "rid-42", ge.RequestID)
			assert.Equal(t, srv.URL+"/sites/root/drives/D1/items/root/children", ge.URL)
			assert.Contains(t, ge.Error(), srv.URL+"/sites/root/drives/D1/items/root/children")
			assert.JSONEq(t, `{"error":{"code":"x"}}`, ge.Message)

			// Failures are returned as-is, never retried.
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestDo_TokenFailureSkipsRequest(t *testing.T) {
	srv, hits := stubGraph(t, http.StatusOK, `{}`)

	c := NewClient(srv.URL, srv.Client(), tokenFunc(func() (string, error) {
		return "", errors.New("expired")
	}), slog.Default(), "")

	_, err := c.Do(context.Background(), http.MethodGet, "/sites/root/drives", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
	assert.Zero(t, hits.Load())
}

func TestDo_CanceledContext(t *testing.T) {
	srv, _ := stubGraph(t, http.StatusOK, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, srv.Client(), StaticToken("x"), slog.Default(), "")
	_, err := c.Do(ctx, http.MethodGet, "/sites/root/drives", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_FillsDefaults(t *testing.T) {
	c := NewClient(DefaultBaseURL, nil, StaticToken("x"), nil, "")

	assert.Same(t, http.DefaultClient, c.httpClient)
	assert.NotNil(t, c.logger)
	assert.Equal(t, defaultUserAgent, c.userAgent)
}
