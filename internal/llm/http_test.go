package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON(t *testing.T) {
	t.Run("returns the body on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL,
			map[string]string{"hello": "world"},
			map[string]string{"Authorization": "Bearer sk-test"},
			0, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad request"}`))
		}))
		defer srv.Close()

		raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, 3, discardLogger())
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, string(raw), "bad request")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, 1, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, nil, nil, 0, discardLogger())
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, status)
	})

	t.Run("respects context cancellation while waiting", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, _, err := SendJSON(ctx, srv.Client(), srv.URL, nil, nil, 5, discardLogger())
		require.Error(t, err)
		assert.Less(t, time.Since(start), 1500*time.Millisecond)
	})

	t.Run("rejects unencodable bodies", func(t *testing.T) {
		_, _, err := SendJSON(context.Background(), nil, "http://127.0.0.1:0", make(chan int), nil, 0, discardLogger())
		require.Error(t, err)
	})
}

func TestRetryableStatusCode(t *testing.T) {
	assert.True(t, retryableStatusCode(http.StatusTooManyRequests))
	assert.True(t, retryableStatusCode(http.StatusBadGateway))
	assert.True(t, retryableStatusCode(http.StatusServiceUnavailable))
	assert.True(t, retryableStatusCode(http.StatusGatewayTimeout))
	assert.False(t, retryableStatusCode(http.StatusBadRequest))
	assert.False(t, retryableStatusCode(http.StatusInternalServerError))
}
