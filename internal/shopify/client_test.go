package shopify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_StopsRetryingOnSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(WithRetryPolicy(time.Millisecond, 5))
	resp, err := client.Do(context.Background(), Request{Method: "GET", URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "a 200 on the second attempt must stop retries")
}

func TestDo_BoundedAttemptsOnPersistent429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("throttled"))
	}))
	defer server.Close()

	client := NewClient(WithRetryPolicy(time.Millisecond, 3))
	_, err := client.Do(context.Background(), Request{Method: "GET", URL: server.URL})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, "throttled", upstream.Body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "at most maxAttempts requests")
}

func TestDo_BackoffDelaysGrow(t *testing.T) {
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	base := 40 * time.Millisecond
	client := NewClient(WithRetryPolicy(base, 3))
	_, err := client.Do(context.Background(), Request{Method: "GET", URL: server.URL})
	require.Error(t, err)
	require.Len(t, stamps, 3)

	// attempt n is delayed by at least base * 2^n (jitter only adds).
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), base)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 2*base)
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":"already exists"}`))
	}))
	defer server.Close()

	client := NewClient(WithRetryPolicy(time.Millisecond, 3))
	_, err := client.Do(context.Background(), Request{Method: "POST", URL: server.URL})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx (non-429) must not be retried")
}

func TestDo_NoRetryOptOut(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(WithRetryPolicy(time.Millisecond, 3))
	_, err := client.Do(context.Background(), Request{Method: "POST", URL: server.URL, NoRetry: true})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_PreemptiveDelayOnHighBucketUtilization(t *testing.T) {
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.Header().Set(callLimitHeader, "40/40")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithRetryPolicy(time.Millisecond, 1))
	ctx := context.Background()

	_, err := client.Do(ctx, Request{Method: "GET", URL: server.URL})
	require.NoError(t, err)
	_, err = client.Do(ctx, Request{Method: "GET", URL: server.URL})
	require.NoError(t, err)

	require.Len(t, stamps, 2)
	// utilization 1.0 -> (1.0 - 0.8) * 1000ms = 200ms pre-emptive delay.
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 150*time.Millisecond)
}

func TestDo_ContextCancelAbortsBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithRetryPolicy(10*time.Second, 3))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Do(ctx, Request{Method: "GET", URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second, "cancel must not wait out the backoff")
}

func TestParseCallLimit(t *testing.T) {
	used, capacity, ok := parseCallLimit("32/40")
	require.True(t, ok)
	assert.Equal(t, 32, used)
	assert.Equal(t, 40, capacity)

	for _, bad := range []string{"", "40", "a/b", "1/0", "-1/40"} {
		_, _, ok := parseCallLimit(bad)
		assert.False(t, ok, "expected %q to be rejected", bad)
	}
}
