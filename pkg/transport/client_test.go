package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layr-Labs/sila-gateway-go/pkg/auth"
	"github.com/Layr-Labs/sila-gateway-go/pkg/message"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type capturedRequest struct {
	body          []byte
	userSignature string
	hasUserSig    bool
	authSignature string
	contentType   string
}

func newCapturingServer(t *testing.T, statuses ...int) (*httptest.Server, func() []capturedRequest) {
	var (
		mu       sync.Mutex
		captured []capturedRequest
		calls    atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, hasUser := r.Header[http.CanonicalHeaderKey(HeaderUserSignature)]
		mu.Lock()
		captured = append(captured, capturedRequest{
			body:          body,
			userSignature: r.Header.Get(HeaderUserSignature),
			hasUserSig:    hasUser,
			authSignature: r.Header.Get(HeaderAuthSignature),
			contentType:   r.Header.Get("Content-Type"),
		})
		mu.Unlock()

		n := int(calls.Add(1)) - 1
		status := http.StatusOK
		if n < len(statuses) {
			status = statuses[n]
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"success":true,"status":"SUCCESS"}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func signedRequest(userSig *string) *auth.SignedRequest {
	msg := message.FromBytes([]byte(`{"amount":100,"header":{"reference":"r"}}`))
	return &auth.SignedRequest{
		Message: msg,
		Digest:  msg.Digest(),
		Signatures: types.SignatureSet{
			AppSignature:  "aa1b",
			UserSignature: userSig,
		},
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffMultiple: 2}
}

func Test_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("sends canonical bytes with both headers", func(t *testing.T) {
		srv, captured := newCapturingServer(t)
		c := NewClient(&ClientConfig{Logger: zaptest.NewLogger(t)})

		userSig := "bb1c"
		req := signedRequest(&userSig)
		resp, err := c.Send(ctx, srv.URL+"/transfer_sila", req)
		require.NoError(t, err)
		assert.True(t, resp.OK())

		got := captured()
		require.Len(t, got, 1)
		assert.Equal(t, req.Message.Bytes(), got[0].body)
		assert.Equal(t, "aa1b", got[0].authSignature)
		assert.Equal(t, "bb1c", got[0].userSignature)
		assert.Equal(t, "application/json", got[0].contentType)
	})

	t.Run("omits usersignature when absent", func(t *testing.T) {
		srv, captured := newCapturingServer(t)
		c := NewClient(&ClientConfig{Logger: zaptest.NewLogger(t)})

		_, err := c.Send(ctx, srv.URL, signedRequest(nil))
		require.NoError(t, err)

		got := captured()
		require.Len(t, got, 1)
		assert.False(t, got[0].hasUserSig)
	})

	t.Run("refuses unsigned requests", func(t *testing.T) {
		srv, captured := newCapturingServer(t)
		c := NewClient(nil)

		_, err := c.Send(ctx, srv.URL, nil)
		require.Error(t, err)

		unsigned := signedRequest(nil)
		unsigned.Signatures.AppSignature = ""
		_, err = c.Send(ctx, srv.URL, unsigned)
		require.Error(t, err)

		assert.Empty(t, captured())
	})

	t.Run("sends once by default even when the gateway is unavailable", func(t *testing.T) {
		srv, captured := newCapturingServer(t, http.StatusServiceUnavailable)
		c := NewClient(&ClientConfig{Retry: fastRetry(), Logger: zaptest.NewLogger(t)})

		resp, err := c.Send(ctx, srv.URL, signedRequest(nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Len(t, captured(), 1)
	})

	t.Run("retries unavailable with identical bytes when asked", func(t *testing.T) {
		srv, captured := newCapturingServer(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
		c := NewClient(&ClientConfig{Retry: fastRetry(), Logger: zaptest.NewLogger(t)})

		resp, err := c.Send(ctx, srv.URL, signedRequest(nil), WithRetry())
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		got := captured()
		require.Len(t, got, 3)
		assert.Equal(t, got[0].body, got[2].body)
		assert.Equal(t, got[0].authSignature, got[2].authSignature)
	})

	t.Run("does not retry other server errors", func(t *testing.T) {
		srv, captured := newCapturingServer(t, http.StatusInternalServerError, http.StatusBadGateway)
		c := NewClient(&ClientConfig{Retry: fastRetry()})

		resp, err := c.Send(ctx, srv.URL, signedRequest(nil), WithRetry())
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Len(t, captured(), 1)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		srv, captured := newCapturingServer(t, http.StatusBadRequest)
		c := NewClient(&ClientConfig{Retry: fastRetry()})

		resp, err := c.Send(ctx, srv.URL, signedRequest(nil), WithRetry())
		require.NoError(t, err)
		assert.False(t, resp.OK())
		assert.Len(t, captured(), 1)
	})

	t.Run("returns the last unavailable reply after max attempts", func(t *testing.T) {
		srv, captured := newCapturingServer(t, 503, 503, 503)
		c := NewClient(&ClientConfig{Retry: fastRetry()})

		resp, err := c.Send(ctx, srv.URL, signedRequest(nil), WithRetry())
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Len(t, captured(), 3)
	})

	t.Run("delivers a slow request exactly once", func(t *testing.T) {
		var deliveries atomic.Int32
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.ReadAll(r.Body)
			deliveries.Add(1)
			<-release
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		c := NewClient(&ClientConfig{Timeout: 50 * time.Millisecond, Retry: fastRetry()})

		_, err := c.Send(ctx, srv.URL, signedRequest(nil), WithRetry())
		require.Error(t, err)

		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int32(1), deliveries.Load())
	})

	t.Run("retries when the connection is refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := NewClient(&ClientConfig{Retry: fastRetry(), Logger: zaptest.NewLogger(t)})

		_, err := c.Send(ctx, url, signedRequest(nil), WithRetry())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func Test_notDelivered(t *testing.T) {
	assert.True(t, notDelivered(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.True(t, notDelivered(&net.DNSError{Err: "no such host", Name: "gateway.invalid"}))
	assert.False(t, notDelivered(&net.OpError{Op: "read", Err: errors.New("connection reset by peer")}))
	assert.False(t, notDelivered(context.DeadlineExceeded))
}

func Test_Post(t *testing.T) {
	srv, captured := newCapturingServer(t)
	c := NewClient(&ClientConfig{RequestsPerSecond: 100})

	resp, err := c.Post(context.Background(), srv.URL, []byte(`{"address":"0x1"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"status":"SUCCESS"}`, string(resp.Body))

	got := captured()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].authSignature)
}
