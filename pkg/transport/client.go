package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Layr-Labs/sila-gateway-go/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	HeaderUserSignature = "usersignature"
	HeaderAuthSignature = "authsignature"
)

// RetryConfig configures retry behavior. Retries resend the same signed bytes;
// nothing is rebuilt or re-signed. Only failures where the gateway cannot have
// acted on the request are retried: the connection was never made, or the
// gateway answered 503.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings for calls that opt in
// with WithRetry.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      2 * time.Second,
	BackoffMultiple: 2.0,
}

// SendOption adjusts a single Send.
type SendOption func(*sendOptions)

type sendOptions struct {
	retry bool
}

// WithRetry lets Send retry undelivered attempts. Without it a signed request
// is attempted exactly once.
func WithRetry() SendOption {
	return func(o *sendOptions) { o.retry = true }
}

type ClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             RetryConfig
	Logger            *zap.Logger
}

// Response is the raw gateway reply.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends signed requests to the gateway.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryConfig RetryConfig
	logger      *zap.Logger
}

func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, burst),
		retryConfig: retry,
		logger:      logger,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// Send posts the canonical bytes of req to url with the signature headers.
// usersignature is omitted when there is no user signature. The request is
// attempted once unless WithRetry is passed.
func (c *Client) Send(ctx context.Context, url string, req *auth.SignedRequest, opts ...SendOption) (*Response, error) {
	if req == nil || req.Message.IsZero() || req.Signatures.AppSignature == "" {
		return nil, fmt.Errorf("refusing to send an unsigned request")
	}

	headers := http.Header{}
	headers.Set(HeaderAuthSignature, req.Signatures.AppSignature)
	if req.Signatures.UserSignature != nil {
		headers.Set(HeaderUserSignature, *req.Signatures.UserSignature)
	}

	o := &sendOptions{}
	for _, opt := range opts {
		opt(o)
	}
	attempts := 1
	if o.retry {
		attempts = c.retryConfig.MaxAttempts
	}
	return c.post(ctx, url, req.Message.Bytes(), headers, attempts)
}

// Post sends an unsigned JSON body, for the few gateway calls that take none.
// These are reads, so undelivered attempts are retried.
func (c *Client) Post(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.post(ctx, url, body, http.Header{}, c.retryConfig.MaxAttempts)
}

func (c *Client) post(ctx context.Context, url string, body []byte, headers http.Header, attempts int) (*Response, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	backoff := c.retryConfig.InitialBackoff

	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.doOnce(ctx, url, body, headers)
		if err == nil && (resp.StatusCode != http.StatusServiceUnavailable || attempt == attempts-1) {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}

		c.logger.Sugar().Warnw("Gateway request failed",
			"url", url,
			"attempt", attempt+1,
			"error", lastErr,
		)

		if err != nil && !notDelivered(err) {
			break
		}
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}
	}

	return nil, fmt.Errorf("failed to send request to %s: %w", url, lastErr)
}

// notDelivered reports whether err happened before any byte of the request
// could reach the gateway. Timeouts and resets after connecting do not count.
func notDelivered(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

func (c *Client) doOnce(ctx context.Context, url string, body []byte, headers http.Header) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
