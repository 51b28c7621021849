package web3signer

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Layr-Labs/sila-gateway-go/pkg/config"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the service could not be reached at all.
var ErrUnavailable = errors.New("web3signer unavailable")

// StatusError is returned when the service answered with a non 2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("web3signer returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseUrl string
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseUrl: "http://localhost:9000",
		Timeout: 10 * time.Second,
	}
}

type Client struct {
	config     *Config
	logger     *zap.Logger
	httpClient *http.Client
	requestId  atomic.Int64
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseUrl == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewWeb3SignerClientFromRemoteSignerConfig builds a client, configuring
// mutual TLS when the remote signer config carries certificates.
func NewWeb3SignerClientFromRemoteSignerConfig(rsc *config.RemoteSignerConfig, logger *zap.Logger) (*Client, error) {
	if rsc == nil {
		return nil, fmt.Errorf("remote signer config cannot be nil")
	}
	client, err := NewClient(&Config{BaseUrl: rsc.Url, Timeout: DefaultConfig().Timeout}, logger)
	if err != nil {
		return nil, err
	}

	if rsc.CACert == "" && rsc.Cert == "" && rsc.Key == "" {
		return client, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if rsc.CACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(rsc.CACert)) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}
	if rsc.Cert != "" || rsc.Key != "" {
		cert, err := tls.X509KeyPair([]byte(rsc.Cert), []byte(rsc.Key))
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	client.SetHttpClient(&http.Client{
		Timeout:   DefaultConfig().Timeout,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	})
	return client, nil
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

type jsonRpcRequest struct {
	JsonRpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Id      int64         `json:"id"`
}

type jsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonRpcError   `json:"error,omitempty"`
	Id      int64           `json:"id"`
}

func (c *Client) EthAccounts(ctx context.Context) ([]string, error) {
	result, err := c.call(ctx, "eth_accounts", []interface{}{})
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode eth_accounts result: %w", err)
	}
	return accounts, nil
}

func (c *Client) ListPublicKeys(ctx context.Context) ([]string, error) {
	return c.EthAccounts(ctx)
}

func (c *Client) SignRaw(ctx context.Context, identifier string, data []byte) (string, error) {
	body, err := json.Marshal(map[string]string{"data": hexutil.Encode(data)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal sign request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/eth1/sign/%s", strings.TrimRight(c.config.BaseUrl, "/"), identifier)
	respBody, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}

	sig := strings.TrimSpace(string(respBody))
	c.logger.Sugar().Debugw("web3signer signed data",
		"identifier", identifier,
		"dataLen", len(data),
	)
	return sig, nil
}

func (c *Client) Upcheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/upcheck", strings.TrimRight(c.config.BaseUrl, "/"))
	_, err := c.do(ctx, http.MethodGet, url, nil)
	return err
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := jsonRpcRequest{
		JsonRpc: "2.0",
		Method:  method,
		Params:  params,
		Id:      c.requestId.Add(1),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	respBody, err := c.do(ctx, http.MethodPost, c.config.BaseUrl, body)
	if err != nil {
		return nil, err
	}

	var resp jsonRpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s failed with code %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

func (c *Client) do(ctx context.Context, method string, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
