// Package gateway exposes the Sila gateway endpoints on top of the message
// builder, the authenticator and the transport. Each endpoint builds one
// canonical message, signs it and sends exactly those bytes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Layr-Labs/sila-gateway-go/pkg/auth"
	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/config"
	"github.com/Layr-Labs/sila-gateway-go/pkg/message"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/transport"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"go.uber.org/zap"
)

// Envelope holds the fields every gateway response carries.
type Envelope struct {
	Success        bool         `json:"success"`
	Status         types.Status `json:"status"`
	Message        string       `json:"message,omitempty"`
	Reference      string       `json:"reference,omitempty"`
	ResponseTimeMs string       `json:"response_time_ms,omitempty"`
}

func (e Envelope) Failed() bool {
	return e.Status == types.StatusFailure || (e.Status == "" && !e.Success)
}

// Call describes one signed gateway request.
type Call struct {
	Path       string
	UserHandle *string
	Fields     any
	// UserKey signs as the end user. Nil means app signature only.
	UserKey *types.KeyMaterial
	// RequireUser rejects the call before building when UserKey is nil.
	RequireUser bool
	// Retry allows resending when the request never reached the gateway.
	// Only set it for reads; mutating calls are sent once.
	Retry bool
}

type Client struct {
	config        *config.GatewayConfig
	builder       *message.Builder
	authenticator auth.IAuthenticator
	transport     *transport.Client
	appKey        *types.KeyMaterial
	logger        *zap.Logger
}

type Option func(*clientOptions)

type clientOptions struct {
	builderOpts []message.Option
	transport   *transport.Client
}

// WithBuilderOptions passes options through to the message builder.
func WithBuilderOptions(opts ...message.Option) Option {
	return func(o *clientOptions) { o.builderOpts = append(o.builderOpts, opts...) }
}

func WithTransport(t *transport.Client) Option {
	return func(o *clientOptions) { o.transport = t }
}

// NewClient wires a gateway client from cfg. s signs for both the
// application key and any user keys passed to individual calls.
func NewClient(cfg *config.GatewayConfig, s signer.ISigner, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gateway config is required")
	}
	if s == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	builder, err := message.NewBuilder(message.BuilderConfig{
		AppHandle: cfg.AppHandle,
		Version:   cfg.ProtocolVersion,
		Crypto:    types.CryptoETH,
		Format:    message.Format(cfg.MessageFormat),
	}, logger, o.builderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create message builder: %w", err)
	}

	appKey, err := AppKeyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	t := o.transport
	if t == nil {
		t = transport.NewClient(&transport.ClientConfig{
			Timeout:           cfg.RequestTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            logger,
		})
	}

	return &Client{
		config:        cfg,
		builder:       builder,
		authenticator: auth.NewAuthenticator(s, logger),
		transport:     t,
		appKey:        appKey,
		logger:        logger,
	}, nil
}

// AppKeyFromConfig returns the application key material. The private key is
// only populated for the local signer; remote signers address the key by id.
func AppKeyFromConfig(cfg *config.GatewayConfig) (*types.KeyMaterial, error) {
	params := &types.KeyParams{Address: cfg.AppAddress}
	switch cfg.SignerType {
	case config.SignerTypeLocal:
		params.PrivateKey = &cfg.AppPrivateKey
	case config.SignerTypeAWSKMS:
		if cfg.AWSKMS != nil {
			params.KeyID = cfg.AWSKMS.KeyId
		}
	case config.SignerTypeWeb3Signer:
		if cfg.RemoteSigner != nil {
			params.KeyID = cfg.RemoteSigner.PublicKey
			if params.KeyID == "" {
				params.KeyID = cfg.RemoteSigner.FromAddress
			}
		}
	}
	return params.ToKeyMaterial()
}

func (c *Client) AppAddress() string {
	return c.appKey.Address.Hex()
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.config.Gateway, "/") + "/" + strings.TrimLeft(path, "/")
}

// Prepare builds and signs a call without sending it.
func (c *Client) Prepare(ctx context.Context, call *Call) (*auth.SignedRequest, error) {
	if call.RequireUser && call.UserKey == nil {
		return nil, authErrors.NewSigningError("", fmt.Sprintf("%s requires a user signature", call.Path), authErrors.ErrMissingPrivateKey)
	}

	msg, err := c.builder.Build(call.UserHandle, call.Fields)
	if err != nil {
		return nil, err
	}

	return c.authenticator.Authenticate(ctx, msg, c.appKey, call.UserKey)
}

// Do signs and sends call, then decodes the reply into out. A FAILURE reply
// is logged and decoded like any other; only transport and decode problems
// return an error.
func (c *Client) Do(ctx context.Context, call *Call, out any) error {
	req, err := c.Prepare(ctx, call)
	if err != nil {
		return err
	}

	var sendOpts []transport.SendOption
	if call.Retry {
		sendOpts = append(sendOpts, transport.WithRetry())
	}
	resp, err := c.transport.Send(ctx, c.endpoint(call.Path), req, sendOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", call.Path, err)
	}

	return c.decode(call.Path, req.Message.Reference(), resp, out)
}

func (c *Client) decode(path string, reference string, resp *transport.Response, out any) error {
	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		c.logger.Sugar().Errorw("Failed to decode gateway response",
			"path", path,
			"statusCode", resp.StatusCode,
			"body", string(resp.Body),
		)
		return fmt.Errorf("%s: failed to decode response (status %d): %w", path, resp.StatusCode, err)
	}
	if env.Failed() {
		c.logger.Sugar().Warnw("Gateway reported failure",
			"path", path,
			"reference", reference,
			"statusCode", resp.StatusCode,
			"message", env.Message,
		)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	return nil
}
