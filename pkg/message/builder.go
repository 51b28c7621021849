package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Format selects how business fields and the header are laid out.
type Format string

const (
	// FormatMessage puts business fields beside "header" in one object.
	FormatMessage Format = "message"
	// FormatHeaderOnly sends {"header": ..., "message": <type>} and nothing else.
	FormatHeaderOnly Format = "header"
)

const (
	headerKey      = "header"
	messageTypeKey = "message"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatMessage:
		return FormatMessage, nil
	case FormatHeaderOnly:
		return FormatHeaderOnly, nil
	default:
		return "", fmt.Errorf("unsupported message format: %s", s)
	}
}

type BuilderConfig struct {
	AppHandle string
	Version   string
	Crypto    string
	Format    Format
}

type Builder struct {
	config    BuilderConfig
	logger    *zap.Logger
	now       func() time.Time
	reference func() string
}

type Option func(*Builder)

func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func WithReferenceGenerator(gen func() string) Option {
	return func(b *Builder) { b.reference = gen }
}

func NewBuilder(cfg BuilderConfig, logger *zap.Logger, opts ...Option) (*Builder, error) {
	if cfg.AppHandle == "" {
		return nil, fmt.Errorf("app handle is required")
	}
	if cfg.Version == "" {
		cfg.Version = types.DefaultProtocolVersion
	}
	if cfg.Crypto == "" {
		cfg.Crypto = types.CryptoETH
	}
	format, err := ParseFormat(string(cfg.Format))
	if err != nil {
		return nil, err
	}
	cfg.Format = format
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Builder{
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		reference: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Builder) Format() Format {
	return b.config.Format
}

func (b *Builder) AppHandle() string {
	return b.config.AppHandle
}

// Build stamps a fresh header onto fields and serializes the result once.
// fields must marshal to a JSON object (or be nil) and must not carry its own
// "header" key. In FormatHeaderOnly, only the "message" field of fields is kept.
func (b *Builder) Build(userHandle *string, fields any) (CanonicalMessage, error) {
	header := types.Header{
		Reference:  b.reference(),
		Created:    b.now().Unix(),
		AuthHandle: b.config.AppHandle,
		Version:    b.config.Version,
		Crypto:     b.config.Crypto,
	}
	if userHandle != nil {
		handle := *userHandle
		header.UserHandle = &handle
	}

	body, err := decodeFields(fields)
	if err != nil {
		return CanonicalMessage{}, err
	}
	if _, exists := body[headerKey]; exists {
		return CanonicalMessage{}, authErrors.NewSerializationError("business fields must not contain a header", nil)
	}

	if b.config.Format == FormatHeaderOnly {
		kept := map[string]json.RawMessage{}
		if msgType, ok := body[messageTypeKey]; ok {
			kept[messageTypeKey] = msgType
		}
		body = kept
	}

	headerRaw, err := json.Marshal(header)
	if err != nil {
		return CanonicalMessage{}, authErrors.NewSerializationError("marshal header", err)
	}
	body[headerKey] = headerRaw

	// map keys marshal in sorted order, so the layout is stable
	raw, err := json.Marshal(body)
	if err != nil {
		return CanonicalMessage{}, authErrors.NewSerializationError("marshal message", err)
	}

	b.logger.Debug("Built canonical message",
		zap.String("reference", header.Reference),
		zap.Int64("created", header.Created),
		zap.String("format", string(b.config.Format)),
		zap.Int("length", len(raw)),
	)

	return CanonicalMessage{raw: raw, header: header}, nil
}

func decodeFields(fields any) (map[string]json.RawMessage, error) {
	body := map[string]json.RawMessage{}
	if fields == nil {
		return body, nil
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, authErrors.NewSerializationError("marshal business fields", err)
	}
	if bytes.Equal(encoded, []byte("null")) {
		return body, nil
	}

	if err := json.Unmarshal(encoded, &body); err != nil {
		return nil, authErrors.NewSerializationError("business fields must serialize to a JSON object", err)
	}
	return body, nil
}
