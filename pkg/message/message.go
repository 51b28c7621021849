// Package message builds the canonical request body. The body is serialized
// once; the resulting bytes are the only input to hashing and the only thing
// sent on the wire.
package message

import (
	"encoding/json"

	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

// CanonicalMessage is an immutable serialized request body.
type CanonicalMessage struct {
	raw    []byte
	header types.Header
}

// FromBytes wraps body bytes produced elsewhere, e.g. a captured request being
// re-verified. The bytes are copied.
func FromBytes(b []byte) CanonicalMessage {
	raw := make([]byte, len(b))
	copy(raw, b)

	msg := CanonicalMessage{raw: raw}
	var envelope struct {
		Header types.Header `json:"header"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		msg.header = envelope.Header
	}
	return msg
}

// Bytes returns a copy of the body.
func (m CanonicalMessage) Bytes() []byte {
	out := make([]byte, len(m.raw))
	copy(out, m.raw)
	return out
}

func (m CanonicalMessage) String() string {
	return string(m.raw)
}

func (m CanonicalMessage) Len() int {
	return len(m.raw)
}

func (m CanonicalMessage) IsZero() bool {
	return len(m.raw) == 0
}

// Digest hashes the body. Calling it twice returns the same value.
func (m CanonicalMessage) Digest() hasher.Digest {
	return hasher.Hash(m.raw)
}

// Header returns the header the body was built with.
func (m CanonicalMessage) Header() types.Header {
	h := m.header
	if h.UserHandle != nil {
		handle := *h.UserHandle
		h.UserHandle = &handle
	}
	return h
}

func (m CanonicalMessage) Reference() string {
	return m.header.Reference
}
