package signer

import (
	"context"

	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

// ISigner produces a recoverable secp256k1 signature over a digest on behalf
// of the key holder described by key. Implementations may block on a remote
// service and must honor ctx. Failures are returned as *authErrors.SigningError.
//
// Signers hold no per-call state and are safe for concurrent use.
type ISigner interface {
	Sign(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error)
}

// SignerFunc adapts a plain function to ISigner.
type SignerFunc func(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error)

func (f SignerFunc) Sign(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error) {
	return f(ctx, key, digest)
}
