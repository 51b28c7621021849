package routingSigner

import (
	"context"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

// RoutingSigner signs locally when the key carries private material and
// otherwise hands the digest to the remote signer. End-user keys usually
// arrive with private material while the application key stays remote.
type RoutingSigner struct {
	local  signer.ISigner
	remote signer.ISigner
}

var _ signer.ISigner = (*RoutingSigner)(nil)

// NewRoutingSigner builds a router. remote may be nil.
func NewRoutingSigner(local signer.ISigner, remote signer.ISigner) *RoutingSigner {
	return &RoutingSigner{local: local, remote: remote}
}

func (rs *RoutingSigner) Sign(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error) {
	if key.HasPrivateKey() {
		return rs.local.Sign(ctx, key, digest)
	}
	if rs.remote == nil {
		address := ""
		if key != nil {
			address = key.Address.Hex()
		}
		return nil, authErrors.NewSigningError(address, "no remote signer configured", authErrors.ErrMissingPrivateKey)
	}
	return rs.remote.Sign(ctx, key, digest)
}
