package localSigner

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// LocalSigner signs with private key material held in process.
type LocalSigner struct {
	logger *zap.Logger
}

var _ signer.ISigner = (*LocalSigner)(nil)

func NewLocalSigner(logger *zap.Logger) *LocalSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSigner{logger: logger}
}

func (ls *LocalSigner) Sign(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error) {
	if err := ctx.Err(); err != nil {
		return nil, authErrors.NewSigningError(addressOf(key), "context done", err)
	}
	if !key.HasPrivateKey() {
		return nil, authErrors.NewSigningError(addressOf(key), "local signer", authErrors.ErrMissingPrivateKey)
	}

	privateKey, err := crypto.ToECDSA(key.PrivateKey)
	if err != nil {
		return nil, authErrors.NewSigningError(addressOf(key), err.Error(), authErrors.ErrMalformedPrivateKey)
	}

	derived := crypto.PubkeyToAddress(privateKey.PublicKey)
	if derived != key.Address {
		return nil, authErrors.NewSigningError(addressOf(key),
			fmt.Sprintf("private key belongs to %s", derived.Hex()),
			authErrors.ErrAddressMismatch,
		)
	}

	// crypto.Sign returns [R || S || V] with V in {0, 1}
	raw, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return nil, authErrors.NewSigningError(addressOf(key), "ecdsa sign", err)
	}

	sig, err := signature.FromCompact(raw)
	if err != nil {
		return nil, err
	}

	ls.logger.Debug("Signed digest with local key",
		zap.String("address", key.Address.Hex()),
		zap.String("digest", digest.Hex()),
	)
	return sig, nil
}

func addressOf(key *types.KeyMaterial) string {
	if key == nil {
		return ""
	}
	return key.Address.Hex()
}
