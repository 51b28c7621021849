package web3Signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"go.uber.org/zap"
)

// Web3Signer signs digests with keys held by a Web3Signer service, so the
// application key never has to be on the host.
type Web3Signer struct {
	client web3signer.IWeb3Signer
	logger *zap.Logger
}

var _ signer.ISigner = (*Web3Signer)(nil)

func NewWeb3Signer(client web3signer.IWeb3Signer, logger *zap.Logger) *Web3Signer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Web3Signer{
		client: client,
		logger: logger,
	}
}

func (w *Web3Signer) Sign(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error) {
	if key == nil {
		return nil, authErrors.NewSigningError("", "web3signer", authErrors.ErrMissingPrivateKey)
	}
	address := key.Address.Hex()

	identifier := key.KeyID
	if identifier == "" {
		identifier = address
	}

	sigHex, err := w.client.SignRaw(ctx, identifier, digest[:])
	if err != nil {
		w.logger.Sugar().Warnw("web3signer signing failed",
			"identifier", identifier,
			"error", err,
		)
		if errors.Is(err, web3signer.ErrUnavailable) || ctx.Err() != nil {
			return nil, authErrors.NewSigningError(address, err.Error(), authErrors.ErrRemoteSignerUnavailable)
		}
		return nil, authErrors.NewSigningError(address, err.Error(), authErrors.ErrRemoteSignerDeclined)
	}

	raw, err := signature.DecodeHex(sigHex)
	if err != nil {
		return nil, authErrors.NewSigningError(address, "malformed signature from web3signer", authErrors.ErrRemoteSignerDeclined)
	}
	sig, err := signature.FromCompact(raw)
	if err != nil {
		return nil, authErrors.NewSigningError(address, "malformed signature from web3signer", authErrors.ErrRemoteSignerDeclined)
	}

	encoded, err := signature.Encode(sig)
	if err != nil {
		return nil, err
	}
	recovered, err := signature.RecoverAddress(digest[:], encoded[:])
	if err != nil || recovered != key.Address {
		return nil, authErrors.NewSigningError(address,
			fmt.Sprintf("web3signer key %s did not sign for this address", identifier),
			authErrors.ErrAddressMismatch,
		)
	}

	w.logger.Sugar().Debugw("Signed digest with web3signer",
		"identifier", identifier,
		"digest", digest.Hex(),
	)
	return sig, nil
}
