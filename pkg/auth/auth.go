// Package auth signs a canonical message on behalf of the application and,
// when present, the end user. Both signatures cover one digest computed once
// from the exact bytes that will be sent.
package auth

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/message"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SignedRequest pairs the message with the signatures computed over it.
type SignedRequest struct {
	Message    message.CanonicalMessage
	Digest     hasher.Digest
	Signatures types.SignatureSet
}

type IAuthenticator interface {
	Authenticate(ctx context.Context, msg message.CanonicalMessage, appKey *types.KeyMaterial, userKey *types.KeyMaterial) (*SignedRequest, error)
}

type Authenticator struct {
	signer signer.ISigner
	logger *zap.Logger
}

var _ IAuthenticator = (*Authenticator)(nil)

func NewAuthenticator(s signer.ISigner, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		signer: s,
		logger: logger,
	}
}

// Authenticate signs msg with appKey and, if userKey is non nil, with userKey.
// The two signings run concurrently. Either both required signatures are
// produced or an error is returned; a partial set is never returned. The
// first signer or encoding error is returned as is.
func (a *Authenticator) Authenticate(ctx context.Context, msg message.CanonicalMessage, appKey *types.KeyMaterial, userKey *types.KeyMaterial) (*SignedRequest, error) {
	if msg.IsZero() {
		return nil, authErrors.NewSerializationError("canonical message is empty", nil)
	}
	if appKey == nil {
		return nil, authErrors.NewSigningError("", "application key is required", authErrors.ErrMissingPrivateKey)
	}

	digest := msg.Digest()

	var (
		appSig  string
		userSig string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sig, err := a.signOne(gctx, appKey, digest)
		if err != nil {
			a.logger.Sugar().Warnw("App signature failed", "reference", msg.Reference(), "error", err)
			return err
		}
		appSig = sig
		return nil
	})
	if userKey != nil {
		g.Go(func() error {
			sig, err := a.signOne(gctx, userKey, digest)
			if err != nil {
				a.logger.Sugar().Warnw("User signature failed", "reference", msg.Reference(), "error", err)
				return err
			}
			userSig = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Sugar().Errorw("Failed to authenticate message",
			"reference", msg.Reference(),
			"error", err,
		)
		return nil, err
	}

	req := &SignedRequest{
		Message: msg,
		Digest:  digest,
		Signatures: types.SignatureSet{
			AppSignature: appSig,
		},
	}
	if userKey != nil {
		req.Signatures.UserSignature = &userSig
	}

	a.logger.Sugar().Debugw("Authenticated message",
		"reference", msg.Reference(),
		"digest", digest.Hex(),
		"userSigned", userKey != nil,
	)
	return req, nil
}

func (a *Authenticator) signOne(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (string, error) {
	sig, err := a.signer.Sign(ctx, key, digest)
	if err != nil {
		return "", err
	}
	if sig == nil {
		return "", authErrors.NewEncodingError("signer returned no signature", nil)
	}
	return signature.EncodeHex(sig)
}

// Verify recovers the signer of each signature in req and compares it with the
// expected addresses. userAddr may be nil when no user signature is expected.
func Verify(req *SignedRequest, appAddr common.Address, userAddr *common.Address) error {
	if req == nil {
		return fmt.Errorf("signed request is nil")
	}
	if req.Message.Digest() != req.Digest {
		return fmt.Errorf("digest does not match message bytes")
	}

	if err := verifyOne(req.Digest, req.Signatures.AppSignature, appAddr); err != nil {
		return fmt.Errorf("app signature: %w", err)
	}

	switch {
	case userAddr == nil && req.Signatures.UserSignature != nil:
		return fmt.Errorf("unexpected user signature")
	case userAddr != nil && req.Signatures.UserSignature == nil:
		return fmt.Errorf("missing user signature")
	case userAddr != nil:
		if err := verifyOne(req.Digest, *req.Signatures.UserSignature, *userAddr); err != nil {
			return fmt.Errorf("user signature: %w", err)
		}
	}
	return nil
}

func verifyOne(digest hasher.Digest, sigHex string, expected common.Address) error {
	raw, err := signature.DecodeHex(sigHex)
	if err != nil {
		return err
	}
	recovered, err := signature.RecoverAddress(digest[:], raw)
	if err != nil {
		return err
	}
	if recovered != expected {
		return fmt.Errorf("recovered %s, expected %s", recovered.Hex(), expected.Hex())
	}
	return nil
}
