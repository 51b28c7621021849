package awsKmsSigner

import (
	"context"
	cryptoEcdsa "crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/sila-gateway-go/internal/aws"
	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/config"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	awsSdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmsTypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// secp256k1 curve order, used for low-S canonicalization
var (
	secp256k1N, _  = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// KMSAPI is the subset of the KMS client the signer uses.
type KMSAPI interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
}

// AWSKMSSigner signs digests with an ECC_SECG_P256K1 key held in AWS KMS.
// KMS returns a DER signature without a recovery id, so the id is found by
// trying both candidates against the key's public key.
type AWSKMSSigner struct {
	logger       *zap.Logger
	kmsClient    KMSAPI
	defaultKeyId string
}

var _ signer.ISigner = (*AWSKMSSigner)(nil)

func NewAWSKMSSigner(kmsClient KMSAPI, defaultKeyId string, logger *zap.Logger) *AWSKMSSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSKMSSigner{
		logger:       logger,
		kmsClient:    kmsClient,
		defaultKeyId: defaultKeyId,
	}
}

// NewAWSKMSSignerFromConfig loads the AWS config and builds a KMS backed signer.
func NewAWSKMSSignerFromConfig(ctx context.Context, cfg *config.AWSKMSSignerConfig, logger *zap.Logger) (*AWSKMSSigner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aws kms config cannot be nil")
	}
	awsCfg, err := aws.LoadAWSConfig(ctx, aws.Options{Region: cfg.Region, Profile: cfg.Profile})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return NewAWSKMSSigner(kms.NewFromConfig(awsCfg), cfg.KeyId, logger), nil
}

func (a *AWSKMSSigner) Sign(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error) {
	if key == nil {
		return nil, authErrors.NewSigningError("", "aws kms", authErrors.ErrMissingPrivateKey)
	}
	address := key.Address.Hex()

	keyId := key.KeyID
	if keyId == "" {
		keyId = a.defaultKeyId
	}
	if keyId == "" {
		return nil, authErrors.NewSigningError(address, "no kms key id", authErrors.ErrMissingPrivateKey)
	}

	expectedPubKey, err := a.getPublicKey(ctx, keyId)
	if err != nil {
		return nil, authErrors.NewSigningError(address, err.Error(), authErrors.ErrRemoteSignerUnavailable)
	}
	if crypto.PubkeyToAddress(*expectedPubKey) != key.Address {
		return nil, authErrors.NewSigningError(address,
			fmt.Sprintf("kms key %s belongs to %s", keyId, crypto.PubkeyToAddress(*expectedPubKey).Hex()),
			authErrors.ErrAddressMismatch,
		)
	}

	signOutput, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            awsSdk.String(keyId),
		Message:          digest[:],
		SigningAlgorithm: kmsTypes.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      kmsTypes.MessageTypeDigest,
	})
	if err != nil {
		return nil, authErrors.NewSigningError(address, errors.Wrapf(err, "kms sign with key %s", keyId).Error(), authErrors.ErrRemoteSignerDeclined)
	}

	var sigAsn1 asn1EcSig
	if _, err := asn1.Unmarshal(signOutput.Signature, &sigAsn1); err != nil {
		return nil, authErrors.NewEncodingError("kms returned a malformed DER signature", err)
	}

	r := new(big.Int).SetBytes(sigAsn1.R.Bytes)
	s := new(big.Int).SetBytes(sigAsn1.S.Bytes)
	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	for recoveryId := byte(0); recoveryId < 2; recoveryId++ {
		sig, err := signature.FromRS(r, s, recoveryId)
		if err != nil {
			return nil, err
		}

		raw := make([]byte, signature.Length)
		copy(raw[0:32], sig.R[:])
		copy(raw[32:64], sig.S[:])
		raw[64] = recoveryId

		recovered, err := crypto.SigToPub(digest[:], raw)
		if err != nil {
			a.logger.Debug("Ecrecover failed",
				zap.Uint8("recoveryId", recoveryId),
				zap.Error(err),
			)
			continue
		}
		if recovered.X.Cmp(expectedPubKey.X) == 0 && recovered.Y.Cmp(expectedPubKey.Y) == 0 {
			a.logger.Debug("Signed digest with AWS KMS",
				zap.String("keyId", keyId),
				zap.String("address", address),
			)
			return sig, nil
		}
	}

	return nil, authErrors.NewEncodingError("could not determine valid recovery id", nil)
}

// Address returns the Ethereum address of a KMS key. An empty keyId uses the
// signer's default key.
func (a *AWSKMSSigner) Address(ctx context.Context, keyId string) (common.Address, error) {
	if keyId == "" {
		keyId = a.defaultKeyId
	}
	if keyId == "" {
		return common.Address{}, fmt.Errorf("no kms key id")
	}
	pubKey, err := a.getPublicKey(ctx, keyId)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

func (a *AWSKMSSigner) getPublicKey(ctx context.Context, keyId string) (*cryptoEcdsa.PublicKey, error) {
	out, err := a.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: awsSdk.String(keyId),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for key %s", keyId)
	}
	return parseECDSAPublicKey(out.PublicKey)
}

// parseECDSAPublicKey parses the DER-encoded public key from KMS
func parseECDSAPublicKey(derBytes []byte) (*cryptoEcdsa.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	if _, err := asn1.Unmarshal(derBytes, &asn1pubk); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	return crypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
}

type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}
