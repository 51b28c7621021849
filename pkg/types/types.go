package types

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	DefaultProtocolVersion = "0.2"
	CryptoETH              = "ETH"
)

// Header is the envelope every gateway request carries.
type Header struct {
	Reference  string  `json:"reference"`
	Created    int64   `json:"created"`
	UserHandle *string `json:"user_handle"`
	AuthHandle string  `json:"auth_handle"`
	Version    string  `json:"version"`
	Crypto     string  `json:"crypto"`
}

// KeyMaterial identifies one key holder. PrivateKey is nil when the key lives
// off host, in which case KeyID names it for the remote signer.
type KeyMaterial struct {
	Address    common.Address
	PrivateKey []byte
	KeyID      string
}

func (k *KeyMaterial) HasPrivateKey() bool {
	return k != nil && len(k.PrivateKey) > 0
}

// KeyParams is the hex form of KeyMaterial as it arrives from configuration.
type KeyParams struct {
	Address    string  `json:"address" yaml:"address"`
	PrivateKey *string `json:"privateKey,omitempty" yaml:"privateKey,omitempty"`
	KeyID      string  `json:"keyId,omitempty" yaml:"keyId,omitempty"`
}

func (kp *KeyParams) ToKeyMaterial() (*KeyMaterial, error) {
	if kp == nil {
		return nil, authErrors.NewSigningError("", "key params are nil", authErrors.ErrMissingPrivateKey)
	}
	if !common.IsHexAddress(kp.Address) {
		return nil, authErrors.NewSigningError(kp.Address, "invalid address", nil)
	}

	km := &KeyMaterial{
		Address: common.HexToAddress(kp.Address),
		KeyID:   kp.KeyID,
	}

	if kp.PrivateKey != nil && *kp.PrivateKey != "" {
		raw := *kp.PrivateKey
		if !strings.HasPrefix(raw, "0x") {
			raw = "0x" + raw
		}
		keyBytes, err := hexutil.Decode(raw)
		if err != nil {
			return nil, authErrors.NewSigningError(kp.Address, "private key is not valid hex", authErrors.ErrMalformedPrivateKey)
		}
		if len(keyBytes) != 32 {
			return nil, authErrors.NewSigningError(kp.Address,
				fmt.Sprintf("private key must be 32 bytes, got %d", len(keyBytes)),
				authErrors.ErrMalformedPrivateKey,
			)
		}
		km.PrivateKey = keyBytes
	}

	return km, nil
}

// SignatureSet holds the lowercase hex signatures sent as the usersignature
// and authsignature headers. Both cover the same digest.
type SignatureSet struct {
	UserSignature *string `json:"usersignature,omitempty"`
	AppSignature  string  `json:"authsignature"`
}

func (s SignatureSet) HasUserSignature() bool {
	return s.UserSignature != nil
}

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

func (s Status) String() string {
	return string(s)
}
