// Package signature converts curve-level recoverable ECDSA output into the
// 65 byte [R || S || V] wire format the gateway verifies, where V is the
// recovery id offset by 27 (0x1b or 0x1c).
package signature

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	Length = crypto.SignatureLength

	// RecoveryIDOffset matches the personal-sign convention used by eth-crypto.
	RecoveryIDOffset = 27
)

// RecoverableSignature is the (r, s, recovery id) triple produced by a signer.
// RecoveryID is always 0 or 1.
type RecoverableSignature struct {
	R          [32]byte
	S          [32]byte
	RecoveryID byte
}

// Encode lays the signature out as R || S || (RecoveryID + 27).
func Encode(sig *RecoverableSignature) ([Length]byte, error) {
	var out [Length]byte
	if sig == nil {
		return out, authErrors.NewEncodingError("signature is nil", nil)
	}
	if sig.RecoveryID > 1 {
		return out, authErrors.NewEncodingError(fmt.Sprintf("recovery id %d out of range", sig.RecoveryID), nil)
	}
	copy(out[0:32], sig.R[:])
	copy(out[32:64], sig.S[:])
	out[64] = sig.RecoveryID + RecoveryIDOffset
	return out, nil
}

// EncodeHex renders the encoded signature as 130 lowercase hex characters
// without a 0x prefix, which is what the signature headers carry.
func EncodeHex(sig *RecoverableSignature) (string, error) {
	encoded, err := Encode(sig)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(encoded[:]), nil
}

// FromCompact reads a 65 byte [R || S || V] signature. V may be a raw recovery
// id (0/1, go-ethereum's crypto.Sign) or already offset (27/28, most remote
// signers).
func FromCompact(b []byte) (*RecoverableSignature, error) {
	if len(b) != Length {
		return nil, authErrors.NewEncodingError(fmt.Sprintf("expected %d signature bytes, got %d", Length, len(b)), nil)
	}
	v := b[64]
	if v >= RecoveryIDOffset {
		v -= RecoveryIDOffset
	}
	if v > 1 {
		return nil, authErrors.NewEncodingError(fmt.Sprintf("invalid recovery byte 0x%02x", b[64]), nil)
	}

	sig := &RecoverableSignature{RecoveryID: v}
	copy(sig.R[:], b[0:32])
	copy(sig.S[:], b[32:64])
	return sig, nil
}

// FromRS builds a signature from big-endian scalars, left padding them to 32
// bytes.
func FromRS(r, s *big.Int, recoveryID byte) (*RecoverableSignature, error) {
	if r == nil || s == nil || r.Sign() <= 0 || s.Sign() <= 0 {
		return nil, authErrors.NewEncodingError("r and s must be positive", nil)
	}
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, authErrors.NewEncodingError("r or s exceeds 32 bytes", nil)
	}
	if recoveryID > 1 {
		return nil, authErrors.NewEncodingError(fmt.Sprintf("recovery id %d out of range", recoveryID), nil)
	}
	sig := &RecoverableSignature{RecoveryID: recoveryID}
	r.FillBytes(sig.R[:])
	s.FillBytes(sig.S[:])
	return sig, nil
}

// DecodeHex parses a wire signature as carried in a header, with or without a
// 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, authErrors.NewEncodingError("invalid hex signature", err)
	}
	if len(b) != Length {
		return nil, authErrors.NewEncodingError(fmt.Sprintf("expected %d signature bytes, got %d", Length, len(b)), nil)
	}
	return b, nil
}

// RecoverAddress returns the address that produced the 65 byte wire
// signature over digest.
func RecoverAddress(digest []byte, encoded []byte) (common.Address, error) {
	sig, err := FromCompact(encoded)
	if err != nil {
		return common.Address{}, err
	}

	raw := make([]byte, Length)
	copy(raw[0:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.RecoveryID

	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, authErrors.NewEncodingError("public key recovery failed", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
