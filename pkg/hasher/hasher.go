// Package hasher turns canonical message bytes into the 32 byte digest that
// both signatures cover. The gateway expects the Ethereum Keccak-256 variant,
// not the standardized SHA3-256.
package hasher

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const DigestLength = common.HashLength

type Digest [DigestLength]byte

// Hash returns keccak256(data).
func Hash(data []byte) Digest {
	return Digest(crypto.Keccak256Hash(data))
}

func DigestFromBytes(b []byte) (Digest, bool) {
	var d Digest
	if len(b) != DigestLength {
		return d, false
	}
	copy(d[:], b)
	return d, true
}

func (d Digest) Bytes() []byte {
	out := make([]byte, DigestLength)
	copy(out, d[:])
	return out
}

func (d Digest) Hex() string {
	return hexutil.Encode(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}
