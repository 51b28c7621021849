package signature

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignature(recoveryID byte) *RecoverableSignature {
	sig := &RecoverableSignature{RecoveryID: recoveryID}
	copy(sig.R[:], bytes.Repeat([]byte{0x11}, 32))
	copy(sig.S[:], bytes.Repeat([]byte{0x22}, 32))
	return sig
}

func Test_Encode(t *testing.T) {
	t.Run("recovery id 0 becomes 0x1b", func(t *testing.T) {
		out, err := Encode(testSignature(0))
		require.NoError(t, err)
		assert.Equal(t, byte(0x1b), out[64])
		assert.Equal(t, bytes.Repeat([]byte{0x11}, 32), out[0:32])
		assert.Equal(t, bytes.Repeat([]byte{0x22}, 32), out[32:64])
	})

	t.Run("recovery id 1 becomes 0x1c", func(t *testing.T) {
		out, err := Encode(testSignature(1))
		require.NoError(t, err)
		assert.Equal(t, byte(0x1c), out[64])
	})

	t.Run("recovery id 2 is rejected", func(t *testing.T) {
		_, err := Encode(testSignature(2))
		require.Error(t, err)
		require.True(t, authErrors.IsEncodingError(err))
	})

	t.Run("nil signature is rejected", func(t *testing.T) {
		_, err := Encode(nil)
		require.True(t, authErrors.IsEncodingError(err))
	})
}

func Test_EncodeHex(t *testing.T) {
	s, err := EncodeHex(testSignature(1))
	require.NoError(t, err)
	require.Len(t, s, 130)
	assert.Equal(t, strings.ToLower(s), s)
	assert.True(t, strings.HasSuffix(s, "1c"))
	assert.False(t, strings.HasPrefix(s, "0x"))
}

func Test_FromCompact(t *testing.T) {
	for _, tc := range []struct {
		name       string
		v          byte
		recoveryID byte
		wantErr    bool
	}{
		{name: "raw 0", v: 0, recoveryID: 0},
		{name: "raw 1", v: 1, recoveryID: 1},
		{name: "offset 27", v: 27, recoveryID: 0},
		{name: "offset 28", v: 28, recoveryID: 1},
		{name: "2 invalid", v: 2, wantErr: true},
		{name: "29 invalid", v: 29, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := make([]byte, Length)
			b[0] = 0xaa
			b[32] = 0xbb
			b[64] = tc.v

			sig, err := FromCompact(b)
			if tc.wantErr {
				require.True(t, authErrors.IsEncodingError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.recoveryID, sig.RecoveryID)
			assert.Equal(t, byte(0xaa), sig.R[0])
			assert.Equal(t, byte(0xbb), sig.S[0])
		})
	}

	t.Run("wrong length", func(t *testing.T) {
		_, err := FromCompact(make([]byte, 64))
		require.True(t, authErrors.IsEncodingError(err))
	})
}

func Test_FromRS(t *testing.T) {
	sig, err := FromRS(big.NewInt(5), big.NewInt(7), 1)
	require.NoError(t, err)
	assert.Equal(t, byte(5), sig.R[31])
	assert.Equal(t, byte(7), sig.S[31])
	assert.Equal(t, byte(0), sig.R[0])

	_, err = FromRS(big.NewInt(0), big.NewInt(7), 0)
	require.True(t, authErrors.IsEncodingError(err))

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = FromRS(tooBig, big.NewInt(7), 0)
	require.True(t, authErrors.IsEncodingError(err))

	_, err = FromRS(big.NewInt(5), big.NewInt(7), 3)
	require.True(t, authErrors.IsEncodingError(err))
}

func Test_RecoverAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	expected := crypto.PubkeyToAddress(key.PublicKey)

	digest := crypto.Keccak256([]byte(`{"amount":100}`))
	raw, err := crypto.Sign(digest, key)
	require.NoError(t, err)

	sig, err := FromCompact(raw)
	require.NoError(t, err)

	encoded, err := Encode(sig)
	require.NoError(t, err)
	require.Contains(t, []byte{0x1b, 0x1c}, encoded[64])

	addr, err := RecoverAddress(digest, encoded[:])
	require.NoError(t, err)
	assert.Equal(t, expected, addr)

	hexSig, err := EncodeHex(sig)
	require.NoError(t, err)
	decoded, err := DecodeHex("0x" + hexSig)
	require.NoError(t, err)
	assert.Equal(t, encoded[:], decoded)

	t.Run("different digest recovers a different address", func(t *testing.T) {
		other := crypto.Keccak256([]byte(`{"amount":101}`))
		addr, err := RecoverAddress(other, encoded[:])
		if err == nil {
			assert.NotEqual(t, expected, addr)
		}
	})
}

func Test_DecodeHex(t *testing.T) {
	_, err := DecodeHex("zz")
	require.True(t, authErrors.IsEncodingError(err))

	_, err = DecodeHex("abcd")
	require.True(t, authErrors.IsEncodingError(err))
}

func FuzzEncodeLayout(f *testing.F) {
	f.Add([]byte{1, 2, 3}, []byte{4, 5, 6}, byte(0))
	f.Add([]byte{}, []byte{}, byte(1))

	f.Fuzz(func(t *testing.T, r []byte, s []byte, recoveryID byte) {
		sig := &RecoverableSignature{RecoveryID: recoveryID % 2}
		copy(sig.R[:], r)
		copy(sig.S[:], s)

		out, err := Encode(sig)
		require.NoError(t, err)
		require.Len(t, out, Length)
		require.True(t, out[64] == 0x1b || out[64] == 0x1c)

		back, err := FromCompact(out[:])
		require.NoError(t, err)
		require.Equal(t, sig, back)
	})
}
