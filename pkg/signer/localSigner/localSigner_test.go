package localSigner

import (
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newKey(t *testing.T) *types.KeyMaterial {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &types.KeyMaterial{
		Address:    crypto.PubkeyToAddress(pk.PublicKey),
		PrivateKey: crypto.FromECDSA(pk),
	}
}

func Test_LocalSigner(t *testing.T) {
	ls := NewLocalSigner(zaptest.NewLogger(t))
	digest := hasher.Hash([]byte(`{"amount":100}`))

	t.Run("Should sign and recover the key address", func(t *testing.T) {
		key := newKey(t)

		sig, err := ls.Sign(context.Background(), key, digest)
		require.NoError(t, err)
		require.LessOrEqual(t, sig.RecoveryID, byte(1))

		encoded, err := signature.Encode(sig)
		require.NoError(t, err)
		assert.Contains(t, []byte{0x1b, 0x1c}, encoded[64])

		addr, err := signature.RecoverAddress(digest[:], encoded[:])
		require.NoError(t, err)
		assert.Equal(t, key.Address, addr)
	})

	t.Run("Should be deterministic for the same key and digest", func(t *testing.T) {
		key := newKey(t)
		first, err := ls.Sign(context.Background(), key, digest)
		require.NoError(t, err)
		second, err := ls.Sign(context.Background(), key, digest)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Should fail without private key", func(t *testing.T) {
		key := &types.KeyMaterial{Address: common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")}
		_, err := ls.Sign(context.Background(), key, digest)
		require.True(t, authErrors.IsSigningError(err))
		require.True(t, errors.Is(err, authErrors.ErrMissingPrivateKey))
	})

	t.Run("Should fail on nil key", func(t *testing.T) {
		_, err := ls.Sign(context.Background(), nil, digest)
		require.True(t, errors.Is(err, authErrors.ErrMissingPrivateKey))
	})

	t.Run("Should fail on malformed key", func(t *testing.T) {
		for _, raw := range [][]byte{
			{0x01, 0x02},
			make([]byte, 32), // zero scalar
		} {
			key := &types.KeyMaterial{PrivateKey: raw}
			_, err := ls.Sign(context.Background(), key, digest)
			require.True(t, errors.Is(err, authErrors.ErrMalformedPrivateKey))
		}
	})

	t.Run("Should fail when key does not match address", func(t *testing.T) {
		key := newKey(t)
		key.Address = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		_, err := ls.Sign(context.Background(), key, digest)
		require.True(t, errors.Is(err, authErrors.ErrAddressMismatch))
	})

	t.Run("Should fail on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ls.Sign(ctx, newKey(t), digest)
		require.True(t, authErrors.IsSigningError(err))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func Test_NewLocalSignerNilLogger(t *testing.T) {
	ls := NewLocalSigner(nil)
	key := newKey(t)

	sig, err := ls.Sign(context.Background(), key, hasher.Hash([]byte(`{}`)))
	require.NoError(t, err)
	assert.NotNil(t, sig)
}
