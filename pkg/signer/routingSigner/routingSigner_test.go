package routingSigner

import (
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSigner(name string, calls *[]string) signer.ISigner {
	return signer.SignerFunc(func(ctx context.Context, key *types.KeyMaterial, digest hasher.Digest) (*signature.RecoverableSignature, error) {
		*calls = append(*calls, name)
		return &signature.RecoverableSignature{}, nil
	})
}

func Test_RoutingSigner(t *testing.T) {
	digest := hasher.Hash([]byte("x"))
	ctx := context.Background()

	t.Run("keys with private material sign locally", func(t *testing.T) {
		var calls []string
		rs := NewRoutingSigner(recordingSigner("local", &calls), recordingSigner("remote", &calls))

		_, err := rs.Sign(ctx, &types.KeyMaterial{PrivateKey: make([]byte, 32)}, digest)
		require.NoError(t, err)
		assert.Equal(t, []string{"local"}, calls)
	})

	t.Run("keys without private material go remote", func(t *testing.T) {
		var calls []string
		rs := NewRoutingSigner(recordingSigner("local", &calls), recordingSigner("remote", &calls))

		_, err := rs.Sign(ctx, &types.KeyMaterial{KeyID: "app"}, digest)
		require.NoError(t, err)
		assert.Equal(t, []string{"remote"}, calls)
	})

	t.Run("no remote and no private key fails", func(t *testing.T) {
		var calls []string
		rs := NewRoutingSigner(recordingSigner("local", &calls), nil)

		_, err := rs.Sign(ctx, &types.KeyMaterial{}, digest)
		require.True(t, errors.Is(err, authErrors.ErrMissingPrivateKey))
		assert.Empty(t, calls)

		_, err = rs.Sign(ctx, nil, digest)
		require.True(t, authErrors.IsSigningError(err))
	})
}
