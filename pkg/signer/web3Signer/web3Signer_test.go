package web3Signer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Layr-Labs/sila-gateway-go/pkg/authErrors"
	"github.com/Layr-Labs/sila-gateway-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/sila-gateway-go/pkg/hasher"
	"github.com/Layr-Labs/sila-gateway-go/pkg/signature"
	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newFakeWeb3Signer serves the eth1 sign endpoint for a single key and
// returns signatures with V offset by 27, as Web3Signer does.
func newFakeWeb3Signer(t *testing.T, status int) (*httptest.Server, *types.KeyMaterial) {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(pk.PublicKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("key not found"))
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/v1/eth1/sign/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Data string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, err := hexutil.Decode(req.Data)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sig, err := crypto.Sign(data, pk)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		sig[64] += 27
		_, _ = w.Write([]byte(hexutil.Encode(sig)))
	}))
	t.Cleanup(srv.Close)

	return srv, &types.KeyMaterial{Address: addr}
}

func newSigner(t *testing.T, url string) *Web3Signer {
	l := zaptest.NewLogger(t)
	client, err := web3signer.NewClient(&web3signer.Config{BaseUrl: url}, l)
	require.NoError(t, err)
	return NewWeb3Signer(client, l)
}

func Test_Web3Signer(t *testing.T) {
	digest := hasher.Hash([]byte(`{"amount":100}`))

	t.Run("Should sign through the remote service", func(t *testing.T) {
		srv, key := newFakeWeb3Signer(t, http.StatusOK)
		s := newSigner(t, srv.URL)

		sig, err := s.Sign(context.Background(), key, digest)
		require.NoError(t, err)
		require.LessOrEqual(t, sig.RecoveryID, byte(1))

		encoded, err := signature.Encode(sig)
		require.NoError(t, err)
		addr, err := signature.RecoverAddress(digest[:], encoded[:])
		require.NoError(t, err)
		assert.Equal(t, key.Address, addr)
	})

	t.Run("Should reject a signature from another key", func(t *testing.T) {
		srv, _ := newFakeWeb3Signer(t, http.StatusOK)
		_, other := newFakeWeb3Signer(t, http.StatusOK)
		s := newSigner(t, srv.URL)

		_, err := s.Sign(context.Background(), other, digest)
		require.True(t, errors.Is(err, authErrors.ErrAddressMismatch))
	})

	t.Run("Should map a refusal to declined", func(t *testing.T) {
		srv, key := newFakeWeb3Signer(t, http.StatusNotFound)
		s := newSigner(t, srv.URL)

		_, err := s.Sign(context.Background(), key, digest)
		require.True(t, authErrors.IsSigningError(err))
		require.True(t, errors.Is(err, authErrors.ErrRemoteSignerDeclined))
	})

	t.Run("Should map an unreachable service to unavailable", func(t *testing.T) {
		srv, key := newFakeWeb3Signer(t, http.StatusOK)
		url := srv.URL
		srv.Close()
		s := newSigner(t, url)

		_, err := s.Sign(context.Background(), key, digest)
		require.True(t, errors.Is(err, authErrors.ErrRemoteSignerUnavailable))
	})

	t.Run("Should reject a nil key", func(t *testing.T) {
		s := newSigner(t, "http://127.0.0.1:1")
		_, err := s.Sign(context.Background(), nil, digest)
		require.True(t, authErrors.IsSigningError(err))
	})
}

func Test_NewWeb3SignerNilLogger(t *testing.T) {
	digest := hasher.Hash([]byte(`{}`))

	srv, key := newFakeWeb3Signer(t, http.StatusOK)
	client, err := web3signer.NewClient(&web3signer.Config{BaseUrl: srv.URL}, nil)
	require.NoError(t, err)

	_, err = NewWeb3Signer(client, nil).Sign(context.Background(), key, digest)
	require.NoError(t, err)

	down, key := newFakeWeb3Signer(t, http.StatusNotFound)
	client, err = web3signer.NewClient(&web3signer.Config{BaseUrl: down.URL}, nil)
	require.NoError(t, err)

	_, err = NewWeb3Signer(client, nil).Sign(context.Background(), key, digest)
	require.True(t, authErrors.IsSigningError(err))
}
