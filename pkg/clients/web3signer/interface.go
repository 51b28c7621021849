package web3signer

import (
	"context"
	"net/http"
)

// IWeb3Signer defines the interface for interacting with Web3Signer services.
// This interface abstracts the Web3Signer client implementation to allow for
// easier testing and potential alternative implementations.
type IWeb3Signer interface {
	// SetHttpClient allows setting a custom HTTP client for the Web3Signer client.
	SetHttpClient(client *http.Client)

	// EthAccounts returns a list of accounts available for signing.
	// This corresponds to the eth_accounts JSON-RPC method.
	EthAccounts(ctx context.Context) ([]string, error)

	// ListPublicKeys retrieves all available public keys from the Web3Signer service.
	// This is a convenience method that calls EthAccounts.
	ListPublicKeys(ctx context.Context) ([]string, error)

	// SignRaw signs a 32 byte digest with the key registered under identifier
	// using the REST API endpoint. No Ethereum message prefix is applied.
	// The identifier is the signing key identifier (typically an address).
	SignRaw(ctx context.Context, identifier string, data []byte) (string, error)

	// Upcheck reports whether the service is reachable.
	Upcheck(ctx context.Context) error
}

// Compile-time check to ensure Client implements IWeb3Signer
var _ IWeb3Signer = (*Client)(nil)
