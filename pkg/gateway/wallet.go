package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const PathGetSilaBalance = "get_sila_balance"

type SilaBalanceResponse struct {
	Envelope
	Address     string `json:"address"`
	SilaBalance int64  `json:"sila_balance"`
}

// GetSilaBalance reads the token balance of address. The endpoint is public,
// so nothing is signed.
func (c *Client) GetSilaBalance(ctx context.Context, address common.Address) (*SilaBalanceResponse, error) {
	body, err := json.Marshal(struct {
		BlockchainAddress string `json:"blockchain_address"`
	}{BlockchainAddress: address.Hex()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal balance request: %w", err)
	}

	resp, err := c.transport.Post(ctx, c.endpoint(PathGetSilaBalance), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PathGetSilaBalance, err)
	}

	out := &SilaBalanceResponse{}
	if err := c.decode(PathGetSilaBalance, "", resp, out); err != nil {
		return nil, err
	}
	return out, nil
}
