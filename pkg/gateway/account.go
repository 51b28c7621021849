package gateway

import (
	"context"

	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

const PathLinkAccount = "link_account"

type LinkAccountParams struct {
	Handle            string
	PlaidToken        string
	SelectedAccountId string
	// AccountName defaults to "default".
	AccountName *string
}

type LinkAccountResponse struct {
	Envelope
	AccountName      *string  `json:"account_name,omitempty"`
	MatchScore       *float64 `json:"match_score,omitempty"`
	WebDebitVerified *bool    `json:"web_debit_verified,omitempty"`
}

// LinkAccount links a bank account through a Plaid public token.
func (c *Client) LinkAccount(ctx context.Context, params *LinkAccountParams, userKey *types.KeyMaterial) (*LinkAccountResponse, error) {
	accountName := defaultAlias
	if params.AccountName != nil {
		accountName = *params.AccountName
	}

	out := &LinkAccountResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathLinkAccount,
		UserHandle: &params.Handle,
		Fields: struct {
			PlaidToken        string `json:"plaid_token"`
			AccountName       string `json:"account_name"`
			SelectedAccountId string `json:"selected_account_id"`
		}{
			PlaidToken:        params.PlaidToken,
			AccountName:       accountName,
			SelectedAccountId: params.SelectedAccountId,
		},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
