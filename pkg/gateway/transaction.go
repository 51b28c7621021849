package gateway

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

const (
	PathIssueSila         = "issue_sila"
	PathTransferSila      = "transfer_sila"
	PathRedeemSila        = "redeem_sila"
	PathGetTransactions   = "get_transactions"
	PathCancelTransaction = "cancel_transaction"

	msgIssue           = "issue_msg"
	msgTransfer        = "transfer_msg"
	msgRedeem          = "redeem_msg"
	msgGetTransactions = "get_transactions_msg"
)

type ProcessingType string

const (
	ProcessingStandardACH       ProcessingType = "STANDARD_ACH"
	ProcessingSameDayACH        ProcessingType = "SAME_DAY_ACH"
	ProcessingInstantACH        ProcessingType = "INSTANT_ACH"
	ProcessingInstantSettlement ProcessingType = "INSTANT_SETTLEMENT"
)

type TransactionType string

const (
	TransactionIssue    TransactionType = "issue"
	TransactionRedeem   TransactionType = "redeem"
	TransactionTransfer TransactionType = "transfer"
)

type TransactionStatus string

const (
	TransactionQueued              TransactionStatus = "queued"
	TransactionPending             TransactionStatus = "pending"
	TransactionPendingConfirmation TransactionStatus = "pending_confirmation"
	TransactionReversed            TransactionStatus = "reversed"
	TransactionFailed              TransactionStatus = "failed"
	TransactionSuccess             TransactionStatus = "success"
	TransactionRollback            TransactionStatus = "rollback"
	TransactionReview              TransactionStatus = "review"
)

// TransactionResponse is returned by issue, transfer and redeem.
type TransactionResponse struct {
	Envelope
	TransactionId *string `json:"transaction_id,omitempty"`
	Descriptor    *string `json:"descriptor,omitempty"`
}

type IssueSilaParams struct {
	Handle         string
	Amount         int64
	AccountName    *string
	Descriptor     *string
	BusinessUuid   *string
	ProcessingType *ProcessingType
}

type amountFields struct {
	Message        string          `json:"message"`
	Amount         int64           `json:"amount"`
	AccountName    *string         `json:"account_name,omitempty"`
	Descriptor     *string         `json:"descriptor,omitempty"`
	BusinessUuid   *string         `json:"business_uuid,omitempty"`
	ProcessingType *ProcessingType `json:"processing_type,omitempty"`
}

// IssueSila debits the linked bank account and mints the same amount to the user.
func (c *Client) IssueSila(ctx context.Context, params *IssueSilaParams, userKey *types.KeyMaterial) (*TransactionResponse, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("issue amount must be positive, got %d", params.Amount)
	}
	out := &TransactionResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathIssueSila,
		UserHandle: &params.Handle,
		Fields: amountFields{
			Message:        msgIssue,
			Amount:         params.Amount,
			AccountName:    params.AccountName,
			Descriptor:     params.Descriptor,
			BusinessUuid:   params.BusinessUuid,
			ProcessingType: params.ProcessingType,
		},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type RedeemSilaParams struct {
	Handle         string
	Amount         int64
	AccountName    *string
	Descriptor     *string
	BusinessUuid   *string
	ProcessingType *ProcessingType
}

func (c *Client) RedeemSila(ctx context.Context, params *RedeemSilaParams, userKey *types.KeyMaterial) (*TransactionResponse, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("redeem amount must be positive, got %d", params.Amount)
	}
	if params.ProcessingType != nil && *params.ProcessingType != ProcessingStandardACH && *params.ProcessingType != ProcessingSameDayACH {
		return nil, fmt.Errorf("unsupported redeem processing type: %s", *params.ProcessingType)
	}
	out := &TransactionResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathRedeemSila,
		UserHandle: &params.Handle,
		Fields: amountFields{
			Message:        msgRedeem,
			Amount:         params.Amount,
			AccountName:    params.AccountName,
			Descriptor:     params.Descriptor,
			BusinessUuid:   params.BusinessUuid,
			ProcessingType: params.ProcessingType,
		},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type TransferSilaParams struct {
	Handle             string
	Amount             int64
	DestinationHandle  string
	Descriptor         *string
	DestinationAddress *string
	DestinationWallet  *string
	SourceId           *string
	DestinationId      *string
}

// TransferSila moves amount from the user's wallet to DestinationHandle.
func (c *Client) TransferSila(ctx context.Context, params *TransferSilaParams, userKey *types.KeyMaterial) (*TransactionResponse, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive, got %d", params.Amount)
	}
	if params.DestinationHandle == "" {
		return nil, fmt.Errorf("destination handle is required")
	}
	out := &TransactionResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathTransferSila,
		UserHandle: &params.Handle,
		Fields: struct {
			Message            string  `json:"message"`
			Amount             int64   `json:"amount"`
			DestinationHandle  string  `json:"destination_handle"`
			Descriptor         *string `json:"descriptor,omitempty"`
			DestinationAddress *string `json:"destination_address,omitempty"`
			DestinationWallet  *string `json:"destination_wallet,omitempty"`
			SourceId           *string `json:"source_id,omitempty"`
			DestinationId      *string `json:"destination_id,omitempty"`
		}{
			Message:            msgTransfer,
			Amount:             params.Amount,
			DestinationHandle:  params.DestinationHandle,
			Descriptor:         params.Descriptor,
			DestinationAddress: params.DestinationAddress,
			DestinationWallet:  params.DestinationWallet,
			SourceId:           params.SourceId,
			DestinationId:      params.DestinationId,
		},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type TransactionSearchFilters struct {
	TransactionId     *string             `json:"transaction_id,omitempty"`
	ReferenceId       *string             `json:"reference_id,omitempty"`
	ShowTimelines     *bool               `json:"show_timelines,omitempty"`
	SortAscending     *bool               `json:"sort_ascending,omitempty"`
	MaxSilaAmount     *int64              `json:"max_sila_amount,omitempty"`
	MinSilaAmount     *int64              `json:"min_sila_amount,omitempty"`
	Statuses          []TransactionStatus `json:"statuses,omitempty"`
	StartEpoch        *int64              `json:"start_epoch,omitempty"`
	EndEpoch          *int64              `json:"end_epoch,omitempty"`
	Page              *int                `json:"page,omitempty"`
	PerPage           *int                `json:"per_page,omitempty"`
	TransactionTypes  []TransactionType   `json:"transaction_types,omitempty"`
	BankAccountName   *string             `json:"bank_account_name,omitempty"`
	BlockchainAddress *string             `json:"blockchain_address,omitempty"`
	ProcessingType    *ProcessingType     `json:"processing_type,omitempty"`
	PaymentMethodId   *string             `json:"payment_method_id,omitempty"`
}

// DefaultSearchFilters returns the first page of 20, newest first, across
// every status and transaction type.
func DefaultSearchFilters() *TransactionSearchFilters {
	showTimelines := true
	sortAscending := false
	page := 1
	perPage := 20
	return &TransactionSearchFilters{
		ShowTimelines: &showTimelines,
		SortAscending: &sortAscending,
		Statuses: []TransactionStatus{
			TransactionQueued,
			TransactionPending,
			TransactionPendingConfirmation,
			TransactionReversed,
			TransactionFailed,
			TransactionSuccess,
			TransactionRollback,
			TransactionReview,
		},
		Page:             &page,
		PerPage:          &perPage,
		TransactionTypes: []TransactionType{TransactionIssue, TransactionRedeem, TransactionTransfer},
	}
}

type TransactionTimelineItem struct {
	Date        *string `json:"date,omitempty"`
	DateEpoch   *int64  `json:"date_epoch,omitempty"`
	Status      *string `json:"status,omitempty"`
	UsdStatus   *string `json:"usd_status,omitempty"`
	TokenStatus *string `json:"token_status,omitempty"`
}

type Transaction struct {
	UserHandle         *string                   `json:"user_handle,omitempty"`
	ReferenceId        *string                   `json:"reference_id,omitempty"`
	TransactionId      *string                   `json:"transaction_id,omitempty"`
	TransactionHash    *string                   `json:"transaction_hash,omitempty"`
	TransactionType    *TransactionType          `json:"transaction_type,omitempty"`
	SilaAmount         *int64                    `json:"sila_amount,omitempty"`
	Status             *TransactionStatus        `json:"status,omitempty"`
	UsdStatus          *string                   `json:"usd_status,omitempty"`
	TokenStatus        *string                   `json:"token_status,omitempty"`
	Created            *string                   `json:"created,omitempty"`
	LastUpdate         *string                   `json:"last_update,omitempty"`
	CreatedEpoch       *int64                    `json:"created_epoch,omitempty"`
	LastUpdateEpoch    *int64                    `json:"last_update_epoch,omitempty"`
	Descriptor         *string                   `json:"descriptor,omitempty"`
	DescriptorAch      *string                   `json:"descriptor_ach,omitempty"`
	AchName            *string                   `json:"ach_name,omitempty"`
	BankAccountName    *string                   `json:"bank_account_name,omitempty"`
	ProcessingType     *string                   `json:"processing_type,omitempty"`
	Submitted          *string                   `json:"submitted,omitempty"`
	SubmittedEpoch     *int64                    `json:"submitted_epoch,omitempty"`
	TraceNumber        *string                   `json:"trace_number,omitempty"`
	Addenda            *string                   `json:"addenda,omitempty"`
	ErrorCode          *string                   `json:"error_code,omitempty"`
	ErrorMsg           *string                   `json:"error_msg,omitempty"`
	ReturnCode         *string                   `json:"return_code,omitempty"`
	ReturnDesc         *string                   `json:"return_desc,omitempty"`
	DestinationAddress *string                   `json:"destination_address,omitempty"`
	DestinationHandle  *string                   `json:"destination_handle,omitempty"`
	HandleAddress      *string                   `json:"handle_address,omitempty"`
	SourceId           *string                   `json:"source_id,omitempty"`
	DestinationId      *string                   `json:"destination_id,omitempty"`
	SecCode            *string                   `json:"sec_code,omitempty"`
	Timeline           []TransactionTimelineItem `json:"timeline,omitempty"`
}

type TransactionPagination struct {
	ReturnedCount *int `json:"returned_count,omitempty"`
	TotalCount    *int `json:"total_count,omitempty"`
	CurrentPage   *int `json:"current_page,omitempty"`
	TotalPages    *int `json:"total_pages,omitempty"`
}

type GetTransactionsResponse struct {
	Envelope
	Page          *int                   `json:"page,omitempty"`
	ReturnedCount *int                   `json:"returned_count,omitempty"`
	TotalCount    *int                   `json:"total_count,omitempty"`
	Pagination    *TransactionPagination `json:"pagination,omitempty"`
	Transactions  []Transaction          `json:"transactions,omitempty"`
}

// GetTransactions searches transactions. A nil handle searches across every
// user of the application; a nil filters uses DefaultSearchFilters.
func (c *Client) GetTransactions(ctx context.Context, handle *string, filters *TransactionSearchFilters, userKey *types.KeyMaterial) (*GetTransactionsResponse, error) {
	if filters == nil {
		filters = DefaultSearchFilters()
	}
	out := &GetTransactionsResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathGetTransactions,
		UserHandle: handle,
		Fields: struct {
			Message       string                    `json:"message"`
			SearchFilters *TransactionSearchFilters `json:"search_filters"`
		}{Message: msgGetTransactions, SearchFilters: filters},
		UserKey: userKey,
		Retry:   true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CancelTransaction(ctx context.Context, handle string, transactionId string, userKey *types.KeyMaterial) (*TransactionResponse, error) {
	if transactionId == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	out := &TransactionResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathCancelTransaction,
		UserHandle: &handle,
		Fields: struct {
			TransactionId string `json:"transaction_id"`
		}{TransactionId: transactionId},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
