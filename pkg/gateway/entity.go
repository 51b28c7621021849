package gateway

import (
	"context"

	"github.com/Layr-Labs/sila-gateway-go/pkg/types"
)

const (
	PathCheckHandle    = "check_handle"
	PathRegister       = "register"
	PathRequestKYC     = "request_kyc"
	PathCheckKYC       = "check_kyc"
	PathGetEntity      = "get_entity"
	PathUpdateEmail    = "update/email"
	PathUpdatePhone    = "update/phone"
	PathUpdateAddress  = "update/address"
	PathUpdateIdentity = "update/identity"

	msgHeader = "header_msg"
	msgEntity = "entity_msg"

	defaultAlias = "default"
)

type Address struct {
	AddedEpoch     *int64  `json:"added_epoch,omitempty"`
	ModifiedEpoch  *int64  `json:"modified_epoch,omitempty"`
	Nickname       *string `json:"nickname,omitempty"`
	Uuid           *string `json:"uuid,omitempty"`
	AddressAlias   *string `json:"address_alias,omitempty"`
	StreetAddress1 *string `json:"street_address_1,omitempty"`
	StreetAddress2 *string `json:"street_address_2,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`
	Country        *string `json:"country,omitempty"`
}

type Identity struct {
	IdentityAlias string `json:"identity_alias"`
	IdentityValue string `json:"identity_value"`
}

type Contact struct {
	Phone        string `json:"phone"`
	ContactAlias string `json:"contact_alias"`
	Email        string `json:"email"`
}

type CryptoEntry struct {
	CryptoAlias   string  `json:"crypto_alias"`
	CryptoStatus  *string `json:"crypto_status,omitempty"`
	CryptoAddress string  `json:"crypto_address"`
	CryptoCode    string  `json:"crypto_code"`
}

type Entity struct {
	Birthdate    string  `json:"birthdate"`
	EntityName   string  `json:"entity_name"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Relationship *string `json:"relationship,omitempty"`
}

// CheckResponse is returned by check_handle and check_kyc.
type CheckResponse struct {
	Envelope
}

// CheckHandle asks whether handle is free. userKey may be nil.
func (c *Client) CheckHandle(ctx context.Context, handle string, userKey *types.KeyMaterial) (*CheckResponse, error) {
	out := &CheckResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathCheckHandle,
		UserHandle: &handle,
		Fields:     map[string]string{"message": msgHeader},
		UserKey:    userKey,
		Retry:      true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type RegisterParams struct {
	Handle         string
	Birthdate      string
	FirstName      string
	LastName       string
	StreetAddress1 string
	City           string
	State          string
	PostalCode     string
	Phone          string
	Email          string
	SSN            string
}

type registerFields struct {
	Message     string      `json:"message"`
	Address     Address     `json:"address"`
	Identity    Identity    `json:"identity"`
	Contact     Contact     `json:"contact"`
	CryptoEntry CryptoEntry `json:"crypto_entry"`
	Entity      Entity      `json:"entity"`
}

type RegisterResponse struct {
	Envelope
}

// Register creates an individual entity bound to userKey's address.
func (c *Client) Register(ctx context.Context, params *RegisterParams, userKey *types.KeyMaterial) (*RegisterResponse, error) {
	fields := registerFields{
		Message: msgEntity,
		Address: Address{
			AddressAlias:   strPtr(defaultAlias),
			StreetAddress1: strPtr(params.StreetAddress1),
			City:           strPtr(params.City),
			State:          strPtr(params.State),
			PostalCode:     strPtr(params.PostalCode),
			Country:        strPtr("US"),
		},
		Identity: Identity{
			IdentityAlias: "SSN",
			IdentityValue: params.SSN,
		},
		Contact: Contact{
			ContactAlias: defaultAlias,
			Phone:        params.Phone,
			Email:        params.Email,
		},
		Entity: Entity{
			Relationship: strPtr("user"),
			EntityName:   defaultAlias,
			FirstName:    params.FirstName,
			LastName:     params.LastName,
			Birthdate:    params.Birthdate,
		},
		CryptoEntry: CryptoEntry{
			CryptoAlias: defaultAlias,
			CryptoCode:  types.CryptoETH,
		},
	}
	if userKey != nil {
		fields.CryptoEntry.CryptoAddress = userKey.Address.Hex()
	}

	out := &RegisterResponse{}
	err := c.Do(ctx, &Call{
		Path:        PathRegister,
		UserHandle:  &params.Handle,
		Fields:      fields,
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type RequestKYCResponse struct {
	Envelope
}

func (c *Client) RequestKYC(ctx context.Context, handle string, userKey *types.KeyMaterial) (*RequestKYCResponse, error) {
	out := &RequestKYCResponse{}
	err := c.Do(ctx, &Call{
		Path:        PathRequestKYC,
		UserHandle:  &handle,
		Fields:      map[string]string{"message": msgHeader},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckKYC(ctx context.Context, handle string, userKey *types.KeyMaterial) (*CheckResponse, error) {
	out := &CheckResponse{}
	err := c.Do(ctx, &Call{
		Path:        PathCheckKYC,
		UserHandle:  &handle,
		Fields:      map[string]string{"message": msgHeader},
		UserKey:     userKey,
		RequireUser: true,
		Retry:       true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type IdentityResponse struct {
	AddedEpoch    *int64  `json:"added_epoch,omitempty"`
	ModifiedEpoch *int64  `json:"modified_epoch,omitempty"`
	Uuid          *string `json:"uuid,omitempty"`
	IdentityType  *string `json:"identity_type,omitempty"`
	Identity      *string `json:"identity,omitempty"`
}

type EmailResponse struct {
	AddedEpoch    *int64  `json:"added_epoch,omitempty"`
	ModifiedEpoch *int64  `json:"modified_epoch,omitempty"`
	Uuid          *string `json:"uuid,omitempty"`
	Email         *string `json:"email,omitempty"`
}

type PhoneResponse struct {
	AddedEpoch               *int64  `json:"added_epoch,omitempty"`
	ModifiedEpoch            *int64  `json:"modified_epoch,omitempty"`
	Uuid                     *string `json:"uuid,omitempty"`
	Phone                    *string `json:"phone,omitempty"`
	SmsConfirmationRequested *bool   `json:"sms_confirmation_requested,omitempty"`
	SmsConfirmed             *bool   `json:"sms_confirmed,omitempty"`
	Primary                  *bool   `json:"primary,omitempty"`
}

type DeviceResponse struct {
	AddedEpoch    *int64  `json:"added_epoch,omitempty"`
	ModifiedEpoch *int64  `json:"modified_epoch,omitempty"`
	Uuid          *string `json:"uuid,omitempty"`
}

type MembershipResponse struct {
	BusinessHandle     *string  `json:"business_handle,omitempty"`
	EntityName         *string  `json:"entity_name,omitempty"`
	Role               *string  `json:"role,omitempty"`
	Details            *string  `json:"details,omitempty"`
	OwnershipStake     *float64 `json:"ownership_stake,omitempty"`
	CertificationToken *string  `json:"certification_token,omitempty"`
}

type GetEntityResponse struct {
	Envelope
	UserHandle  *string              `json:"user_handle,omitempty"`
	EntityType  *string              `json:"entity_type,omitempty"`
	Entity      *Entity              `json:"entity,omitempty"`
	Addresses   []Address            `json:"addresses,omitempty"`
	Identities  []IdentityResponse   `json:"identities,omitempty"`
	Emails      []EmailResponse      `json:"emails,omitempty"`
	Phones      []PhoneResponse      `json:"phones,omitempty"`
	Devices     []DeviceResponse     `json:"devices,omitempty"`
	Memberships []MembershipResponse `json:"memberships,omitempty"`
}

// GetEntity fetches the entity behind handle. userKey may be nil.
func (c *Client) GetEntity(ctx context.Context, handle string, userKey *types.KeyMaterial) (*GetEntityResponse, error) {
	out := &GetEntityResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathGetEntity,
		UserHandle: &handle,
		Fields:     map[string]string{"message": msgHeader},
		UserKey:    userKey,
		Retry:      true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type UpdateEmailResponse struct {
	Envelope
	Email *EmailResponse `json:"email,omitempty"`
}

// UpdateEmail replaces the email identified by uuid.
func (c *Client) UpdateEmail(ctx context.Context, handle string, uuid string, email string, userKey *types.KeyMaterial) (*UpdateEmailResponse, error) {
	out := &UpdateEmailResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathUpdateEmail,
		UserHandle: &handle,
		Fields: struct {
			Uuid  string `json:"uuid"`
			Email string `json:"email"`
		}{Uuid: uuid, Email: email},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type UpdatePhoneParams struct {
	Handle   string
	Uuid     string
	Phone    *string
	SmsOptIn *bool
}

type UpdatePhoneResponse struct {
	Envelope
	Phone *PhoneResponse `json:"phone,omitempty"`
}

func (c *Client) UpdatePhone(ctx context.Context, params *UpdatePhoneParams, userKey *types.KeyMaterial) (*UpdatePhoneResponse, error) {
	out := &UpdatePhoneResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathUpdatePhone,
		UserHandle: &params.Handle,
		Fields: struct {
			Uuid     string  `json:"uuid"`
			Phone    *string `json:"phone,omitempty"`
			SmsOptIn *bool   `json:"sms_opt_in,omitempty"`
		}{Uuid: params.Uuid, Phone: params.Phone, SmsOptIn: params.SmsOptIn},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAddressParams carries the address fields to change. Nil fields are
// left as they are.
type UpdateAddressParams struct {
	Handle         string
	Uuid           string
	AddressAlias   *string
	StreetAddress1 *string
	StreetAddress2 *string
	City           *string
	State          *string
	PostalCode     *string
	Country        *string
}

type UpdateAddressResponse struct {
	Envelope
	Address *Address `json:"address,omitempty"`
}

func (c *Client) UpdateAddress(ctx context.Context, params *UpdateAddressParams, userKey *types.KeyMaterial) (*UpdateAddressResponse, error) {
	out := &UpdateAddressResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathUpdateAddress,
		UserHandle: &params.Handle,
		Fields: struct {
			Uuid           string  `json:"uuid"`
			AddressAlias   *string `json:"address_alias,omitempty"`
			StreetAddress1 *string `json:"street_address_1,omitempty"`
			StreetAddress2 *string `json:"street_address_2,omitempty"`
			City           *string `json:"city,omitempty"`
			State          *string `json:"state,omitempty"`
			PostalCode     *string `json:"postal_code,omitempty"`
			Country        *string `json:"country,omitempty"`
		}{
			Uuid:           params.Uuid,
			AddressAlias:   params.AddressAlias,
			StreetAddress1: params.StreetAddress1,
			StreetAddress2: params.StreetAddress2,
			City:           params.City,
			State:          params.State,
			PostalCode:     params.PostalCode,
			Country:        params.Country,
		},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type UpdateIdentityResponse struct {
	Envelope
	Identity *IdentityResponse `json:"identity,omitempty"`
}

// UpdateIdentity replaces the identity identified by uuid, e.g. alias "SSN".
func (c *Client) UpdateIdentity(ctx context.Context, handle string, uuid string, identityAlias string, identityValue string, userKey *types.KeyMaterial) (*UpdateIdentityResponse, error) {
	out := &UpdateIdentityResponse{}
	err := c.Do(ctx, &Call{
		Path:       PathUpdateIdentity,
		UserHandle: &handle,
		Fields: struct {
			Uuid          string `json:"uuid"`
			IdentityAlias string `json:"identity_alias"`
			IdentityValue string `json:"identity_value"`
		}{Uuid: uuid, IdentityAlias: identityAlias, IdentityValue: identityValue},
		UserKey:     userKey,
		RequireUser: true,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func strPtr(s string) *string {
	return &s
}
