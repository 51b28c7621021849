// Package authErrors defines the failure kinds of request authentication.
// None of them are retried inside the authentication layer: a retry with a
// freshly built message is a different request.
package authErrors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingPrivateKey       = errors.New("private key material is absent and no remote signer is configured")
	ErrMalformedPrivateKey     = errors.New("private key is malformed")
	ErrAddressMismatch         = errors.New("signing key does not match the expected address")
	ErrRemoteSignerUnavailable = errors.New("remote signer is unreachable")
	ErrRemoteSignerDeclined    = errors.New("remote signer declined to sign")
)

// SigningError reports bad or missing key material or a remote signer failure.
type SigningError struct {
	Address string
	Reason  string
	Err     error
}

func (e *SigningError) Error() string {
	msg := "signing failed"
	if e.Address != "" {
		msg = fmt.Sprintf("signing failed for %s", e.Address)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SigningError) Unwrap() error { return e.Err }

// EncodingError reports malformed curve output. A correct curve library never
// produces one, but it is surfaced as its own kind.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signature encoding failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signature encoding failed: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// SerializationError reports that a canonical message could not be produced.
type SerializationError struct {
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("message serialization failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("message serialization failed: %s", e.Reason)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func NewSigningError(address string, reason string, err error) *SigningError {
	return &SigningError{Address: address, Reason: reason, Err: err}
}

func NewEncodingError(reason string, err error) *EncodingError {
	return &EncodingError{Reason: reason, Err: err}
}

func NewSerializationError(reason string, err error) *SerializationError {
	return &SerializationError{Reason: reason, Err: err}
}

func IsSigningError(err error) bool {
	var target *SigningError
	return errors.As(err, &target)
}

func IsEncodingError(err error) bool {
	var target *EncodingError
	return errors.As(err, &target)
}

func IsSerializationError(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}
