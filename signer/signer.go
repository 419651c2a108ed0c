package signer

import (
	"context"
	"errors"

	"github.com/opd-ai/ledgerchat/ledger"
)

// Common errors for signing providers.
var (
	// ErrUnavailable indicates no signing provider or no account is
	// present.
	ErrUnavailable = errors.New("no signing provider available")

	// ErrRejected indicates the user declined account access.
	ErrRejected = errors.New("account access rejected")
)

// Signer resolves the active signing account.
type Signer interface {
	// Address returns the ledger address of the active account. Fails
	// with ErrUnavailable if no account is present and ErrRejected if the
	// user declines access.
	Address(ctx context.Context) (ledger.Address, error)
}

// AccountsChangedCallback is invoked with the provider's account list
// whenever the active signing identity changes. The first entry is the new
// active account.
type AccountsChangedCallback func(accounts []ledger.Address)

// Provider is a Signer that can report account changes.
type Provider interface {
	Signer

	// OnAccountsChanged registers a callback fired whenever the active
	// account changes.
	OnAccountsChanged(callback AccountsChangedCallback)
}
