package ledger

import (
	"errors"
	"fmt"
)

// Common errors for ledger operations.
var (
	// ErrUnreachable indicates the ledger deployment could not be reached.
	// The failed intent may be retried as-is.
	ErrUnreachable = errors.New("ledger unreachable")

	// ErrReverted indicates the contract rejected a state-changing call.
	ErrReverted = errors.New("transaction reverted")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// Revert reasons produced by the contract.
const (
	RevertAccountExists   = "account already exists"
	RevertUnknownAccount  = "account does not exist"
	RevertDuplicateFriend = "friend already added"
	RevertSelfFriend      = "cannot add self as friend"
	RevertNotFriends      = "accounts are not friends"
)

// RevertError is a contract rejection with its revert reason.
// It matches ErrReverted under errors.Is.
type RevertError struct {
	Op     string // operation that reverted
	Reason string // contract-reported reason
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("ledger %s: %v: %s", e.Op, ErrReverted, e.Reason)
}

func (e *RevertError) Is(target error) bool {
	return target == ErrReverted
}

// newRevertError creates a RevertError for the given operation and reason.
func newRevertError(op, reason string) *RevertError {
	return &RevertError{Op: op, Reason: reason}
}
