package ledger

import "context"

// FriendRecord is one entry of an account's stored friend list.
type FriendRecord struct {
	Address Address
	Name    string
}

// Message is one entry of a two-party message log. Timestamp is unix seconds
// assigned by the ledger; log order breaks timestamp ties.
type Message struct {
	Sender    Address
	Timestamp int64
	Payload   string
}

// Ledger is the contract surface consumed by the synchronization core.
//
// Every operation may fail with ErrUnreachable when the deployment cannot be
// reached; state-changing operations may additionally fail with a
// *RevertError when the contract rejects the call. Calls cannot be aborted
// once submitted; the provided context bounds only the local wait.
//
// Operations the deployed contract scopes to the transaction sender take an
// explicit caller address here, since a plain interface carries no signing
// ambience.
type Ledger interface {
	// CheckUserExists reports whether addr is a registered account.
	CheckUserExists(ctx context.Context, addr Address) (bool, error)

	// GetUsername returns the stored username for addr. Fails with
	// ErrNotFound if the account is not registered.
	GetUsername(ctx context.Context, addr Address) (string, error)

	// CreateAccount registers caller under the given username. Reverts if
	// the account already exists.
	CreateAccount(ctx context.Context, caller Address, username string) error

	// AddFriend records friend under displayName in caller's friend list.
	// Reverts if either account is unregistered, if the edge already
	// exists, or if caller and friend are the same account.
	AddFriend(ctx context.Context, caller, friend Address, displayName string) error

	// GetFriendList returns caller's stored friend list.
	GetFriendList(ctx context.Context, caller Address) ([]FriendRecord, error)

	// SendMessage appends a message from caller to the log shared with
	// recipient. Reverts if the two accounts are not friends.
	SendMessage(ctx context.Context, caller, recipient Address, payload string) error

	// ReadMessages returns the message log shared between caller and
	// counterparty, oldest first. An empty log is not an error.
	ReadMessages(ctx context.Context, caller, counterparty Address) ([]Message, error)
}
