// Package ledgerchat implements the session and contact-state
// synchronization core of a peer-to-peer messaging client whose durable
// state lives in an external append-only ledger contract.
//
// The client binds a signing identity to an application account, keeps a
// friend graph cache and per-thread message cache consistent with the
// ledger, and funnels every mutation through a session state machine that
// survives slow, failing, and out-of-order ledger calls.
//
// Example:
//
//	options := ledgerchat.NewOptions()
//	options.Ledger = ledger.NewMemoryLedger()
//	options.Provider = signer.NewLocalProvider()
//
//	client, err := ledgerchat.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.OnThread(func(t *thread.Thread) {
//	    for _, msg := range t.Messages {
//	        fmt.Printf("[%s] %s\n", msg.Label, msg.Payload)
//	    }
//	})
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
package ledgerchat

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ledgerchat/contacts"
	"github.com/opd-ai/ledgerchat/identity"
	"github.com/opd-ai/ledgerchat/ledger"
	"github.com/opd-ai/ledgerchat/session"
	"github.com/opd-ai/ledgerchat/signer"
	"github.com/opd-ai/ledgerchat/thread"
)

// Options contains configuration for creating a Client.
type Options struct {
	// Ledger is the contract deployment to synchronize against. Required.
	Ledger ledger.Ledger

	// Provider supplies the signing identity and account-change events.
	// Optional; without one, Connect fails with signer.ErrUnavailable.
	Provider signer.Provider

	// DefaultUsername is used at account creation when NamePrompt is
	// absent or returns nothing.
	DefaultUsername string

	// NamePrompt asks the user for a display name when binding creates a
	// new account.
	NamePrompt identity.NamePrompt
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		DefaultUsername: identity.DefaultUsername,
	}
}

// Client is the public surface of the synchronization core. It wraps the
// session controller and subscribes it to the signing provider's
// account-change events.
type Client struct {
	options    *Options
	controller *session.Controller
}

// New creates a Client from the given options.
func New(options *Options) (*Client, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.Ledger == nil {
		return nil, errors.New("options.Ledger is required")
	}

	binder := identity.NewBinder(options.Ledger, options.NamePrompt, options.DefaultUsername)
	client := &Client{
		options:    options,
		controller: session.NewController(options.Ledger, binder),
	}

	if options.Provider != nil {
		// Account changes from the provider become explicit controller
		// events, mirroring the wallet's accountsChanged subscription.
		options.Provider.OnAccountsChanged(func(accounts []ledger.Address) {
			client.controller.HandleAccountsChanged(context.Background(), options.Provider, accounts)
		})
	}

	logrus.WithFields(logrus.Fields{
		"function":     "New",
		"has_provider": options.Provider != nil,
	}).Info("ledgerchat client created")

	return client, nil
}

// Connect binds the provider's active account to an application identity and
// loads its friend graph. It is the explicit user intent that starts a
// session, and the retry path after a binding failure.
func (c *Client) Connect(ctx context.Context) error {
	if c.options.Provider == nil {
		return signer.ErrUnavailable
	}
	return c.controller.Bind(ctx, c.options.Provider)
}

// AddFriend parses candidate as a hexadecimal ledger address and records a
// friend edge under the given display name.
func (c *Client) AddFriend(ctx context.Context, candidate, displayName string) (contacts.FriendEdge, error) {
	addr, err := ledger.ParseAddress(candidate)
	if err != nil {
		return contacts.FriendEdge{}, err
	}
	return c.controller.AddFriend(ctx, addr, displayName)
}

// SelectFriend makes the given friend's thread active and refreshes its
// history. The friend must already be in the contact list.
func (c *Client) SelectFriend(ctx context.Context, friend ledger.Address) (*thread.Thread, error) {
	return c.controller.SelectFriend(ctx, friend)
}

// Send submits a message to the active thread. The thread is not refreshed
// automatically; call Refresh to observe the sent message.
func (c *Client) Send(ctx context.Context, payload string) error {
	return c.controller.Send(ctx, payload)
}

// Refresh re-reads the active thread's history from the ledger.
func (c *Client) Refresh(ctx context.Context) (*thread.Thread, error) {
	return c.controller.Refresh(ctx)
}

// State returns the session's current state.
func (c *Client) State() session.State {
	return c.controller.State()
}

// Identity returns the bound identity, if any.
func (c *Client) Identity() (identity.Identity, bool) {
	return c.controller.Identity()
}

// Friends returns the cached friend list for the bound identity.
func (c *Client) Friends() []contacts.FriendEdge {
	return c.controller.Friends()
}

// ActiveThread returns the active thread, if any.
func (c *Client) ActiveThread() *thread.Thread {
	return c.controller.ActiveThread()
}

// OnStateChange registers a callback for session state transitions.
func (c *Client) OnStateChange(callback session.StateCallback) {
	c.controller.OnStateChange(callback)
}

// OnIdentity registers a callback for bound identity changes.
func (c *Client) OnIdentity(callback session.IdentityCallback) {
	c.controller.OnIdentity(callback)
}

// OnFriendList registers a callback for friend list changes.
func (c *Client) OnFriendList(callback session.FriendListCallback) {
	c.controller.OnFriendList(callback)
}

// OnThread registers a callback for active thread replacement.
func (c *Client) OnThread(callback session.ThreadCallback) {
	c.controller.OnThread(callback)
}

// OnNotice registers a callback for surfaced failure notices.
func (c *Client) OnNotice(callback session.NoticeCallback) {
	c.controller.OnNotice(callback)
}
