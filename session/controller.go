package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ledgerchat/contacts"
	"github.com/opd-ai/ledgerchat/identity"
	"github.com/opd-ai/ledgerchat/ledger"
	"github.com/opd-ai/ledgerchat/signer"
	"github.com/opd-ai/ledgerchat/thread"
)

// Common errors for session intents.
var (
	// ErrNotBound indicates an intent that requires a bound identity.
	ErrNotBound = errors.New("no identity bound")

	// ErrNotFriend indicates a thread selection for an address that is
	// not in the friend graph cache.
	ErrNotFriend = errors.New("friend is not in the contact list")

	// ErrSuperseded indicates an intent resolved after the bound identity
	// changed; its result was discarded.
	ErrSuperseded = errors.New("operation superseded by identity change")
)

// StateCallback is invoked on every state transition.
type StateCallback func(state State)

// IdentityCallback is invoked when the bound identity changes. bound is
// false when the session returns to Unbound.
type IdentityCallback func(id identity.Identity, bound bool)

// FriendListCallback is invoked when the cached friend list changes.
type FriendListCallback func(edges []contacts.FriendEdge)

// ThreadCallback is invoked when the active thread is replaced.
type ThreadCallback func(t *thread.Thread)

// NoticeCallback is invoked with a human-readable message when a write-path
// failure is surfaced to the user.
type NoticeCallback func(notice string)

// Controller owns all session state and funnels every mutation: identity
// binds, friend graph updates, thread selection, and sends. It is safe for
// concurrent use; intents resolving after an identity change are discarded.
type Controller struct {
	binder   *identity.Binder
	contacts *contacts.Cache
	thread   *thread.Cache

	state State
	ident *identity.Identity
	seq   uint64

	onState    StateCallback
	onIdentity IdentityCallback
	onFriends  FriendListCallback
	onThread   ThreadCallback
	onNotice   NoticeCallback

	mu sync.Mutex
}

// NewController creates a Controller in StateUnbound over the given ledger
// and binder, with fresh caches.
func NewController(l ledger.Ledger, binder *identity.Binder) *Controller {
	return &Controller{
		binder:   binder,
		contacts: contacts.NewCache(l),
		thread:   thread.NewCache(l),
		state:    StateUnbound,
	}
}

// OnStateChange registers the state transition callback.
func (c *Controller) OnStateChange(callback StateCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = callback
}

// OnIdentity registers the bound identity callback.
func (c *Controller) OnIdentity(callback IdentityCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onIdentity = callback
}

// OnFriendList registers the friend list callback.
func (c *Controller) OnFriendList(callback FriendListCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFriends = callback
}

// OnThread registers the active thread callback.
func (c *Controller) OnThread(callback ThreadCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onThread = callback
}

// OnNotice registers the user notice callback.
func (c *Controller) OnNotice(callback NoticeCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotice = callback
}

// HandleAccountsChanged consumes an accounts-changed event from the signing
// provider and re-binds to the new active identity. Events with an empty
// account list are ignored.
func (c *Controller) HandleAccountsChanged(ctx context.Context, s signer.Signer, accounts []ledger.Address) {
	if len(accounts) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "HandleAccountsChanged",
		}).Debug("ignoring empty accounts-changed event")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "HandleAccountsChanged",
		"active":   accounts[0].Short(),
	}).Info("identity change event received")

	if err := c.Bind(ctx, s); err != nil {
		c.notice(fmt.Sprintf("could not connect account: %v", err))
	}
}

// Bind resolves the signer's active address into the bound identity,
// discarding both caches atomically and loading the new identity's friend
// graph. The previous identity's friend list and thread are retracted from
// the presentation layer before the new bind settles. A bind superseded by a
// newer one returns nil; a failed bind returns the session to StateUnbound
// and reports the error, which is fatal for the session until the user
// retries.
func (c *Controller) Bind(ctx context.Context, s signer.Signer) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.ident = nil
	c.contacts.Reset(ledger.Address{})
	c.thread.Reset()
	onFriends, onThread := c.onFriends, c.onThread
	c.mu.Unlock()
	c.setState(seq, StateBinding)

	if onFriends != nil {
		onFriends(nil)
	}
	if onThread != nil {
		onThread(nil)
	}

	id, err := c.binder.Bind(ctx, s)
	if errors.Is(err, identity.ErrSuperseded) {
		return nil
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.state = StateUnbound
		onState, onIdentity := c.onState, c.onIdentity
		c.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Bind",
			"error":    err,
		}).Error("identity binding failed")

		if onState != nil {
			onState(StateUnbound)
		}
		if onIdentity != nil {
			onIdentity(identity.Identity{}, false)
		}
		return err
	}

	c.ident = &id
	c.contacts.Reset(id.Address)
	c.state = StateBound
	onState, onIdentity := c.onState, c.onIdentity
	c.mu.Unlock()

	if onState != nil {
		onState(StateBound)
	}
	if onIdentity != nil {
		onIdentity(id, true)
	}

	edges := c.contacts.Load(ctx, id)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return nil
	}
	onFriends = c.onFriends
	c.mu.Unlock()

	if onFriends != nil {
		onFriends(edges)
	}
	return nil
}

// AddFriend verifies and records a new friend edge for the bound identity.
// Failures are surfaced as a user notice and do not alter cached state.
func (c *Controller) AddFriend(ctx context.Context, friend ledger.Address, displayName string) (contacts.FriendEdge, error) {
	c.mu.Lock()
	if c.ident == nil {
		c.mu.Unlock()
		return contacts.FriendEdge{}, ErrNotBound
	}
	id := *c.ident
	seq := c.seq
	c.mu.Unlock()

	edge, err := c.contacts.AddFriend(ctx, id, friend, displayName)
	if err != nil {
		c.notice(fmt.Sprintf("could not add friend: %v", err))
		return contacts.FriendEdge{}, err
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return edge, nil
	}
	onFriends := c.onFriends
	c.mu.Unlock()

	if onFriends != nil {
		onFriends(c.contacts.Edges())
	}
	return edge, nil
}

// SelectFriend makes the given friend's thread the active one and refreshes
// its history. The friend must already be in the friend graph cache.
func (c *Controller) SelectFriend(ctx context.Context, friend ledger.Address) (*thread.Thread, error) {
	c.mu.Lock()
	if c.ident == nil {
		c.mu.Unlock()
		return nil, ErrNotBound
	}
	id := *c.ident
	seq := c.seq
	c.mu.Unlock()

	edge, ok := c.contacts.Lookup(friend)
	if !ok {
		return nil, ErrNotFriend
	}

	c.setState(seq, StateThreadSelected)
	t := c.thread.Refresh(ctx, id, edge)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	onThread := c.onThread
	c.mu.Unlock()

	if onThread != nil {
		onThread(t)
	}
	return t, nil
}

// Refresh re-reads the active thread's history from the ledger and replaces
// the thread wholesale.
func (c *Controller) Refresh(ctx context.Context) (*thread.Thread, error) {
	c.mu.Lock()
	if c.ident == nil {
		c.mu.Unlock()
		return nil, ErrNotBound
	}
	id := *c.ident
	seq := c.seq
	c.mu.Unlock()

	current := c.thread.Current()
	if current == nil {
		return nil, thread.ErrNoActiveThread
	}

	t := c.thread.Refresh(ctx, id, current.Friend)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	onThread := c.onThread
	c.mu.Unlock()

	if onThread != nil {
		onThread(t)
	}
	return t, nil
}

// Send submits a message to the active thread's friend. The thread is not
// auto-refreshed; the caller re-issues Refresh to observe the sent message.
// Failures are surfaced as a user notice; the payload is not retried.
func (c *Controller) Send(ctx context.Context, payload string) error {
	c.mu.Lock()
	if c.ident == nil {
		c.mu.Unlock()
		return ErrNotBound
	}
	if c.state != StateThreadSelected {
		c.mu.Unlock()
		return thread.ErrNoActiveThread
	}
	id := *c.ident
	seq := c.seq
	c.mu.Unlock()

	c.setState(seq, StateSending)
	err := c.thread.Send(ctx, id, payload)
	c.setState(seq, StateThreadSelected)

	if err != nil {
		c.notice(fmt.Sprintf("could not send message: %v", err))
	}
	return err
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the bound identity, if any.
func (c *Controller) Identity() (identity.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ident == nil {
		return identity.Identity{}, false
	}
	return *c.ident, true
}

// Friends returns the cached friend list for the bound identity.
func (c *Controller) Friends() []contacts.FriendEdge {
	return c.contacts.Edges()
}

// ActiveThread returns the active thread, if any.
func (c *Controller) ActiveThread() *thread.Thread {
	return c.thread.Current()
}

// setState updates the state and notifies the callback outside the lock. The
// transition is skipped when seq is no longer current, so an intent settling
// after an identity change cannot move the new identity's session.
func (c *Controller) setState(seq uint64, state State) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "setState",
			"to":       state.String(),
		}).Debug("skipping state transition for superseded intent")
		return
	}
	old := c.state
	c.state = state
	onState := c.onState
	c.mu.Unlock()

	if old != state {
		logrus.WithFields(logrus.Fields{
			"function": "setState",
			"from":     old.String(),
			"to":       state.String(),
		}).Debug("session state transition")
	}
	if onState != nil {
		onState(state)
	}
}

// notice sends a human-readable failure notice to the presentation layer.
func (c *Controller) notice(msg string) {
	c.mu.Lock()
	onNotice := c.onNotice
	c.mu.Unlock()

	if onNotice != nil {
		onNotice(msg)
	}
}
