package identity

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ledgerchat/ledger"
	"github.com/opd-ai/ledgerchat/signer"
)

// DefaultUsername is the placeholder used when account creation is prompted
// and the user supplies no name.
const DefaultUsername = "Guest"

// ErrSuperseded indicates a bind resolved after a newer bind had already
// started; its result was discarded.
var ErrSuperseded = errors.New("bind superseded by a newer bind")

// Identity is an application account bound to a signing address. The address
// is immutable for the session; the username is set once at account creation
// and read-only afterward.
type Identity struct {
	Address  ledger.Address
	Username string
}

// NamePrompt asks the user for a display name during account creation.
// An empty result (or an error) falls back to the binder's default name.
type NamePrompt func() (string, error)

// Binder resolves signing addresses into bound identities.
type Binder struct {
	ledger      ledger.Ledger
	prompt      NamePrompt
	defaultName string

	gen     uint64
	current *Identity

	mu sync.Mutex
}

// NewBinder creates a Binder over the given ledger. prompt may be nil, in
// which case new accounts are created under defaultName directly; an empty
// defaultName falls back to DefaultUsername.
func NewBinder(l ledger.Ledger, prompt NamePrompt, defaultName string) *Binder {
	if defaultName == "" {
		defaultName = DefaultUsername
	}
	return &Binder{
		ledger:      l,
		prompt:      prompt,
		defaultName: defaultName,
	}
}

// Bind resolves the signer's active address into a bound identity, creating
// the account on the ledger if it does not exist yet.
//
// If another Bind starts before this one settles, the later invocation wins:
// this one returns ErrSuperseded and leaves the later result in place.
func (b *Binder) Bind(ctx context.Context, s signer.Signer) (Identity, error) {
	if s == nil {
		return Identity{}, signer.ErrUnavailable
	}

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.mu.Unlock()

	addr, err := s.Address(ctx)
	if err != nil {
		return Identity{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Bind",
		"address":  addr.Short(),
		"gen":      gen,
	}).Debug("resolving account for signing address")

	exists, err := b.ledger.CheckUserExists(ctx, addr)
	if err != nil {
		return Identity{}, errors.WithMessage(err, "checking account existence")
	}

	var username string
	if exists {
		username, err = b.ledger.GetUsername(ctx, addr)
		if err != nil {
			return Identity{}, errors.WithMessage(err, "fetching username")
		}
	} else {
		username = b.promptName()
		if err := b.ledger.CreateAccount(ctx, addr, username); err != nil {
			return Identity{}, errors.WithMessage(err, "creating account")
		}
	}

	id := Identity{Address: addr, Username: username}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		logrus.WithFields(logrus.Fields{
			"function": "Bind",
			"address":  addr.Short(),
			"gen":      gen,
			"latest":   b.gen,
		}).Warn("discarding stale bind result")
		return Identity{}, ErrSuperseded
	}
	b.current = &id

	logrus.WithFields(logrus.Fields{
		"function": "Bind",
		"address":  addr.Short(),
		"username": username,
		"created":  !exists,
	}).Info("identity bound")

	return id, nil
}

// promptName obtains the display name for a new account.
func (b *Binder) promptName() string {
	if b.prompt == nil {
		return b.defaultName
	}
	name, err := b.prompt()
	if err != nil || name == "" {
		return b.defaultName
	}
	return name
}

// Current returns the bound identity, if any.
func (b *Binder) Current() (Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return Identity{}, false
	}
	return *b.current, true
}

// Unbind clears the bound identity and invalidates any in-flight bind.
func (b *Binder) Unbind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.current = nil
}
