package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"

	"github.com/opd-ai/ledgerchat/ledger"
)

// localAccount is one key pair held by a LocalProvider.
type localAccount struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
	address ledger.Address
}

// LocalProvider is an in-process signing provider holding ed25519 key pairs.
// It implements Provider, including account switching that fires the
// accounts-changed subscription, so the full identity-change flow can run
// without an external wallet.
type LocalProvider struct {
	accounts  []localAccount
	active    int
	deny      bool
	callbacks []AccountsChangedCallback

	mu sync.Mutex
}

// NewLocalProvider creates a LocalProvider with no accounts. Address fails
// with ErrUnavailable until CreateAccount is called.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{active: -1}
}

// DeriveAddress computes the 20-byte ledger address of an ed25519 public
// key: the trailing 20 bytes of its keccak-256 digest.
func DeriveAddress(public ed25519.PublicKey) ledger.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(public)
	sum := h.Sum(nil)

	var addr ledger.Address
	copy(addr[:], sum[len(sum)-ledger.AddressLength:])
	return addr
}

// CreateAccount generates a new key pair and returns its address. The first
// account created becomes the active one.
func (p *LocalProvider) CreateAccount() (ledger.Address, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ledger.Address{}, errors.Wrap(err, "generating key pair")
	}
	addr := DeriveAddress(public)

	p.mu.Lock()
	p.accounts = append(p.accounts, localAccount{public: public, private: private, address: addr})
	if p.active < 0 {
		p.active = 0
	}
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "CreateAccount",
		"address":  addr.Short(),
	}).Info("local signing account created")

	return addr, nil
}

// Address returns the active account's ledger address.
func (p *LocalProvider) Address(ctx context.Context) (ledger.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deny {
		return ledger.Address{}, ErrRejected
	}
	if p.active < 0 || p.active >= len(p.accounts) {
		return ledger.Address{}, ErrUnavailable
	}
	return p.accounts[p.active].address, nil
}

// Addresses returns the addresses of all held accounts in creation order.
func (p *LocalProvider) Addresses() []ledger.Address {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ledger.Address, len(p.accounts))
	for i, acct := range p.accounts {
		out[i] = acct.address
	}
	return out
}

// Switch makes the account at index the active one and fires the
// accounts-changed subscription with the new active address first.
func (p *LocalProvider) Switch(index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.accounts) {
		p.mu.Unlock()
		return errors.Errorf("no account at index %d", index)
	}
	p.active = index
	addr := p.accounts[index].address
	callbacks := make([]AccountsChangedCallback, len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Switch",
		"index":    index,
		"address":  addr.Short(),
	}).Info("active signing account switched")

	for _, cb := range callbacks {
		cb([]ledger.Address{addr})
	}
	return nil
}

// OnAccountsChanged registers a callback fired on every Switch.
func (p *LocalProvider) OnAccountsChanged(callback AccountsChangedCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, callback)
}

// SetDenyAccess toggles simulated access rejection: while set, Address fails
// with ErrRejected.
func (p *LocalProvider) SetDenyAccess(deny bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deny = deny
}
