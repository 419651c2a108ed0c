package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/opd-ai/ledgerchat/ledger"
	"github.com/opd-ai/ledgerchat/signer"
)

// staticSigner resolves to a fixed address or error.
type staticSigner struct {
	addr ledger.Address
	err  error
}

func (s staticSigner) Address(ctx context.Context) (ledger.Address, error) {
	return s.addr, s.err
}

// gatedLedger blocks GetUsername for one address until released, so a bind
// can be held in flight while a newer one completes.
type gatedLedger struct {
	*ledger.MemoryLedger
	gateAddr ledger.Address
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatedLedger) GetUsername(ctx context.Context, addr ledger.Address) (string, error) {
	if addr == g.gateAddr {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.MemoryLedger.GetUsername(ctx, addr)
}

func testAddr(b byte) ledger.Address {
	var addr ledger.Address
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func TestBindExistingAccount(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	alice := testAddr(1)
	if err := l.CreateAccount(ctx, alice, "Alice"); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	b := NewBinder(l, nil, "")
	id, err := b.Bind(ctx, staticSigner{addr: alice})
	if err != nil {
		t.Fatalf("Bind() failed: %v", err)
	}
	if id.Address != alice || id.Username != "Alice" {
		t.Errorf("Bind() = %+v, want {%v Alice}", id, alice)
	}

	current, ok := b.Current()
	if !ok || current != id {
		t.Errorf("Current() = %+v, %v; want bound identity", current, ok)
	}
}

func TestBindCreatesAccount(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	alice := testAddr(1)

	prompt := func() (string, error) { return "Alice", nil }
	b := NewBinder(l, prompt, "")

	id, err := b.Bind(ctx, staticSigner{addr: alice})
	if err != nil {
		t.Fatalf("Bind() failed: %v", err)
	}
	if id.Username != "Alice" {
		t.Errorf("Username = %q, want Alice", id.Username)
	}

	// The account is now on the ledger.
	name, err := l.GetUsername(ctx, alice)
	if err != nil {
		t.Fatalf("GetUsername() failed: %v", err)
	}
	if name != "Alice" {
		t.Errorf("stored username = %q, want Alice", name)
	}
}

func TestBindDefaultUsername(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		prompt      NamePrompt
		defaultName string
		want        string
	}{
		{"Nil prompt", nil, "", DefaultUsername},
		{"Empty input", func() (string, error) { return "", nil }, "", DefaultUsername},
		{"Prompt error", func() (string, error) { return "", errors.New("cancelled") }, "", DefaultUsername},
		{"Custom default", nil, "Anon", "Anon"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := ledger.NewMemoryLedger()
			b := NewBinder(l, tc.prompt, tc.defaultName)

			id, err := b.Bind(ctx, staticSigner{addr: testAddr(1)})
			if err != nil {
				t.Fatalf("Bind() failed: %v", err)
			}
			if id.Username != tc.want {
				t.Errorf("Username = %q, want %q", id.Username, tc.want)
			}
		})
	}
}

func TestBindSignerErrors(t *testing.T) {
	ctx := context.Background()
	b := NewBinder(ledger.NewMemoryLedger(), nil, "")

	if _, err := b.Bind(ctx, nil); !errors.Is(err, signer.ErrUnavailable) {
		t.Errorf("Bind(nil signer): got %v, want ErrUnavailable", err)
	}

	rejected := staticSigner{err: signer.ErrRejected}
	if _, err := b.Bind(ctx, rejected); !errors.Is(err, signer.ErrRejected) {
		t.Errorf("Bind() with rejecting signer: got %v, want ErrRejected", err)
	}

	if _, ok := b.Current(); ok {
		t.Error("no identity should be bound after failed binds")
	}
}

func TestBindLedgerUnreachable(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	l.SetFault(ledger.OpCheckUserExists, nil)

	b := NewBinder(l, nil, "")
	if _, err := b.Bind(ctx, staticSigner{addr: testAddr(1)}); !errors.Is(err, ledger.ErrUnreachable) {
		t.Errorf("Bind() with unreachable ledger: got %v, want ErrUnreachable", err)
	}
}

func TestBindLatestWins(t *testing.T) {
	ctx := context.Background()
	alice, bob := testAddr(1), testAddr(2)

	mem := ledger.NewMemoryLedger()
	if err := mem.CreateAccount(ctx, alice, "Alice"); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	if err := mem.CreateAccount(ctx, bob, "Bob"); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	gated := &gatedLedger{
		MemoryLedger: mem,
		gateAddr:     alice,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	b := NewBinder(gated, nil, "")

	// Hold the Alice bind in flight on its username read.
	staleErr := make(chan error, 1)
	go func() {
		_, err := b.Bind(ctx, staticSigner{addr: alice})
		staleErr <- err
	}()
	<-gated.entered

	// A newer bind for Bob completes while Alice's is still pending.
	id, err := b.Bind(ctx, staticSigner{addr: bob})
	if err != nil {
		t.Fatalf("Bind(bob) failed: %v", err)
	}
	if id.Address != bob {
		t.Errorf("Bind(bob) = %+v, want address %v", id, bob)
	}

	// When Alice's bind finally resolves it must be discarded.
	close(gated.release)
	if err := <-staleErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("stale bind: got %v, want ErrSuperseded", err)
	}

	current, ok := b.Current()
	if !ok || current.Address != bob {
		t.Errorf("Current() = %+v, %v; want Bob still bound", current, ok)
	}
}

func TestUnbindInvalidatesInFlightBind(t *testing.T) {
	ctx := context.Background()
	alice := testAddr(1)

	mem := ledger.NewMemoryLedger()
	if err := mem.CreateAccount(ctx, alice, "Alice"); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	gated := &gatedLedger{
		MemoryLedger: mem,
		gateAddr:     alice,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	b := NewBinder(gated, nil, "")

	staleErr := make(chan error, 1)
	go func() {
		_, err := b.Bind(ctx, staticSigner{addr: alice})
		staleErr <- err
	}()
	<-gated.entered

	b.Unbind()
	close(gated.release)

	if err := <-staleErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("bind after Unbind(): got %v, want ErrSuperseded", err)
	}
	if _, ok := b.Current(); ok {
		t.Error("no identity should be bound after Unbind()")
	}
}
