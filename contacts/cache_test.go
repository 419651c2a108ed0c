package contacts

import (
	"context"
	"errors"
	"testing"

	"github.com/opd-ai/ledgerchat/identity"
	"github.com/opd-ai/ledgerchat/ledger"
)

func testAddr(b byte) ledger.Address {
	var addr ledger.Address
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func testIdentity(b byte, name string) identity.Identity {
	return identity.Identity{Address: testAddr(b), Username: name}
}

// seedAccounts registers the given accounts on a fresh memory ledger.
func seedAccounts(t *testing.T, names map[byte]string) *ledger.MemoryLedger {
	t.Helper()
	l := ledger.NewMemoryLedger()
	for b, name := range names {
		if err := l.CreateAccount(context.Background(), testAddr(b), name); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	return l
}

func TestLoadPopulatesCache(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice", 2: "Bob", 3: "Carol"})
	alice := testIdentity(1, "Alice")

	if err := l.AddFriend(ctx, alice.Address, testAddr(2), "Bobby"); err != nil {
		t.Fatalf("AddFriend() failed: %v", err)
	}
	if err := l.AddFriend(ctx, alice.Address, testAddr(3), "Carol"); err != nil {
		t.Fatalf("AddFriend() failed: %v", err)
	}

	c := NewCache(l)
	c.Reset(alice.Address)
	edges := c.Load(ctx, alice)

	if len(edges) != 2 {
		t.Fatalf("Load() returned %d edges, want 2", len(edges))
	}
	if edges[0].Friend != testAddr(2) || edges[0].DisplayName != "Bobby" {
		t.Errorf("first edge = %+v, want Bobby at %v", edges[0], testAddr(2))
	}
	if edges[0].Owner != alice.Address {
		t.Errorf("edge owner = %v, want %v", edges[0].Owner, alice.Address)
	}

	if got := c.Edges(); len(got) != 2 {
		t.Errorf("Edges() returned %d edges, want 2", len(got))
	}
}

func TestLoadFailsSoft(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice"})
	l.SetFault(ledger.OpGetFriendList, nil)

	c := NewCache(l)
	alice := testIdentity(1, "Alice")
	c.Reset(alice.Address)

	edges := c.Load(ctx, alice)
	if len(edges) != 0 {
		t.Errorf("Load() under fault returned %d edges, want 0", len(edges))
	}
	if len(c.Edges()) != 0 {
		t.Error("cache should be empty after failed load")
	}
}

func TestAddFriendUnknownAddress(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice"})
	alice := testIdentity(1, "Alice")

	c := NewCache(l)
	c.Reset(alice.Address)

	_, err := c.AddFriend(ctx, alice, testAddr(9), "Ghost")
	if !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("AddFriend(unregistered): got %v, want ErrUnknownAddress", err)
	}
	if len(c.Edges()) != 0 {
		t.Error("cache should be unchanged after rejected add")
	}
}

func TestAddFriendAppendsEdge(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice", 2: "Bob"})
	alice := testIdentity(1, "Alice")

	c := NewCache(l)
	c.Reset(alice.Address)

	edge, err := c.AddFriend(ctx, alice, testAddr(2), "Bobby")
	if err != nil {
		t.Fatalf("AddFriend() failed: %v", err)
	}
	if edge.Friend != testAddr(2) || edge.DisplayName != "Bobby" || edge.Owner != alice.Address {
		t.Errorf("AddFriend() = %+v", edge)
	}

	found, ok := c.Lookup(testAddr(2))
	if !ok || found != edge {
		t.Errorf("Lookup() = %+v, %v; want cached edge", found, ok)
	}
}

func TestAddFriendDuplicateInCache(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice", 2: "Bob"})
	alice := testIdentity(1, "Alice")

	c := NewCache(l)
	c.Reset(alice.Address)

	if _, err := c.AddFriend(ctx, alice, testAddr(2), "Bobby"); err != nil {
		t.Fatalf("AddFriend() failed: %v", err)
	}

	_, err := c.AddFriend(ctx, alice, testAddr(2), "Bobby again")
	if !errors.Is(err, ErrDuplicateFriend) {
		t.Errorf("duplicate AddFriend(): got %v, want ErrDuplicateFriend", err)
	}
	if len(c.Edges()) != 1 {
		t.Errorf("cache has %d edges after duplicate add, want 1", len(c.Edges()))
	}
}

func TestAddFriendDuplicateOnLedger(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice", 2: "Bob"})
	alice := testIdentity(1, "Alice")

	// The edge exists on the ledger but not in the local cache, so the
	// duplicate is only detectable through the contract revert.
	if err := l.AddFriend(ctx, alice.Address, testAddr(2), "Bobby"); err != nil {
		t.Fatalf("AddFriend() failed: %v", err)
	}

	c := NewCache(l)
	c.Reset(alice.Address)

	_, err := c.AddFriend(ctx, alice, testAddr(2), "Bobby")
	if !errors.Is(err, ErrDuplicateFriend) {
		t.Errorf("ledger-duplicate AddFriend(): got %v, want ErrDuplicateFriend", err)
	}
	if len(c.Edges()) != 0 {
		t.Error("cache should be unchanged after ledger revert")
	}
}

func TestAddFriendUnreachablePassesThrough(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice", 2: "Bob"})
	l.SetFault(ledger.OpAddFriend, nil)
	alice := testIdentity(1, "Alice")

	c := NewCache(l)
	c.Reset(alice.Address)

	_, err := c.AddFriend(ctx, alice, testAddr(2), "Bobby")
	if !errors.Is(err, ledger.ErrUnreachable) {
		t.Errorf("AddFriend() under fault: got %v, want ErrUnreachable", err)
	}
	if len(c.Edges()) != 0 {
		t.Error("cache should be unchanged after unreachable add")
	}
}

func TestResetDiscardsStaleLoad(t *testing.T) {
	ctx := context.Background()
	l := seedAccounts(t, map[byte]string{1: "Alice", 2: "Bob"})
	alice := testIdentity(1, "Alice")
	bob := testIdentity(2, "Bob")

	if err := l.AddFriend(ctx, alice.Address, testAddr(2), "Bobby"); err != nil {
		t.Fatalf("AddFriend() failed: %v", err)
	}

	c := NewCache(l)
	c.Reset(alice.Address)
	// Re-scope to Bob before Alice's load result is installed; simulate
	// the load having been issued before the identity change.
	c.Reset(bob.Address)

	edges := c.Load(ctx, alice)
	if len(edges) != 1 {
		t.Fatalf("stale Load() fetched %d edges, want 1", len(edges))
	}
	if got := c.Edges(); len(got) != 0 {
		t.Errorf("stale load was installed: %d cached edges, want 0", len(got))
	}
}
