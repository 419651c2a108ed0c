package contacts

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ledgerchat/identity"
	"github.com/opd-ai/ledgerchat/ledger"
)

// Common errors for friend graph operations.
var (
	// ErrUnknownAddress indicates the candidate address is not a
	// registered account.
	ErrUnknownAddress = errors.New("address is not a registered account")

	// ErrDuplicateFriend indicates an edge to the candidate address
	// already exists.
	ErrDuplicateFriend = errors.New("friend already added")
)

// FriendEdge is a directed, owner-scoped contact record with a locally
// chosen display name. Edges are never mutated in place.
type FriendEdge struct {
	Owner       ledger.Address
	Friend      ledger.Address
	DisplayName string
}

// Cache is the friend graph cache for the bound identity.
type Cache struct {
	ledger ledger.Ledger
	owner  ledger.Address
	edges  []FriendEdge
	gen    uint64

	mu sync.Mutex
}

// NewCache creates an empty, unscoped Cache over the given ledger.
func NewCache(l ledger.Ledger) *Cache {
	return &Cache{ledger: l}
}

// Reset scopes the cache to a new owner, discarding all cached edges and any
// in-flight load for the previous owner.
func (c *Cache) Reset(owner ledger.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.owner = owner
	c.edges = nil
}

// Load fetches the owner's friend list from the ledger and installs it. Any
// ledger error degrades to an empty set rather than propagating.
//
// A result resolving after the cache has been re-scoped to a different
// identity is discarded; the returned slice is what the caller fetched
// either way.
func (c *Cache) Load(ctx context.Context, ident identity.Identity) []FriendEdge {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	records, err := c.ledger.GetFriendList(ctx, ident.Address)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"owner":    ident.Address.Short(),
			"error":    err,
		}).Warn("friend list load failed, continuing with empty set")
		records = nil
	}

	edges := make([]FriendEdge, 0, len(records))
	for _, rec := range records {
		edges = append(edges, FriendEdge{
			Owner:       ident.Address,
			Friend:      rec.Address,
			DisplayName: rec.Name,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.owner != ident.Address {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"owner":    ident.Address.Short(),
		}).Warn("discarding stale friend list load")
		return edges
	}
	c.edges = edges

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"owner":    ident.Address.Short(),
		"count":    len(edges),
	}).Info("friend graph cache loaded")

	return c.copyEdges()
}

// AddFriend verifies the candidate is a registered account, submits the
// add-friend call, and on success appends the new edge to the cache.
//
// Fails with ErrUnknownAddress if the candidate is unregistered and
// ErrDuplicateFriend if an edge to it already exists, locally or per a
// ledger revert; the cache is unchanged on any failure.
func (c *Cache) AddFriend(ctx context.Context, ident identity.Identity, candidate ledger.Address, displayName string) (FriendEdge, error) {
	c.mu.Lock()
	for _, edge := range c.edges {
		if c.owner == ident.Address && edge.Friend == candidate {
			c.mu.Unlock()
			return FriendEdge{}, ErrDuplicateFriend
		}
	}
	c.mu.Unlock()

	exists, err := c.ledger.CheckUserExists(ctx, candidate)
	if err != nil {
		return FriendEdge{}, err
	}
	if !exists {
		return FriendEdge{}, ErrUnknownAddress
	}

	if err := c.ledger.AddFriend(ctx, ident.Address, candidate, displayName); err != nil {
		var revert *ledger.RevertError
		if errors.As(err, &revert) && revert.Reason == ledger.RevertDuplicateFriend {
			return FriendEdge{}, ErrDuplicateFriend
		}
		return FriendEdge{}, err
	}

	edge := FriendEdge{Owner: ident.Address, Friend: candidate, DisplayName: displayName}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != ident.Address {
		// Identity changed while the call was in flight. The edge is on
		// the ledger; the new identity's own load stays authoritative.
		logrus.WithFields(logrus.Fields{
			"function": "AddFriend",
			"owner":    ident.Address.Short(),
			"friend":   candidate.Short(),
		}).Warn("identity changed mid-add, edge not cached")
		return edge, nil
	}
	c.edges = append(c.edges, edge)

	logrus.WithFields(logrus.Fields{
		"function":     "AddFriend",
		"owner":        ident.Address.Short(),
		"friend":       candidate.Short(),
		"display_name": displayName,
	}).Info("friend edge cached")

	return edge, nil
}

// Edges returns a copy of the cached friend edges.
func (c *Cache) Edges() []FriendEdge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyEdges()
}

// Lookup returns the cached edge to the given friend address, if present.
func (c *Cache) Lookup(friend ledger.Address) (FriendEdge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, edge := range c.edges {
		if edge.Friend == friend {
			return edge, true
		}
	}
	return FriendEdge{}, false
}

// copyEdges returns a copy of the edge slice. Caller must hold c.mu.
func (c *Cache) copyEdges() []FriendEdge {
	out := make([]FriendEdge, len(c.edges))
	copy(out, c.edges)
	return out
}
