package thread

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ledgerchat/contacts"
	"github.com/opd-ai/ledgerchat/identity"
	"github.com/opd-ai/ledgerchat/ledger"
)

// SelfLabel is the display label of messages authored by the bound identity.
const SelfLabel = "You"

// Common errors for thread operations.
var (
	// ErrNoActiveThread indicates a send was attempted with no friend
	// selected.
	ErrNoActiveThread = errors.New("no active thread selected")

	// ErrEmptyPayload indicates an attempt to send an empty message.
	ErrEmptyPayload = errors.New("message payload cannot be empty")
)

// DisplayMessage is one rendered entry of a thread.
type DisplayMessage struct {
	Sender    ledger.Address
	Self      bool
	Label     string
	Timestamp time.Time
	Payload   string
}

// Thread is the message history with one friend, ready for display.
// Threads are immutable; Refresh produces a new one on every call.
type Thread struct {
	Friend   contacts.FriendEdge
	Messages []DisplayMessage
}

// Header returns the thread header line, display name and friend address.
func (t *Thread) Header() string {
	return t.Friend.DisplayName + " : " + t.Friend.Friend.Hex()
}

// Cache holds the active thread for the session.
type Cache struct {
	ledger  ledger.Ledger
	current *Thread
	gen     uint64

	mu sync.Mutex
}

// NewCache creates an empty Cache over the given ledger.
func NewCache(l ledger.Ledger) *Cache {
	return &Cache{ledger: l}
}

// Reset discards the active thread and any in-flight refresh.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.current = nil
}

// Refresh fetches the message history with the given friend and replaces the
// active thread wholesale. Read errors degrade to an empty history rather
// than propagating.
//
// Messages are ordered by timestamp ascending; the ledger-reported sequence
// is preserved for equal timestamps. Senders matching the bound identity are
// labeled SelfLabel, all others carry the friend's cached display name.
func (c *Cache) Refresh(ctx context.Context, ident identity.Identity, edge contacts.FriendEdge) *Thread {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	records, err := c.ledger.ReadMessages(ctx, ident.Address, edge.Friend)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Refresh",
			"owner":    ident.Address.Short(),
			"friend":   edge.Friend.Short(),
			"error":    err,
		}).Warn("message history read failed, showing empty thread")
		records = nil
	}

	messages := make([]DisplayMessage, 0, len(records))
	for _, rec := range records {
		msg := DisplayMessage{
			Sender:    rec.Sender,
			Timestamp: time.Unix(rec.Timestamp, 0).UTC(),
			Payload:   rec.Payload,
		}
		if rec.Sender == ident.Address {
			msg.Self = true
			msg.Label = SelfLabel
		} else {
			msg.Label = edge.DisplayName
		}
		messages = append(messages, msg)
	}
	// Stable keeps the ledger sequence for equal timestamps.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	t := &Thread{Friend: edge, Messages: messages}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		logrus.WithFields(logrus.Fields{
			"function": "Refresh",
			"friend":   edge.Friend.Short(),
		}).Warn("discarding stale thread refresh")
		return t
	}
	c.current = t

	logrus.WithFields(logrus.Fields{
		"function": "Refresh",
		"owner":    ident.Address.Short(),
		"friend":   edge.Friend.Short(),
		"count":    len(messages),
	}).Info("thread refreshed")

	return t
}

// Send submits a message to the active thread's friend. It does not refresh;
// the caller re-issues Refresh to observe the sent message. The payload is
// not retried or queued on failure. The installed thread must belong to the
// given identity; an identity that does not own it has no active thread.
func (c *Cache) Send(ctx context.Context, ident identity.Identity, payload string) error {
	if payload == "" {
		return ErrEmptyPayload
	}

	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return ErrNoActiveThread
	}
	if owner := c.current.Friend.Owner; owner != ident.Address {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Send",
			"owner":    owner.Short(),
			"caller":   ident.Address.Short(),
		}).Warn("rejecting send on another identity's thread")
		return ErrNoActiveThread
	}
	recipient := c.current.Friend.Friend
	c.mu.Unlock()

	if err := c.ledger.SendMessage(ctx, ident.Address, recipient, payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Send",
			"owner":     ident.Address.Short(),
			"recipient": recipient.Short(),
			"error":     err,
		}).Error("message send failed")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Send",
		"owner":     ident.Address.Short(),
		"recipient": recipient.Short(),
		"size":      len(payload),
	}).Info("message submitted")

	return nil
}

// Current returns the active thread, if any.
func (c *Cache) Current() *Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
