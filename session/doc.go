// Package session orchestrates identity binding, the friend graph cache, and
// the thread cache in response to external events.
//
// # State machine
//
// The controller moves through Unbound → Binding → Bound → ThreadSelected →
// Sending. An identity-change event from any state re-enters Binding and
// atomically discards both caches; a binding failure returns to Unbound and
// is the one fatal-for-session error (the user must retry). There is no
// terminal state; the controller lives for the process lifetime.
//
// # Event intake and cancellation
//
// Identity changes arrive as an explicit HandleAccountsChanged call, not a
// hidden listener side effect. Every intent snapshots a session sequence
// number before touching the ledger; an in-flight bind, load, or refresh
// whose sequence no longer matches when it resolves is discarded, since the
// underlying ledger call cannot be aborted once submitted.
//
// All session state is mutated only by the controller, under a single mutex.
// Presentation layers consume the registered callbacks: state changes, the
// bound identity, the friend list, the active thread, and human-readable
// notices for surfaced write failures.
package session
