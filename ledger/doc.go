// Package ledger defines the contract surface of the external append-only
// ledger that stores accounts, friend edges, and message history, along with
// the types those operations exchange.
//
// # Overview
//
// The package provides three things:
//
//   - Ledger: the interface the synchronization core consumes. The concrete
//     deployment (transport, signing, consensus) is out of scope; callers only
//     see the seven contract operations.
//   - Address: the 20-byte account identifier, rendered as 0x-prefixed hex.
//   - MemoryLedger: an in-process Ledger with the same revert semantics as the
//     deployed contract, used by tests and the demo client. It supports
//     per-operation fault injection and a pluggable TimeProvider so failure
//     and ordering behavior can be tested deterministically.
//
// # Errors
//
// Transient failures are reported as ErrUnreachable and may be retried by
// re-issuing the same intent. Contract rejections are reported as a
// *RevertError, which matches ErrReverted under errors.Is and carries the
// revert reason string:
//
//	err := l.AddFriend(ctx, me, friend, "Bob")
//	var rev *ledger.RevertError
//	if errors.As(err, &rev) && rev.Reason == ledger.RevertDuplicateFriend {
//	    // the edge already exists
//	}
package ledger
