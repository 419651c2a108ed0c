// Package identity binds the active signing address to an application
// account on the ledger.
//
// Binding resolves the signer's address, checks the ledger for an existing
// account, and either fetches the stored username or creates a new account
// with a prompted display name. Exactly one identity is bound at a time; the
// rest of the session scopes all cached state to it.
//
// Binding is safely re-entrant. Each Bind invocation takes a generation
// number, and only the latest generation may install its result: if a newer
// Bind starts while an older one is still waiting on the ledger, the older
// result is discarded with ErrSuperseded when it finally resolves. The
// underlying ledger calls cannot be aborted once submitted, so staleness is
// detected at resolution time rather than by cancellation.
package identity
