// Package signer defines the signing-provider surface the synchronization
// core consumes: resolution of the active account address and a subscription
// for account-change events.
//
// The core never sees key material; it only needs the active address and a
// notification when that address changes. LocalProvider is an in-process
// provider backed by ed25519 key pairs whose ledger addresses are derived by
// keccak-256, used by tests and the demo client. An external wallet
// integration would implement the same Provider interface.
package signer
