// Package contacts maintains the locally cached friend graph for the bound
// identity.
//
// The cache holds the set of friend edges fetched from the ledger, scoped to
// exactly one owner. Load fails soft: any read error yields an empty set,
// since an empty friend list is a valid and recoverable session state.
// AddFriend is the only way an edge enters the cache outside of Load, and the
// cache never holds two edges to the same friend address.
//
// Ledger reads are authoritative but costly, so Load runs once per bound
// identity rather than on every render; Reset re-scopes the cache when the
// identity changes and discards any still-in-flight load for the old owner.
package contacts
