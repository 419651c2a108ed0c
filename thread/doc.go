// Package thread holds the message history of the selected friend.
//
// A Thread is the ordered message log between the bound identity and one
// friend, with per-message display labeling already computed: self-authored
// messages carry SelfLabel, everything else carries the friend's cached
// display name. Refresh replaces the thread wholesale on every call so the
// presentation layer never observes a partially merged history, and it fails
// soft to an empty log on read errors. Send is a separate intent that never
// refreshes; the caller re-issues Refresh to observe the sent message.
package thread
