// Package persistence keeps link state that must survive restarts.
//
// The only such state in the protocol core is the sender's nonce counter.
// A nonce reused under the same key lets a receiver's replay guard reject
// fresh frames, and lets an attacker replay old ones once they leave the
// guard's history. Binders therefore reserve nonces in blocks: the upper
// bound of the block is persisted before any nonce in it is used, and a
// restarted binder resumes from that bound.
//
// Two stores are provided: LinkStateStore, a JSON file for small gateways
// and CLIs, and BadgerNonceStore for hosts running many links.
package persistence
