// Package engine runs a shopping session: it owns the cart, wishlist,
// order ledger, checkout orchestrator and recently viewed tracker, and
// executes commands against them one at a time.
//
// ARCHITECTURE:
//
// Single-Writer Command Loop:
// Every mutation goes through Execute, which is never called concurrently.
// Callers either call Execute directly from the owning goroutine (the CLI)
// or Submit commands from any goroutine while Run drains a FIFO queue.
//
// Command Flow:
//  1. The command is stamped with the next logical clock value
//  2. It is applied to the in-memory stores, which publish change
//     notifications
//  3. Changed state is written to the KV store (the ledger on every
//     mutation; cart and wishlist only with session persistence)
//  4. The command and its outcome are appended to the journal
//
// A failed write never undoes an in-memory change, except at checkout,
// where the order is rolled back and the cart is kept. Pending writes are
// retried by Flush, which Run calls every flush interval.
//
// The journal is an audit trail. A failed journal append is logged and the
// command result stands.
package engine
