// Package ledger implements the Order Ledger: the durable record of every
// placed order and its lifecycle status.
//
// The ledger is an in-memory mirror of the persisted copy. Mutations update
// the mirror first and then write the full ledger back to the KV store.
// A failed write leaves the mirror authoritative, marks the ledger dirty and
// surfaces a *model.PersistenceError; Flush retries.
//
// Persisted keys:
//
//	orders    canonical JSON array of orders (full overwrite)
//	orderSeq  id high-water mark, written in the same transaction
//
// Order ids are strictly increasing. The high-water mark survives removal
// of the newest order and process restarts, so ids are never reused.
package ledger
