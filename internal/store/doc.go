// Package store provides the durable key-value storage behind the commerce
// engine, plus an append-only command journal.
//
// Two tables:
//   - kv: string key to string value. The ledger writes "orders" and
//     "orderSeq"; the engine writes "recentlyViewed" and, when session
//     persistence is on, "cart" and "wishlist".
//   - journal: one row per executed engine command, keyed by a
//     content-addressed id and ordered by the engine's logical clock.
//
// # Ordering
//
// Journal reads are ORDER BY seq ASC, id ASC COLLATE BINARY, so results are
// identical across runs. Wall-clock time is never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// Memory implements the same key-value contract without SQLite.
package store
