// Package model holds the value types of the local commerce state engine.
//
// This package contains type definitions, the order status transition
// table and the error taxonomy. All other internal packages import model;
// model imports nothing internal.
//
// Key design constraints:
//   - Money is fixed-point (shopspring/decimal), never float64
//   - OrderStatus is a closed enumeration; transitions go through Step
//   - All JSON tags use snake_case, except the legacy order keys
//     ("date", "items") kept for compatibility with existing ledgers
package model
