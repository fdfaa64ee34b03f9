package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order.
//
// The four active states form a progression indexed 0..3. Delivered and
// Cancelled are absorbing terminal markers that sit outside that range,
// matching the numeric encoding older ledgers were written with.
type OrderStatus int

const (
	StatusCancelled      OrderStatus = -1
	StatusPlaced         OrderStatus = 0
	StatusPacked         OrderStatus = 1
	StatusShipped        OrderStatus = 2
	StatusOutForDelivery OrderStatus = 3
	StatusDelivered      OrderStatus = 4
)

var statusNames = map[OrderStatus]string{
	StatusPlaced:         "Placed",
	StatusPacked:         "Packed",
	StatusShipped:        "Shipped",
	StatusOutForDelivery: "OutForDelivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// Statuses lists every status in display order.
var Statuses = []OrderStatus{
	StatusPlaced,
	StatusPacked,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

// Valid reports whether s is one of the six defined statuses.
func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether no further status transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsActive reports whether s is one of the four forward-progression states.
func (s OrderStatus) IsActive() bool {
	return s >= StatusPlaced && s <= StatusOutForDelivery
}

// Progress returns the progression index (0..3) for active states.
func (s OrderStatus) Progress() (int, bool) {
	if !s.IsActive() {
		return 0, false
	}
	return int(s), true
}

// ParseStatus parses a status name. Matching ignores case, spaces and
// underscores, so "out for delivery" and "OUT_FOR_DELIVERY" both parse.
func ParseStatus(name string) (OrderStatus, error) {
	key := normalizeStatusName(name)
	for s, n := range statusNames {
		if normalizeStatusName(n) == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", name)
}

func normalizeStatusName(name string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

// StatusFromLegacy maps the numeric encoding of older ledgers. Unknown
// numbers fall back to Placed.
func StatusFromLegacy(n int) OrderStatus {
	s := OrderStatus(n)
	if s.Valid() {
		return s
	}
	return StatusPlaced
}

// MarshalJSON encodes the status by name.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal order status: invalid value %d", int(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a status name or a legacy numeric status.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, err := ParseStatus(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Non-numeric, non-string values (null, objects) reset to Placed.
		*s = StatusPlaced
		return nil
	}
	i, err := n.Int64()
	if err != nil {
		*s = StatusPlaced
		return nil
	}
	*s = StatusFromLegacy(int(i))
	return nil
}

// Op is a lifecycle operation applied to an order.
type Op string

const (
	OpAdvance Op = "advance"
	OpDeliver Op = "deliver"
	OpCancel  Op = "cancel"
	OpRemove  Op = "remove"
)

// transitions maps (op, from) to the resulting status. A missing entry is an
// invalid transition. An entry whose target equals its source is a no-op.
var transitions = map[Op]map[OrderStatus]OrderStatus{
	OpAdvance: {
		StatusPlaced:         StatusPacked,
		StatusPacked:         StatusShipped,
		StatusShipped:        StatusOutForDelivery,
		StatusOutForDelivery: StatusOutForDelivery,
		StatusDelivered:      StatusDelivered,
		StatusCancelled:      StatusCancelled,
	},
	OpDeliver: {
		StatusPlaced:         StatusDelivered,
		StatusPacked:         StatusDelivered,
		StatusShipped:        StatusDelivered,
		StatusOutForDelivery: StatusDelivered,
		StatusDelivered:      StatusDelivered,
	},
	OpCancel: {
		StatusPlaced:         StatusCancelled,
		StatusPacked:         StatusCancelled,
		StatusShipped:        StatusCancelled,
		StatusOutForDelivery: StatusCancelled,
		StatusCancelled:      StatusCancelled,
	},
}

// Step applies op to s. It returns the resulting status, or an
// InvalidTransitionError when the table has no entry for (op, s).
// OpRemove is not a status change; use CanRemove.
func (s OrderStatus) Step(orderID int64, op Op) (OrderStatus, error) {
	next, ok := transitions[op][s]
	if !ok {
		return s, &InvalidTransitionError{OrderID: orderID, From: s, Op: op}
	}
	return next, nil
}

// CanRemove reports whether an order in status s may be deleted.
func (s OrderStatus) CanRemove() bool {
	return s.IsTerminal()
}

// IsEdge reports whether from -> to is an edge of the lifecycle graph.
// Self-loops are not edges.
func IsEdge(from, to OrderStatus) bool {
	if from == to {
		return false
	}
	for _, byFrom := range transitions {
		if next, ok := byFrom[from]; ok && next == to {
			return true
		}
	}
	return false
}
