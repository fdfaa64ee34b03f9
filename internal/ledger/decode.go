package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/shopstate/internal/model"
)

// storedOrder accepts both the current order encoding and the older one,
// where ids could be missing, statuses were numbers, dates were either
// strings or epoch milliseconds, and items were flat product records with
// a quantity.
type storedOrder struct {
	ID     json.RawMessage `json:"id"`
	Date   json.RawMessage `json:"date"`
	Items  []storedItem    `json:"items"`
	Total  *model.Money    `json:"total"`
	Status json.RawMessage `json:"status"`
}

type storedItem struct {
	Nested    *model.Product `json:"product"`
	Quantity  int            `json:"quantity"`
	UnitPrice *model.Money   `json:"unit_price"`
	model.Product
}

// decodeOrders parses a persisted ledger. Any record that cannot be
// normalized makes the whole ledger malformed.
func decodeOrders(data []byte) ([]model.Order, error) {
	var records []storedOrder
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]model.Order, 0, len(records))
	seen := make(map[int64]bool, len(records))
	var dup []int
	var max int64

	for i, r := range records {
		o, err := r.normalize(i)
		if err != nil {
			return nil, fmt.Errorf("order at index %d: %w", i, err)
		}
		if seen[o.ID] {
			dup = append(dup, len(orders))
		}
		seen[o.ID] = true
		if o.ID > max {
			max = o.ID
		}
		orders = append(orders, o)
	}

	// Ids must be unique; colliding fallback ids move past the maximum.
	for _, i := range dup {
		max++
		orders[i].ID = max
	}
	return orders, nil
}

func (r storedOrder) normalize(index int) (model.Order, error) {
	o := model.Order{
		ID:        parseID(r.ID),
		CreatedAt: parseDate(r.Date),
	}
	if o.ID <= 0 {
		o.ID = int64(index + 1)
	}
	o.Status = parseStatus(r.Status, o.ID)

	o.Items = make([]model.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		li := model.LineItem{Product: it.Product, Quantity: it.Quantity}
		if it.Nested != nil {
			li.Product = *it.Nested
		}
		li.UnitPrice = li.Product.Price
		if it.UnitPrice != nil {
			li.UnitPrice = *it.UnitPrice
		}
		if li.Quantity < 1 {
			return model.Order{}, fmt.Errorf("item %q has quantity %d", li.Product.ID, li.Quantity)
		}
		o.Items = append(o.Items, li)
	}

	if r.Total != nil {
		o.Total = *r.Total
	} else {
		o.Total = model.SumLineItems(o.Items)
	}
	return o, nil
}

func parseID(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	id, err := n.Int64()
	if err != nil {
		return 0
	}
	return id
}

// parseStatus decodes a name or legacy number. Anything else resets the
// order to Placed rather than dropping it.
func parseStatus(raw json.RawMessage, id int64) model.OrderStatus {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.StatusPlaced
	}
	var s model.OrderStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		slog.Warn("unknown order status, resetting to Placed",
			"order_id", id,
			"status", string(raw),
		)
		return model.StatusPlaced
	}
	return s
}

func parseDate(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
