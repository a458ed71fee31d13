package session

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"ochre-shop/internal/model"
)

// Entry is one anonymous cart line: a product, an optional unit and a quantity.
type Entry struct {
	ProductID int64
	UnitID    *int64
	Quantity  int
}

// CartStore keeps the anonymous cart of each visitor, keyed by session id.
type CartStore interface {
	// Add increments the quantity for the product/unit pair, creating it if needed.
	Add(ctx context.Context, sid string, productID int64, unitID *int64, qty int) error

	// Remove deletes the product/unit pair. Removing a missing pair is not an error.
	Remove(ctx context.Context, sid string, productID int64, unitID *int64) error

	// Entries returns the well-formed lines of the cart. Malformed keys are skipped.
	Entries(ctx context.Context, sid string) ([]Entry, error)

	// Count returns the sum of quantities across well-formed lines.
	Count(ctx context.Context, sid string) (int, error)

	// Take reads and clears the cart in one atomic step.
	Take(ctx context.Context, sid string) ([]Entry, error)

	// Restore adds entries back, used when a merge could not be persisted.
	Restore(ctx context.Context, sid string, entries []Entry) error

	// Clear drops the whole cart.
	Clear(ctx context.Context, sid string) error
}

// Key returns the field name for a product and optional unit: "12" or "12|4".
func Key(productID int64, unitID *int64) string {
	if unitID == nil {
		return strconv.FormatInt(productID, 10)
	}
	return strconv.FormatInt(productID, 10) + "|" + strconv.FormatInt(*unitID, 10)
}

// ParseKey reverses Key. ok is false for anything that is not one or two
// positive integers separated by "|".
func ParseKey(key string) (productID int64, unitID *int64, ok bool) {
	parts := strings.Split(key, "|")
	if len(parts) > 2 {
		return 0, nil, false
	}

	productID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || productID <= 0 {
		return 0, nil, false
	}

	if len(parts) == 2 {
		uid, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || uid <= 0 {
			return 0, nil, false
		}
		unitID = &uid
	}
	return productID, unitID, true
}

// parseEntries converts raw hash fields into entries, dropping malformed keys
// and non-positive quantities. Quantities above the line cap are clamped.
// The result is ordered by product then unit.
func parseEntries(raw map[string]string) []Entry {
	entries := make([]Entry, 0, len(raw))
	for field, value := range raw {
		productID, unitID, ok := ParseKey(field)
		if !ok {
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			continue
		}
		entries = append(entries, Entry{ProductID: productID, UnitID: unitID, Quantity: min(qty, model.MaxLineQuantity)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ProductID != entries[j].ProductID {
			return entries[i].ProductID < entries[j].ProductID
		}
		return unitOrder(entries[i].UnitID) < unitOrder(entries[j].UnitID)
	})
	return entries
}

func unitOrder(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
