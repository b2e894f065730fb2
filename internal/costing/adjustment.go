package costing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"vialerp/internal/variant"
)

// Adjustment is the price an ingredient takes in one combination fragment.
// Exactly one of Delta or Price is normally set; Delta wins when both are.
type Adjustment struct {
	Key   variant.Key
	Delta decimal.NullDecimal
	Price decimal.NullDecimal
}

// apply returns the ingredient price once the adjustment is applied to base.
func (a Adjustment) apply(base decimal.Decimal) decimal.Decimal {
	switch {
	case a.Delta.Valid:
		return base.Add(a.Delta.Decimal)
	case a.Price.Valid:
		return a.Price.Decimal
	default:
		return base
	}
}

type rawAdjustment struct {
	Delta            decimal.NullDecimal `json:"delta"`
	DiferenciaPrecio decimal.NullDecimal `json:"diferenciaPrecio"`
	Price            decimal.NullDecimal `json:"price"`
	PrecioVariante   decimal.NullDecimal `json:"precioVariante"`
	Precio           decimal.NullDecimal `json:"precio"`
}

// ParseAdjustments decodes a stored map of combination fragment to
// adjustment. Entries that cannot be decoded are skipped and reported in the
// returned error; the well-formed entries are still returned, sorted by key.
func ParseAdjustments(raw []byte) ([]Adjustment, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode price adjustments: %w", err)
	}

	var (
		out  []Adjustment
		errs []error
	)
	for fragment, body := range entries {
		var entry rawAdjustment
		if err := json.Unmarshal(body, &entry); err != nil {
			errs = append(errs, fmt.Errorf("adjustment %q: %w", fragment, err))
			continue
		}
		out = append(out, Adjustment{
			Key:   variant.ParseKey(fragment),
			Delta: firstValid(entry.Delta, entry.DiferenciaPrecio),
			Price: firstValid(entry.Price, entry.PrecioVariante, entry.Precio),
		})
	}

	slices.SortFunc(out, func(a, b Adjustment) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return out, errors.Join(errs...)
}

func firstValid(values ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}
