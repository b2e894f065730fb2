package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"vialerp/models"
)

// staleTolerance is how close an override must be to the calculator price to
// count as a leftover copy of it.
var staleTolerance = decimal.New(1, -2)

// Candidate holds every price known for one stored combination. A field that
// is not Valid is absent.
type Candidate struct {
	Override   decimal.NullDecimal
	Calculator decimal.NullDecimal
	Legacy     decimal.NullDecimal
	Computed   decimal.Decimal
}

// Source is one tier of the price hierarchy. Pick reports false when the tier
// has nothing to offer for the candidate.
type Source struct {
	Name string
	Pick func(Candidate) (decimal.Decimal, bool)
}

// Source names reported in Resolution.Source.
const (
	SourceStaleOverride = "calculator_over_stale_override"
	SourceOverride      = "manual_override"
	SourceCalculator    = "calculator"
	SourceLegacy        = "legacy_calculated"
	SourceBase          = "base"
)

// DefaultSources is the production precedence, highest first. The base
// price is not a Source; it is what Resolve returns when none of them pick.
var DefaultSources = []Source{
	{Name: SourceStaleOverride, Pick: staleOverride},
	{Name: SourceOverride, Pick: manualOverride},
	{Name: SourceCalculator, Pick: calculator},
	{Name: SourceLegacy, Pick: legacy},
}

// staleOverride prefers the calculator when the override merely repeats it.
func staleOverride(c Candidate) (decimal.Decimal, bool) {
	if !c.Override.Valid || !c.Calculator.Valid {
		return decimal.Decimal{}, false
	}
	if c.Override.Decimal.Sub(c.Calculator.Decimal).Abs().LessThan(staleTolerance) {
		return c.Calculator.Decimal, true
	}
	return decimal.Decimal{}, false
}

func manualOverride(c Candidate) (decimal.Decimal, bool) {
	return c.Override.Decimal, c.Override.Valid
}

func calculator(c Candidate) (decimal.Decimal, bool) {
	return c.Calculator.Decimal, c.Calculator.Valid
}

// legacy returns the stored legacy price, or the computed floor written by the
// sync engine when no legacy value exists. Both must be positive.
func legacy(c Candidate) (decimal.Decimal, bool) {
	if c.Legacy.Valid {
		if c.Legacy.Decimal.IsPositive() {
			return c.Legacy.Decimal, true
		}
		return decimal.Decimal{}, false
	}
	if c.Computed.IsPositive() {
		return c.Computed, true
	}
	return decimal.Decimal{}, false
}

// Pick runs sources in order and returns the first price found.
func Pick(c Candidate, sources []Source) (decimal.Decimal, string, bool) {
	for _, source := range sources {
		if price, ok := source.Pick(c); ok {
			return price, source.Name, true
		}
	}
	return decimal.Decimal{}, "", false
}

// NewCandidate collects the prices stored on a derived combination. err is
// non-nil when the calculator snapshot could not be read; the candidate is
// still usable with the calculator tier absent.
func NewCandidate(combo models.DerivedCombination) (Candidate, error) {
	c := Candidate{
		Override: combo.ManualOverride,
		Legacy:   combo.LegacyCalculatedPrice,
		Computed: combo.ComputedPrice,
	}
	price, ok, err := calculatorPrice(combo.CalculatorSnapshot)
	if ok {
		c.Calculator = decimal.NewNullDecimal(price)
	}
	return c, err
}

// ExtractCalculatorPrice reads totalPrice from a calculator snapshot. It
// reports false for a missing, malformed, or non-positive price.
func ExtractCalculatorPrice(snapshot datatypes.JSON) (decimal.Decimal, bool) {
	price, ok, _ := calculatorPrice(snapshot)
	return price, ok
}

var errSnapshotShape = errors.New("calculator snapshot is not an object")

func calculatorPrice(snapshot []byte) (decimal.Decimal, bool, error) {
	raw := bytes.TrimSpace(snapshot)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, false, nil
	}

	// Older rows store the snapshot as a JSON encoded string.
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return decimal.Decimal{}, false, fmt.Errorf("decode calculator snapshot: %w", err)
		}
		return calculatorPrice([]byte(inner))
	}
	if raw[0] != '{' {
		return decimal.Decimal{}, false, errSnapshotShape
	}

	var doc struct {
		TotalPrice json.RawMessage `json:"totalPrice"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("decode calculator snapshot: %w", err)
	}

	value := bytes.TrimSpace(doc.TotalPrice)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return decimal.Decimal{}, false, nil
	}

	var text string
	if value[0] == '"' {
		if err := json.Unmarshal(value, &text); err != nil {
			return decimal.Decimal{}, false, fmt.Errorf("decode totalPrice: %w", err)
		}
	} else {
		text = string(value)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse totalPrice %q: %w", text, err)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return price, true, nil
}
