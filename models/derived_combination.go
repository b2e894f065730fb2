package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DerivedCombination is the materialized price row of one variant
// combination of a product. Rows are hard deleted when their key leaves the
// product's generated set, so the model carries no soft-delete column.
type DerivedCombination struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ProductID      uint           `gorm:"not null;uniqueIndex:idx_product_combination" json:"product_id"`
	CombinationKey string         `gorm:"not null;size:512;uniqueIndex:idx_product_combination" json:"combination_key"`
	Attributes     datatypes.JSON `json:"attributes"`

	ComputedCost  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"computed_cost"`
	ComputedPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"computed_price"`

	// Fields below are owned by people and the pricing calculator. The sync
	// engine never writes them after insert.
	ManualOverride        decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"manual_override"`
	CalculatorSnapshot    datatypes.JSON      `json:"calculator_snapshot,omitempty"`
	LegacyCalculatedPrice decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"legacy_calculated_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
