package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ingredient is a purchasable resource referenced by product recipes.
//
// Variants holds the dimensions the ingredient declares, for example
// [{"name":"Color","values":["Blanco:#ffffff","Negro"]}]. PriceAdjustments maps
// a combination key fragment such as "Color:Negro|Sucursal:La Paz" to a price
// adjustment object carrying either a delta or an absolute price.
type Ingredient struct {
	gorm.Model
	Name             string          `gorm:"not null" json:"name"`
	Unit             string          `json:"unit"`
	BaseCost         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"base_cost"`
	Variants         datatypes.JSON  `json:"variants,omitempty"`
	PriceAdjustments datatypes.JSON  `json:"price_adjustments,omitempty"`
}
