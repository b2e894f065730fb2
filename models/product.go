package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Product struct {
	gorm.Model
	Code      string          `gorm:"uniqueIndex;not null" json:"code"`
	Name      string          `gorm:"not null" json:"name"`
	BaseCost  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"base_cost"`
	BasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"base_price"`
	// Dimensions is the merged variant metadata derived from the recipe. It
	// never contains the branch dimension.
	Dimensions datatypes.JSON `json:"dimensions,omitempty"`

	Recipe       []RecipeLine         `gorm:"foreignKey:ProductID" json:"recipe,omitempty"`
	Combinations []DerivedCombination `gorm:"foreignKey:ProductID" json:"combinations,omitempty"`
}

// RecipeLine is one bill-of-materials entry of a product.
type RecipeLine struct {
	gorm.Model
	ProductID    uint            `gorm:"not null;index" json:"product_id"`
	IngredientID uint            `gorm:"not null;index" json:"ingredient_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"quantity"`
	Position     int             `gorm:"not null;default:0" json:"position"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
