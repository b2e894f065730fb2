// Package catalog is the persistence boundary of the variant engine: products,
// their recipes and ingredients, and the materialized derived combinations.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"vialerp/internal/variant"
	"vialerp/models"
)

var (
	// ErrProductNotFound is returned when a product id does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrCombinationNotFound is returned when a derived combination id does
	// not exist or belongs to another product.
	ErrCombinationNotFound = errors.New("combination not found")
)

// Store is everything the sync engine and price resolver need from storage.
type Store interface {
	// GetProduct returns the product with its recipe ordered by position.
	GetProduct(ctx context.Context, id uint) (models.Product, error)
	// GetIngredientsByIDs returns the ingredients that exist; unknown ids are
	// omitted without error.
	GetIngredientsByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error)
	ReadDerivedCombinations(ctx context.Context, productID uint) ([]models.DerivedCombination, error)
	// WriteDerivedCombinations applies ops in order as one batch. Every op is
	// attempted; the returned error is the first failure. Applied ops are
	// not rolled back.
	WriteDerivedCombinations(ctx context.Context, ops []Op) ([]OpResult, error)
	// WriteDimensionMetadata stores the merged dimensions of a product. Nil
	// clears them.
	WriteDimensionMetadata(ctx context.Context, productID uint, dims []variant.Dimension) error
	// UpdateCombinationPricing changes the manual override and calculator
	// snapshot of one stored combination and returns the updated row.
	UpdateCombinationPricing(ctx context.Context, productID, combinationID uint, update PricingUpdate) (models.DerivedCombination, error)
	// ListProductIDsToSync returns every product with a recipe, plus products
	// that still carry derived data a sync must clear.
	ListProductIDsToSync(ctx context.Context) ([]uint, error)
}

// OpKind is the kind of change applied to a derived combination.
type OpKind int

const (
	OpInsert OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one write of a sync batch. Updates and deletes address the row by
// Combination.ID; updates only change the computed cost and price.
type Op struct {
	Kind        OpKind
	Combination models.DerivedCombination
}

// OpResult reports the outcome of one Op.
type OpResult struct {
	Op  Op
	Err error
}

// FirstError returns the error of the first failed op.
func FirstError(results []OpResult) error {
	for _, result := range results {
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}

// PricingUpdate carries the price inputs people and the pricing calculator
// own. Fields whose Set flag is false are left alone; a set field holding no
// value clears the column.
type PricingUpdate struct {
	SetOverride bool
	Override    decimal.NullDecimal

	SetSnapshot bool
	Snapshot    datatypes.JSON
}

// Empty reports whether the update changes nothing.
func (u PricingUpdate) Empty() bool {
	return !u.SetOverride && !u.SetSnapshot
}
