package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vialerp/internal/variant"
	"vialerp/models"
)

// GormStore implements Store on a gorm database.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps an opened and migrated database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetProduct(ctx context.Context, id uint) (models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Recipe", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("load product %d: %w", id, err)
	}
	return product, nil
}

func (s *GormStore) GetIngredientsByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ingredients []models.Ingredient
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *GormStore) ReadDerivedCombinations(ctx context.Context, productID uint) ([]models.DerivedCombination, error) {
	var combos []models.DerivedCombination
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("combination_key ASC").
		Find(&combos).Error
	if err != nil {
		return nil, fmt.Errorf("load derived combinations of product %d: %w", productID, err)
	}
	return combos, nil
}

func (s *GormStore) WriteDerivedCombinations(ctx context.Context, ops []Op) ([]OpResult, error) {
	results := make([]OpResult, 0, len(ops))
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			results = append(results, OpResult{Op: op, Err: err})
			continue
		}
		results = append(results, OpResult{Op: op, Err: s.apply(ctx, op)})
	}
	return results, FirstError(results)
}

func (s *GormStore) apply(ctx context.Context, op Op) error {
	tx := s.db.WithContext(ctx)
	combo := op.Combination

	switch op.Kind {
	case OpInsert:
		combo.ID = 0
		if err := tx.Create(&combo).Error; err != nil {
			return fmt.Errorf("insert combination %q: %w", combo.CombinationKey, err)
		}
		return nil

	case OpUpdate:
		res := tx.Model(&models.DerivedCombination{}).
			Where("id = ?", combo.ID).
			Updates(map[string]any{
				"computed_cost":  combo.ComputedCost,
				"computed_price": combo.ComputedPrice,
			})
		if res.Error != nil {
			return fmt.Errorf("update combination %q: %w", combo.CombinationKey, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update combination %q: %w", combo.CombinationKey, gorm.ErrRecordNotFound)
		}
		return nil

	case OpDelete:
		if err := tx.Delete(&models.DerivedCombination{}, combo.ID).Error; err != nil {
			return fmt.Errorf("delete combination %q: %w", combo.CombinationKey, err)
		}
		return nil

	default:
		return fmt.Errorf("combination %q: unsupported op %s", combo.CombinationKey, op.Kind)
	}
}

func (s *GormStore) WriteDimensionMetadata(ctx context.Context, productID uint, dims []variant.Dimension) error {
	var value any
	if dims != nil {
		encoded, err := json.Marshal(dims)
		if err != nil {
			return fmt.Errorf("encode dimensions: %w", err)
		}
		value = datatypes.JSON(encoded)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("dimensions", value)
	if res.Error != nil {
		return fmt.Errorf("store dimensions of product %d: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store dimensions of product %d: %w", productID, ErrProductNotFound)
	}
	return nil
}

func (s *GormStore) UpdateCombinationPricing(ctx context.Context, productID, combinationID uint, update PricingUpdate) (models.DerivedCombination, error) {
	tx := s.db.WithContext(ctx)

	fields := make(map[string]any, 2)
	if update.SetOverride {
		fields["manual_override"] = nil
		if update.Override.Valid {
			fields["manual_override"] = update.Override.Decimal
		}
	}
	if update.SetSnapshot {
		fields["calculator_snapshot"] = nil
		if snapshot := bytes.TrimSpace(update.Snapshot); len(snapshot) > 0 && !bytes.Equal(snapshot, []byte("null")) {
			fields["calculator_snapshot"] = datatypes.JSON(snapshot)
		}
	}

	if len(fields) > 0 {
		res := tx.Model(&models.DerivedCombination{}).
			Where("id = ? AND product_id = ?", combinationID, productID).
			Updates(fields)
		if res.Error != nil {
			return models.DerivedCombination{}, fmt.Errorf("update pricing of combination %d: %w", combinationID, res.Error)
		}
		if res.RowsAffected == 0 {
			return models.DerivedCombination{}, fmt.Errorf("combination %d of product %d: %w", combinationID, productID, ErrCombinationNotFound)
		}
	}

	var combo models.DerivedCombination
	err := tx.Where("product_id = ?", productID).First(&combo, combinationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DerivedCombination{}, fmt.Errorf("combination %d of product %d: %w", combinationID, productID, ErrCombinationNotFound)
	}
	if err != nil {
		return models.DerivedCombination{}, fmt.Errorf("load combination %d: %w", combinationID, err)
	}
	return combo, nil
}

func (s *GormStore) ListProductIDsToSync(ctx context.Context) ([]uint, error) {
	withRecipe := s.db.Model(&models.RecipeLine{}).Select("product_id")
	withCombinations := s.db.Model(&models.DerivedCombination{}).Select("product_id")

	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN (?) OR id IN (?) OR dimensions IS NOT NULL", withRecipe, withCombinations).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list products to sync: %w", err)
	}
	return ids, nil
}
