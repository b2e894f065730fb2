// Package syncer rebuilds the derived combinations of products from their
// recipes and reconciles them with storage.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"vialerp/internal/catalog"
	"vialerp/internal/costing"
	applog "vialerp/internal/log"
	"vialerp/internal/variant"
	"vialerp/models"
)

// Report summarizes one product sync. Counts only include ops that were
// applied.
type Report struct {
	ProductID uint `json:"product_id"`
	Inserted  int  `json:"inserted"`
	Updated   int  `json:"updated"`
	Deleted   int  `json:"deleted"`
	// Cleared is set when the recipe was empty and all derived data removed.
	Cleared bool `json:"cleared"`
	// MissingIngredients lists recipe ingredients that no longer exist.
	MissingIngredients []uint `json:"missing_ingredients,omitempty"`
}

// Engine syncs products against a catalog store. Syncs of the same product
// are serialized; different products may sync concurrently.
type Engine struct {
	store    catalog.Store
	branches []variant.Branch
	timeout  time.Duration
	locks    keyedLocker
}

// Option configures an Engine.
type Option func(*Engine)

// WithBranches overrides the branches every combination is generated for.
func WithBranches(branches ...variant.Branch) Option {
	return func(e *Engine) {
		e.branches = branches
	}
}

// WithTimeout bounds each product sync. Zero leaves the caller's deadline
// alone.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New returns an Engine writing to store.
func New(store catalog.Store, opts ...Option) *Engine {
	e := &Engine{store: store, branches: variant.Branches}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync rebuilds the derived combinations of one product. Store errors are
// returned as is, wrapped; the partial report still counts the applied ops.
// Re-running after a failure converges.
func (e *Engine) Sync(ctx context.Context, productID uint) (Report, error) {
	unlock := e.locks.lock(productID)
	defer unlock()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	ctx = applog.WithAttrs(ctx, "product_id", productID)
	report := Report{ProductID: productID}

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return report, err
	}
	stored, err := e.store.ReadDerivedCombinations(ctx, productID)
	if err != nil {
		return report, err
	}

	if len(product.Recipe) == 0 {
		return e.clear(ctx, report, stored)
	}

	ingredients, err := e.store.GetIngredientsByIDs(ctx, recipeIngredientIDs(product.Recipe))
	if err != nil {
		return report, err
	}
	catalogue, dims := e.costingCatalog(ctx, ingredients, product.Recipe)

	if dims == nil {
		dims = []variant.Dimension{}
	}
	if err := e.store.WriteDimensionMetadata(ctx, productID, dims); err != nil {
		return report, err
	}

	lines := make([]costing.Line, 0, len(product.Recipe))
	for _, line := range product.Recipe {
		lines = append(lines, costing.Line{IngredientID: line.IngredientID, Quantity: line.Quantity})
	}
	anchor := costing.AggregateBaseCost(lines, catalogue)

	var targets []models.DerivedCombination
	for combo := range variant.Generate(dims, e.branches) {
		breakdown := costing.Cost(lines, catalogue, combo.Key, combo.Branch, &anchor)
		if report.MissingIngredients == nil && len(breakdown.Missing) > 0 {
			report.MissingIngredients = breakdown.Missing
		}

		attrs, err := json.Marshal(combo.Attributes())
		if err != nil {
			return report, fmt.Errorf("encode attributes of %q: %w", combo, err)
		}
		targets = append(targets, models.DerivedCombination{
			ProductID:      productID,
			CombinationKey: combo.String(),
			Attributes:     attrs,
			ComputedCost:   breakdown.Total,
			ComputedPrice:  breakdown.Total,
		})
	}
	if len(report.MissingIngredients) > 0 {
		applog.Warn(ctx, "recipe references missing ingredients", "ingredient_ids", report.MissingIngredients)
	}

	ops := Diff(stored, targets)
	if err := e.write(ctx, &report, ops); err != nil {
		return report, err
	}

	applog.Info(ctx, "product synced",
		"combinations", len(targets),
		"inserted", report.Inserted,
		"updated", report.Updated,
		"deleted", report.Deleted,
		"base_cost", anchor.StringFixed(2),
	)
	return report, nil
}

// clear removes every derived combination and the dimension metadata of a
// product whose recipe is empty.
func (e *Engine) clear(ctx context.Context, report Report, stored []models.DerivedCombination) (Report, error) {
	report.Cleared = true

	ops := make([]catalog.Op, 0, len(stored))
	for _, combo := range stored {
		ops = append(ops, catalog.Op{Kind: catalog.OpDelete, Combination: combo})
	}
	if err := e.write(ctx, &report, ops); err != nil {
		return report, err
	}
	if err := e.store.WriteDimensionMetadata(ctx, report.ProductID, nil); err != nil {
		return report, err
	}

	applog.Info(ctx, "product has no recipe, derived data cleared", "deleted", report.Deleted)
	return report, nil
}

func (e *Engine) write(ctx context.Context, report *Report, ops []catalog.Op) error {
	if len(ops) == 0 {
		return nil
	}
	results, err := e.store.WriteDerivedCombinations(ctx, ops)
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		switch result.Op.Kind {
		case catalog.OpInsert:
			report.Inserted++
		case catalog.OpUpdate:
			report.Updated++
		case catalog.OpDelete:
			report.Deleted++
		}
	}
	if err != nil {
		return fmt.Errorf("write derived combinations of product %d: %w", report.ProductID, err)
	}
	return nil
}

// costingCatalog converts stored ingredients for costing and merges their
// dimensions in recipe order. Malformed variant or adjustment documents are
// logged and treated as absent.
func (e *Engine) costingCatalog(ctx context.Context, ingredients []models.Ingredient, recipe []models.RecipeLine) (costing.Catalog, []variant.Dimension) {
	catalogue := make(costing.Catalog, len(ingredients))
	for _, ing := range ingredients {
		dims, err := variant.ParseDimensions(ing.Variants)
		if err != nil {
			applog.Warn(ctx, "ignoring malformed ingredient variants", "ingredient_id", ing.ID, "error", err)
		}
		adjustments, err := costing.ParseAdjustments(ing.PriceAdjustments)
		if err != nil {
			applog.Warn(ctx, "ignoring malformed price adjustments", "ingredient_id", ing.ID, "error", err)
		}
		catalogue[ing.ID] = costing.Ingredient{
			ID:          ing.ID,
			Name:        ing.Name,
			BaseCost:    ing.BaseCost,
			Dimensions:  variant.MergeDimensions(dims),
			Adjustments: adjustments,
		}
	}

	groups := make([][]variant.Dimension, 0, len(recipe))
	for _, line := range recipe {
		if ing, ok := catalogue[line.IngredientID]; ok {
			groups = append(groups, ing.Dimensions)
		}
	}
	return catalogue, variant.MergeDimensions(groups...)
}

func recipeIngredientIDs(recipe []models.RecipeLine) []uint {
	seen := make(map[uint]struct{}, len(recipe))
	ids := make([]uint, 0, len(recipe))
	for _, line := range recipe {
		if _, ok := seen[line.IngredientID]; ok {
			continue
		}
		seen[line.IngredientID] = struct{}{}
		ids = append(ids, line.IngredientID)
	}
	return ids
}

// SyncMany syncs products on at most workers goroutines. A failing product
// does not stop the others; failures are joined into the returned error.
// Reports are returned in ids order.
func (e *Engine) SyncMany(ctx context.Context, ids []uint, workers int) ([]Report, error) {
	if workers < 1 {
		workers = 1
	}

	reports := make([]Report, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			report, err := e.Sync(ctx, id)
			reports[i] = report
			if err != nil {
				applog.Error(ctx, "product sync failed", "product_id", id, "error", err)
				errs[i] = fmt.Errorf("product %d: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// SyncAll syncs every product that has a recipe, and clears products whose
// recipe was emptied since their last sync.
func (e *Engine) SyncAll(ctx context.Context, workers int) ([]Report, error) {
	ids, err := e.store.ListProductIDsToSync(ctx)
	if err != nil {
		return nil, err
	}
	applog.Info(ctx, "rebuilding derived combinations", "products", len(ids), "workers", workers)
	return e.SyncMany(ctx, ids, workers)
}
