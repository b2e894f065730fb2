package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	applog "vialerp/internal/log"
	"vialerp/internal/variant"
	"vialerp/models"
)

// Warnings returned in Resolution.Warnings.
const (
	WarnCombinationNotFound = "selected combination not found, using base price"
	WarnSnapshotUnreadable  = "calculator snapshot unreadable, ignoring it"
	WarnStoreUnavailable    = "combinations could not be loaded, using base price"
)

// Resolution is the sale price chosen for a selection.
type Resolution struct {
	Price decimal.Decimal `json:"price"`
	// Source names the tier that produced Price.
	Source string `json:"source"`
	// CombinationKey is the stored key that matched, empty when none did.
	CombinationKey string   `json:"combination_key,omitempty"`
	Warnings       []string `json:"warnings"`
}

// CombinationReader loads the stored derived combinations of a product.
type CombinationReader interface {
	ReadDerivedCombinations(ctx context.Context, productID uint) ([]models.DerivedCombination, error)
}

// Resolver resolves prices against a store.
type Resolver struct {
	store   CombinationReader
	sources []Source
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSources replaces the price hierarchy.
func WithSources(sources ...Source) Option {
	return func(r *Resolver) {
		r.sources = sources
	}
}

// NewResolver builds a Resolver reading from store.
func NewResolver(store CombinationReader, opts ...Option) *Resolver {
	r := &Resolver{store: store, sources: DefaultSources}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve loads the product's combinations and resolves the price of the
// selection. It never fails: a store error yields the base price and a
// warning.
func (r *Resolver) Resolve(ctx context.Context, productID uint, selected map[string]string, branch variant.Branch, base decimal.Decimal) Resolution {
	if len(selected) == 0 && branch == "" {
		return baseResolution(base)
	}

	ctx = applog.WithAttrs(ctx, "product_id", productID)
	combos, err := r.store.ReadDerivedCombinations(ctx, productID)
	if err != nil {
		applog.Error(ctx, "load derived combinations failed", "error", err)
		res := baseResolution(base)
		res.Warnings = append(res.Warnings, WarnStoreUnavailable)
		return res
	}
	return resolve(ctx, combos, selected, branch, base, r.sources)
}

// ResolveLoaded resolves the price of a selection against combinations
// already in memory, using DefaultSources.
func ResolveLoaded(combos []models.DerivedCombination, selected map[string]string, branch variant.Branch, base decimal.Decimal) Resolution {
	return resolve(context.Background(), combos, selected, branch, base, DefaultSources)
}

func resolve(ctx context.Context, combos []models.DerivedCombination, selected map[string]string, branch variant.Branch, base decimal.Decimal, sources []Source) Resolution {
	if len(selected) == 0 && branch == "" {
		return baseResolution(base)
	}

	combo, ok := Match(combos, selected, branch)
	if !ok {
		applog.Debug(ctx, "no stored combination for selection", "selection", variant.Encode(selected), "branch", branch)
		res := baseResolution(base)
		res.Warnings = append(res.Warnings, WarnCombinationNotFound)
		return res
	}

	return priceCombination(ctx, combo, base, sources)
}

// Price resolves the sale price of one stored combination.
func (r *Resolver) Price(ctx context.Context, combo models.DerivedCombination, base decimal.Decimal) Resolution {
	return priceCombination(ctx, combo, base, r.sources)
}

func priceCombination(ctx context.Context, combo models.DerivedCombination, base decimal.Decimal, sources []Source) Resolution {
	res := Resolution{CombinationKey: combo.CombinationKey, Warnings: []string{}}
	candidate, err := NewCandidate(combo)
	if err != nil {
		applog.Warn(ctx, "ignoring unreadable calculator snapshot", "combination", combo.CombinationKey, "error", err)
		res.Warnings = append(res.Warnings, WarnSnapshotUnreadable)
	}

	picked, source, found := Pick(candidate, sources)
	if !found {
		picked, source = base, SourceBase
	}
	res.Price, res.Source = picked, source
	return res
}

// Match finds the stored combination for a selection. It tries the exact
// key, then an equivalent key, and when a branch was requested repeats both
// without the branch.
func Match(combos []models.DerivedCombination, selected map[string]string, branch variant.Branch) (models.DerivedCombination, bool) {
	key := variant.NewKey(selected)
	if branch != "" {
		key = key.With(variant.BranchAttribute, string(branch))
	}
	if combo, ok := matchKey(combos, key.String()); ok {
		return combo, true
	}
	if branch == "" {
		return models.DerivedCombination{}, false
	}
	return matchKey(combos, key.Without(variant.BranchAttribute).String())
}

func matchKey(combos []models.DerivedCombination, want string) (models.DerivedCombination, bool) {
	for _, combo := range combos {
		if combo.CombinationKey == want {
			return combo, true
		}
	}
	for _, combo := range combos {
		if variant.Equivalent(combo.CombinationKey, want) {
			return combo, true
		}
	}
	return models.DerivedCombination{}, false
}

func baseResolution(base decimal.Decimal) Resolution {
	return Resolution{Price: base, Source: SourceBase, Warnings: []string{}}
}
