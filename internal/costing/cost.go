package costing

import (
	"strings"

	"github.com/shopspring/decimal"

	"vialerp/internal/variant"
)

// Ingredient is the costing view of a catalog ingredient.
type Ingredient struct {
	ID          uint
	Name        string
	BaseCost    decimal.Decimal
	Dimensions  []variant.Dimension
	Adjustments []Adjustment
}

// Line is one recipe entry.
type Line struct {
	IngredientID uint
	Quantity     decimal.Decimal
}

// Catalog indexes ingredients by id.
type Catalog map[uint]Ingredient

// Breakdown is the result of costing one combination.
type Breakdown struct {
	Total decimal.Decimal
	// Missing lists ingredient ids referenced by the recipe but absent from
	// the catalog. They contributed nothing to Total.
	Missing []uint
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MatchPrice returns the ingredient price for a target combination. ok is
// false when no adjustment matched and the base cost was used.
//
// An adjustment matches when every dimension the ingredient declares agrees
// with the target; a dimension the adjustment does not mention does not
// constrain it. When any adjustment of the ingredient is scoped to a branch,
// only adjustments for the target branch are considered. Among matching
// adjustments the one constraining most declared dimensions wins; ties go to
// the lowest key.
func MatchPrice(ing Ingredient, target variant.Key, branch variant.Branch) (price decimal.Decimal, ok bool) {
	if branch == "" {
		if value, found := target.Get(variant.BranchAttribute); found {
			branch = variant.Branch(value)
		}
	}

	branchScoped := false
	for _, adj := range ing.Adjustments {
		if _, scoped := adj.Key.Get(variant.BranchAttribute); scoped {
			branchScoped = true
			break
		}
	}

	best, bestScore := -1, -1
	for i, adj := range ing.Adjustments {
		if branchScoped {
			value, scoped := adj.Key.Get(variant.BranchAttribute)
			if !scoped || !strings.EqualFold(value, string(branch)) {
				continue
			}
		}

		score, matched := 0, true
		for _, dim := range ing.Dimensions {
			want, constrained := adj.Key.Get(dim.Name)
			if !constrained {
				continue
			}
			have, present := target.Get(dim.Name)
			if !present {
				continue
			}
			if !variant.SameValue(want, have) {
				matched = false
				break
			}
			score++
		}
		if matched && score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return ing.BaseCost, false
	}
	return ing.Adjustments[best].apply(ing.BaseCost), true
}

// Cost prices a combination from a recipe. With a nil anchor every line adds
// matched price × quantity. With an anchor, which must already embed each
// ingredient's base cost, every line adds only (matched price − base cost) ×
// quantity on top of it. Missing ingredients and non-positive quantities
// contribute nothing.
func Cost(lines []Line, catalog Catalog, target variant.Key, branch variant.Branch, anchor *decimal.Decimal) Breakdown {
	total := decimal.Zero
	if anchor != nil {
		total = *anchor
	}

	var missing []uint
	for _, line := range lines {
		ing, ok := catalog[line.IngredientID]
		if !ok {
			missing = append(missing, line.IngredientID)
			continue
		}
		if !line.Quantity.IsPositive() {
			continue
		}

		price, _ := MatchPrice(ing, target, branch)
		if anchor != nil {
			price = price.Sub(ing.BaseCost)
		}
		total = total.Add(price.Mul(line.Quantity))
	}

	return Breakdown{Total: Round(total), Missing: missing}
}

// AggregateBaseCost sums quantity × base cost over the recipe, ignoring
// missing ingredients and non-positive quantities.
func AggregateBaseCost(lines []Line, catalog Catalog) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		ing, ok := catalog[line.IngredientID]
		if !ok || !line.Quantity.IsPositive() {
			continue
		}
		total = total.Add(ing.BaseCost.Mul(line.Quantity))
	}
	return Round(total)
}
