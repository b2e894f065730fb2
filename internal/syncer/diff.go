package syncer

import (
	"vialerp/internal/catalog"
	"vialerp/models"
)

// Diff turns the stored and freshly generated combinations of a product into
// write ops. Keys are compared as stored strings. Targets missing from storage
// are inserted, present ones are updated with the stored row id, and stored
// rows absent from targets are deleted. Inserts and updates follow target
// order; deletes follow stored order.
func Diff(stored, targets []models.DerivedCombination) []catalog.Op {
	existing := make(map[string]models.DerivedCombination, len(stored))
	for _, combo := range stored {
		existing[combo.CombinationKey] = combo
	}

	ops := make([]catalog.Op, 0, len(targets)+len(stored))
	wanted := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		wanted[target.CombinationKey] = struct{}{}

		current, ok := existing[target.CombinationKey]
		if !ok {
			ops = append(ops, catalog.Op{Kind: catalog.OpInsert, Combination: target})
			continue
		}
		current.ComputedCost = target.ComputedCost
		current.ComputedPrice = target.ComputedPrice
		ops = append(ops, catalog.Op{Kind: catalog.OpUpdate, Combination: current})
	}

	for _, combo := range stored {
		if _, ok := wanted[combo.CombinationKey]; !ok {
			ops = append(ops, catalog.Op{Kind: catalog.OpDelete, Combination: combo})
		}
	}
	return ops
}
