package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"vialerp/internal/catalog"
	applog "vialerp/internal/log"
	"vialerp/models"
)

const maxPricingBody = 1 << 20

// combinationView is a stored combination with the price it resolves to.
type combinationView struct {
	models.DerivedCombination
	Price    decimal.Decimal `json:"price"`
	Source   string          `json:"source"`
	Warnings []string        `json:"warnings"`
}

func (a *API) view(r *http.Request, combo models.DerivedCombination, base decimal.Decimal) combinationView {
	res := a.prices.Price(r.Context(), combo, base)
	return combinationView{
		DerivedCombination: combo,
		Price:              res.Price,
		Source:             res.Source,
		Warnings:           res.Warnings,
	}
}

// ListCombinations returns the stored combinations of a product with their
// resolved prices.
func (a *API) ListCombinations(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	product, ok := a.product(w, r, id)
	if !ok {
		return
	}
	combos, err := a.store.ReadDerivedCombinations(ctx, id)
	if err != nil {
		applog.Error(ctx, "failed to load combinations", "product_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load combinations")
		return
	}

	views := make([]combinationView, 0, len(combos))
	for _, combo := range combos {
		views = append(views, a.view(r, combo, product.BasePrice))
	}
	writeJSON(w, http.StatusOK, views)
}

// UpdateCombinationPricing sets or clears the manual override and the
// calculator snapshot of one combination. A field missing from the body is
// left alone; null clears it.
func (a *API) UpdateCombinationPricing(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	raw := r.PathValue("combinationID")
	combinationID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || combinationID == 0 {
		applog.Debug(ctx, "invalid combination identifier", "identifier", raw)
		writeJSONError(w, http.StatusBadRequest, "invalid combination id")
		return
	}

	update, err := decodePricingUpdate(http.MaxBytesReader(w, r.Body, maxPricingBody))
	if err != nil {
		applog.Debug(ctx, "invalid pricing update", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, ok := a.product(w, r, id)
	if !ok {
		return
	}
	combo, err := a.store.UpdateCombinationPricing(ctx, id, uint(combinationID), update)
	if errors.Is(err, catalog.ErrCombinationNotFound) {
		writeJSONError(w, http.StatusNotFound, "combination not found")
		return
	}
	if err != nil {
		applog.Error(ctx, "failed to update combination pricing", "product_id", id, "combination_id", combinationID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to update combination")
		return
	}

	applog.Info(ctx, "combination pricing updated",
		"product_id", id,
		"combination", combo.CombinationKey,
		"override", update.SetOverride,
		"snapshot", update.SetSnapshot,
	)
	writeJSON(w, http.StatusOK, a.view(r, combo, product.BasePrice))
}

// product loads a product, answering 404 or 500 itself when it cannot.
func (a *API) product(w http.ResponseWriter, r *http.Request, id uint) (models.Product, bool) {
	product, err := a.store.GetProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeJSONError(w, http.StatusNotFound, "product not found")
		return models.Product{}, false
	}
	if err != nil {
		applog.Error(r.Context(), "failed to load product", "product_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load product")
		return models.Product{}, false
	}
	return product, true
}

var jsonNull = []byte("null")

// decodePricingUpdate reads {"manual_override": …, "calculator_snapshot": …}.
// The override is a number or numeric string; the snapshot a JSON object.
func decodePricingUpdate(body io.Reader) (catalog.PricingUpdate, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		return catalog.PricingUpdate{}, fmt.Errorf("invalid body: %w", err)
	}

	var update catalog.PricingUpdate
	for name, value := range fields {
		value = bytes.TrimSpace(value)
		switch name {
		case "manual_override":
			update.SetOverride = true
			if bytes.Equal(value, jsonNull) {
				continue
			}
			var override decimal.Decimal
			if err := json.Unmarshal(value, &override); err != nil {
				return catalog.PricingUpdate{}, fmt.Errorf("invalid manual_override: %w", err)
			}
			update.Override = decimal.NewNullDecimal(override)
		case "calculator_snapshot":
			update.SetSnapshot = true
			if bytes.Equal(value, jsonNull) {
				continue
			}
			if len(value) == 0 || value[0] != '{' {
				return catalog.PricingUpdate{}, errors.New("calculator_snapshot must be an object or null")
			}
			update.Snapshot = datatypes.JSON(value)
		default:
			return catalog.PricingUpdate{}, fmt.Errorf("unknown field %q", name)
		}
	}
	if update.Empty() {
		return catalog.PricingUpdate{}, errors.New("nothing to update")
	}
	return update, nil
}
