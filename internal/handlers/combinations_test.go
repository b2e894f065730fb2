package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vialerp/internal/pricing"
)

const blackLargeLaPaz = "Color:Negro|Sucursal:La Paz|Tamaño:Grande"

func (c testCatalog) combinations(t *testing.T, id uint) map[string]combinationView {
	t.Helper()
	w := serve(c.api.ListCombinations, http.MethodGet, fmt.Sprintf("/products/%d/combinations", id), nil, "id", fmt.Sprint(id))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var views []combinationView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	out := make(map[string]combinationView, len(views))
	for _, view := range views {
		out[view.CombinationKey] = view
	}
	return out
}

func (c testCatalog) patch(t *testing.T, combinationID uint, body string) combinationView {
	t.Helper()
	id := fmt.Sprint(c.mug.ID)
	target := fmt.Sprintf("/products/%s/combinations/%d", id, combinationID)
	w := serve(c.api.UpdateCombinationPricing, http.MethodPatch, target, strings.NewReader(body),
		"id", id, "combinationID", fmt.Sprint(combinationID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view combinationView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func assertPrice(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want price %s, got %s", want, got)
}

func TestListCombinations(t *testing.T) {
	t.Parallel()
	c := newTestCatalog(t)

	assert.Empty(t, c.combinations(t, c.mug.ID), "nothing stored before the first sync")

	c.sync(t, c.mug.ID)
	views := c.combinations(t, c.mug.ID)
	require.Len(t, views, 8)

	view := views[blackLargeLaPaz]
	assertPrice(t, "20.90", view.Price)
	assert.Equal(t, pricing.SourceLegacy, view.Source)
	assert.Empty(t, view.Warnings)
	assert.Equal(t, c.mug.ID, view.ProductID)

	w := serve(c.api.ListCombinations, http.MethodGet, "/products/4242/combinations", nil, "id", "4242")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCombinationPricingDrivesThePriceHierarchy(t *testing.T) {
	t.Parallel()
	c := newTestCatalog(t)
	c.sync(t, c.mug.ID)
	combo := c.combinations(t, c.mug.ID)[blackLargeLaPaz]

	view := c.patch(t, combo.ID, `{"manual_override": "25"}`)
	assertPrice(t, "25", view.Price)
	assert.Equal(t, pricing.SourceOverride, view.Source)
	require.True(t, view.ManualOverride.Valid)

	view = c.patch(t, combo.ID, `{"calculator_snapshot": {"totalPrice": 25.004}}`)
	assertPrice(t, "25.004", view.Price)
	assert.Equal(t, pricing.SourceStaleOverride, view.Source, "an override equal to the calculator is stale")
	assert.True(t, view.ManualOverride.Valid, "a missing field is left alone")

	view = c.patch(t, combo.ID, `{"manual_override": 30}`)
	assertPrice(t, "30", view.Price)
	assert.Equal(t, pricing.SourceOverride, view.Source)

	view = c.patch(t, combo.ID, `{"manual_override": null}`)
	assertPrice(t, "25.004", view.Price)
	assert.Equal(t, pricing.SourceCalculator, view.Source)
	assert.False(t, view.ManualOverride.Valid)

	view = c.patch(t, combo.ID, `{"calculator_snapshot": null}`)
	assertPrice(t, "20.90", view.Price)
	assert.Equal(t, pricing.SourceLegacy, view.Source)

	// The price endpoint reads the same stored inputs.
	c.patch(t, combo.ID, `{"manual_override": "27.5"}`)
	query := url.Values{"attr.Color": {"Negro"}, "attr.Tamaño": {"Grande"}, "branch": {"La Paz"}}
	id := fmt.Sprint(c.mug.ID)
	w := serve(c.api.ProductPrice, http.MethodGet, "/products/"+id+"/price?"+query.Encode(), nil, "id", id)
	var res pricing.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assertPrice(t, "27.5", res.Price)
	assert.Equal(t, pricing.SourceOverride, res.Source)

	// A resync keeps what people set.
	c.sync(t, c.mug.ID)
	after := c.combinations(t, c.mug.ID)[blackLargeLaPaz]
	assert.Equal(t, combo.ID, after.ID)
	assertPrice(t, "27.5", after.Price)
}

func TestUpdateCombinationPricingErrors(t *testing.T) {
	t.Parallel()
	c := newTestCatalog(t)
	c.sync(t, c.mug.ID)
	combo := c.combinations(t, c.mug.ID)[blackLargeLaPaz]

	mug := fmt.Sprint(c.mug.ID)
	comboID := fmt.Sprint(combo.ID)
	tests := []struct {
		name        string
		productID   string
		combination string
		body        string
		want        int
	}{
		{"empty object", mug, comboID, `{}`, http.StatusBadRequest},
		{"not json", mug, comboID, `override=3`, http.StatusBadRequest},
		{"non numeric override", mug, comboID, `{"manual_override": "cheap"}`, http.StatusBadRequest},
		{"snapshot not an object", mug, comboID, `{"calculator_snapshot": [1]}`, http.StatusBadRequest},
		{"unknown field", mug, comboID, `{"precio": 3}`, http.StatusBadRequest},
		{"malformed combination id", mug, "x", `{"manual_override": 3}`, http.StatusBadRequest},
		{"unknown combination", mug, "9999", `{"manual_override": 3}`, http.StatusNotFound},
		{"combination of another product", fmt.Sprint(c.design.ID), comboID, `{"manual_override": 3}`, http.StatusNotFound},
		{"unknown product", "4242", comboID, `{"manual_override": 3}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(c.api.UpdateCombinationPricing, http.MethodPatch, "/products/x/combinations/y",
				strings.NewReader(tt.body), "id", tt.productID, "combinationID", tt.combination)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	after := c.combinations(t, c.mug.ID)[blackLargeLaPaz]
	assert.False(t, after.ManualOverride.Valid, "rejected updates change nothing")
}
