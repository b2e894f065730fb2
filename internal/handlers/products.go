package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vialerp/internal/catalog"
	applog "vialerp/internal/log"
	"vialerp/internal/pricing"
	"vialerp/internal/syncer"
	"vialerp/internal/variant"
)

// attrPrefix marks query parameters carrying a selected attribute, as in
// ?attr.Color=Rojo.
const attrPrefix = "attr."

// API serves the product endpoints.
type API struct {
	store  catalog.Store
	engine *syncer.Engine
	prices *pricing.Resolver
}

// NewAPI wires the product endpoints to a store and sync engine.
func NewAPI(store catalog.Store, engine *syncer.Engine) *API {
	return &API{
		store:  store,
		engine: engine,
		prices: pricing.NewResolver(store),
	}
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) bool {
	if a == nil || a.store == nil || a.engine == nil {
		applog.Debug(r.Context(), "product request without catalog")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return false
	}
	return true
}

func productID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		applog.Debug(r.Context(), "invalid product identifier", "identifier", raw)
		writeJSONError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return uint(id), true
}

// SyncProduct rebuilds the derived combinations of one product.
func (a *API) SyncProduct(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	report, err := a.engine.Sync(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeJSONError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		applog.Error(r.Context(), "product sync failed", "product_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to sync product")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ProductPrice resolves the sale price of a selected combination. The base
// price defaults to the product's stored base price.
func (a *API) ProductPrice(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	query := r.URL.Query()

	selected := make(map[string]string)
	for name, values := range query {
		if !strings.HasPrefix(name, attrPrefix) || len(values) == 0 {
			continue
		}
		selected[strings.TrimPrefix(name, attrPrefix)] = values[0]
	}

	var branch variant.Branch
	if raw := strings.TrimSpace(query.Get("branch")); raw != "" {
		parsed, ok := variant.ParseBranch(raw)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "unknown branch")
			return
		}
		branch = parsed
	}

	product, ok := a.product(w, r, id)
	if !ok {
		return
	}

	base := product.BasePrice
	if raw := strings.TrimSpace(query.Get("base")); raw != "" {
		var err error
		base, err = decimal.NewFromString(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid base price")
			return
		}
	}

	writeJSON(w, http.StatusOK, a.prices.Resolve(ctx, id, selected, branch, base))
}

// ProductDimensions returns the merged variant dimensions stored by the last
// sync.
func (a *API) ProductDimensions(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, ok := a.product(w, r, id)
	if !ok {
		return
	}

	dims, err := variant.ParseDimensions(product.Dimensions)
	if err != nil {
		applog.Warn(r.Context(), "stored dimensions unreadable", "product_id", id, "error", err)
	}
	if dims == nil {
		dims = []variant.Dimension{}
	}
	writeJSON(w, http.StatusOK, dims)
}
