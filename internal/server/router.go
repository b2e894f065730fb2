package server

import (
	"context"
	"net/http"

	"vialerp/internal/handlers"
	applog "vialerp/internal/log"
)

func newRouter(api *handlers.API) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /healthz", api.Health},
		{"POST /products/{id}/sync", api.SyncProduct},
		{"GET /products/{id}/price", api.ProductPrice},
		{"GET /products/{id}/dimensions", api.ProductDimensions},
		{"GET /products/{id}/combinations", api.ListCombinations},
		{"PATCH /products/{id}/combinations/{combinationID}", api.UpdateCombinationPricing},
	}
	for _, route := range routes {
		mux.HandleFunc(route.pattern, route.handler)
		applog.Debug(context.Background(), "route registered", "pattern", route.pattern)
	}
	return mux
}
