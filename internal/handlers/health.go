package handlers

import (
	"net/http"
	"time"

	applog "vialerp/internal/log"
)

type healthResponse struct {
	Status  string    `json:"status"`
	Catalog string    `json:"catalog"`
	Time    time.Time `json:"time"`
}

// Health answers liveness checks. The process is reported ok even without a
// catalog; the catalog field tells whether product routes can be served.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "health check requested", "method", r.Method)

	catalog := "ready"
	if a == nil || a.store == nil || a.engine == nil {
		catalog = "unavailable"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Catalog: catalog,
		Time:    time.Now().UTC(),
	})
}
