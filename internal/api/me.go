package api

import (
	"net/http"

	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/listing"
	"github.com/susu3304/bizbot/internal/report"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok", "store": db.Mode(a.store)}
	if err := a.store.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		a.logger.Error("health check failed", "error", err)
	}
	writeJSON(w, status, body)
}

// Protected handlers
func (a *API) handleMyTasks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	tasks, err := listing.SortedTasks(r.Context(), a.store, claims.UserID)
	if err != nil {
		a.logger.Error("failed to list tasks", "user", claims.UserID, "error", err)
		http.Error(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *API) handleMyDeals(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	deals, err := listing.SortedDeals(r.Context(), a.store, claims.UserID)
	if err != nil {
		a.logger.Error("failed to list deals", "user", claims.UserID, "error", err)
		http.Error(w, "failed to list deals", http.StatusInternalServerError)
		return
	}
	if deals == nil {
		deals = []db.Deal{}
	}
	writeJSON(w, http.StatusOK, deals)
}

func (a *API) handleMyReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	rep, err := report.Build(r.Context(), a.store, claims.UserID, a.now())
	if err != nil {
		a.logger.Error("failed to build report", "user", claims.UserID, "error", err)
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
