package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/forgeval/forgeval/internal/auth"
	"github.com/forgeval/forgeval/internal/platform"
	"github.com/forgeval/forgeval/internal/tracker"
)

// Handler serves the operator inspection API. Everything under /admin
// requires a valid bearer token; the rest is unauthenticated read-only
// introspection for harness operators.
type Handler struct {
	svc   *platform.Service
	admin *auth.Admin
}

// NewHandler creates a web handler around a platform service.
func NewHandler(svc *platform.Service, admin *auth.Admin) *Handler {
	return &Handler{svc: svc, admin: admin}
}

// RegisterRoutes registers the inspection routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/", h.handleInfo).Methods("GET")
	r.HandleFunc("/tools", h.handleTools).Methods("GET")
	r.HandleFunc("/activity", h.handleActivity).Methods("GET")
	r.HandleFunc("/issues", h.handleIssues).Methods("GET")
	r.HandleFunc("/repo", h.handleRepo).Methods("GET")
	r.Handle("/admin/reload", h.admin.Middleware(http.HandlerFunc(h.handleReload))).Methods("POST")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "mock developer platform",
		"readOnly":  h.svc.ReadOnly(),
		"toolCount": len(h.svc.Tools()),
	})
}

func (h *Handler) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.svc.Tools()})
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries := h.svc.Activity.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (h *Handler) handleIssues(w http.ResponseWriter, r *http.Request) {
	issues := h.svc.Tracker().ListIssues(tracker.IssueFilter{
		TeamKey:   r.URL.Query().Get("team"),
		StateType: r.URL.Query().Get("stateType"),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(issues),
		"issues": issues,
	})
}

func (h *Handler) handleRepo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"repository":   h.svc.Host().Meta(),
		"pullRequests": h.svc.Host().ListPulls(),
	})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reload(); err != nil {
		log.Printf("[Web] Reload failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Web] Failed to encode response: %v", err)
	}
}
