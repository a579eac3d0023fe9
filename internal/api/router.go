// Package api serves the worker manager's operational and form metadata
// endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/loan"
	"ethoscore/pkg/registry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readyTimeout = 3 * time.Second

// Checker is a dependency probed by /ready.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Options struct {
	Registry *registry.ActivityRegistry
	Checks   map[string]Checker
	Logger   logger.Logger
}

type handler struct {
	registry *registry.ActivityRegistry
	checks   map[string]Checker
	logger   logger.Logger
	now      func() time.Time
}

// NewRouter builds the HTTP routes:
//
//	GET  /health
//	GET  /ready
//	GET  /metrics
//	GET  /api/v1/activities
//	GET  /api/v1/loan-forms
//	GET  /api/v1/loan-forms/{category}
//	POST /api/v1/loan-forms/{category}/validate
func NewRouter(opts Options) *mux.Router {
	h := &handler{
		registry: opts.Registry,
		checks:   opts.Checks,
		logger:   opts.Logger.WithFields(map[string]interface{}{"component": "api"}),
		now:      time.Now,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/activities", h.activities).Methods(http.MethodGet)
	v1.HandleFunc("/loan-forms", h.listForms).Methods(http.MethodGet)
	v1.HandleFunc("/loan-forms/{category}", h.getForm).Methods(http.MethodGet)
	v1.HandleFunc("/loan-forms/{category}/validate", h.validateForm).Methods(http.MethodPost)
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err})
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *handler) activities(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, http.StatusNotFound, "activity registry not loaded")
		return
	}
	writeJSON(w, http.StatusOK, h.registry)
}

type formSummary struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Fields   int    `json:"fields"`
}

func (h *handler) listForms(w http.ResponseWriter, r *http.Request) {
	out := make([]formSummary, 0, len(loan.Categories()))
	for _, c := range loan.Categories() {
		out = append(out, formSummary{Category: c.String(), Label: c.Label(), Fields: len(loan.FieldsFor(c))})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getForm(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category.String(),
		"label":    category.Label(),
		"fields":   loan.FieldsFor(category),
		"schema":   loan.Schema(category),
	})
}

// validateForm checks a JSON object of field values without sending it
// anywhere.
func (h *handler) validateForm(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryFromPath(w, r)
	if !ok {
		return
	}

	var values map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	form, err := loan.FormFromValues(category, values)
	if err != nil {
		if errors.Is(err, loan.ErrUnknownField) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := form.Validate(); err != nil {
		var verr *loan.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"valid":  false,
				"errors": verr.Fields,
			})
			return
		}
		h.logger.Error("form validation errored", map[string]interface{}{"error": err})
		writeError(w, http.StatusInternalServerError, "validation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

func categoryFromPath(w http.ResponseWriter, r *http.Request) (loan.LoanCategory, bool) {
	category, err := loan.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown loan category")
		return 0, false
	}
	return category, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
