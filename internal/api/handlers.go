/**
 * @description
 * This file contains the shared plumbing for the HTTP handlers: the handler
 * struct, JSON response helpers, the mapping from service/store sentinel
 * errors to HTTP statuses, and request parsing helpers used across endpoints.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/collectra/collections-service/internal/app"
	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service *app.Service
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service) *Handlers {
	return &Handlers{service: service}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

// writeRawJSON sends a pre-marshaled payload unchanged, preserving
// byte-identical responses for cached reads.
func writeRawJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps sentinel errors onto HTTP statuses. Anything unmapped is
// logged and reported as a 500 without leaking internals.
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrPaymentNotFound),
		errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateAccountNumber),
		errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidFilter),
		errors.Is(err, store.ErrInvalidColumn),
		errors.Is(err, store.ErrNoFields),
		errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidRole),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, app.ErrWeakPassword),
		errors.Is(err, app.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrBatchTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrAccountLocked):
		writeError(w, http.StatusLocked, err.Error())
	default:
		log.Printf("level=error component=api msg=\"request failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// urlParamInt64 extracts a numeric URL parameter.
func urlParamInt64(r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// queryInt reads an integer query parameter, falling back on absence or junk.
func queryInt(q url.Values, name string, fallback int) int {
	value, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return fallback
	}
	return value
}

// accountFiltersFromQuery maps the list/export query parameters onto the
// filter mapping the compiler understands.
func accountFiltersFromQuery(q url.Values) domain.AccountFilters {
	filters := domain.AccountFilters{}

	for _, key := range []string{"status", "customer_name", "search"} {
		if v := q.Get(key); v != "" {
			filters[key] = v
		}
	}
	if v := q.Get("assigned_agent"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters["assigned_agent"] = id
		}
	}
	for _, key := range []string{"balance_min", "balance_max"} {
		if v := q.Get(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				filters[key] = n
			}
		}
	}

	dateRange := map[string]interface{}{}
	if v := q.Get("start_date"); v != "" {
		dateRange["start"] = v
	}
	if v := q.Get("end_date"); v != "" {
		dateRange["end"] = v
	}
	if len(dateRange) > 0 {
		filters["date_range"] = dateRange
	}

	if field := q.Get("custom_field"); field != "" {
		if value := q.Get("custom_value"); value != "" {
			filters["custom_field"] = map[string]interface{}{"field": field, "value": value}
		}
	}

	return filters
}
