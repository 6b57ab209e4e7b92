/**
 * @description
 * HTTP handlers for account endpoints: the filtered paginated list, single
 * account reads, create/update/delete, the bulk update batch, and CSV export.
 * Cached list and entity reads are written back verbatim so identical
 * requests return byte-identical payloads.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/collectra/collections-service/internal/domain"
)

// ListAccountsHandler serves the filtered, paginated account list.
func (h *Handlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.AccountListOptions{
		Page:    queryInt(q, "page", 1),
		Limit:   queryInt(q, "limit", 10),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
		Filters: accountFiltersFromQuery(q),
	}

	payload, err := h.service.ListAccounts(r.Context(), opts)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

// GetAccountHandler serves a single account by ID.
func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlParamInt64(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	payload, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

// CreateAccountHandler creates a new collections account.
func (h *Handlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req, user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// UpdateAccountHandler applies a partial update to one account.
func (h *Handlers) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	accountID, ok := urlParamInt64(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), accountID, fields, user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccountHandler soft-deletes an account.
func (h *Handlers) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	accountID, ok := urlParamInt64(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	if _, err := h.service.DeleteAccount(r.Context(), accountID, user.ID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// BulkUpdateAccountsHandler applies a batch of account updates atomically.
func (h *Handlers) BulkUpdateAccountsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.service.BulkUpdateAccounts(r.Context(), req.Updates, user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated": len(results),
		"data":    results,
	})
}

// ExportAccountsHandler streams the filtered accounts as a CSV attachment.
func (h *Handlers) ExportAccountsHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.ExportAccountsCSV(r.Context(), accountFiltersFromQuery(r.URL.Query()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="accounts.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
