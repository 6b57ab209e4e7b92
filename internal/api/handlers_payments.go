/**
 * @description
 * HTTP handlers for payment endpoints: recording payments against an
 * account, the cached payment history, and status transitions.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/collectra/collections-service/internal/domain"
)

// RecordPaymentHandler records a payment against an account.
func (h *Handlers) RecordPaymentHandler(w http.ResponseWriter, r *http.Request) {
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

	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), accountID, req, user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// GetPaymentHistoryHandler serves an account's paginated payment history.
func (h *Handlers) GetPaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlParamInt64(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	q := r.URL.Query()
	opts := domain.PaymentListOptions{
		Page:  queryInt(q, "page", 1),
		Limit: queryInt(q, "limit", 10),
	}

	payload, err := h.service.GetPaymentHistory(r.Context(), accountID, opts)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

// UpdatePaymentStatusHandler transitions a payment's status.
func (h *Handlers) UpdatePaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	paymentID, ok := urlParamInt64(r, "paymentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid payment ID")
		return
	}

	var req domain.UpdatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.service.UpdatePaymentStatus(r.Context(), paymentID, req, user.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
