/**
 * @description
 * HTTP handlers for activity endpoints: logging timeline entries (with the
 * duplicate-entry conflict response), the cached per-account timeline, and
 * the cross-account bulk query.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

// LogActivityHandler records a timeline entry against an account. A
// duplicate within the lookback window returns 409 with the existing entry.
func (h *Handlers) LogActivityHandler(w http.ResponseWriter, r *http.Request) {
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

	var req domain.CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	activity, err := h.service.LogActivity(r.Context(), accountID, user.ID, req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateActivity) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":    "Duplicate activity detected",
				"existing": activity,
			})
			return
		}
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

// GetActivityTimelineHandler serves an account's paginated activity timeline.
func (h *Handlers) GetActivityTimelineHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlParamInt64(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	q := r.URL.Query()
	opts := domain.ActivityListOptions{
		Page:         queryInt(q, "page", 1),
		Limit:        queryInt(q, "limit", 20),
		ActivityType: q.Get("type"),
	}

	payload, err := h.service.GetActivityTimeline(r.Context(), accountID, opts)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

// bulkActivitiesRequest is the body for the cross-account activity query.
type bulkActivitiesRequest struct {
	AccountIDs   []int64 `json:"account_ids"`
	ActivityType string  `json:"activity_type,omitempty"`
	StartDate    *string `json:"start_date,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
	Limit        int     `json:"limit,omitempty"`
}

// GetBulkActivitiesHandler serves activities across a set of accounts.
func (h *Handlers) GetBulkActivitiesHandler(w http.ResponseWriter, r *http.Request) {
	var req bulkActivitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts := domain.BulkActivityOptions{
		AccountIDs:   req.AccountIDs,
		ActivityType: req.ActivityType,
		Limit:        req.Limit,
	}
	var err error
	if opts.StartDate, err = parseDateParam(req.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date")
		return
	}
	if opts.EndDate, err = parseDateParam(req.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date")
		return
	}

	payload, err := h.service.GetBulkActivities(r.Context(), opts)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

func parseDateParam(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized date format")
}
