/**
 * @description
 * This file builds the cache keys used by the read-through and invalidation
 * paths. List keys embed a canonical JSON rendering of the query tuple
 * (page, limit, sort, order, filters); encoding/json marshals map keys in
 * sorted order, so two requests with the same filters in a different order
 * always produce the same key.
 *
 * Key families:
 *   accounts:<canonical>                    filtered account pages
 *   account:<id>                            single account
 *   payments:<account>:<page>:<limit>       per-account payment history pages
 *   activities:<account>:<page>:<limit>:<type|all>  per-account timelines
 *   activities:bulk:<canonical>             cross-account activity queries
 *   user:<id>                               authenticated user sessions
 */

package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/collectra/collections-service/internal/domain"
)

const (
	listCacheTTL    = 5 * time.Minute
	entityCacheTTL  = 10 * time.Minute
	bulkCacheTTL    = 10 * time.Minute
	sessionCacheTTL = 24 * time.Hour
)

func accountListCacheKey(opts domain.AccountListOptions) string {
	canonical, _ := json.Marshal(struct {
		Page    int                   `json:"page"`
		Limit   int                   `json:"limit"`
		Sort    string                `json:"sort"`
		Order   string                `json:"order"`
		Filters domain.AccountFilters `json:"filters"`
	}{opts.Page, opts.Limit, opts.Sort, opts.Order, opts.Filters})
	return "accounts:" + string(canonical)
}

func accountCacheKey(accountID int64) string {
	return fmt.Sprintf("account:%d", accountID)
}

func paymentsCacheKey(accountID int64, page, limit int) string {
	return fmt.Sprintf("payments:%d:%d:%d", accountID, page, limit)
}

func activitiesCacheKey(accountID int64, page, limit int, activityType string) string {
	if activityType == "" {
		activityType = "all"
	}
	return fmt.Sprintf("activities:%d:%d:%d:%s", accountID, page, limit, activityType)
}

// bulkActivitiesCacheKey sorts a copy of the account IDs so the same
// selection expressed in a different order hits the same entry.
func bulkActivitiesCacheKey(opts domain.BulkActivityOptions) string {
	ids := append([]int64(nil), opts.AccountIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	canonical, _ := json.Marshal(struct {
		AccountIDs   []int64    `json:"account_ids"`
		ActivityType string     `json:"activity_type,omitempty"`
		StartDate    *time.Time `json:"start_date,omitempty"`
		EndDate      *time.Time `json:"end_date,omitempty"`
		Limit        int        `json:"limit"`
	}{ids, opts.ActivityType, opts.StartDate, opts.EndDate, opts.Limit})
	return "activities:bulk:" + string(canonical)
}

func userCacheKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
