package app

import (
	"testing"
	"time"

	"github.com/collectra/collections-service/internal/domain"
)

func TestAccountListCacheKey_FilterOrderInvariant(t *testing.T) {
	first := domain.AccountFilters{}
	first["status"] = "active"
	first["balance_min"] = int64(100)
	first["search"] = "acme"

	second := domain.AccountFilters{}
	second["search"] = "acme"
	second["balance_min"] = int64(100)
	second["status"] = "active"

	a := accountListCacheKey(domain.AccountListOptions{Page: 1, Limit: 10, Sort: "created_at", Order: "DESC", Filters: first})
	b := accountListCacheKey(domain.AccountListOptions{Page: 1, Limit: 10, Sort: "created_at", Order: "DESC", Filters: second})
	if a != b {
		t.Fatalf("keys differ for same filters:\n%s\n%s", a, b)
	}
}

func TestAccountListCacheKey_DistinguishesQueries(t *testing.T) {
	base := domain.AccountListOptions{Page: 1, Limit: 10, Sort: "created_at", Order: "DESC"}

	variants := []domain.AccountListOptions{
		{Page: 2, Limit: 10, Sort: "created_at", Order: "DESC"},
		{Page: 1, Limit: 20, Sort: "created_at", Order: "DESC"},
		{Page: 1, Limit: 10, Sort: "balance", Order: "DESC"},
		{Page: 1, Limit: 10, Sort: "created_at", Order: "ASC"},
		{Page: 1, Limit: 10, Sort: "created_at", Order: "DESC",
			Filters: domain.AccountFilters{"status": "active"}},
	}

	baseKey := accountListCacheKey(base)
	for i, v := range variants {
		if accountListCacheKey(v) == baseKey {
			t.Fatalf("variant %d produced the same key as base", i)
		}
	}
}

func TestBulkActivitiesCacheKey_SortsAccountIDs(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := bulkActivitiesCacheKey(domain.BulkActivityOptions{AccountIDs: []int64{3, 1, 2}, StartDate: &start, Limit: 50})
	b := bulkActivitiesCacheKey(domain.BulkActivityOptions{AccountIDs: []int64{1, 2, 3}, StartDate: &start, Limit: 50})
	if a != b {
		t.Fatalf("keys differ for same id set:\n%s\n%s", a, b)
	}

	c := bulkActivitiesCacheKey(domain.BulkActivityOptions{AccountIDs: []int64{1, 2, 4}, StartDate: &start, Limit: 50})
	if a == c {
		t.Fatalf("different id sets should produce different keys")
	}
}

func TestBulkActivitiesCacheKey_DoesNotMutateInput(t *testing.T) {
	ids := []int64{9, 4, 7}
	bulkActivitiesCacheKey(domain.BulkActivityOptions{AccountIDs: ids})
	if ids[0] != 9 || ids[1] != 4 || ids[2] != 7 {
		t.Fatalf("input slice was reordered: %v", ids)
	}
}

func TestScalarCacheKeys(t *testing.T) {
	if got := accountCacheKey(42); got != "account:42" {
		t.Fatalf("unexpected account key %q", got)
	}
	if got := paymentsCacheKey(7, 2, 25); got != "payments:7:2:25" {
		t.Fatalf("unexpected payments key %q", got)
	}
	if got := activitiesCacheKey(7, 1, 20, ""); got != "activities:7:1:20:all" {
		t.Fatalf("unexpected activities key %q", got)
	}
	if got := activitiesCacheKey(7, 1, 20, "call"); got != "activities:7:1:20:call" {
		t.Fatalf("unexpected typed activities key %q", got)
	}
	if got := userCacheKey(3); got != "user:3" {
		t.Fatalf("unexpected user key %q", got)
	}
}
