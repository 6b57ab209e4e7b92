package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/collectra/collections-service/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\$\d+`)

func TestCompileAccountFilters_PlaceholderCountMatchesArgs(t *testing.T) {
	filters := domain.AccountFilters{
		"status":        "active",
		"balance_min":   int64(1000),
		"balance_max":   int64(50000),
		"customer_name": "smith",
		"search":        "jones",
		"date_range":    map[string]interface{}{"start": "2026-01-01", "end": "2026-06-30"},
		"custom_field":  map[string]interface{}{"field": "tier", "value": "gold"},
	}

	cf, err := compileAccountFilters(filters)
	if err != nil {
		t.Fatalf("compileAccountFilters returned error: %v", err)
	}

	placeholders := placeholderPattern.FindAllString(cf.whereSQL(), -1)
	if len(placeholders) != len(cf.args) {
		t.Fatalf("expected %d args for %d placeholders, sql=%q", len(placeholders), len(cf.args), cf.whereSQL())
	}
}

func TestCompileAccountFilters_DeterministicSQL(t *testing.T) {
	filters := domain.AccountFilters{
		"status":      "active",
		"balance_min": int64(100),
		"search":      "acme",
	}

	first, err := compileAccountFilters(filters)
	if err != nil {
		t.Fatalf("compileAccountFilters returned error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := compileAccountFilters(filters)
		if err != nil {
			t.Fatalf("compileAccountFilters returned error: %v", err)
		}
		if again.whereSQL() != first.whereSQL() {
			t.Fatalf("sql not deterministic: %q vs %q", again.whereSQL(), first.whereSQL())
		}
	}
}

func TestCompileAccountFilters_RejectsUnknownKey(t *testing.T) {
	for _, key := range []string{
		"password_hash",
		"balance; DROP TABLE accounts--",
		"1=1",
		"accounts.id",
	} {
		_, err := compileAccountFilters(domain.AccountFilters{key: "x"})
		if !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("key %q: expected ErrInvalidFilter, got %v", key, err)
		}
	}
}

func TestCompileAccountFilters_SearchBindsPatternTwice(t *testing.T) {
	cf, err := compileAccountFilters(domain.AccountFilters{"search": "acme"})
	if err != nil {
		t.Fatalf("compileAccountFilters returned error: %v", err)
	}
	if len(cf.args) != 2 {
		t.Fatalf("expected 2 bound args for search, got %d", len(cf.args))
	}
	if cf.args[0] != "%acme%" || cf.args[1] != "%acme%" {
		t.Fatalf("expected both args to be the contains pattern, got %v", cf.args)
	}
}

func TestCompileAccountFilters_CustomFieldNameIsBound(t *testing.T) {
	cf, err := compileAccountFilters(domain.AccountFilters{
		"custom_field": map[string]interface{}{"field": "region", "value": "west"},
	})
	if err != nil {
		t.Fatalf("compileAccountFilters returned error: %v", err)
	}
	if got := cf.whereSQL(); got != " AND metadata->>$1 = $2" {
		t.Fatalf("unexpected sql %q", got)
	}
	if cf.args[0] != "region" {
		t.Fatalf("expected field name bound as first arg, got %v", cf.args[0])
	}
}

func TestCompileAccountFilters_SkipsNilValues(t *testing.T) {
	cf, err := compileAccountFilters(domain.AccountFilters{"status": nil})
	if err != nil {
		t.Fatalf("compileAccountFilters returned error: %v", err)
	}
	if cf.whereSQL() != "" || len(cf.args) != 0 {
		t.Fatalf("expected empty predicate, got %q with %d args", cf.whereSQL(), len(cf.args))
	}
}

func TestCompileDateRange_SingleBound(t *testing.T) {
	cf, err := compileAccountFilters(domain.AccountFilters{
		"date_range": map[string]interface{}{"start": "2026-01-01"},
	})
	if err != nil {
		t.Fatalf("compileAccountFilters returned error: %v", err)
	}
	if got := cf.whereSQL(); got != " AND created_at >= $1" {
		t.Fatalf("unexpected sql %q", got)
	}

	_, err = compileAccountFilters(domain.AccountFilters{
		"date_range": map[string]interface{}{},
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for empty date_range, got %v", err)
	}
}

func TestNormalizeAccountListOptions_Clamps(t *testing.T) {
	opts := NormalizeAccountListOptions(domain.AccountListOptions{
		Page:  -3,
		Limit: 5000,
		Sort:  "password_hash",
		Order: "drop table",
	})
	if opts.Page != 1 || opts.Limit != 100 {
		t.Fatalf("expected page=1 limit=100, got page=%d limit=%d", opts.Page, opts.Limit)
	}
	if opts.Sort != "created_at" || opts.Order != "DESC" {
		t.Fatalf("expected default sort/order, got %s %s", opts.Sort, opts.Order)
	}

	opts = NormalizeAccountListOptions(domain.AccountListOptions{Page: 2, Limit: 25, Sort: "balance", Order: "asc"})
	if opts.Page != 2 || opts.Limit != 25 || opts.Sort != "balance" || opts.Order != "ASC" {
		t.Fatalf("valid options should pass through, got %+v", opts)
	}
}

func TestBuildAccountSet_EnforcesAllowList(t *testing.T) {
	if _, _, err := buildAccountSet(map[string]interface{}{"is_deleted": true}); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("expected ErrInvalidColumn for is_deleted, got %v", err)
	}
	if _, _, err := buildAccountSet(map[string]interface{}{"balance = 0; --": 1}); !errors.Is(err, ErrInvalidColumn) {
		t.Fatalf("expected ErrInvalidColumn for malformed identifier, got %v", err)
	}
	if _, _, err := buildAccountSet(map[string]interface{}{}); !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields for empty update, got %v", err)
	}

	set, args, err := buildAccountSet(map[string]interface{}{"status": "closed", "balance": int64(0)})
	if err != nil {
		t.Fatalf("buildAccountSet returned error: %v", err)
	}
	if set != "balance = $1, status = $2, updated_at = NOW()" {
		t.Fatalf("unexpected set clause %q", set)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}

func TestClampPageLimit(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 1},
		{-5, 20, 1, 20},
		{3, 5000, 3, 100},
		{2, 25, 2, 25},
	}
	for _, tc := range cases {
		page, limit := ClampPageLimit(tc.page, tc.limit)
		if page != tc.wantPage || limit != tc.wantLimit {
			t.Fatalf("ClampPageLimit(%d, %d) = (%d, %d), want (%d, %d)",
				tc.page, tc.limit, page, limit, tc.wantPage, tc.wantLimit)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{101, 100, 2},
	}
	for _, tc := range cases {
		if got := totalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("totalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}
