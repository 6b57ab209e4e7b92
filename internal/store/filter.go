/**
 * @description
 * This file implements the dynamic filter compiler for account queries. It
 * translates an open-ended mapping of filter names to values into a list of
 * SQL predicate clauses plus the bound arguments in matching order, so that
 * list and export queries can share one parameterized predicate.
 *
 * Filter keys are iterated in sorted order, which keeps placeholder numbering
 * stable for semantically identical filter sets. Unrecognized keys fall
 * through to a column match, but only when the key passes an identifier check
 * and appears in the account column allow-list; a caller-supplied string is
 * never interpolated into the query as an identifier otherwise.
 *
 * @dependencies
 * - fmt, regexp, sort, strings: Standard Go libraries.
 * - internal/domain: For the AccountFilters type.
 */

package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/collectra/collections-service/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// filterableAccountColumns is the allow-list for the unrecognized-key escape
// hatch. Keys outside this set are rejected rather than interpolated.
var filterableAccountColumns = map[string]bool{
	"account_number": true,
	"customer_name":  true,
	"customer_email": true,
	"customer_phone": true,
	"balance":        true,
	"status":         true,
	"assigned_agent": true,
	"created_by":     true,
}

// updatableAccountColumns is the allow-list for single and bulk account
// updates. Identity, soft-delete state and timestamps are not client-writable.
var updatableAccountColumns = map[string]bool{
	"customer_name":  true,
	"customer_email": true,
	"customer_phone": true,
	"balance":        true,
	"status":         true,
	"assigned_agent": true,
	"address":        true,
	"metadata":       true,
}

// sortableAccountColumns is the allow-list for the ORDER BY column.
var sortableAccountColumns = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"customer_name":  true,
	"balance":        true,
	"status":         true,
	"account_number": true,
}

// compiledFilter holds the ordered predicate clauses and their bound values.
// The number of placeholders across clauses always equals len(args).
type compiledFilter struct {
	clauses []string
	args    []interface{}
}

// whereSQL renders the clauses as a conjunction appended to the base
// predicate, e.g. " AND status = $1 AND balance >= $2".
func (f *compiledFilter) whereSQL() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.clauses, " AND ")
}

// next returns the placeholder for the next bound argument.
func (f *compiledFilter) next(arg interface{}) string {
	f.args = append(f.args, arg)
	return fmt.Sprintf("$%d", len(f.args))
}

// compileAccountFilters builds the predicate for an account list/export query.
// Nil values are skipped. Returns ErrInvalidFilter for keys that are neither
// recognized nor allow-listed columns.
func compileAccountFilters(filters domain.AccountFilters) (*compiledFilter, error) {
	cf := &compiledFilter{}
	if len(filters) == 0 {
		return cf, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := filters[key]
		if value == nil {
			continue
		}

		switch key {
		case "status":
			cf.clauses = append(cf.clauses, "status = "+cf.next(value))
		case "assigned_agent":
			cf.clauses = append(cf.clauses, "assigned_agent = "+cf.next(value))
		case "customer_name":
			cf.clauses = append(cf.clauses, "customer_name ILIKE "+cf.next(containsPattern(value)))
		case "balance_min":
			cf.clauses = append(cf.clauses, "balance >= "+cf.next(value))
		case "balance_max":
			cf.clauses = append(cf.clauses, "balance <= "+cf.next(value))
		case "search":
			pattern := containsPattern(value)
			cf.clauses = append(cf.clauses, "(customer_name ILIKE "+cf.next(pattern)+" OR customer_email ILIKE "+cf.next(pattern)+")")
		case "date_range":
			if err := cf.compileDateRange(value); err != nil {
				return nil, err
			}
		case "custom_field":
			if err := cf.compileCustomField(value); err != nil {
				return nil, err
			}
		default:
			if !identifierPattern.MatchString(key) || !filterableAccountColumns[key] {
				return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, key)
			}
			if s, ok := value.(string); ok {
				cf.clauses = append(cf.clauses, key+" ILIKE "+cf.next("%"+s+"%"))
			} else {
				cf.clauses = append(cf.clauses, key+" = "+cf.next(value))
			}
		}
	}

	return cf, nil
}

// compileDateRange handles the date_range sub-object. Both bounds are
// inclusive and independently optional.
func (cf *compiledFilter) compileDateRange(value interface{}) error {
	sub, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: date_range must be an object with start/end", ErrInvalidFilter)
	}
	start, hasStart := sub["start"]
	end, hasEnd := sub["end"]
	switch {
	case hasStart && hasEnd:
		cf.clauses = append(cf.clauses, "created_at BETWEEN "+cf.next(start)+" AND "+cf.next(end))
	case hasStart:
		cf.clauses = append(cf.clauses, "created_at >= "+cf.next(start))
	case hasEnd:
		cf.clauses = append(cf.clauses, "created_at <= "+cf.next(end))
	default:
		return fmt.Errorf("%w: date_range requires start or end", ErrInvalidFilter)
	}
	return nil
}

// compileCustomField handles the custom_field sub-object, matching an entry
// inside the metadata JSON blob. The field name is passed as a bound value,
// never as an identifier.
func (cf *compiledFilter) compileCustomField(value interface{}) error {
	sub, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: custom_field must be an object with field/value", ErrInvalidFilter)
	}
	field, ok := sub["field"].(string)
	if !ok || strings.TrimSpace(field) == "" {
		return fmt.Errorf("%w: custom_field.field must be a non-empty string", ErrInvalidFilter)
	}
	fieldValue, ok := sub["value"]
	if !ok {
		return fmt.Errorf("%w: custom_field.value is required", ErrInvalidFilter)
	}
	cf.clauses = append(cf.clauses, "metadata->>"+cf.next(field)+" = "+cf.next(fmt.Sprintf("%v", fieldValue)))
	return nil
}

func containsPattern(value interface{}) string {
	return "%" + fmt.Sprintf("%v", value) + "%"
}

// NormalizeAccountListOptions clamps pagination to sane bounds and pins the
// sort column and direction to the allow-lists.
func NormalizeAccountListOptions(opts domain.AccountListOptions) domain.AccountListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if !sortableAccountColumns[opts.Sort] {
		opts.Sort = "created_at"
	}
	switch strings.ToUpper(opts.Order) {
	case "ASC":
		opts.Order = "ASC"
	default:
		opts.Order = "DESC"
	}
	return opts
}

// totalPages computes ceil(total / limit) for a positive limit.
func totalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ClampPageLimit bounds per-account history pagination the same way account
// lists are bounded.
func ClampPageLimit(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
