/**
 * @description
 * CSV export of filtered accounts. Exports bypass the cache and reuse the
 * same compiled filter predicate as list queries, so an export always matches
 * what a filtered list would page through.
 */

package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"github.com/collectra/collections-service/internal/domain"
)

var exportHeader = []string{
	"ID", "Account Number", "Customer Name", "Customer Email", "Customer Phone",
	"Balance", "Status", "Assigned Agent", "Created At",
}

// ExportAccountsCSV renders every account matching the filters as CSV.
// Balances are emitted in minor units.
func (s *Service) ExportAccountsCSV(ctx context.Context, filters domain.AccountFilters) ([]byte, error) {
	accounts, err := s.repo.ExportAccounts(ctx, filters)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for i := range accounts {
		a := &accounts[i]
		record := []string{
			strconv.FormatInt(a.ID, 10),
			a.AccountNumber,
			a.CustomerName,
			derefString(a.CustomerEmail),
			derefString(a.CustomerPhone),
			strconv.FormatInt(a.Balance, 10),
			a.Status,
			derefInt64(a.AssignedAgent),
			a.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}
