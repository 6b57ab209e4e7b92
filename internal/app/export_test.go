package app

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

type exportRepoStub struct {
	store.Repository

	accounts []domain.Account
	filters  domain.AccountFilters
}

func (s *exportRepoStub) ExportAccounts(ctx context.Context, filters domain.AccountFilters) ([]domain.Account, error) {
	s.filters = filters
	return s.accounts, nil
}

func TestExportAccountsCSV(t *testing.T) {
	email := "ada@example.com"
	repo := &exportRepoStub{accounts: []domain.Account{
		{
			ID:            1,
			AccountNumber: "ACC-1",
			CustomerName:  "Ada Lovelace",
			CustomerEmail: &email,
			Balance:       125000,
			Status:        "active",
			CreatedAt:     time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{ID: 2, AccountNumber: "ACC-2", CustomerName: "Grace Hopper", Balance: 0, Status: "closed"},
	}}
	svc := newTestService(repo)

	payload, err := svc.ExportAccountsCSV(context.Background(), domain.AccountFilters{"status": "active"})
	if err != nil {
		t.Fatalf("ExportAccountsCSV returned error: %v", err)
	}
	if repo.filters["status"] != "active" {
		t.Fatalf("filters not forwarded: %v", repo.filters)
	}

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	if err != nil {
		t.Fatalf("csv parse failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "ID" || records[0][5] != "Balance" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][1] != "ACC-1" || records[1][3] != "ada@example.com" || records[1][5] != "125000" {
		t.Fatalf("unexpected first row %v", records[1])
	}
	if records[2][3] != "" {
		t.Fatalf("nil email should render empty, got %q", records[2][3])
	}
	if records[1][8] != "2026-03-15 09:30:00" {
		t.Fatalf("unexpected created_at formatting %q", records[1][8])
	}
}

func TestExportAccountsCSV_EmptyResultStillHasHeader(t *testing.T) {
	svc := newTestService(&exportRepoStub{})

	payload, err := svc.ExportAccountsCSV(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExportAccountsCSV returned error: %v", err)
	}
	if !strings.HasPrefix(string(payload), "ID,Account Number,") {
		t.Fatalf("expected header row, got %q", payload)
	}
}
