/**
 * @description
 * Payment business logic: recording payments against accounts, the
 * completed-status transition that decrements the account balance exactly
 * once, and the cached per-account payment history.
 */

package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/collectra/collections-service/internal/cache"
	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

// RecordPayment persists a payment against an account. A payment created
// directly in completed status has its amount applied to the account balance
// as part of the same request.
func (s *Service) RecordPayment(ctx context.Context, accountID int64, req domain.CreatePaymentRequest, actorID int64) (*domain.Payment, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	switch req.Status {
	case "", domain.PaymentStatusPending, domain.PaymentStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	payment, err := s.repo.CreatePayment(ctx, accountID, req, actorID)
	if err != nil {
		return nil, err
	}

	balanceApplied := false
	if req.Status == domain.PaymentStatusCompleted {
		payment, err = s.repo.CompletePayment(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		balanceApplied = payment.BalanceApplied
	}

	metadata, _ := json.Marshal(map[string]interface{}{"payment_id": payment.ID, "amount": payment.Amount})
	s.recordActivity(ctx, accountID, actorID, "payment_recorded",
		fmt.Sprintf("Payment of %d recorded", payment.Amount), metadata)
	s.invalidatePaymentCaches(ctx, accountID, balanceApplied)

	s.publishEntityEvent(ctx, "payment.recorded", "payment", payment.ID, accountID, actorID)
	if balanceApplied {
		s.publishEntityEvent(ctx, "payment.completed", "payment", payment.ID, accountID, actorID)
	}
	return payment, nil
}

// UpdatePaymentStatus transitions a payment. The completed transition routes
// through the store's idempotent completion, so repeating it (or racing it)
// applies the balance decrement at most once.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentID int64, req domain.UpdatePaymentStatusRequest, actorID int64) (*domain.Payment, error) {
	switch req.Status {
	case domain.PaymentStatusPending, domain.PaymentStatusCompleted,
		domain.PaymentStatusFailed, domain.PaymentStatusRefunded:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	before, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	if req.Status == domain.PaymentStatusCompleted {
		payment, err = s.repo.CompletePayment(ctx, paymentID)
		if err == nil && req.Notes != nil {
			payment, err = s.repo.UpdatePaymentStatus(ctx, paymentID, domain.PaymentStatusCompleted, req.Notes)
		}
	} else {
		payment, err = s.repo.UpdatePaymentStatus(ctx, paymentID, req.Status, req.Notes)
	}
	if err != nil {
		return nil, err
	}

	balanceApplied := payment.BalanceApplied && !before.BalanceApplied
	s.recordActivity(ctx, payment.AccountID, actorID, "payment_status_updated",
		fmt.Sprintf("Payment %d status changed from %s to %s", paymentID, before.Status, payment.Status), nil)
	s.invalidatePaymentCaches(ctx, payment.AccountID, balanceApplied)

	if balanceApplied {
		s.publishEntityEvent(ctx, "payment.completed", "payment", payment.ID, payment.AccountID, actorID)
	}
	return payment, nil
}

// GetPaymentHistory serves an account's payment page, read-through the cache.
func (s *Service) GetPaymentHistory(ctx context.Context, accountID int64, opts domain.PaymentListOptions) ([]byte, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	opts.Page, opts.Limit = store.ClampPageLimit(opts.Page, opts.Limit)
	key := paymentsCacheKey(accountID, opts.Page, opts.Limit)
	if lookup := s.cache.Get(ctx, key); lookup.Status == cache.Hit {
		return lookup.Value, nil
	}

	payments, err := s.repo.ListPaymentsByAccountID(ctx, accountID, opts)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(domain.PaymentPage{
		Data:      payments,
		AccountID: accountID,
		Page:      opts.Page,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, payload, listCacheTTL)
	return payload, nil
}

// invalidatePaymentCaches drops the account's payment history pages and its
// entity cache. When the write moved the balance, the account list pages go
// too, since every list row carries the balance.
func (s *Service) invalidatePaymentCaches(ctx context.Context, accountID int64, balanceChanged bool) {
	s.cache.DeletePattern(ctx, fmt.Sprintf("payments:%d:*", accountID))
	s.cache.Delete(ctx, accountCacheKey(accountID))
	if balanceChanged {
		s.cache.DeletePattern(ctx, "accounts:*")
	}
}
