/**
 * @description
 * This file contains the core application service for the collections-service.
 * It orchestrates the business logic for account management: read-through
 * caching for list and single-entity reads, write-path cache invalidation,
 * the bulk update batch validation, and best-effort entity event publishing.
 *
 * Key features:
 * - Read-Through Caching: list reads are served from the cache when possible
 *   and cached after a database fetch; cached payloads are returned unchanged
 *   so repeated identical reads are byte-identical.
 * - Write Invalidation: every account mutation drops the single-entity key
 *   and sweeps all cached account list pages, since any page may contain the
 *   changed row.
 * - Bulk Updates: batches are validated up front (non-empty, at most 10000
 *   rows) and applied atomically by the store.
 *
 * @dependencies
 * - internal/store: The database repository interface and sentinel errors.
 * - internal/cache: The Redis-backed cache client with in-process fallback.
 * - pkg/rabbitmq: The entity event publisher.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/collectra/collections-service/internal/cache"
	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
	"github.com/collectra/collections-service/pkg/rabbitmq"
)

// maxBulkUpdates bounds a single bulk update transaction.
const maxBulkUpdates = 10000

var (
	ErrMissingFields      = errors.New("required fields missing")
	ErrInvalidAmount      = errors.New("amount must be a positive integer of minor units")
	ErrInvalidStatus      = errors.New("invalid status value")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmptyBatch         = errors.New("bulk update batch is empty")
	ErrBatchTooLarge      = errors.New("bulk update batch exceeds maximum size")
)

// Service provides the application's business logic.
type Service struct {
	repo      store.Repository
	cache     *cache.Client
	events    rabbitmq.Publisher
	jwtSecret []byte
	jwtTTL    time.Duration
}

// NewService creates a new application service.
func NewService(repo store.Repository, cacheClient *cache.Client, events rabbitmq.Publisher, jwtSecret string, jwtTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		cache:     cacheClient,
		events:    events,
		jwtSecret: []byte(jwtSecret),
		jwtTTL:    jwtTTL,
	}
}

// --- Accounts ---

// ListAccounts serves a filtered, paginated account page, read-through the
// cache. Cache hits return the stored payload unchanged.
func (s *Service) ListAccounts(ctx context.Context, opts domain.AccountListOptions) ([]byte, error) {
	opts = store.NormalizeAccountListOptions(opts)
	key := accountListCacheKey(opts)

	if lookup := s.cache.Get(ctx, key); lookup.Status == cache.Hit {
		return lookup.Value, nil
	}

	page, err := s.repo.ListAccounts(ctx, opts)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(page)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, payload, listCacheTTL)
	return payload, nil
}

// GetAccount serves a single account, read-through the cache.
func (s *Service) GetAccount(ctx context.Context, accountID int64) ([]byte, error) {
	key := accountCacheKey(accountID)

	if lookup := s.cache.Get(ctx, key); lookup.Status == cache.Hit {
		return lookup.Value, nil
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, payload, entityCacheTTL)
	return payload, nil
}

// CreateAccount validates and persists a new account, then sweeps the list
// caches so the new row appears in subsequent reads.
func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest, actorID int64) (*domain.Account, error) {
	if req.AccountNumber == "" || req.CustomerName == "" {
		return nil, fmt.Errorf("%w: account_number and customer_name are required", ErrMissingFields)
	}
	if req.Balance < 0 {
		return nil, ErrInvalidAmount
	}

	account, err := s.repo.CreateAccount(ctx, req, actorID)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, account.ID, actorID, "account_created",
		fmt.Sprintf("Account %s created", account.AccountNumber), nil)
	s.cache.DeletePattern(ctx, "accounts:*")
	s.publishEntityEvent(ctx, "account.created", "account", account.ID, account.ID, actorID)
	return account, nil
}

// UpdateAccount applies a partial update to one account and invalidates its
// entity cache plus every cached list page.
func (s *Service) UpdateAccount(ctx context.Context, accountID int64, fields map[string]interface{}, actorID int64) (*domain.Account, error) {
	if err := normalizeAccountFields(fields); err != nil {
		return nil, err
	}

	account, err := s.repo.UpdateAccount(ctx, accountID, fields)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, account.ID, actorID, "account_updated",
		fmt.Sprintf("Account %s updated", account.AccountNumber), changedFieldsMetadata(fields))
	s.invalidateAccountCaches(ctx, accountID)
	s.publishEntityEvent(ctx, "account.updated", "account", account.ID, account.ID, actorID)
	return account, nil
}

// DeleteAccount soft-deletes an account. The row remains for audit but
// disappears from every read path.
func (s *Service) DeleteAccount(ctx context.Context, accountID int64, actorID int64) (*domain.Account, error) {
	account, err := s.repo.SoftDeleteAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.invalidateAccountCaches(ctx, accountID)
	s.publishEntityEvent(ctx, "account.deleted", "account", account.ID, account.ID, actorID)
	return account, nil
}

// BulkUpdateAccounts validates the batch and applies it in one transaction.
// Either every row is updated or none is.
func (s *Service) BulkUpdateAccounts(ctx context.Context, updates []domain.AccountUpdate, actorID int64) ([]domain.Account, error) {
	if len(updates) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(updates) > maxBulkUpdates {
		return nil, fmt.Errorf("%w: %d rows (max %d)", ErrBatchTooLarge, len(updates), maxBulkUpdates)
	}
	for i := range updates {
		if updates[i].ID <= 0 {
			return nil, fmt.Errorf("%w: update %d has no account id", ErrMissingFields, i)
		}
		if err := normalizeAccountFields(updates[i].Fields); err != nil {
			return nil, fmt.Errorf("account %d: %w", updates[i].ID, err)
		}
	}

	results, err := s.repo.BulkUpdateAccounts(ctx, updates)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(results))
	for i := range results {
		keys = append(keys, accountCacheKey(results[i].ID))
	}
	s.cache.Delete(ctx, keys...)
	s.cache.DeletePattern(ctx, "accounts:*")
	s.publishEntityEvent(ctx, "account.bulk_updated", "account_batch", int64(len(results)), 0, actorID)
	return results, nil
}

// invalidateAccountCaches drops the single-entity key and sweeps all cached
// list pages. Any page may contain the changed row, so the sweep is total.
func (s *Service) invalidateAccountCaches(ctx context.Context, accountID int64) {
	s.cache.Delete(ctx, accountCacheKey(accountID))
	s.cache.DeletePattern(ctx, "accounts:*")
}

// recordActivity writes a system-generated timeline entry for a mutation.
// Failures are logged, never surfaced; the primary write already succeeded.
func (s *Service) recordActivity(ctx context.Context, accountID, userID int64, activityType, description string, metadata json.RawMessage) {
	_, err := s.repo.CreateActivity(ctx, accountID, userID, domain.CreateActivityRequest{
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
	})
	if err != nil {
		log.Printf("level=warn component=service msg=\"activity record failed\" account_id=%d type=%s err=%v", accountID, activityType, err)
		return
	}
	s.invalidateActivityCaches(ctx, accountID)
}

// publishEntityEvent is best-effort. Event delivery never gates a write.
func (s *Service) publishEntityEvent(ctx context.Context, routingKey, kind string, entityID, accountID, actorID int64) {
	if s.events == nil {
		return
	}
	event := rabbitmq.EntityEvent{
		EntityKind: kind,
		EntityID:   entityID,
		AccountID:  accountID,
		ActorID:    actorID,
	}
	if err := s.events.PublishEntityEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"entity event publish failed\" routing_key=%s entity_id=%d err=%v", routingKey, entityID, err)
	}
}

// normalizeAccountFields validates and coerces client-supplied update fields
// before they reach the SQL layer. JSON numbers arrive as float64; integer
// columns get explicit conversions so the driver binds the right type.
func normalizeAccountFields(fields map[string]interface{}) error {
	if v, ok := fields["status"]; ok {
		status, _ := v.(string)
		switch status {
		case domain.AccountStatusActive, domain.AccountStatusInactive, domain.AccountStatusClosed:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
	}
	if v, ok := fields["balance"]; ok {
		switch n := v.(type) {
		case float64:
			fields["balance"] = int64(n)
		case int:
			fields["balance"] = int64(n)
		case int64:
		default:
			return ErrInvalidAmount
		}
	}
	if v, ok := fields["assigned_agent"]; ok && v != nil {
		if n, isFloat := v.(float64); isFloat {
			fields["assigned_agent"] = int64(n)
		}
	}
	for _, key := range []string{"address", "metadata"} {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		if _, isRaw := v.(json.RawMessage); isRaw {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[key] = json.RawMessage(raw)
	}
	return nil
}

// changedFieldsMetadata renders the updated column names for the audit trail.
func changedFieldsMetadata(fields map[string]interface{}) json.RawMessage {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	raw, err := json.Marshal(map[string]interface{}{"changed_fields": names})
	if err != nil {
		return nil
	}
	return raw
}
