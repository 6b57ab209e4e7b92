/**
 * @description
 * Activity business logic: logging timeline entries with a duplicate guard,
 * cached per-account timelines, and the cross-account bulk query.
 */

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/collectra/collections-service/internal/cache"
	"github.com/collectra/collections-service/internal/domain"
	"github.com/collectra/collections-service/internal/store"
)

// duplicateActivityLookback is the window inside which an identical
// (account, user, type, description) entry is treated as a duplicate.
const duplicateActivityLookback = 5 * time.Minute

// LogActivity records a timeline entry against an account. If an identical
// entry exists inside the lookback window, the existing entry is returned
// alongside ErrDuplicateActivity and nothing is written.
func (s *Service) LogActivity(ctx context.Context, accountID, userID int64, req domain.CreateActivityRequest) (*domain.Activity, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	if req.ActivityType == "" || req.Description == "" {
		return nil, fmt.Errorf("%w: activity_type and description are required", ErrMissingFields)
	}

	existing, err := s.repo.FindRecentDuplicateActivity(ctx, accountID, userID, req.ActivityType, req.Description, duplicateActivityLookback)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, store.ErrDuplicateActivity
	}

	activity, err := s.repo.CreateActivity(ctx, accountID, userID, req)
	if err != nil {
		return nil, err
	}

	s.invalidateActivityCaches(ctx, accountID)
	s.publishEntityEvent(ctx, "activity.logged", "activity", activity.ID, accountID, userID)
	return activity, nil
}

// GetActivityTimeline serves an account's activity page, read-through the
// cache. The optional type filter is part of the cache key.
func (s *Service) GetActivityTimeline(ctx context.Context, accountID int64, opts domain.ActivityListOptions) ([]byte, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	opts.Page, opts.Limit = store.ClampPageLimit(opts.Page, opts.Limit)
	key := activitiesCacheKey(accountID, opts.Page, opts.Limit, opts.ActivityType)
	if lookup := s.cache.Get(ctx, key); lookup.Status == cache.Hit {
		return lookup.Value, nil
	}

	activities, err := s.repo.ListActivitiesByAccountID(ctx, accountID, opts)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(domain.ActivityPage{
		Data:      activities,
		AccountID: accountID,
		Page:      opts.Page,
		Limit:     opts.Limit,
		Filter:    opts.ActivityType,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, payload, listCacheTTL)
	return payload, nil
}

// GetBulkActivities serves a cross-account activity query, read-through the
// cache with a longer TTL since these power reporting views.
func (s *Service) GetBulkActivities(ctx context.Context, opts domain.BulkActivityOptions) ([]byte, error) {
	if len(opts.AccountIDs) == 0 {
		return nil, fmt.Errorf("%w: account_ids is required", ErrMissingFields)
	}

	key := bulkActivitiesCacheKey(opts)
	if lookup := s.cache.Get(ctx, key); lookup.Status == cache.Hit {
		return lookup.Value, nil
	}

	activities, err := s.repo.ListActivitiesBulk(ctx, opts)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(domain.BulkActivityResult{
		Data:  activities,
		Total: len(activities),
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, payload, bulkCacheTTL)
	return payload, nil
}

func (s *Service) invalidateActivityCaches(ctx context.Context, accountID int64) {
	s.cache.DeletePattern(ctx, fmt.Sprintf("activities:%d:*", accountID))
	s.cache.DeletePattern(ctx, "activities:bulk:*")
}
