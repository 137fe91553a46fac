package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/api"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/throttle"
)

// MealService wraps the daily-meal endpoints. Month-long backfills go
// through the serializer so a burst of thirty submissions does not
// hammer the backend or the radio.
type MealService struct {
	client     *api.Client
	serializer *throttle.Serializer
	logger     *slog.Logger
}

// NewMealService creates a new meal service
func NewMealService(client *api.Client, serializer *throttle.Serializer, logger *slog.Logger) *MealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MealService{client: client, serializer: serializer, logger: logger}
}

// SubmitDaily records one day's meals. Interactive path: not throttled,
// but queued when offline.
func (s *MealService) SubmitDaily(ctx context.Context, entry domain.MealEntry) domain.Result {
	return s.client.Post(ctx, "/meals/submit", entry, &domain.RequestOptions{
		OfflineFallback:    true,
		InvalidatePrefixes: MealWritePrefixes(),
	})
}

// Backfill submits a batch of past days one at a time with pacing,
// preserving submission order. Each entry's outcome lands in the
// returned slice at its own index; one rejected day does not abort the
// rest.
func (s *MealService) Backfill(ctx context.Context, entries []domain.MealEntry) []domain.Result {
	results := make([]domain.Result, len(entries))
	for i, entry := range entries {
		i, entry := i, entry
		err := s.serializer.Do(ctx, func() error {
			results[i] = s.SubmitDaily(ctx, entry)
			return nil
		})
		if err != nil {
			results[i] = domain.Fail(err)
		}
	}
	return results
}

// UserMeals lists the user's meal entries for a month, cache-first.
func (s *MealService) UserMeals(ctx context.Context, userID, month string) ([]domain.MealEntry, domain.Result) {
	res := s.client.Get(ctx, fmt.Sprintf("/meals/user?month=%s", month), &domain.RequestOptions{
		Cache:    true,
		CacheKey: UserMealsKey(userID, month),
	})
	if !res.Success {
		return nil, res
	}
	meals, err := domain.Decode[[]domain.MealEntry](res)
	if err != nil {
		s.logger.Error("failed to decode meal entries", "error", err)
		return nil, domain.Fail(err)
	}
	return meals, res
}

// MonthSummary fetches the aggregated month view, cache-first.
func (s *MealService) MonthSummary(ctx context.Context, month string) (*domain.MonthSummary, domain.Result) {
	res := s.client.Get(ctx, fmt.Sprintf("/summary?month=%s", month), &domain.RequestOptions{
		Cache:    true,
		CacheKey: SummaryKey(month),
	})
	if !res.Success {
		return nil, res
	}
	summary, err := domain.Decode[domain.MonthSummary](res)
	if err != nil {
		s.logger.Error("failed to decode month summary", "error", err)
		return nil, domain.Fail(err)
	}
	return &summary, res
}
