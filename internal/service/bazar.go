package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/api"
	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
)

// BazarService wraps the bazar (shopping expense) endpoints. Reads are
// cache-first; submissions survive connectivity loss via the offline
// queue.
type BazarService struct {
	client *api.Client
	logger *slog.Logger
}

// NewBazarService creates a new bazar service
func NewBazarService(client *api.Client, logger *slog.Logger) *BazarService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BazarService{client: client, logger: logger}
}

// Submit sends a new bazar entry. With no connectivity the entry is
// queued and the result reports Offline=true so the UI can show a
// "saved, will sync" state.
func (s *BazarService) Submit(ctx context.Context, entry domain.BazarEntry) domain.Result {
	return s.client.Post(ctx, "/bazar/submit", entry, &domain.RequestOptions{
		OfflineFallback:    true,
		InvalidatePrefixes: BazarWritePrefixes(),
	})
}

// Update patches an existing entry. Queued offline like Submit so an
// edit made right after an offline add replays in order behind it.
func (s *BazarService) Update(ctx context.Context, entryID string, entry domain.BazarEntry) domain.Result {
	return s.client.Patch(ctx, "/bazar/"+entryID, entry, &domain.RequestOptions{
		OfflineFallback:    true,
		InvalidatePrefixes: BazarWritePrefixes(),
	})
}

// Delete removes an entry. No offline fallback; while offline the
// action fails fast instead of queueing.
func (s *BazarService) Delete(ctx context.Context, entryID string) domain.Result {
	return s.client.Delete(ctx, "/bazar/"+entryID, &domain.RequestOptions{
		InvalidatePrefixes: BazarWritePrefixes(),
	})
}

// UserEntries lists the user's entries for a month (YYYY-MM),
// cache-first.
func (s *BazarService) UserEntries(ctx context.Context, userID, month string) ([]domain.BazarEntry, domain.Result) {
	res := s.client.Get(ctx, fmt.Sprintf("/bazar/user?month=%s", month), &domain.RequestOptions{
		Cache:    true,
		CacheKey: UserBazarKey(userID, month),
	})
	if !res.Success {
		return nil, res
	}
	entries, err := domain.Decode[[]domain.BazarEntry](res)
	if err != nil {
		s.logger.Error("failed to decode bazar entries", "error", err)
		return nil, domain.Fail(err)
	}
	return entries, res
}

// Receipt uploads a photo of the shopping receipt for an entry.
func (s *BazarService) Receipt(ctx context.Context, entryID, fileName string, file io.Reader) domain.Result {
	return s.client.UploadFile(ctx, "/bazar/"+entryID+"/receipt", "receipt", fileName, file,
		map[string]string{"entryId": entryID}, &domain.RequestOptions{
			OfflineFallback:    true,
			InvalidatePrefixes: BazarWritePrefixes(),
		})
}
