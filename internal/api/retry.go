package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
)

// RetryPolicy wraps a single dispatch in a bounded retry loop. Only
// network and server classed failures are retried; validation and auth
// failures surface immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the mobile client's behavior: three
// attempts with a linearly growing pause.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}

// Do runs op until it succeeds, fails terminally, or the attempt cap is
// reached. The delay before attempt n is n*BaseDelay, a monotonically
// increasing schedule.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op func() error) error {
	if logger == nil {
		logger = slog.Default()
	}
	max := p.MaxAttempts
	if max <= 0 {
		max = 1
	}

	var err error
	for attempt := 1; attempt <= max; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if domain.IsTerminal(err) {
			return err
		}
		if attempt == max {
			break
		}

		delay := time.Duration(attempt) * p.BaseDelay
		logger.Warn("request attempt failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.NewError(domain.KindNetwork, 0, "request cancelled", ctx.Err())
		}
	}
	return err
}

// classifyStatus maps an HTTP response status onto the error taxonomy.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.NewError(domain.KindAuth, status, "authentication required", nil)
	case status >= 500:
		return domain.NewError(domain.KindServer, status,
			fmt.Sprintf("server error (status %d)", status), nil)
	case status >= 400:
		msg := serverMessage(body)
		if msg == "" {
			msg = fmt.Sprintf("request rejected (status %d)", status)
		}
		return domain.NewError(domain.KindValidation, status, msg, nil)
	default:
		return domain.NewError(domain.KindServer, status,
			fmt.Sprintf("unexpected status code: %d", status), nil)
	}
}

// classifyTransport maps a transport-level failure. Timeouts and
// cancelled deadlines count as network failures, same as a refused
// connection.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindNetwork, 0, "request timed out", err)
	}
	return domain.NewError(domain.KindNetwork, 0, "", err)
}
