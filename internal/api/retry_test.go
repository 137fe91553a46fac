package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   domain.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, domain.KindAuth},
		{"bad request", http.StatusBadRequest, domain.KindValidation},
		{"not found", http.StatusNotFound, domain.KindValidation},
		{"conflict", http.StatusConflict, domain.KindValidation},
		{"internal error", http.StatusInternalServerError, domain.KindServer},
		{"bad gateway", http.StatusBadGateway, domain.KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, nil)
			assert.Equal(t, tt.want, domain.KindOf(err))
		})
	}
}

func TestClassifyStatusExtractsServerMessage(t *testing.T) {
	err := classifyStatus(http.StatusBadRequest, []byte(`{"message":"amount must be positive"}`))
	assert.Equal(t, "amount must be positive", err.Error())
}

func TestClassifyTransportTimeout(t *testing.T) {
	err := classifyTransport(context.DeadlineExceeded)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err),
		"a timeout is indistinguishable from a dead connection")
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), nil, func() error {
		calls++
		if calls < 3 {
			return domain.NewError(domain.KindServer, 500, "", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsAtCap(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), nil, func() error {
		calls++
		return domain.NewError(domain.KindNetwork, 0, "unreachable", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestValidationErrorNeverRetried(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), nil, func() error {
		calls++
		return domain.NewError(domain.KindValidation, 400, "bad input", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAuthErrorNeverRetried(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), nil, func() error {
		calls++
		return domain.NewError(domain.KindAuth, 401, "", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "401 is the auth collaborator's problem, not the retry loop's")
}

func TestRetryHonorsCancellation(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, nil, func() error {
			return domain.NewError(domain.KindNetwork, 0, "unreachable", nil)
		})
	}()
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
	case <-time.After(time.Second):
		t.Fatal("retry loop ignored context cancellation")
	}
}
