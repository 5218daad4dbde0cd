package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veriflow/orchestrator/internal/domain"
	"github.com/veriflow/orchestrator/internal/infrastructure/sns"
)

type mockSessions struct{ mock.Mock }

func (m *mockSessions) ScanOpen(ctx context.Context) ([]domain.VerificationSession, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.VerificationSession), args.Error(1)
}

func (m *mockSessions) UpdateVersioned(ctx context.Context, sessionID string, expectedVersion int64, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, expectedVersion, updates).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishDecision(ctx context.Context, ev sns.DecisionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func TestSweepOnceExpiresOnlyStaleSessions(t *testing.T) {
	sessions := new(mockSessions)
	publisher := new(mockPublisher)
	sw := New(sessions, publisher, 24*time.Hour, time.Minute)

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	sw.now = func() time.Time { return now }

	sessions.On("ScanOpen", mock.Anything).Return([]domain.VerificationSession{
		{SessionID: "stale", UserID: "u1", Status: domain.StatusDocumentSubmitted, Version: 2, UpdatedAt: now.Add(-25 * time.Hour)},
		{SessionID: "fresh", UserID: "u2", Status: domain.StatusSelfieSubmitted, Version: 5, UpdatedAt: now.Add(-1 * time.Hour)},
	}, nil)
	sessions.On("UpdateVersioned", mock.Anything, "stale", int64(2), mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == string(domain.StatusRejected) && u["rejection_reason"] == "session_expired"
	})).Return(nil)
	publisher.On("PublishDecision", mock.Anything, mock.MatchedBy(func(ev sns.DecisionEvent) bool {
		return ev.SessionID == "stale" && ev.RejectionReason == "session_expired"
	})).Return(nil)

	n, err := sw.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	sessions.AssertNumberOfCalls(t, "UpdateVersioned", 1)
	publisher.AssertExpectations(t)
}

func TestSweepOnceSkipsConcurrentlyTouchedSession(t *testing.T) {
	sessions := new(mockSessions)
	sw := New(sessions, nil, 24*time.Hour, time.Minute)

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	sw.now = func() time.Time { return now }

	sessions.On("ScanOpen", mock.Anything).Return([]domain.VerificationSession{
		{SessionID: "busy", UserID: "u1", Status: domain.StatusCreated, Version: 1, UpdatedAt: now.Add(-48 * time.Hour)},
	}, nil)
	sessions.On("UpdateVersioned", mock.Anything, "busy", int64(1), mock.Anything).Return(domain.ErrConflict)

	n, err := sw.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
