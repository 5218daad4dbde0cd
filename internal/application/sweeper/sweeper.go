// Package sweeper expires abandoned verification sessions. A session that
// has seen no activity within the TTL is finalized as REJECTED with reason
// session_expired so it can never be completed later with stale media.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/veriflow/orchestrator/internal/application/decision"
	"github.com/veriflow/orchestrator/internal/domain"
	"github.com/veriflow/orchestrator/internal/infrastructure/sns"
)

type SessionRepo interface {
	ScanOpen(ctx context.Context) ([]domain.VerificationSession, error)
	UpdateVersioned(ctx context.Context, sessionID string, expectedVersion int64, updates map[string]interface{}) error
}

// Sweeper periodically rejects sessions whose last activity predates the TTL.
type Sweeper struct {
	sessions  SessionRepo
	publisher sns.DecisionPublisher // optional
	ttl       time.Duration
	interval  time.Duration
	now       func() time.Time
}

func New(sessions SessionRepo, publisher sns.DecisionPublisher, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions:  sessions,
		publisher: publisher,
		ttl:       ttl,
		interval:  interval,
		now:       time.Now,
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				slog.Error("session sweep failed", "err", err)
			} else if n > 0 {
				slog.Info("expired stale sessions", "count", n)
			}
		}
	}
}

// SweepOnce expires every open session older than the TTL and returns how
// many it closed. The versioned update makes the sweep safe against a racing
// request: if the user acts on the session mid-sweep, the expiry loses and is
// skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	open, err := s.sessions.ScanOpen(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().UTC().Add(-s.ttl)

	expired := 0
	for i := range open {
		sess := &open[i]
		if !sess.UpdatedAt.Before(cutoff) {
			continue
		}
		now := s.now().UTC()
		err := s.sessions.UpdateVersioned(ctx, sess.SessionID, sess.Version, map[string]interface{}{
			"status":           string(domain.StatusRejected),
			"decision":         string(domain.DecisionRejected),
			"rejection_reason": decision.ReasonSessionExpired,
			"completed_at":     now.Format(time.RFC3339),
		})
		if errors.Is(err, domain.ErrConflict) {
			continue // session saw activity since the scan
		}
		if err != nil {
			slog.Error("could not expire session", "session_id", sess.SessionID, "err", err)
			continue
		}
		expired++
		if s.publisher != nil {
			ev := sns.DecisionEvent{
				SessionID:       sess.SessionID,
				UserID:          sess.UserID,
				Decision:        domain.DecisionRejected,
				RejectionReason: decision.ReasonSessionExpired,
				RiskLevel:       sess.RiskLevel,
				DecidedAt:       now,
			}
			if pErr := s.publisher.PublishDecision(ctx, ev); pErr != nil {
				slog.Error("could not publish expiry event", "session_id", sess.SessionID, "err", pErr)
			}
		}
	}
	return expired, nil
}
