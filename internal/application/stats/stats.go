// Package stats aggregates verification outcomes for operational dashboards.
package stats

import (
	"context"

	"github.com/veriflow/orchestrator/internal/domain"
)

type SessionRepo interface {
	Scan(ctx context.Context) ([]domain.VerificationSession, error)
}

// Summary is a point-in-time aggregate over all sessions.
type Summary struct {
	Total        int            `json:"total"`
	Open         int            `json:"open"`
	ByDecision   map[string]int `json:"by_decision"`
	ApprovalRate float64        `json:"approval_rate"` // approved / decided
	AvgRiskScore float64        `json:"avg_risk_score"`
	// AvgCompletionSeconds measures creation to decision, decided sessions only.
	AvgCompletionSeconds float64 `json:"avg_completion_seconds"`
}

type Service struct {
	sessions SessionRepo
}

func NewService(sessions SessionRepo) *Service {
	return &Service{sessions: sessions}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	all, err := s.sessions.Scan(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Total:      len(all),
		ByDecision: map[string]int{},
	}
	var decided, approved int
	var riskTotal, completionTotal float64
	var scored int
	for i := range all {
		sess := &all[i]
		if !sess.Status.IsTerminal() {
			sum.Open++
			continue
		}
		decided++
		sum.ByDecision[string(sess.Decision)]++
		if sess.Decision == domain.DecisionApproved {
			approved++
		}
		if sess.OverallRiskScore != nil {
			riskTotal += *sess.OverallRiskScore
			scored++
		}
		if sess.CompletedAt != nil {
			completionTotal += sess.CompletedAt.Sub(sess.CreatedAt).Seconds()
		}
	}
	if decided > 0 {
		sum.ApprovalRate = float64(approved) / float64(decided)
		sum.AvgCompletionSeconds = completionTotal / float64(decided)
	}
	if scored > 0 {
		sum.AvgRiskScore = riskTotal / float64(scored)
	}
	return sum, nil
}
