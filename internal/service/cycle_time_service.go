package service

import (
	"context"
	"time"

	"github.com/spec-kit/matter-service/internal/domain"
	"github.com/spec-kit/matter-service/internal/repository"
)

// CycleTimeService derives cycle time and SLA verdicts from the transition log.
// It only reads, so concurrent and repeated calls are safe.
type CycleTimeService struct {
	transitions repository.TransitionRepository
	threshold   time.Duration
	now         func() time.Time
}

// CycleTimeDependencies bundles collaborators for the cycle time service.
type CycleTimeDependencies struct {
	TransitionRepo repository.TransitionRepository
	Threshold      time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewCycleTimeService constructs the service.
func NewCycleTimeService(deps CycleTimeDependencies) *CycleTimeService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CycleTimeService{
		transitions: deps.TransitionRepo,
		threshold:   deps.Threshold,
		now:         clock,
	}
}

// Resolve computes the cycle time and SLA of a matter.
func (s *CycleTimeService) Resolve(ctx context.Context, matterID string) (*domain.CycleTimeResult, error) {
	records, err := s.transitions.ListByMatter(ctx, matterID)
	if err != nil {
		return nil, err
	}
	result := ComputeCycleTime(records, s.threshold, s.now())
	return &result, nil
}

// History returns the transition log of a matter, oldest first.
func (s *CycleTimeService) History(ctx context.Context, matterID string) ([]domain.StatusTransitionRecord, error) {
	return s.transitions.ListByMatter(ctx, matterID)
}

// ComputeCycleTime measures from the earliest transition to the earliest transition
// into the terminal group. Unfinished matters report zero resolution time and are
// formatted with the time elapsed since they started.
func ComputeCycleTime(records []domain.StatusTransitionRecord, threshold time.Duration, now time.Time) domain.CycleTimeResult {
	var startedAt, completedAt *time.Time
	for i := range records {
		at := records[i].TransitionedAt
		if startedAt == nil || at.Before(*startedAt) {
			startedAt = &at
		}
		if records[i].ToTerminal && (completedAt == nil || at.Before(*completedAt)) {
			completedAt = &at
		}
	}

	cycle := domain.CycleTime{
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		IsInProgress: completedAt == nil,
	}
	if completedAt != nil {
		cycle.ResolutionTimeMs = completedAt.Sub(*startedAt).Milliseconds()
		cycle.ResolutionTimeFormatted = FormatDuration(cycle.ResolutionTimeMs, false)
	} else {
		var elapsed int64
		if startedAt != nil && now.After(*startedAt) {
			elapsed = now.Sub(*startedAt).Milliseconds()
		}
		cycle.ResolutionTimeFormatted = FormatDuration(elapsed, true)
	}

	return domain.CycleTimeResult{
		CycleTime: cycle,
		SLA:       ClassifySLA(cycle.ResolutionTimeMs, threshold),
	}
}
