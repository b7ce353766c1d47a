package repository

import (
	"context"

	"github.com/spec-kit/matter-service/internal/domain"
)

// TransitionRepository reads the status transition log.
type TransitionRepository interface {
	ListByMatter(ctx context.Context, matterID string) ([]domain.StatusTransitionRecord, error)
}

type transitionRepository struct {
	db               DB
	terminalSequence int
}

// NewTransitionRepository builds repository. Records moving into the status group with
// terminalSequence are flagged ToTerminal.
func NewTransitionRepository(db DB, terminalSequence int) TransitionRepository {
	return &transitionRepository{db: db, terminalSequence: terminalSequence}
}

func (r *transitionRepository) ListByMatter(ctx context.Context, matterID string) ([]domain.StatusTransitionRecord, error) {
	const query = `
        SELECT h.id, h.ticket_id::text, h.status_field_id::text, h.from_status_id::text, h.to_status_id::text,
               h.transitioned_at, COALESCE(sg.sequence = $2, false)
        FROM ticketing_cycle_time_histories h
        LEFT JOIN ticketing_field_status_options so ON so.id = h.to_status_id
        LEFT JOIN ticketing_field_status_groups sg ON sg.id = so.group_id
        WHERE h.ticket_id=$1
        ORDER BY h.transitioned_at ASC, h.id ASC`
	rows, err := r.db.Query(ctx, query, matterID, r.terminalSequence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusTransitionRecord{}
	for rows.Next() {
		var record domain.StatusTransitionRecord
		if err := rows.Scan(
			&record.ID,
			&record.MatterID,
			&record.StatusFieldID,
			&record.FromStatusID,
			&record.ToStatusID,
			&record.TransitionedAt,
			&record.ToTerminal,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
