package dto

import (
	"time"

	"github.com/spec-kit/matter-service/internal/domain"
)

// MatterListQuery captures the listing query string.
type MatterListQuery struct {
	Page      int    `query:"page"`
	Limit     int    `query:"limit"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder"`
	Search    string `query:"search"`
}

// UpdateFieldRequest payload for PATCH /matters/:id/fields/:fieldId.
type UpdateFieldRequest struct {
	FieldType string `json:"fieldType"`
	Value     any    `json:"value"`
	UserID    int64  `json:"userId"`
}

// MatterListResponse is one page of matters.
type MatterListResponse struct {
	Data       []MatterResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// MatterResponse is the wire form of a matter.
type MatterResponse struct {
	ID        string                   `json:"id"`
	BoardID   string                   `json:"boardId"`
	Fields    map[string]FieldResponse `json:"fields"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
	CycleTime *CycleTimeResponse       `json:"cycleTime"`
	SLA       *domain.SLAStatus        `json:"sla"`
}

// FieldResponse is a resolved field value.
type FieldResponse struct {
	FieldID      string           `json:"fieldId"`
	FieldName    string           `json:"fieldName"`
	FieldType    domain.FieldType `json:"fieldType"`
	Value        any              `json:"value"`
	DisplayValue *string          `json:"displayValue,omitempty"`
}

// CycleTimeResponse mirrors domain.CycleTime.
type CycleTimeResponse struct {
	ResolutionTimeMs        int64      `json:"resolutionTimeMs"`
	ResolutionTimeFormatted string     `json:"resolutionTimeFormatted"`
	IsInProgress            bool       `json:"isInProgress"`
	StartedAt               *time.Time `json:"startedAt"`
	CompletedAt             *time.Time `json:"completedAt"`
}

// CycleTimeSLAResponse pairs cycle time and SLA.
type CycleTimeSLAResponse struct {
	CycleTime CycleTimeResponse `json:"cycleTime"`
	SLA       domain.SLAStatus  `json:"sla"`
}

// TransitionResponse is one status history entry.
type TransitionResponse struct {
	ID             int64     `json:"id"`
	StatusFieldID  string    `json:"statusFieldId"`
	FromStatusID   *string   `json:"fromStatusId"`
	ToStatusID     string    `json:"toStatusId"`
	TransitionedAt time.Time `json:"transitionedAt"`
	ToTerminal     bool      `json:"toTerminal"`
}

// NewMatterResponse converts a domain matter.
func NewMatterResponse(m *domain.Matter) MatterResponse {
	fields := make(map[string]FieldResponse, len(m.Fields))
	for name, f := range m.Fields {
		fields[name] = FieldResponse{
			FieldID:      f.FieldID,
			FieldName:    f.FieldName,
			FieldType:    f.FieldType,
			Value:        f.Value,
			DisplayValue: f.DisplayValue,
		}
	}
	resp := MatterResponse{
		ID:        m.ID,
		BoardID:   m.BoardID,
		Fields:    fields,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		SLA:       m.SLA,
	}
	if m.CycleTime != nil {
		ct := NewCycleTimeResponse(*m.CycleTime)
		resp.CycleTime = &ct
	}
	return resp
}

// NewCycleTimeResponse converts a domain cycle time.
func NewCycleTimeResponse(ct domain.CycleTime) CycleTimeResponse {
	return CycleTimeResponse{
		ResolutionTimeMs:        ct.ResolutionTimeMs,
		ResolutionTimeFormatted: ct.ResolutionTimeFormatted,
		IsInProgress:            ct.IsInProgress,
		StartedAt:               ct.StartedAt,
		CompletedAt:             ct.CompletedAt,
	}
}

// NewTransitionResponses converts the transition log.
func NewTransitionResponses(records []domain.StatusTransitionRecord) []TransitionResponse {
	out := make([]TransitionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, TransitionResponse{
			ID:             r.ID,
			StatusFieldID:  r.StatusFieldID,
			FromStatusID:   r.FromStatusID,
			ToStatusID:     r.ToStatusID,
			TransitionedAt: r.TransitionedAt,
			ToTerminal:     r.ToTerminal,
		})
	}
	return out
}
