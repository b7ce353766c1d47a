package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/matter-service/internal/domain"
	"github.com/spec-kit/matter-service/internal/events"
	"github.com/spec-kit/matter-service/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	MaxLimit     = 100
)

// FieldResolver looks up field definitions by name or id.
type FieldResolver interface {
	Resolve(ctx context.Context, name string) (*domain.FieldDefinition, error)
	ResolveID(ctx context.Context, id string) (*domain.FieldDefinition, error)
}

// CycleTimeResolver derives cycle time and exposes the transition log.
type CycleTimeResolver interface {
	Resolve(ctx context.Context, matterID string) (*domain.CycleTimeResult, error)
	History(ctx context.Context, matterID string) ([]domain.StatusTransitionRecord, error)
}

// MatterService coordinates matter listing, reads and field updates.
type MatterService struct {
	matters    repository.MatterRepository
	fields     FieldResolver
	cycleTime  CycleTimeResolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// MatterDependencies bundles collaborators for the matter service.
type MatterDependencies struct {
	MatterRepo repository.MatterRepository
	Fields     FieldResolver
	CycleTime  CycleTimeResolver
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// MatterListInput describes a listing request. Zero values select defaults.
type MatterListInput struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// MatterPage is one page of a listing.
type MatterPage struct {
	Matters []domain.Matter
	Total   int64
	Page    int
	Limit   int
}

// TotalPages is the number of pages needed for Total at Limit per page.
func (p MatterPage) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

// UpdateFieldInput describes a single field write. FieldType is optional; when set
// it must agree with the stored definition.
type UpdateFieldInput struct {
	MatterID  string
	FieldID   string
	FieldType string
	Value     any
	UserID    int64
}

// NewMatterService constructs the service.
func NewMatterService(deps MatterDependencies) *MatterService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &MatterService{
		matters:    deps.MatterRepo,
		fields:     deps.Fields,
		cycleTime:  deps.CycleTime,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// ListMatters returns a page of matters with resolved fields, cycle time and SLA.
func (s *MatterService) ListMatters(ctx context.Context, input MatterListInput) (*MatterPage, error) {
	page, limit := normalizePage(input.Page, input.Limit)

	// resolved before searching so an unknown sort field fails even when nothing matches
	sort, err := s.resolveSort(ctx, input.SortBy, input.SortOrder)
	if err != nil {
		return nil, err
	}

	filter := repository.MatterFilter{
		Sort:   sort,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if term := strings.TrimSpace(input.Search); term != "" {
		ids, err := s.matters.SearchIDs(ctx, term)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return &MatterPage{Matters: []domain.Matter{}, Total: 0, Page: page, Limit: limit}, nil
		}
		filter.IDs = ids
		filter.Restrict = true
	}

	matters, total, err := s.matters.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if matters == nil {
		matters = []domain.Matter{}
	}
	for i := range matters {
		if err := s.attachCycleTime(ctx, &matters[i]); err != nil {
			return nil, err
		}
	}
	return &MatterPage{Matters: matters, Total: total, Page: page, Limit: limit}, nil
}

// GetMatterByID returns a single matter or domain.ErrMatterNotFound.
func (s *MatterService) GetMatterByID(ctx context.Context, id string) (*domain.Matter, error) {
	matter, err := s.matters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachCycleTime(ctx, matter); err != nil {
		return nil, err
	}
	return matter, nil
}

// ResolveCycleTimeAndSLA computes cycle time and SLA for an existing matter.
func (s *MatterService) ResolveCycleTimeAndSLA(ctx context.Context, id string) (*domain.CycleTimeResult, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	return s.cycleTime.Resolve(ctx, id)
}

// ListHistory returns a matter's status transitions, oldest first.
func (s *MatterService) ListHistory(ctx context.Context, id string) ([]domain.StatusTransitionRecord, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	return s.cycleTime.History(ctx, id)
}

// UpdateMatterField writes one field value. Status changes append a transition in the
// same transaction; events are published only after commit.
func (s *MatterService) UpdateMatterField(ctx context.Context, input UpdateFieldInput) error {
	var requested domain.FieldType
	if raw := strings.TrimSpace(input.FieldType); raw != "" {
		parsed, err := domain.ParseFieldType(raw)
		if err != nil {
			return err
		}
		requested = parsed
	}

	def, err := s.fields.ResolveID(ctx, input.FieldID)
	if err != nil {
		return err
	}
	if requested != "" && requested != def.Type {
		return &domain.InvalidFieldValueError{
			FieldType: requested,
			Reason:    fmt.Sprintf("field %q is of type %s", def.Name, def.Type),
		}
	}

	record, err := s.matters.UpdateField(ctx, repository.FieldUpdate{
		MatterID:    input.MatterID,
		FieldID:     def.ID,
		FieldType:   def.Type,
		Value:       input.Value,
		ActorUserID: input.UserID,
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventMatterFieldUpdated, input.MatterID, input.UserID, events.MatterFieldUpdatedPayload{
		FieldID:   def.ID,
		FieldName: def.Name,
		FieldType: string(def.Type),
		Value:     input.Value,
	})
	if record != nil {
		s.publish(ctx, events.EventMatterStatusTransitioned, record.MatterID, input.UserID, events.MatterStatusTransitionedPayload{
			StatusFieldID: record.StatusFieldID,
			FromStatusID:  record.FromStatusID,
			ToStatusID:    record.ToStatusID,
			ToTerminal:    record.ToTerminal,
		})
	}
	return nil
}

func (s *MatterService) resolveSort(ctx context.Context, sortBy, sortOrder string) (repository.MatterSort, error) {
	key := strings.TrimSpace(sortBy)
	if key == "" {
		key = repository.SortCreatedAt
	}
	sort := repository.MatterSort{
		Key:  key,
		Desc: !strings.EqualFold(strings.TrimSpace(sortOrder), "asc"),
	}
	if repository.IsBuiltinSort(key) {
		return sort, nil
	}
	def, err := s.fields.Resolve(ctx, key)
	if err != nil {
		return repository.MatterSort{}, err
	}
	sort.Field = def
	return sort, nil
}

func (s *MatterService) attachCycleTime(ctx context.Context, matter *domain.Matter) error {
	result, err := s.cycleTime.Resolve(ctx, matter.ID)
	if err != nil {
		return err
	}
	matter.CycleTime = &result.CycleTime
	matter.SLA = &result.SLA
	return nil
}

func (s *MatterService) ensureExists(ctx context.Context, id string) error {
	exists, err := s.matters.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrMatterNotFound
	}
	return nil
}

func (s *MatterService) publish(ctx context.Context, eventType events.EventType, matterID string, userID int64, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		MatterID:  matterID,
		Actor:     events.Actor{UserID: userID},
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(eventType)),
			zap.String("matter_id", matterID),
			zap.Error(err),
		)
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
