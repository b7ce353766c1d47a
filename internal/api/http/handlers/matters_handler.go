package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matter-service/internal/api/dto"
	"github.com/spec-kit/matter-service/internal/domain"
	"github.com/spec-kit/matter-service/internal/service"
	apperrors "github.com/spec-kit/matter-service/pkg/util/errorutil"
)

// MatterService is the subset of service.MatterService the handler needs.
type MatterService interface {
	ListMatters(ctx context.Context, input service.MatterListInput) (*service.MatterPage, error)
	GetMatterByID(ctx context.Context, id string) (*domain.Matter, error)
	UpdateMatterField(ctx context.Context, input service.UpdateFieldInput) error
	ResolveCycleTimeAndSLA(ctx context.Context, id string) (*domain.CycleTimeResult, error)
	ListHistory(ctx context.Context, id string) ([]domain.StatusTransitionRecord, error)
}

// MattersHandler serves the matter endpoints.
type MattersHandler struct {
	service MatterService
}

// NewMattersHandler constructs handler.
func NewMattersHandler(matterService MatterService) *MattersHandler {
	return &MattersHandler{service: matterService}
}

// ListMatters GET /matters.
func (h *MattersHandler) ListMatters(c *fiber.Ctx) error {
	var query dto.MatterListQuery
	query.Page = c.QueryInt("page", 0)
	query.Limit = c.QueryInt("limit", 0)
	query.SortBy = c.Query("sortBy")
	query.SortOrder = c.Query("sortOrder")
	query.Search = c.Query("search")

	page, err := h.service.ListMatters(c.UserContext(), service.MatterListInput{
		Page:      query.Page,
		Limit:     query.Limit,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		Search:    query.Search,
	})
	if err != nil {
		return err
	}

	items := make([]dto.MatterResponse, 0, len(page.Matters))
	for i := range page.Matters {
		items = append(items, dto.NewMatterResponse(&page.Matters[i]))
	}
	return c.JSON(dto.MatterListResponse{
		Data:       items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(),
	})
}

// GetMatter GET /matters/:id.
func (h *MattersHandler) GetMatter(c *fiber.Ctx) error {
	matter, err := h.service.GetMatterByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMatterResponse(matter)})
}

// UpdateField PATCH /matters/:id/fields/:fieldId.
func (h *MattersHandler) UpdateField(c *fiber.Ctx) error {
	var req dto.UpdateFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	fieldID := strings.TrimSpace(c.Params("fieldId"))
	if fieldID == "" {
		return apperrors.NewValidationError("fieldId required", nil)
	}
	if req.UserID < 0 {
		return apperrors.NewValidationError("userId must be positive", map[string]any{"userId": req.UserID})
	}

	err := h.service.UpdateMatterField(c.UserContext(), service.UpdateFieldInput{
		MatterID:  c.Params("id"),
		FieldID:   fieldID,
		FieldType: req.FieldType,
		Value:     req.Value,
		UserID:    req.UserID,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetCycleTime GET /matters/:id/cycle-time.
func (h *MattersHandler) GetCycleTime(c *fiber.Ctx) error {
	result, err := h.service.ResolveCycleTimeAndSLA(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CycleTimeSLAResponse{
		CycleTime: dto.NewCycleTimeResponse(result.CycleTime),
		SLA:       result.SLA,
	}})
}

// ListHistory GET /matters/:id/history.
func (h *MattersHandler) ListHistory(c *fiber.Ctx) error {
	records, err := h.service.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransitionResponses(records)})
}
