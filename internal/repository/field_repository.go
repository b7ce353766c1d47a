package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/matter-service/internal/domain"
)

// FieldRepository reads the field schema.
type FieldRepository interface {
	GetByName(ctx context.Context, name string) (*domain.FieldDefinition, error)
	GetByID(ctx context.Context, id string) (*domain.FieldDefinition, error)
}

type fieldRepository struct {
	db DB
}

// NewFieldRepository builds repository.
func NewFieldRepository(db DB) FieldRepository {
	return &fieldRepository{db: db}
}

func (r *fieldRepository) GetByName(ctx context.Context, name string) (*domain.FieldDefinition, error) {
	const query = `
        SELECT id::text, name, field_type
        FROM ticketing_fields WHERE name=$1
        ORDER BY system_field DESC, created_at ASC
        LIMIT 1`
	def, err := r.fetchSingle(ctx, query, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.UnknownFieldError{Name: name}
	}
	return def, err
}

func (r *fieldRepository) GetByID(ctx context.Context, id string) (*domain.FieldDefinition, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.UnknownFieldError{Name: id}
	}
	const query = `
        SELECT id::text, name, field_type
        FROM ticketing_fields WHERE id=$1`
	def, err := r.fetchSingle(ctx, query, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.UnknownFieldError{Name: id}
	}
	return def, err
}

func (r *fieldRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.FieldDefinition, error) {
	var (
		def       domain.FieldDefinition
		fieldType string
	)
	if err := r.db.QueryRow(ctx, query, arg).Scan(&def.ID, &def.Name, &fieldType); err != nil {
		return nil, err
	}
	def.Type = domain.FieldType(fieldType)
	return &def, nil
}
