package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/matter-service/internal/domain"
)

const foreignKeyViolation = "23503"

const fieldDefinitionFKey = "ticketing_ticket_field_value_ticket_field_id_fkey"

// referenceFKeys maps value foreign keys to the field type whose reference they guard.
var referenceFKeys = map[string]domain.FieldType{
	"ticketing_ticket_field_value_user_value_fkey":                  domain.FieldTypeUser,
	"ticketing_ticket_field_value_select_reference_value_uuid_fkey": domain.FieldTypeSelect,
	"ticketing_ticket_field_value_status_reference_value_uuid_fkey": domain.FieldTypeStatus,
}

// FieldUpdate is a single typed write to a matter field.
type FieldUpdate struct {
	MatterID    string
	FieldID     string
	FieldType   domain.FieldType
	Value       any
	ActorUserID int64
}

// MatterRepository encapsulates matter persistence and the listing query builder.
type MatterRepository interface {
	List(ctx context.Context, filter MatterFilter) ([]domain.Matter, int64, error)
	SearchIDs(ctx context.Context, term string) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.Matter, error)
	Exists(ctx context.Context, id string) (bool, error)
	// UpdateField writes the value and, for status fields whose value changes, appends a
	// transition record in the same transaction. The appended record is returned.
	UpdateField(ctx context.Context, update FieldUpdate) (*domain.StatusTransitionRecord, error)
}

type matterRepository struct {
	db        DB
	opts      QueryOptions
	logger    *zap.Logger
	formatter *displayFormatter
}

// NewMatterRepository instantiates repository.
func NewMatterRepository(db DB, opts QueryOptions, logger *zap.Logger) MatterRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &matterRepository{db: db, opts: opts, logger: logger, formatter: newDisplayFormatter()}
}

func (r *matterRepository) List(ctx context.Context, filter MatterFilter) ([]domain.Matter, int64, error) {
	countQuery, countArgs := buildCountQuery(filter)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count matters: %w", err)
	}

	query, args, err := buildListQuery(filter, r.opts)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list matters: %w", err)
	}
	var matters []domain.Matter
	for rows.Next() {
		var matter domain.Matter
		if err := rows.Scan(&matter.ID, &matter.BoardID, &matter.CreatedAt, &matter.UpdatedAt); err != nil {
			rows.Close()
			return nil, 0, err
		}
		matters = append(matters, matter)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// one fields query per matter; a wide join would fan rows out per field
	for i := range matters {
		fields, err := r.fieldsFor(ctx, matters[i].ID)
		if err != nil {
			return nil, 0, err
		}
		matters[i].Fields = fields
	}
	return matters, total, nil
}

func (r *matterRepository) SearchIDs(ctx context.Context, term string) ([]string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin search: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Warn("search rollback failed", zap.Error(rbErr))
		}
	}()

	threshold := strconv.FormatFloat(r.opts.SimilarityThreshold, 'f', -1, 64)
	if _, err := tx.Exec(ctx, similarityThresholdStmt, threshold); err != nil {
		return nil, fmt.Errorf("set similarity threshold: %w", err)
	}

	ids, err := searchIDsTx(ctx, tx, term, r.opts)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit search: %w", err)
	}
	return ids, nil
}

func searchIDsTx(ctx context.Context, tx pgx.Tx, term string, opts QueryOptions) ([]string, error) {
	query, args := buildSearchQuery(term, opts)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search matters: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *matterRepository) GetByID(ctx context.Context, id string) (*domain.Matter, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrMatterNotFound
	}
	const query = `
        SELECT id::text, board_id::text, created_at, updated_at
        FROM ticketing_ticket WHERE id=$1`
	var matter domain.Matter
	if err := r.db.QueryRow(ctx, query, id).Scan(&matter.ID, &matter.BoardID, &matter.CreatedAt, &matter.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMatterNotFound
		}
		return nil, err
	}
	fields, err := r.fieldsFor(ctx, matter.ID)
	if err != nil {
		return nil, err
	}
	matter.Fields = fields
	return &matter, nil
}

func (r *matterRepository) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ticketing_ticket WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *matterRepository) fieldsFor(ctx context.Context, matterID string) (map[string]domain.FieldValue, error) {
	const query = `
        SELECT ttfv.ticket_field_id::text, tf.name, tf.field_type,
               ttfv.text_value, ttfv.string_value, ttfv.number_value, ttfv.date_value,
               ttfv.boolean_value, ttfv.currency_value, ttfv.user_value,
               ttfv.select_reference_value_uuid::text, ttfv.status_reference_value_uuid::text,
               u.id, u.email, u.first_name, u.last_name,
               tfo.label, tfso.label, tfsg.name
        FROM ticketing_ticket_field_value ttfv
        JOIN ticketing_fields tf ON tf.id = ttfv.ticket_field_id
        LEFT JOIN users u ON u.id = ttfv.user_value
        LEFT JOIN ticketing_field_options tfo ON tfo.id = ttfv.select_reference_value_uuid
        LEFT JOIN ticketing_field_status_options tfso ON tfso.id = ttfv.status_reference_value_uuid
        LEFT JOIN ticketing_field_status_groups tfsg ON tfsg.id = tfso.group_id
        WHERE ttfv.ticket_id = $1`
	rows, err := r.db.Query(ctx, query, matterID)
	if err != nil {
		return nil, fmt.Errorf("load matter fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]domain.FieldValue)
	for rows.Next() {
		var (
			row       fieldRow
			fieldType string
		)
		if err := rows.Scan(
			&row.FieldID,
			&row.FieldName,
			&fieldType,
			&row.TextValue,
			&row.StringValue,
			&row.NumberValue,
			&row.DateValue,
			&row.BooleanValue,
			&row.CurrencyValue,
			&row.UserValue,
			&row.SelectValue,
			&row.StatusValue,
			&row.UserID,
			&row.UserEmail,
			&row.UserFirstName,
			&row.UserLastName,
			&row.SelectLabel,
			&row.StatusLabel,
			&row.StatusGroup,
		); err != nil {
			return nil, err
		}
		row.FieldType = domain.FieldType(fieldType)
		value, err := resolveFieldValue(row, r.formatter)
		if err != nil {
			return nil, err
		}
		fields[row.FieldName] = value
	}
	return fields, rows.Err()
}

func (r *matterRepository) UpdateField(ctx context.Context, update FieldUpdate) (*domain.StatusTransitionRecord, error) {
	strategy, err := strategyFor(update.FieldType)
	if err != nil {
		return nil, err
	}
	value, err := strategy.encode(update.Value)
	if err != nil {
		return nil, err
	}
	matterID, err := uuid.Parse(update.MatterID)
	if err != nil {
		return nil, domain.ErrMatterNotFound
	}
	fieldID, err := uuid.Parse(update.FieldID)
	if err != nil {
		return nil, &domain.UnknownFieldError{Name: update.FieldID}
	}
	update.MatterID, update.FieldID = matterID.String(), fieldID.String()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin field update: %w", err)
	}

	record, err := r.updateFieldTx(ctx, tx, strategy, update, value)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Warn("rollback failed", zap.String("matter_id", update.MatterID), zap.Error(rbErr))
		}
		r.logger.Error("field update rolled back",
			zap.String("matter_id", update.MatterID),
			zap.String("field_id", update.FieldID),
			zap.Error(err),
		)
		return nil, classifyUpdateError(update, err)
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("field update commit failed",
			zap.String("matter_id", update.MatterID),
			zap.String("field_id", update.FieldID),
			zap.Error(err),
		)
		return nil, &domain.TransactionError{Op: "commit field update", Err: err}
	}
	return record, nil
}

func (r *matterRepository) updateFieldTx(ctx context.Context, tx pgx.Tx, strategy fieldStrategy, update FieldUpdate, value any) (*domain.StatusTransitionRecord, error) {
	// touching the matter first locks its row for the rest of the transaction
	tag, err := tx.Exec(ctx, `UPDATE ticketing_ticket SET updated_at = NOW() WHERE id = $1`, update.MatterID)
	if err != nil {
		return nil, fmt.Errorf("touch matter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrMatterNotFound
	}

	var previous *string
	if update.FieldType == domain.FieldTypeStatus {
		const current = `
            SELECT status_reference_value_uuid::text
            FROM ticketing_ticket_field_value
            WHERE ticket_id = $1 AND ticket_field_id = $2`
		if err := tx.QueryRow(ctx, current, update.MatterID, update.FieldID).Scan(&previous); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("read current status: %w", err)
		}
	}

	upsert := fmt.Sprintf(`
        INSERT INTO ticketing_ticket_field_value (ticket_id, ticket_field_id, %[1]s, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (ticket_id, ticket_field_id)
        DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_by = EXCLUDED.updated_by, updated_at = NOW()`, strategy.column)
	if _, err := tx.Exec(ctx, upsert, update.MatterID, update.FieldID, value, update.ActorUserID); err != nil {
		return nil, fmt.Errorf("upsert field value: %w", err)
	}

	next, isStatus := value.(string)
	if update.FieldType != domain.FieldTypeStatus || !isStatus || (previous != nil && *previous == next) {
		return nil, nil
	}

	const transition = `
        INSERT INTO ticketing_cycle_time_histories (ticket_id, status_field_id, from_status_id, to_status_id, transitioned_at)
        VALUES ($1, $2, $3, $4, NOW())
        RETURNING id, transitioned_at, EXISTS (
            SELECT 1 FROM ticketing_field_status_options so
            JOIN ticketing_field_status_groups sg ON sg.id = so.group_id
            WHERE so.id = to_status_id AND sg.sequence = $5)`
	record := &domain.StatusTransitionRecord{
		MatterID:      update.MatterID,
		StatusFieldID: update.FieldID,
		FromStatusID:  previous,
		ToStatusID:    next,
	}
	if err := tx.QueryRow(ctx, transition,
		update.MatterID,
		update.FieldID,
		previous,
		next,
		r.opts.TerminalSequence,
	).Scan(&record.ID, &record.TransitionedAt, &record.ToTerminal); err != nil {
		return nil, fmt.Errorf("append status transition: %w", err)
	}
	return record, nil
}

func classifyUpdateError(update FieldUpdate, err error) error {
	if errors.Is(err, domain.ErrMatterNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		if pgErr.ConstraintName == fieldDefinitionFKey {
			return &domain.UnknownFieldError{Name: update.FieldID}
		}
		if fieldType, ok := referenceFKeys[pgErr.ConstraintName]; ok {
			return &domain.InvalidFieldValueError{FieldType: fieldType, Reason: "referenced row does not exist"}
		}
	}
	return &domain.TransactionError{Op: "update field", Err: err}
}
