package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/matter-service/internal/domain"
	"github.com/spec-kit/matter-service/internal/persistence"
)

// These tests need a disposable Postgres with pg_trgm available.
const testDatabaseEnv = "MATTERS_TEST_DATABASE_URL"

type fixture struct {
	pool     *pgxpool.Pool
	matters  map[string]string
	fields   map[string]*domain.FieldDefinition
	statuses map[string]string
}

func setupIntegration(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	_, err = pool.Exec(ctx, `
        TRUNCATE ticketing_cycle_time_histories, ticketing_ticket_field_value, ticketing_ticket,
                 ticketing_field_status_options, ticketing_field_options, ticketing_currency_field_options,
                 ticketing_fields, ticketing_board, users, accounts
        RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return seedFixture(t, pool)
}

func seedFixture(t *testing.T, pool *pgxpool.Pool) *fixture {
	t.Helper()
	ctx := context.Background()
	fx := &fixture{
		pool:     pool,
		matters:  map[string]string{},
		fields:   map[string]*domain.FieldDefinition{},
		statuses: map[string]string{},
	}

	insertID := func(query string, args ...any) string {
		var id string
		require.NoError(t, pool.QueryRow(ctx, query, args...).Scan(&id))
		return id
	}

	insertSerial := func(query string, args ...any) int64 {
		var id int64
		require.NoError(t, pool.QueryRow(ctx, query, args...).Scan(&id))
		return id
	}

	accountID := insertSerial(`INSERT INTO accounts (name) VALUES ('Firm') RETURNING id`)
	jane := insertSerial(`INSERT INTO users (account_id, email, first_name, last_name) VALUES ($1, 'jane@example.com', 'Jane', 'Doe') RETURNING id`, accountID)
	john := insertSerial(`INSERT INTO users (account_id, email, first_name, last_name) VALUES ($1, 'john@example.com', 'John', 'Smith') RETURNING id`, accountID)
	boardID := insertID(`INSERT INTO ticketing_board (account_id, name) VALUES ($1, 'Matters') RETURNING id::text`, accountID)

	for name, fieldType := range map[string]domain.FieldType{
		"Subject":     domain.FieldTypeText,
		"Case Number": domain.FieldTypeNumber,
		"Assignee":    domain.FieldTypeUser,
		"Severity":    domain.FieldTypeSelect,
		"Status":      domain.FieldTypeStatus,
	} {
		id := insertID(`INSERT INTO ticketing_fields (account_id, name, field_type, system_field) VALUES ($1, $2, $3, true) RETURNING id::text`,
			accountID, name, string(fieldType))
		fx.fields[name] = &domain.FieldDefinition{ID: id, Name: name, Type: fieldType}
	}

	severity := map[string]string{}
	// inserted out of rank order so neither ids nor labels sort by severity
	for i, label := range []string{"Critical", "Low", "High", "Medium"} {
		severity[label] = insertID(`INSERT INTO ticketing_field_options (ticket_field_id, label, sequence) VALUES ($1, $2, $3) RETURNING id::text`,
			fx.fields["Severity"].ID, label, i)
	}
	for label, sequence := range map[string]int{"Open": 1, "Working": 2, "Closed": 3} {
		fx.statuses[label] = insertID(`
            INSERT INTO ticketing_field_status_options (ticket_field_id, group_id, label)
            SELECT $1, id, $2 FROM ticketing_field_status_groups WHERE sequence = $3
            RETURNING id::text`, fx.fields["Status"].ID, label, sequence)
	}

	base := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	type step struct {
		status string
		at     time.Duration
	}
	type seed struct {
		key, subject, severity string
		caseNumber             float64
		assignee               int64
		transitions            []step
	}
	seeds := []seed{
		{"met", "Acme merger review", "High", 1001, jane, []step{{"Open", 0}, {"Closed", 2 * time.Hour}}},
		{"breached", "Patent dispute", "Low", 1002, john, []step{{"Open", 0}, {"Closed", 10 * time.Hour}}},
		{"working", "Lease renewal", "Critical", 1003, 0, []step{{"Working", 0}}},
		{"fresh", "Employment contract", "Medium", 1004, 0, nil},
	}

	for i, s := range seeds {
		created := base.Add(time.Duration(i) * time.Hour)
		matterID := insertID(`INSERT INTO ticketing_ticket (board_id, created_at, updated_at) VALUES ($1, $2, $2) RETURNING id::text`, boardID, created)
		fx.matters[s.key] = matterID

		setValue := func(field, column string, value any) {
			_, err := pool.Exec(ctx, `INSERT INTO ticketing_ticket_field_value (ticket_id, ticket_field_id, `+column+`) VALUES ($1, $2, $3)`,
				matterID, fx.fields[field].ID, value)
			require.NoError(t, err)
		}
		setValue("Subject", "text_value", s.subject)
		setValue("Case Number", "number_value", s.caseNumber)
		setValue("Severity", "select_reference_value_uuid", severity[s.severity])
		if s.assignee != 0 {
			setValue("Assignee", "user_value", s.assignee)
		}

		var previous *string
		for _, tr := range s.transitions {
			to := fx.statuses[tr.status]
			_, err := pool.Exec(ctx, `
                INSERT INTO ticketing_cycle_time_histories (ticket_id, status_field_id, from_status_id, to_status_id, transitioned_at)
                VALUES ($1, $2, $3, $4, $5)`, matterID, fx.fields["Status"].ID, previous, to, base.Add(tr.at))
			require.NoError(t, err)
			previous = &to
		}
		if previous != nil {
			setValue("Status", "status_reference_value_uuid", *previous)
		}
	}
	return fx
}

func (fx *fixture) keys(t *testing.T, ids []string) []string {
	t.Helper()
	byID := map[string]string{}
	for key, id := range fx.matters {
		byID[id] = key
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		key, ok := byID[id]
		require.True(t, ok, "unexpected matter %s", id)
		keys = append(keys, key)
	}
	return keys
}

func (fx *fixture) matterKeys(t *testing.T, matters []domain.Matter) []string {
	ids := make([]string, len(matters))
	for i, m := range matters {
		ids[i] = m.ID
	}
	return fx.keys(t, ids)
}

func TestIntegration_SearchIDs(t *testing.T) {
	fx := setupIntegration(t)
	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())

	tests := []struct {
		term string
		want []string
	}{
		{"Acme", []string{"met"}},
		{"acme MERGER", []string{"met"}},
		{"Acmee", []string{"met"}},
		{"Patnt", []string{"breached"}},
		{"Jane Doe", []string{"met"}},
		{"Jne Doe", []string{"met"}},
		{"Jhn Smith", []string{"breached"}},
		{"Smith", []string{"breached"}},
		{"1002", []string{"breached"}},
		{"Met", []string{"met"}},
		{"Breached", []string{"breached"}},
		{"In Progress", []string{"working", "fresh"}},
		{"zzzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			ids, err := repo.SearchIDs(context.Background(), tt.term)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, fx.keys(t, ids))
		})
	}
}

func TestIntegration_SubMillisecondResolutionAgreesWithCycleTime(t *testing.T) {
	fx := setupIntegration(t)
	ctx := context.Background()

	var boardID string
	require.NoError(t, fx.pool.QueryRow(ctx, `SELECT id::text FROM ticketing_board LIMIT 1`).Scan(&boardID))
	var matterID string
	require.NoError(t, fx.pool.QueryRow(ctx,
		`INSERT INTO ticketing_ticket (board_id) VALUES ($1) RETURNING id::text`, boardID).Scan(&matterID))

	base := time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC)
	closedAt := base.Add(testOptions.SLAThreshold + 600*time.Microsecond)
	for _, tr := range []struct {
		status string
		at     time.Time
	}{{"Open", base}, {"Closed", closedAt}} {
		_, err := fx.pool.Exec(ctx, `
            INSERT INTO ticketing_cycle_time_histories (ticket_id, status_field_id, to_status_id, transitioned_at)
            VALUES ($1, $2, $3, $4)`, matterID, fx.fields["Status"].ID, fx.statuses[tr.status], tr.at)
		require.NoError(t, err)
	}

	history, err := NewTransitionRepository(fx.pool, testOptions.TerminalSequence).ListByMatter(ctx, matterID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, testOptions.SLAThreshold.Milliseconds(), history[1].TransitionedAt.Sub(history[0].TransitionedAt).Milliseconds())

	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())
	met, err := repo.SearchIDs(ctx, "Met")
	require.NoError(t, err)
	assert.Contains(t, met, matterID)

	breached, err := repo.SearchIDs(ctx, "Breached")
	require.NoError(t, err)
	assert.NotContains(t, breached, matterID)
}

func TestIntegration_ListSorts(t *testing.T) {
	fx := setupIntegration(t)
	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())
	ctx := context.Background()

	t.Run("select by severity rank", func(t *testing.T) {
		matters, total, err := repo.List(ctx, MatterFilter{
			Sort:  MatterSort{Key: "Severity", Field: fx.fields["Severity"]},
			Limit: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, []string{"breached", "fresh", "met", "working"}, fx.matterKeys(t, matters))
	})

	t.Run("sla descending", func(t *testing.T) {
		matters, _, err := repo.List(ctx, MatterFilter{Sort: MatterSort{Key: SortSLA, Desc: true}, Limit: 10})
		require.NoError(t, err)
		keys := fx.matterKeys(t, matters)
		require.Len(t, keys, 4)
		assert.Equal(t, []string{"breached", "met"}, keys[:2])
		assert.ElementsMatch(t, []string{"working", "fresh"}, keys[2:])
	})

	t.Run("sla ascending", func(t *testing.T) {
		matters, _, err := repo.List(ctx, MatterFilter{Sort: MatterSort{Key: SortSLA}, Limit: 10})
		require.NoError(t, err)
		keys := fx.matterKeys(t, matters)
		require.Len(t, keys, 4)
		assert.ElementsMatch(t, []string{"working", "fresh"}, keys[:2])
		assert.Equal(t, []string{"met", "breached"}, keys[2:])
	})

	t.Run("user by last name keeps unassigned last", func(t *testing.T) {
		matters, _, err := repo.List(ctx, MatterFilter{Sort: MatterSort{Key: "Assignee", Field: fx.fields["Assignee"], Desc: true}, Limit: 10})
		require.NoError(t, err)
		keys := fx.matterKeys(t, matters)
		assert.Equal(t, []string{"breached", "met"}, keys[:2])
	})

	t.Run("created descending", func(t *testing.T) {
		matters, _, err := repo.List(ctx, MatterFilter{Sort: MatterSort{Key: SortCreatedAt, Desc: true}, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh", "working", "breached", "met"}, fx.matterKeys(t, matters))
	})
}

func TestIntegration_ListPagination(t *testing.T) {
	fx := setupIntegration(t)
	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())
	ctx := context.Background()
	sort := MatterSort{Key: SortCreatedAt}

	matters, total, err := repo.List(ctx, MatterFilter{Sort: sort, Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, matters, 1)

	matters, total, err = repo.List(ctx, MatterFilter{Sort: sort, Limit: 3, Offset: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, matters)

	matters, total, err = repo.List(ctx, MatterFilter{
		Sort:     sort,
		Limit:    1,
		IDs:      []string{fx.matters["working"], fx.matters["fresh"]},
		Restrict: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"working"}, fx.matterKeys(t, matters))
}

func TestIntegration_GetByIDHydratesFields(t *testing.T) {
	fx := setupIntegration(t)
	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())

	matter, err := repo.GetByID(context.Background(), fx.matters["met"])
	require.NoError(t, err)

	assert.Equal(t, "Acme merger review", matter.Fields["Subject"].Value)
	require.NotNil(t, matter.Fields["Case Number"].DisplayValue)
	assert.Equal(t, "1,001", *matter.Fields["Case Number"].DisplayValue)
	require.NotNil(t, matter.Fields["Assignee"].DisplayValue)
	assert.Equal(t, "Jane Doe", *matter.Fields["Assignee"].DisplayValue)
	require.NotNil(t, matter.Fields["Severity"].DisplayValue)
	assert.Equal(t, "High", *matter.Fields["Severity"].DisplayValue)
	assert.Equal(t, domain.StatusValue{StatusID: fx.statuses["Closed"], GroupName: "Done"}, matter.Fields["Status"].Value)

	_, err = repo.GetByID(context.Background(), "5f0c6d2e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, domain.ErrMatterNotFound)
}

func TestIntegration_UpdateFieldAppendsTransition(t *testing.T) {
	fx := setupIntegration(t)
	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())
	transitions := NewTransitionRepository(fx.pool, testOptions.TerminalSequence)
	ctx := context.Background()

	record, err := repo.UpdateField(ctx, FieldUpdate{
		MatterID:  fx.matters["working"],
		FieldID:   fx.fields["Status"].ID,
		FieldType: domain.FieldTypeStatus,
		Value:     fx.statuses["Closed"],
	})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.ToTerminal)
	require.NotNil(t, record.FromStatusID)
	assert.Equal(t, fx.statuses["Working"], *record.FromStatusID)

	history, err := transitions.ListByMatter(ctx, fx.matters["working"])
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].ToTerminal)
	assert.True(t, history[1].ToTerminal)
}

func TestIntegration_UpdateFieldIsAtomic(t *testing.T) {
	fx := setupIntegration(t)
	repo := NewMatterRepository(fx.pool, testOptions, zap.NewNop())
	ctx := context.Background()

	_, err := fx.pool.Exec(ctx, `
        CREATE OR REPLACE FUNCTION reject_transition() RETURNS trigger AS $$
        BEGIN
            RAISE EXCEPTION 'transition log unavailable';
        END
        $$ LANGUAGE plpgsql;
        CREATE TRIGGER reject_transition BEFORE INSERT ON ticketing_cycle_time_histories
            FOR EACH ROW EXECUTE FUNCTION reject_transition();`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = fx.pool.Exec(context.Background(), `
            DROP TRIGGER IF EXISTS reject_transition ON ticketing_cycle_time_histories;
            DROP FUNCTION IF EXISTS reject_transition();`)
	})

	before, err := repo.GetByID(ctx, fx.matters["working"])
	require.NoError(t, err)

	_, err = repo.UpdateField(ctx, FieldUpdate{
		MatterID:  fx.matters["working"],
		FieldID:   fx.fields["Status"].ID,
		FieldType: domain.FieldTypeStatus,
		Value:     fx.statuses["Closed"],
	})
	var txErr *domain.TransactionError
	require.ErrorAs(t, err, &txErr)

	after, err := repo.GetByID(ctx, fx.matters["working"])
	require.NoError(t, err)
	assert.Equal(t, before.Fields["Status"].Value, after.Fields["Status"].Value)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}
