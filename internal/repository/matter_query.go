package repository

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/matter-service/internal/domain"
)

// Built-in and synthetic sort keys that do not name a stored field.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortDuration  = "duration"
	SortSLA       = "sla"
)

// IsBuiltinSort reports whether key sorts without a field schema lookup.
func IsBuiltinSort(key string) bool {
	switch key {
	case SortCreatedAt, SortUpdatedAt, SortDuration, SortSLA:
		return true
	}
	return false
}

// QueryOptions carries the configuration the SQL builders depend on.
type QueryOptions struct {
	SLAThreshold        time.Duration
	TerminalSequence    int
	SimilarityThreshold float64
}

// MatterSort describes the ORDER BY of a listing. Field is required unless Key is built in.
type MatterSort struct {
	Key   string
	Field *domain.FieldDefinition
	Desc  bool
}

// MatterFilter captures listing parameters after search resolution.
type MatterFilter struct {
	Sort   MatterSort
	Limit  int
	Offset int
	// IDs restricts the listing to a resolved search id set when Restrict is true.
	IDs      []string
	Restrict bool
}

// Millisecond durations truncate toward zero, matching time.Duration.Milliseconds in
// the cycle time engine so SLA buckets agree at sub-millisecond boundaries.
const (
	cycleTimeToDone = `TRUNC(EXTRACT(EPOCH FROM (ct.first_done_at - ct.first_transition_at)) * 1000)`
	cycleTimeToNow  = `TRUNC(EXTRACT(EPOCH FROM (NOW() - ct.first_transition_at)) * 1000)`
)

// cycleTimeJoin exposes, per matter, the first transition and the first transition
// into the terminal status group as alias ct.
func cycleTimeJoin(args *queryArgs, terminalSequence int) string {
	return fmt.Sprintf(`
        LEFT JOIN (
            SELECT h.ticket_id,
                   MIN(h.transitioned_at) AS first_transition_at,
                   MIN(h.transitioned_at) FILTER (WHERE sg_ct.sequence = %s) AS first_done_at
            FROM ticketing_cycle_time_histories h
            LEFT JOIN ticketing_field_status_options so_ct ON so_ct.id = h.to_status_id
            LEFT JOIN ticketing_field_status_groups sg_ct ON sg_ct.id = so_ct.group_id
            GROUP BY h.ticket_id
        ) ct ON ct.ticket_id = tt.id`, args.add(terminalSequence))
}

// slaBucketExpr is 0 while in progress, 1 within the threshold and 2 over it.
func slaBucketExpr(args *queryArgs, threshold time.Duration) string {
	return fmt.Sprintf(`CASE
            WHEN ct.first_done_at IS NULL OR %[1]s = 0 THEN 0
            WHEN %[1]s <= %[2]s THEN 1
            ELSE 2
        END`, cycleTimeToDone, args.add(threshold.Milliseconds()))
}

// slaLabelExpr mirrors slaBucketExpr with the verdict text.
func slaLabelExpr(args *queryArgs, threshold time.Duration) string {
	return fmt.Sprintf(`(CASE
            WHEN ct.first_done_at IS NULL OR %[1]s = 0 THEN %[3]s::text
            WHEN %[1]s <= %[2]s THEN %[4]s::text
            ELSE %[5]s::text
        END)`,
		cycleTimeToDone,
		args.add(threshold.Milliseconds()),
		args.add(string(domain.SLAInProgress)),
		args.add(string(domain.SLAMet)),
		args.add(string(domain.SLABreached)),
	)
}

// sortClause returns the joins and the comparator for a listing sort.
func sortClause(args *queryArgs, sort MatterSort, opts QueryOptions) (string, string, error) {
	switch sort.Key {
	case SortCreatedAt, SortUpdatedAt:
		return "", "tt." + sort.Key, nil
	case SortDuration:
		join := cycleTimeJoin(args, opts.TerminalSequence)
		return join, fmt.Sprintf("COALESCE(%s, %s)", cycleTimeToDone, cycleTimeToNow), nil
	case SortSLA:
		join := cycleTimeJoin(args, opts.TerminalSequence)
		return join, slaBucketExpr(args, opts.SLAThreshold), nil
	}

	if sort.Field == nil {
		return "", "", &domain.UnknownFieldError{Name: sort.Key}
	}
	strategy, err := strategyFor(sort.Field.Type)
	if err != nil {
		return "", "", err
	}
	join := fmt.Sprintf(`
        LEFT JOIN ticketing_ticket_field_value ttfv
            ON ttfv.ticket_id = tt.id
           AND ttfv.ticket_field_id = %s`, args.add(sort.Field.ID))
	join += strategy.sortJoin
	return join, strategy.sortExpr(args), nil
}

func restrictClause(args *queryArgs, filter MatterFilter) string {
	if !filter.Restrict {
		return "1=1"
	}
	return fmt.Sprintf("tt.id = ANY(%s::uuid[])", args.add(filter.IDs))
}

func buildCountQuery(filter MatterFilter) (string, []any) {
	args := &queryArgs{}
	where := restrictClause(args, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM ticketing_ticket tt WHERE %s`, where)
	return query, *args
}

func buildListQuery(filter MatterFilter, opts QueryOptions) (string, []any, error) {
	args := &queryArgs{}
	joins, orderExpr, err := sortClause(args, filter.Sort, opts)
	if err != nil {
		return "", nil, err
	}
	where := restrictClause(args, filter)

	direction := "ASC"
	if filter.Sort.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
        SELECT tt.id::text, tt.board_id::text, tt.created_at, tt.updated_at
        FROM ticketing_ticket tt%s
        WHERE %s
        ORDER BY %s %s NULLS LAST, tt.id %s
        LIMIT %s OFFSET %s`,
		joins, where, orderExpr, direction, direction,
		args.add(filter.Limit), args.add(filter.Offset))
	return query, *args, nil
}

// similarityThresholdStmt scopes pg_trgm.word_similarity_threshold to the current
// transaction, like SET LOCAL.
const similarityThresholdStmt = `SELECT set_config('pg_trgm.word_similarity_threshold', $1, true)`

// buildSearchQuery selects the ids of matters whose text fields, assigned users,
// numeric fields or SLA verdict match term. Criteria are OR-ed. The similarity
// cutoff is not bound here; run the query after similarityThresholdStmt.
func buildSearchQuery(term string, opts QueryOptions) (string, []any) {
	args := &queryArgs{}
	term = strings.TrimSpace(term)
	bound := searchTerm{
		text:    args.add(term),
		pattern: args.add("%" + escapeLike(term) + "%"),
	}
	if n, err := strconv.ParseFloat(term, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		bound.number = args.add(n)
	}

	var predicates []string
	for _, fieldType := range domain.FieldTypes {
		strategy := fieldStrategies[fieldType]
		if strategy.search == nil {
			continue
		}
		predicate := strategy.search(bound)
		if predicate == "" {
			continue
		}
		predicates = append(predicates, fmt.Sprintf("(tf.field_type = %s AND %s)", args.add(string(fieldType)), predicate))
	}

	join := cycleTimeJoin(args, opts.TerminalSequence)
	label := slaLabelExpr(args, opts.SLAThreshold)
	predicates = append(predicates, fuzzyMatch(label, bound))

	query := fmt.Sprintf(`
        SELECT DISTINCT tt.id::text
        FROM ticketing_ticket tt
        LEFT JOIN ticketing_ticket_field_value tv ON tv.ticket_id = tt.id
        LEFT JOIN ticketing_fields tf ON tf.id = tv.ticket_field_id
        LEFT JOIN users su ON su.id = tv.user_value%s
        WHERE %s`, join, strings.Join(predicates, "\n           OR "))
	return query, *args
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
