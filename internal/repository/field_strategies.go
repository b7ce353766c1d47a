package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/matter-service/internal/domain"
)

// fieldStrategy gathers everything type specific about a field: where its value is
// stored, how a list sorts and searches by it, how a raw update is encoded and how a
// stored row is turned back into a FieldValue.
type fieldStrategy struct {
	// column is the ticketing_ticket_field_value column holding the value.
	column string
	// sortJoin adds lookup joins hanging off the ttfv alias.
	sortJoin string
	// sortExpr is the comparator expression used in ORDER BY.
	sortExpr func(args *queryArgs) string
	// search returns a predicate over the tv/su aliases, or "" when the type is not searchable.
	search  func(term searchTerm) string
	encode  func(raw any) (any, error)
	resolve func(row fieldRow, f *displayFormatter) (any, *string)
}

// searchTerm carries the placeholders of an already bound search term.
type searchTerm struct {
	text    string
	pattern string
	// number is empty unless the term parses as a number.
	number string
}

var fieldStrategies = map[domain.FieldType]fieldStrategy{
	domain.FieldTypeText: {
		column:   "text_value",
		sortExpr: constExpr(`COALESCE(ttfv.text_value, ttfv.string_value)`),
		search: func(term searchTerm) string {
			return fuzzyMatch(`COALESCE(tv.text_value, tv.string_value)`, term)
		},
		encode:  encodeText,
		resolve: resolveText,
	},
	domain.FieldTypeNumber: {
		column:   "number_value",
		sortExpr: constExpr(`ttfv.number_value`),
		search: func(term searchTerm) string {
			if term.number == "" {
				return ""
			}
			return fmt.Sprintf("tv.number_value = %s", term.number)
		},
		encode:  encodeNumber,
		resolve: resolveNumber,
	},
	domain.FieldTypeDate: {
		column:   "date_value",
		sortExpr: constExpr(`ttfv.date_value`),
		encode:   encodeDate,
		resolve:  resolveDate,
	},
	domain.FieldTypeBoolean: {
		column:   "boolean_value",
		sortExpr: constExpr(`ttfv.boolean_value`),
		encode:   encodeBoolean,
		resolve:  resolveBoolean,
	},
	domain.FieldTypeCurrency: {
		column:   "currency_value",
		sortExpr: constExpr(`(ttfv.currency_value->>'amount')::numeric`),
		encode:   encodeCurrency,
		resolve:  resolveCurrency,
	},
	domain.FieldTypeUser: {
		column: "user_value",
		sortJoin: `
        LEFT JOIN users u_sort ON u_sort.id = ttfv.user_value`,
		sortExpr: constExpr(`u_sort.last_name`),
		search: func(term searchTerm) string {
			return fuzzyMatch(`(su.first_name || ' ' || su.last_name)`, term)
		},
		encode:  encodeUser,
		resolve: resolveUser,
	},
	domain.FieldTypeSelect: {
		column: "select_reference_value_uuid",
		sortJoin: `
        LEFT JOIN ticketing_field_options so ON so.id = ttfv.select_reference_value_uuid`,
		sortExpr: severityRankExpr,
		encode:   encodeReference(domain.FieldTypeSelect),
		resolve:  resolveSelect,
	},
	domain.FieldTypeStatus: {
		column: "status_reference_value_uuid",
		sortJoin: `
        LEFT JOIN ticketing_field_status_options s_sort ON s_sort.id = ttfv.status_reference_value_uuid
        LEFT JOIN ticketing_field_status_groups sg_sort ON sg_sort.id = s_sort.group_id`,
		sortExpr: constExpr(`sg_sort.name`),
		encode:   encodeReference(domain.FieldTypeStatus),
		resolve:  resolveStatus,
	},
}

func strategyFor(fieldType domain.FieldType) (fieldStrategy, error) {
	strategy, ok := fieldStrategies[fieldType]
	if !ok {
		return fieldStrategy{}, &domain.UnsupportedFieldTypeError{FieldType: string(fieldType)}
	}
	return strategy, nil
}

func constExpr(expr string) func(*queryArgs) string {
	return func(*queryArgs) string { return expr }
}

// severityRankExpr ranks select labels Low < Medium < High < Critical; unknown labels
// rank after Critical and missing values stay NULL.
func severityRankExpr(args *queryArgs) string {
	var b strings.Builder
	b.WriteString("CASE WHEN so.label IS NULL THEN NULL")
	for i, label := range domain.SeverityLabels {
		fmt.Fprintf(&b, " WHEN so.label = %s THEN %d", args.add(label), i+1)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(domain.SeverityLabels)+1)
	return b.String()
}

// fuzzyMatch uses the <% operator rather than word_similarity() so the trigram
// indexes apply. The cutoff is pg_trgm.word_similarity_threshold, set per transaction.
func fuzzyMatch(expr string, term searchTerm) string {
	return fmt.Sprintf("(%[1]s ILIKE %[2]s OR %[3]s <%% %[1]s)", expr, term.pattern, term.text)
}
