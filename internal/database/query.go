package database

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"
)

type Op string

const (
	OpEq      Op = "="
	OpNeq     Op = "<>"
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpIn      Op = "in"
	OpIsNull  Op = "is null"
	OpNotNull Op = "is not null"
)

// tableColumns lists every table and column a Query may reference.
var tableColumns = map[string][]string{
	"accounts":        {"id", "email", "created_at"},
	"otp_codes":       {"id", "email", "code_hash", "expires_at", "consumed_at", "created_at"},
	"campuses":        {"id", "name", "short_code", "domain", "lat", "lng", "color", "created_at"},
	"profiles":        {"id", "user_id", "campus_id", "username", "display_name", "department", "year", "bio", "avatar_url", "interest_tags", "is_online", "last_seen", "reputation", "cross_campus_visible", "created_at", "updated_at"},
	"sessions":        {"id", "creator_id", "campus_id", "title", "description", "category", "interest_tag", "location", "lat", "lng", "max_members", "session_time", "is_active", "created_at"},
	"session_members": {"id", "session_id", "user_id", "checked_in", "joined_at"},
	"broadcasts":      {"id", "user_id", "campus_id", "message", "category", "duration_minutes", "expires_at", "created_at"},
	"connections":     {"id", "requester_id", "addressee_id", "status", "is_cross_campus", "created_at", "updated_at"},
	"messages":        {"id", "sender_id", "receiver_id", "session_id", "content", "is_read", "created_at"},
	"badges":          {"id", "user_id", "campus_id", "badge_name", "badge_icon", "description", "earned_at"},
	"user_roles":      {"id", "user_id", "role"},
}

// Columns returns the known columns of table, or nil when the table is unknown.
func Columns(table string) []string {
	return tableColumns[table]
}

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, v any) Filter      { return Filter{Column: column, Op: OpEq, Value: v} }
func Neq(column string, v any) Filter     { return Filter{Column: column, Op: OpNeq, Value: v} }
func Gt(column string, v any) Filter      { return Filter{Column: column, Op: OpGt, Value: v} }
func Gte(column string, v any) Filter     { return Filter{Column: column, Op: OpGte, Value: v} }
func Lt(column string, v any) Filter      { return Filter{Column: column, Op: OpLt, Value: v} }
func Lte(column string, v any) Filter     { return Filter{Column: column, Op: OpLte, Value: v} }
func In(column string, v []string) Filter { return Filter{Column: column, Op: OpIn, Value: v} }
func IsNull(column string) Filter         { return Filter{Column: column, Op: OpIsNull} }
func NotNull(column string) Filter        { return Filter{Column: column, Op: OpNotNull} }

// Query describes a single-table read or delete. Filters are ANDed together.
// AnyOf holds alternatives: the row must satisfy every filter of at least one
// alternative.
type Query struct {
	Table   string
	Filters []Filter
	AnyOf   [][]Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func From(table string) Query {
	return Query{Table: table}
}

func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(slices.Clone(q.Filters), filters...)
	return q
}

func (q Query) Or(alternatives ...[]Filter) Query {
	q.AnyOf = append(slices.Clone(q.AnyOf), alternatives...)
	return q
}

func (q Query) Order(column string, desc bool) Query {
	q.OrderBy = column
	q.Desc = desc
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) checkColumn(column string) error {
	if !slices.Contains(tableColumns[q.Table], column) {
		return fmt.Errorf("unknown column %q on table %q", column, q.Table)
	}
	return nil
}

func (q Query) validate() error {
	if _, ok := tableColumns[q.Table]; !ok {
		return fmt.Errorf("unknown table %q", q.Table)
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	if q.OrderBy != "" {
		if err := q.checkColumn(q.OrderBy); err != nil {
			return err
		}
	}
	return nil
}

func (q Query) predicate(f Filter, args *[]any) (string, error) {
	if err := q.checkColumn(f.Column); err != nil {
		return "", err
	}

	switch f.Op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s %s $%d", f.Column, f.Op, len(*args)), nil
	case OpIn:
		values, ok := f.Value.([]string)
		if !ok {
			return "", fmt.Errorf("in filter on %q needs []string, got %T", f.Column, f.Value)
		}
		*args = append(*args, pq.Array(values))
		return fmt.Sprintf("%s = ANY($%d)", f.Column, len(*args)), nil
	case OpIsNull, OpNotNull:
		return fmt.Sprintf("%s %s", f.Column, strings.ToUpper(string(f.Op))), nil
	default:
		return "", fmt.Errorf("unsupported operator %q", f.Op)
	}
}

func (q Query) where(args *[]any) (string, error) {
	var clauses []string
	for _, f := range q.Filters {
		c, err := q.predicate(f, args)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, c)
	}

	if len(q.AnyOf) > 0 {
		var alts []string
		for _, alt := range q.AnyOf {
			var parts []string
			for _, f := range alt {
				c, err := q.predicate(f, args)
				if err != nil {
					return "", err
				}
				parts = append(parts, c)
			}
			if len(parts) > 0 {
				alts = append(alts, "("+strings.Join(parts, " AND ")+")")
			}
		}
		if len(alts) > 0 {
			clauses = append(clauses, "("+strings.Join(alts, " OR ")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

// SelectSQL compiles the query into a parameterized SELECT of columns.
func (q Query) SelectSQL(columns ...string) (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}
	if len(columns) == 0 {
		columns = tableColumns[q.Table]
	}
	for _, c := range columns {
		if err := q.checkColumn(c); err != nil {
			return "", nil, err
		}
	}

	var args []any
	where, err := q.where(&args)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(columns, ", "), q.Table, where)
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.OrderBy, dir)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args, nil
}

// CountSQL compiles the query into a COUNT(*); ordering and limit are ignored.
func (q Query) CountSQL() (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}

	var args []any
	where, err := q.where(&args)
	if err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.Table, where), args, nil
}

// DeleteSQL compiles the query into a DELETE. Queries without filters are rejected.
func (q Query) DeleteSQL() (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}
	if len(q.Filters) == 0 && len(q.AnyOf) == 0 {
		return "", nil, fmt.Errorf("delete from %q without filters", q.Table)
	}

	var args []any
	where, err := q.where(&args)
	if err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("DELETE FROM %s%s", q.Table, where), args, nil
}
