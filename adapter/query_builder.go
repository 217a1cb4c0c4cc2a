package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forgecms/storage/result"
)

// QueryBuilder accumulates filter, sort and pagination state for one
// collection and compiles it into a single parameterized statement when a
// terminal operation runs. Builders are single-use and not safe for
// concurrent mutation.
type QueryBuilder struct {
	c          *core
	t          Table
	collection string
	tenantID   string

	conds   []string
	args    []any
	sorts   []string
	fields  []string
	limit   int
	offset  int
	timeout time.Duration
	err     error
}

func newQueryBuilder(c *core, collection string) *QueryBuilder {
	return &QueryBuilder{c: c, t: tableFor(collection), collection: collection}
}

func (q *QueryBuilder) column(field string) (string, bool) {
	if q.err != nil {
		return "", false
	}
	if !q.t.HasColumn(field) {
		q.err = fmt.Errorf("unknown column %q in collection %q", field, q.collection)
		return "", false
	}
	return "`" + field + "`", true
}

// Tenant scopes every compiled statement to one tenant.
func (q *QueryBuilder) Tenant(tenantID string) *QueryBuilder {
	q.tenantID = tenantID
	return q
}

// Where adds an equality condition.
func (q *QueryBuilder) Where(field string, value any) *QueryBuilder {
	col, ok := q.column(field)
	if !ok {
		return q
	}
	if value == nil {
		q.conds = append(q.conds, col+" IS NULL")
		return q
	}
	q.conds = append(q.conds, col+" = ?")
	q.args = append(q.args, value)
	return q
}

// WhereIn adds a set-membership condition. An empty set matches nothing.
func (q *QueryBuilder) WhereIn(field string, values []any) *QueryBuilder {
	col, ok := q.column(field)
	if !ok {
		return q
	}
	if len(values) == 0 {
		q.conds = append(q.conds, "1 = 0")
		return q
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	q.conds = append(q.conds, col+" IN ("+marks+")")
	q.args = append(q.args, values...)
	return q
}

// WhereNotIn excludes a set of values. An empty set matches everything.
func (q *QueryBuilder) WhereNotIn(field string, values []any) *QueryBuilder {
	col, ok := q.column(field)
	if !ok {
		return q
	}
	if len(values) == 0 {
		return q
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	q.conds = append(q.conds, col+" NOT IN ("+marks+")")
	q.args = append(q.args, values...)
	return q
}

// WhereBetween adds an inclusive range condition.
func (q *QueryBuilder) WhereBetween(field string, lo, hi any) *QueryBuilder {
	col, ok := q.column(field)
	if !ok {
		return q
	}
	q.conds = append(q.conds, col+" BETWEEN ? AND ?")
	q.args = append(q.args, lo, hi)
	return q
}

// WhereNull matches rows where the column is NULL.
func (q *QueryBuilder) WhereNull(field string) *QueryBuilder {
	if col, ok := q.column(field); ok {
		q.conds = append(q.conds, col+" IS NULL")
	}
	return q
}

// WhereNotNull matches rows where the column is not NULL.
func (q *QueryBuilder) WhereNotNull(field string) *QueryBuilder {
	if col, ok := q.column(field); ok {
		q.conds = append(q.conds, col+" IS NOT NULL")
	}
	return q
}

// Search adds an OR of case-insensitive substring matches across the
// named fields.
func (q *QueryBuilder) Search(term string, fields ...string) *QueryBuilder {
	if term == "" || len(fields) == 0 {
		return q
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := q.column(f)
		if !ok {
			return q
		}
		parts = append(parts, "LOWER("+col+") LIKE ?")
		q.args = append(q.args, "%"+strings.ToLower(term)+"%")
	}
	q.conds = append(q.conds, "("+strings.Join(parts, " OR ")+")")
	return q
}

// Sort appends an ordering; direction is "asc" or "desc".
func (q *QueryBuilder) Sort(field, direction string) *QueryBuilder {
	col, ok := q.column(field)
	if !ok {
		return q
	}
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	q.sorts = append(q.sorts, col+" "+dir)
	return q
}

// OrderBy is an alias for Sort.
func (q *QueryBuilder) OrderBy(field, direction string) *QueryBuilder {
	return q.Sort(field, direction)
}

// Select restricts the returned columns.
func (q *QueryBuilder) Select(fields ...string) *QueryBuilder {
	for _, f := range fields {
		col, ok := q.column(f)
		if !ok {
			return q
		}
		q.fields = append(q.fields, col)
	}
	return q
}

// Limit caps the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Skip offsets into the result set.
func (q *QueryBuilder) Skip(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Paginate sets limit/offset from a 1-based page number.
func (q *QueryBuilder) Paginate(page, pageSize int) *QueryBuilder {
	if page < 1 {
		page = 1
	}
	q.limit = pageSize
	q.offset = (page - 1) * pageSize
	return q
}

// Timeout bounds terminal operations with a context deadline.
func (q *QueryBuilder) Timeout(d time.Duration) *QueryBuilder {
	q.timeout = d
	return q
}

func (q *QueryBuilder) whereClause() (string, []any) {
	conds := q.conds
	args := q.args
	if q.tenantID != "" {
		conds = append(append([]string{}, conds...), "tenant_id = ?")
		args = append(append([]any{}, args...), q.tenantID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *QueryBuilder) compileSelect(count bool) (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.conds) > mysqlCapabilities.MaxQueryComplexity {
		return "", nil, fmt.Errorf("query exceeds maximum complexity of %d conditions", mysqlCapabilities.MaxQueryComplexity)
	}
	cols := "*"
	if count {
		cols = "COUNT(*)"
	} else if len(q.fields) > 0 {
		cols = strings.Join(q.fields, ", ")
	}
	where, args := q.whereClause()
	stmt := "SELECT " + cols + " FROM `" + q.t.Name + "`" + where
	if !count {
		if len(q.sorts) > 0 {
			stmt += " ORDER BY " + strings.Join(q.sorts, ", ")
		}
		if q.limit > 0 {
			stmt += " LIMIT ? OFFSET ?"
			args = append(args, q.limit, q.offset)
		}
	}
	return stmt, args, nil
}

func (q *QueryBuilder) terminalCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}

// timed runs op, measuring wall time into the result's Meta.
func timed[T any](ctx context.Context, q *QueryBuilder, code string, op func(ctx context.Context, db *sql.DB) (T, error)) result.Result[T] {
	ctx, cancel := q.terminalCtx(ctx)
	defer cancel()
	start := time.Now()
	r := wrap(ctx, q.c, code, op)
	if r.Success {
		r.Meta = &result.Meta{ExecutionTime: time.Since(start)}
	}
	return r
}

// Execute runs the compiled select and returns all matching rows.
func (q *QueryBuilder) Execute(ctx context.Context) result.Result[[]map[string]any] {
	return timed(ctx, q, "QUERY_FAILED", func(ctx context.Context, db *sql.DB) ([]map[string]any, error) {
		stmt, args, err := q.compileSelect(false)
		if err != nil {
			return nil, err
		}
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		docs, err := scanDocs(q.t, rows)
		if err != nil {
			return nil, err
		}
		if docs == nil {
			docs = []map[string]any{}
		}
		return docs, nil
	})
}

// Count runs the compiled filter as a COUNT query.
func (q *QueryBuilder) Count(ctx context.Context) result.Result[int64] {
	return timed(ctx, q, "COUNT_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		stmt, args, err := q.compileSelect(true)
		if err != nil {
			return 0, err
		}
		var n int64
		err = db.QueryRowContext(ctx, stmt, args...).Scan(&n)
		return n, err
	})
}

// Exists reports whether at least one row matches.
func (q *QueryBuilder) Exists(ctx context.Context) result.Result[bool] {
	r := q.Count(ctx)
	if !r.Success {
		return result.Fail[bool](r.Error.Code, r.Message)
	}
	out := result.OK(r.Data > 0)
	out.Meta = r.Meta
	return out
}

// FindOne returns the first matching row, or nil data when none match.
func (q *QueryBuilder) FindOne(ctx context.Context) result.Result[map[string]any] {
	q.limit, q.offset = 1, 0
	r := q.Execute(ctx)
	if !r.Success {
		return result.Fail[map[string]any](r.Error.Code, r.Message)
	}
	out := result.OK[map[string]any](nil)
	if len(r.Data) > 0 {
		out.Data = r.Data[0]
	}
	out.Meta = r.Meta
	return out
}

// FindOneOrFail is FindOne but promotes an empty result into NOT_FOUND.
func (q *QueryBuilder) FindOneOrFail(ctx context.Context) result.Result[map[string]any] {
	r := q.FindOne(ctx)
	if r.Success && r.Data == nil {
		return result.Fail[map[string]any](result.CodeNotFound,
			fmt.Sprintf("no %s row matched the query", q.collection))
	}
	return r
}

// UpdateMany applies a partial document to every matching row and returns
// the affected-row count.
func (q *QueryBuilder) UpdateMany(ctx context.Context, doc map[string]any) result.Result[int64] {
	return timed(ctx, q, "UPDATE_MANY_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		if q.err != nil {
			return 0, q.err
		}
		keys := make([]string, 0, len(doc))
		for k := range doc {
			if k == "id" || k == "created_at" || k == "updated_at" || k == "tenant_id" {
				continue
			}
			if !q.t.HasColumn(k) {
				return 0, fmt.Errorf("unknown column %q in collection %q", k, q.collection)
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sets := make([]string, 0, len(keys)+1)
		args := make([]any, 0, len(keys)+len(q.args)+1)
		for _, k := range keys {
			v, err := encodeValue(q.t, k, doc[k])
			if err != nil {
				return 0, err
			}
			sets = append(sets, "`"+k+"` = ?")
			args = append(args, v)
		}
		sets = append(sets, "updated_at = ?")
		args = append(args, now())
		where, whereArgs := q.whereClause()
		args = append(args, whereArgs...)
		res, err := db.ExecContext(ctx, "UPDATE `"+q.t.Name+"` SET "+strings.Join(sets, ", ")+where, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// DeleteMany removes every matching row and returns the count.
func (q *QueryBuilder) DeleteMany(ctx context.Context) result.Result[int64] {
	return timed(ctx, q, "DELETE_MANY_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		if q.err != nil {
			return 0, q.err
		}
		where, args := q.whereClause()
		res, err := db.ExecContext(ctx, "DELETE FROM `"+q.t.Name+"`"+where, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}
