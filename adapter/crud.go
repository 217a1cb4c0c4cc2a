package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// CrudModule provides generic document-style operations over any
// registered collection. Filters are equality-AND only; inequality,
// ranges and OR require the query builder.
type CrudModule struct {
	c *core
}

// execer is satisfied by *sql.DB and *sql.Tx so single statements can run
// inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UpsertItem pairs a lookup query with its replacement data for
// UpsertMany.
type UpsertItem struct {
	Query map[string]any `json:"query"`
	Data  map[string]any `json:"data"`
}

// buildWhere compiles an equality filter plus the optional tenant scope
// into a WHERE clause. Field names must be physical columns; anything
// else is rejected before it reaches SQL.
func buildWhere(t Table, filter map[string]any, tenantID string) (string, []any, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !t.HasColumn(k) {
			return "", nil, fmt.Errorf("unknown column %q in collection %q", k, t.Name)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		v, err := encodeValue(t, k, filter[k])
		if err != nil {
			return "", nil, err
		}
		if v == nil {
			conds = append(conds, "`"+k+"` IS NULL")
			continue
		}
		conds = append(conds, "`"+k+"` = ?")
		args = append(args, v)
	}
	if tenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, tenantID)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// encodeValue prepares a document value for binding, marshaling JSON
// columns.
func encodeValue(t Table, col string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t.JSON[col] {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", col, err)
		}
		return b, nil
	}
	return v, nil
}

// scanDocs reads all rows into generic documents, decoding JSON columns
// and normalizing driver byte slices to strings.
func scanDocs(t Table, rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		doc := make(map[string]any, len(cols))
		for i, col := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				if t.JSON[col] {
					if len(b) == 0 {
						doc[col] = nil
						continue
					}
					var decoded any
					if err := json.Unmarshal(b, &decoded); err != nil {
						return nil, fmt.Errorf("decode column %q: %w", col, err)
					}
					doc[col] = decoded
					continue
				}
				doc[col] = string(b)
				continue
			}
			doc[col] = v
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// insertDoc writes one document, always assigning id, timestamps and the
// tenant column server-side regardless of caller-supplied values.
func insertDoc(ctx context.Context, ex execer, t Table, doc map[string]any, tenantID string) (map[string]any, error) {
	stored := make(map[string]any, len(doc)+4)
	for k, v := range doc {
		if !t.HasColumn(k) {
			return nil, fmt.Errorf("unknown column %q in collection %q", k, t.Name)
		}
		stored[k] = v
	}
	ts := now()
	stored["id"] = utils.NewID()
	stored["created_at"] = ts
	stored["updated_at"] = ts
	if tenantID != "" {
		stored["tenant_id"] = tenantID
	}

	keys := make([]string, 0, len(stored))
	for k := range stored {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, 0, len(keys))
	marks := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		v, err := encodeValue(t, k, stored[k])
		if err != nil {
			return nil, err
		}
		cols = append(cols, "`"+k+"`")
		marks = append(marks, "?")
		args = append(args, v)
	}
	q := "INSERT INTO `" + t.Name + "` (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	return stored, nil
}

// applyPatch compiles a partial document into an UPDATE against the rows
// matched by where, bumping updated_at. Server-managed fields in the
// patch are ignored.
func applyPatch(ctx context.Context, ex execer, t Table, patch map[string]any, where string, whereArgs []any) (int64, error) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		if k == "id" || k == "created_at" || k == "updated_at" || k == "tenant_id" {
			continue
		}
		if !t.HasColumn(k) {
			return 0, fmt.Errorf("unknown column %q in collection %q", k, t.Name)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+len(whereArgs)+1)
	for _, k := range keys {
		v, err := encodeValue(t, k, patch[k])
		if err != nil {
			return 0, err
		}
		sets = append(sets, "`"+k+"` = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now())
	args = append(args, whereArgs...)

	res, err := ex.ExecContext(ctx, "UPDATE `"+t.Name+"` SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// updateByID applies a partial document to one row and bumps updated_at.
func updateByID(ctx context.Context, ex execer, t Table, id string, doc map[string]any, tenantID string) error {
	where := " WHERE id = ?"
	args := []any{id}
	if tenantID != "" {
		where += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	_, err := applyPatch(ctx, ex, t, doc, where, args)
	return err
}

func findOneDoc(ctx context.Context, ex execer, t Table, filter map[string]any, tenantID string) (map[string]any, error) {
	where, args, err := buildWhere(t, filter, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := ex.QueryContext(ctx, "SELECT * FROM `"+t.Name+"`"+where+" LIMIT 1", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs, err := scanDocs(t, rows)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, result.ErrNotFound
	}
	return docs[0], nil
}

// FindOne returns the first row matching the equality filter.
func (m *CrudModule) FindOne(ctx context.Context, collection string, filter map[string]any, tenantID string) result.Result[map[string]any] {
	return wrap(ctx, m.c, "FIND_ONE_FAILED", func(ctx context.Context, db *sql.DB) (map[string]any, error) {
		return findOneDoc(ctx, db, tableFor(collection), filter, tenantID)
	})
}

// FindMany returns rows matching the equality filter with optional
// limit/offset paging.
func (m *CrudModule) FindMany(ctx context.Context, collection string, filter map[string]any, tenantID string, limit, offset int) result.Result[[]map[string]any] {
	return wrap(ctx, m.c, "FIND_MANY_FAILED", func(ctx context.Context, db *sql.DB) ([]map[string]any, error) {
		t := tableFor(collection)
		where, args, err := buildWhere(t, filter, tenantID)
		if err != nil {
			return nil, err
		}
		q := "SELECT * FROM `" + t.Name + "`" + where
		if limit > 0 {
			q += " LIMIT ? OFFSET ?"
			args = append(args, limit, offset)
		}
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		docs, err := scanDocs(t, rows)
		if err != nil {
			return nil, err
		}
		if docs == nil {
			docs = []map[string]any{}
		}
		return docs, nil
	})
}

// FindByIDs returns all rows whose id is in ids, preserving store order.
func (m *CrudModule) FindByIDs(ctx context.Context, collection string, ids []string, tenantID string) result.Result[[]map[string]any] {
	return wrap(ctx, m.c, "FIND_BY_IDS_FAILED", func(ctx context.Context, db *sql.DB) ([]map[string]any, error) {
		if len(ids) == 0 {
			return []map[string]any{}, nil
		}
		t := tableFor(collection)
		marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]any, 0, len(ids)+1)
		for _, id := range ids {
			args = append(args, id)
		}
		q := "SELECT * FROM `" + t.Name + "` WHERE id IN (" + marks + ")"
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		docs, err := scanDocs(t, rows)
		if err != nil {
			return nil, err
		}
		if docs == nil {
			docs = []map[string]any{}
		}
		return docs, nil
	})
}

// Insert writes one document. Caller-supplied id/createdAt/updatedAt are
// always overridden server-side.
func (m *CrudModule) Insert(ctx context.Context, collection string, doc map[string]any, tenantID string) result.Result[map[string]any] {
	return wrap(ctx, m.c, "INSERT_FAILED", func(ctx context.Context, db *sql.DB) (map[string]any, error) {
		return insertDoc(ctx, db, tableFor(collection), doc, tenantID)
	})
}

// InsertMany writes all documents in a single multi-row statement. The
// column set is the union of all document keys.
func (m *CrudModule) InsertMany(ctx context.Context, collection string, docs []map[string]any, tenantID string) result.Result[[]map[string]any] {
	return wrap(ctx, m.c, "INSERT_MANY_FAILED", func(ctx context.Context, db *sql.DB) ([]map[string]any, error) {
		if len(docs) == 0 {
			return []map[string]any{}, nil
		}
		t := tableFor(collection)
		keySet := map[string]bool{"id": true, "created_at": true, "updated_at": true}
		if tenantID != "" {
			keySet["tenant_id"] = true
		}
		for _, doc := range docs {
			for k := range doc {
				if !t.HasColumn(k) {
					return nil, fmt.Errorf("unknown column %q in collection %q", k, t.Name)
				}
				keySet[k] = true
			}
		}
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cols := make([]string, 0, len(keys))
		for _, k := range keys {
			cols = append(cols, "`"+k+"`")
		}
		q := "INSERT INTO `" + t.Name + "` (" + strings.Join(cols, ", ") + ") VALUES "
		args := make([]any, 0, len(docs)*len(keys))
		stored := make([]map[string]any, 0, len(docs))
		ts := now()
		for i, doc := range docs {
			row := make(map[string]any, len(keys))
			for k, v := range doc {
				row[k] = v
			}
			row["id"] = utils.NewID()
			row["created_at"] = ts
			row["updated_at"] = ts
			if tenantID != "" {
				row["tenant_id"] = tenantID
			}
			if i > 0 {
				q += ","
			}
			q += "(" + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + ")"
			for _, k := range keys {
				v, err := encodeValue(t, k, row[k])
				if err != nil {
					return nil, err
				}
				args = append(args, v)
			}
			stored = append(stored, row)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
		return stored, nil
	})
}

// Update applies a partial document to the row with the given id and
// returns the refreshed row.
func (m *CrudModule) Update(ctx context.Context, collection, id string, doc map[string]any, tenantID string) result.Result[map[string]any] {
	return wrap(ctx, m.c, "UPDATE_FAILED", func(ctx context.Context, db *sql.DB) (map[string]any, error) {
		t := tableFor(collection)
		if err := updateByID(ctx, db, t, id, doc, tenantID); err != nil {
			return nil, err
		}
		return findOneDoc(ctx, db, t, map[string]any{"id": id}, tenantID)
	})
}

// UpdateMany applies a partial document to every row matching the filter
// and returns the affected-row count.
func (m *CrudModule) UpdateMany(ctx context.Context, collection string, filter, doc map[string]any, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "UPDATE_MANY_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		t := tableFor(collection)
		where, whereArgs, err := buildWhere(t, filter, tenantID)
		if err != nil {
			return 0, err
		}
		return applyPatch(ctx, db, t, doc, where, whereArgs)
	})
}

// Delete removes the row with the given id. Deleting a missing row is a
// NOT_FOUND failure.
func (m *CrudModule) Delete(ctx context.Context, collection, id string, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		t := tableFor(collection)
		q := "DELETE FROM `" + t.Name + "` WHERE id = ?"
		args := []any{id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, result.ErrNotFound
		}
		return true, nil
	})
}

// DeleteMany removes every row matching the filter and returns the count.
func (m *CrudModule) DeleteMany(ctx context.Context, collection string, filter map[string]any, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_MANY_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		t := tableFor(collection)
		where, args, err := buildWhere(t, filter, tenantID)
		if err != nil {
			return 0, err
		}
		res, err := db.ExecContext(ctx, "DELETE FROM `"+t.Name+"`"+where, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// Upsert updates the row matching query or inserts a new one carrying the
// query's key fields. The check-then-act runs inside a transaction with a
// row lock so concurrent upserts of the same logical key serialize.
func (m *CrudModule) Upsert(ctx context.Context, collection string, query, doc map[string]any, tenantID string) result.Result[map[string]any] {
	return wrap(ctx, m.c, "UPSERT_FAILED", func(ctx context.Context, db *sql.DB) (map[string]any, error) {
		t := tableFor(collection)
		var stored map[string]any
		err := transact(ctx, db, func(tx *sql.Tx) error {
			where, args, err := buildWhere(t, query, tenantID)
			if err != nil {
				return err
			}
			var id string
			err = tx.QueryRowContext(ctx, "SELECT id FROM `"+t.Name+"`"+where+" LIMIT 1 FOR UPDATE", args...).Scan(&id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				merged := make(map[string]any, len(query)+len(doc))
				for k, v := range query {
					merged[k] = v
				}
				for k, v := range doc {
					merged[k] = v
				}
				stored, err = insertDoc(ctx, tx, t, merged, tenantID)
				return err
			case err != nil:
				return err
			}
			if err := updateByID(ctx, tx, t, id, doc, tenantID); err != nil {
				return err
			}
			stored, err = findOneDoc(ctx, tx, t, map[string]any{"id": id}, tenantID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return stored, nil
	})
}

// UpsertMany upserts each item sequentially, collecting the stored rows.
func (m *CrudModule) UpsertMany(ctx context.Context, collection string, items []UpsertItem, tenantID string) result.Result[[]map[string]any] {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		r := m.Upsert(ctx, collection, item.Query, item.Data, tenantID)
		if !r.Success {
			return result.Fail[[]map[string]any](r.Error.Code, r.Message)
		}
		out = append(out, r.Data)
	}
	return result.OK(out)
}

// Count returns the number of rows matching the filter.
func (m *CrudModule) Count(ctx context.Context, collection string, filter map[string]any, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "COUNT_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		t := tableFor(collection)
		where, args, err := buildWhere(t, filter, tenantID)
		if err != nil {
			return 0, err
		}
		var n int64
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `"+t.Name+"`"+where, args...).Scan(&n)
		return n, err
	})
}

// Exists reports whether any row matches the filter.
func (m *CrudModule) Exists(ctx context.Context, collection string, filter map[string]any, tenantID string) result.Result[bool] {
	r := m.Count(ctx, collection, filter, tenantID)
	if !r.Success {
		return result.Fail[bool](r.Error.Code, r.Message)
	}
	return result.OK(r.Data > 0)
}

// Aggregate is not supported by this backing store; the capability
// descriptor advertises SupportsAggregation=false.
func (m *CrudModule) Aggregate(ctx context.Context, collection string, pipeline any, tenantID string) result.Result[[]map[string]any] {
	return result.Fail[[]map[string]any](result.CodeNotImplemented, "aggregation is not implemented")
}
