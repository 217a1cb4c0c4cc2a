package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// ContentRevisionModule manages the append-only snapshot history of
// content nodes. Revisions are created, restored from, or pruned, never
// edited in place.
type ContentRevisionModule struct {
	c *core
}

const revisionCols = "id, tenant_id, content_id, data, version, message, created_by, created_at, updated_at"

func scanRevision(row rowScanner) (model.ContentRevision, error) {
	var (
		r         model.ContentRevision
		tenant    sql.NullString
		message   sql.NullString
		createdBy sql.NullString
	)
	err := row.Scan(&r.ID, &tenant, &r.ContentID, &r.Data, &r.Version,
		&message, &createdBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.ContentRevision{}, err
	}
	r.TenantID = tenant.String
	r.Message = message.String
	r.CreatedBy = createdBy.String
	return r, nil
}

// Create appends a new snapshot row. The version counter is
// caller-supplied.
func (m *ContentRevisionModule) Create(ctx context.Context, rev model.ContentRevision, tenantID string) result.Result[model.ContentRevision] {
	return wrap(ctx, m.c, "CREATE_CONTENT_REVISION_FAILED", func(ctx context.Context, db *sql.DB) (model.ContentRevision, error) {
		rev.ID = utils.NewID()
		rev.TenantID = tenantID
		ts := now()
		rev.CreatedAt = ts
		rev.UpdatedAt = ts
		_, err := db.ExecContext(ctx,
			`INSERT INTO content_revisions (id, tenant_id, content_id, data, version, message, created_by, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			rev.ID, nullable(rev.TenantID), rev.ContentID, rev.Data, rev.Version,
			nullable(rev.Message), nullable(rev.CreatedBy), rev.CreatedAt, rev.UpdatedAt)
		return rev, err
	})
}

// GetHistory returns a page of a node's revisions, newest-created first,
// with the total in Meta.
func (m *ContentRevisionModule) GetHistory(ctx context.Context, contentID, tenantID string, page, pageSize int) result.Result[[]model.ContentRevision] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	r := wrap(ctx, m.c, "GET_CONTENT_HISTORY_FAILED", func(ctx context.Context, db *sql.DB) ([]model.ContentRevision, error) {
		cond := " WHERE content_id = ?"
		args := []any{contentID}
		if tenantID != "" {
			cond += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		q := "SELECT " + revisionCols + " FROM content_revisions" + cond +
			" ORDER BY created_at DESC LIMIT ? OFFSET ?"
		rows, err := db.QueryContext(ctx, q, append(args, pageSize, (page-1)*pageSize)...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.ContentRevision{}
		for rows.Next() {
			rev, err := scanRevision(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, rev)
		}
		return out, rows.Err()
	})
	if !r.Success {
		return r
	}
	count := wrap(ctx, m.c, "GET_CONTENT_HISTORY_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		q := "SELECT COUNT(*) FROM content_revisions WHERE content_id = ?"
		args := []any{contentID}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		var n int64
		err := db.QueryRowContext(ctx, q, args...).Scan(&n)
		return n, err
	})
	if count.Success {
		r.Meta = &result.Meta{Total: count.Data, Page: page, PageSize: pageSize}
	}
	return r
}

// Restore copies a past snapshot's data back onto the live node. The
// pre-restore state is not snapshotted here; callers wanting a safety
// net create a revision first.
func (m *ContentRevisionModule) Restore(ctx context.Context, revisionID, tenantID string) result.Result[*model.ContentNode] {
	return wrap(ctx, m.c, "RESTORE_CONTENT_REVISION_FAILED", func(ctx context.Context, db *sql.DB) (*model.ContentNode, error) {
		q := "SELECT " + revisionCols + " FROM content_revisions WHERE id = ?"
		args := []any{revisionID}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		rev, err := scanRevision(db.QueryRowContext(ctx, q+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, result.ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		upd := "UPDATE content SET data = ?, updated_at = ? WHERE id = ?"
		updArgs := []any{rev.Data, now(), rev.ContentID}
		if tenantID != "" {
			upd += " AND tenant_id = ?"
			updArgs = append(updArgs, tenantID)
		}
		if _, err := db.ExecContext(ctx, upd, updArgs...); err != nil {
			return nil, err
		}

		sel := "SELECT " + nodeCols + " FROM content WHERE id = ?"
		selArgs := []any{rev.ContentID}
		if tenantID != "" {
			sel += " AND tenant_id = ?"
			selArgs = append(selArgs, tenantID)
		}
		node, err := scanNode(db.QueryRowContext(ctx, sel+" LIMIT 1", selArgs...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, result.ErrNotFound
		}
		return node, err
	})
}

// Delete removes one revision.
func (m *ContentRevisionModule) Delete(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_CONTENT_REVISION_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM content_revisions WHERE id = ?"
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

// DeleteMany removes all revisions whose id is in ids and returns the
// count.
func (m *ContentRevisionModule) DeleteMany(ctx context.Context, ids []string, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_CONTENT_REVISIONS_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		if len(ids) == 0 {
			return 0, nil
		}
		marks := ""
		args := make([]any, 0, len(ids)+1)
		for i, id := range ids {
			if i > 0 {
				marks += ","
			}
			marks += "?"
			args = append(args, id)
		}
		q := "DELETE FROM content_revisions WHERE id IN (" + marks + ")"
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// Cleanup retains only the newest keepLatest revisions of a node and
// deletes the remainder, returning the deleted count.
func (m *ContentRevisionModule) Cleanup(ctx context.Context, contentID string, keepLatest int, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "CLEANUP_CONTENT_REVISIONS_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		if keepLatest < 0 {
			keepLatest = 0
		}
		q := "SELECT id FROM content_revisions WHERE content_id = ?"
		args := []any{contentID}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		q += " ORDER BY created_at DESC"
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		defer rows.Close()
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return 0, err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return 0, err
		}
		if len(ids) <= keepLatest {
			return 0, nil
		}
		stale := ids[keepLatest:]
		marks := ""
		delArgs := make([]any, 0, len(stale))
		for i, id := range stale {
			if i > 0 {
				marks += ","
			}
			marks += "?"
			delArgs = append(delArgs, id)
		}
		res, err := db.ExecContext(ctx,
			"DELETE FROM content_revisions WHERE id IN ("+marks+")", delArgs...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}
