package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/events"
	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// ContentDraftModule manages pending replacement payloads. A draft never
// outlives its publication: publishing copies its data onto the target
// node and deletes the draft in the same transaction.
type ContentDraftModule struct {
	c *core
}

const draftCols = "id, tenant_id, content_id, data, version, status, created_by, created_at, updated_at"

func scanDraft(row rowScanner) (model.ContentDraft, error) {
	var (
		d         model.ContentDraft
		tenant    sql.NullString
		status    sql.NullString
		createdBy sql.NullString
	)
	err := row.Scan(&d.ID, &tenant, &d.ContentID, &d.Data, &d.Version,
		&status, &createdBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.ContentDraft{}, err
	}
	d.TenantID = tenant.String
	d.Status = status.String
	d.CreatedBy = createdBy.String
	return d, nil
}

func insertDraft(ctx context.Context, ex execer, d *model.ContentDraft, tenantID string) error {
	d.ID = utils.NewID()
	d.TenantID = tenantID
	ts := now()
	d.CreatedAt = ts
	d.UpdatedAt = ts
	if d.Status == "" {
		d.Status = "pending"
	}
	if d.Version == 0 {
		// Next version for this content id.
		q := "SELECT COALESCE(MAX(version), 0) + 1 FROM content_drafts WHERE content_id = ?"
		args := []any{d.ContentID}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		if err := ex.QueryRowContext(ctx, q, args...).Scan(&d.Version); err != nil {
			return err
		}
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO content_drafts (id, tenant_id, content_id, data, version, status, created_by, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		d.ID, nullable(d.TenantID), d.ContentID, d.Data, d.Version,
		d.Status, nullable(d.CreatedBy), d.CreatedAt, d.UpdatedAt)
	return err
}

// Create inserts a draft for a content node. A zero version is assigned
// the next counter value for that node.
func (m *ContentDraftModule) Create(ctx context.Context, draft model.ContentDraft, tenantID string) result.Result[model.ContentDraft] {
	return wrap(ctx, m.c, "CREATE_CONTENT_DRAFT_FAILED", func(ctx context.Context, db *sql.DB) (model.ContentDraft, error) {
		if err := insertDraft(ctx, db, &draft, tenantID); err != nil {
			return model.ContentDraft{}, err
		}
		return draft, nil
	})
}

// CreateMany inserts several drafts in one transaction.
func (m *ContentDraftModule) CreateMany(ctx context.Context, drafts []model.ContentDraft, tenantID string) result.Result[[]model.ContentDraft] {
	return wrap(ctx, m.c, "CREATE_CONTENT_DRAFTS_FAILED", func(ctx context.Context, db *sql.DB) ([]model.ContentDraft, error) {
		out := make([]model.ContentDraft, 0, len(drafts))
		err := transact(ctx, db, func(tx *sql.Tx) error {
			for i := range drafts {
				if err := insertDraft(ctx, tx, &drafts[i], tenantID); err != nil {
					return err
				}
				out = append(out, drafts[i])
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Update replaces the draft's data payload wholesale.
func (m *ContentDraftModule) Update(ctx context.Context, id string, data model.JSONMap, tenantID string) result.Result[model.ContentDraft] {
	return wrap(ctx, m.c, "UPDATE_CONTENT_DRAFT_FAILED", func(ctx context.Context, db *sql.DB) (model.ContentDraft, error) {
		q := "UPDATE content_drafts SET data = ?, updated_at = ? WHERE id = ?"
		args := []any{data, now(), id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return model.ContentDraft{}, err
		}
		sel := "SELECT " + draftCols + " FROM content_drafts WHERE id = ?"
		selArgs := []any{id}
		if tenantID != "" {
			sel += " AND tenant_id = ?"
			selArgs = append(selArgs, tenantID)
		}
		d, err := scanDraft(db.QueryRowContext(ctx, sel+" LIMIT 1", selArgs...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.ContentDraft{}, result.ErrNotFound
		}
		return d, err
	})
}

// Publish copies the draft's data onto its target node, marks the node
// published, and deletes the draft, all in one transaction. Publishing
// an unknown draft id is NOT_FOUND and leaves the node untouched.
func (m *ContentDraftModule) Publish(ctx context.Context, draftID, tenantID string) result.Result[*model.ContentNode] {
	var path string
	r := wrap(ctx, m.c, "PUBLISH_CONTENT_DRAFT_FAILED", func(ctx context.Context, db *sql.DB) (*model.ContentNode, error) {
		var node *model.ContentNode
		err := transact(ctx, db, func(tx *sql.Tx) error {
			q := "SELECT " + draftCols + " FROM content_drafts WHERE id = ?"
			args := []any{draftID}
			if tenantID != "" {
				q += " AND tenant_id = ?"
				args = append(args, tenantID)
			}
			d, err := scanDraft(tx.QueryRowContext(ctx, q+" LIMIT 1 FOR UPDATE", args...))
			if errors.Is(err, sql.ErrNoRows) {
				return result.ErrNotFound
			}
			if err != nil {
				return err
			}

			ts := now()
			upd := "UPDATE content SET data = ?, is_published = 1, published_at = ?, updated_at = ? WHERE id = ?"
			updArgs := []any{d.Data, ts, ts, d.ContentID}
			if tenantID != "" {
				upd += " AND tenant_id = ?"
				updArgs = append(updArgs, tenantID)
			}
			if _, err := tx.ExecContext(ctx, upd, updArgs...); err != nil {
				return err
			}

			sel := "SELECT " + nodeCols + " FROM content WHERE id = ?"
			selArgs := []any{d.ContentID}
			if tenantID != "" {
				sel += " AND tenant_id = ?"
				selArgs = append(selArgs, tenantID)
			}
			node, err = scanNode(tx.QueryRowContext(ctx, sel+" LIMIT 1", selArgs...))
			if errors.Is(err, sql.ErrNoRows) {
				return errors.New("draft target node does not exist")
			}
			if err != nil {
				return err
			}
			path = node.Path

			_, err = tx.ExecContext(ctx, "DELETE FROM content_drafts WHERE id = ?", d.ID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return node, nil
	})
	if r.Success {
		m.c.publish(ctx, events.ActionPublished, "content", r.Data.ID, tenantID, path)
	}
	return r
}

// PublishSummary tallies a best-effort PublishMany run.
type PublishSummary struct {
	Published int      `json:"published"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// PublishMany publishes each draft independently, tallying successes.
// One failure does not stop the rest.
func (m *ContentDraftModule) PublishMany(ctx context.Context, draftIDs []string, tenantID string) result.Result[PublishSummary] {
	var s PublishSummary
	for _, id := range draftIDs {
		r := m.Publish(ctx, id, tenantID)
		if r.Success {
			s.Published++
			continue
		}
		s.Failed++
		s.Errors = append(s.Errors, id+": "+r.Message)
	}
	return result.OK(s)
}

// GetForContent returns a page of a node's drafts, newest-updated first,
// with the total in Meta.
func (m *ContentDraftModule) GetForContent(ctx context.Context, contentID, tenantID string, page, pageSize int) result.Result[[]model.ContentDraft] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	r := wrap(ctx, m.c, "GET_CONTENT_DRAFTS_FAILED", func(ctx context.Context, db *sql.DB) ([]model.ContentDraft, error) {
		cond := " WHERE content_id = ?"
		args := []any{contentID}
		if tenantID != "" {
			cond += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		q := "SELECT " + draftCols + " FROM content_drafts" + cond +
			" ORDER BY updated_at DESC LIMIT ? OFFSET ?"
		rows, err := db.QueryContext(ctx, q, append(args, pageSize, (page-1)*pageSize)...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.ContentDraft{}
		for rows.Next() {
			d, err := scanDraft(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, rows.Err()
	})
	if !r.Success {
		return r
	}
	count := wrap(ctx, m.c, "GET_CONTENT_DRAFTS_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		q := "SELECT COUNT(*) FROM content_drafts WHERE content_id = ?"
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

// Delete removes one draft.
func (m *ContentDraftModule) Delete(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_CONTENT_DRAFT_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM content_drafts WHERE id = ?"
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

// DeleteMany removes all drafts whose id is in ids and returns the count.
func (m *ContentDraftModule) DeleteMany(ctx context.Context, ids []string, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_CONTENT_DRAFTS_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
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
		q := "DELETE FROM content_drafts WHERE id IN (" + marks + ")"
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
