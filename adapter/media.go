package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/forgecms/storage/events"
	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// MediaModule manages media bookkeeping rows. Move and duplicate touch
// metadata only; no physical file is copied here.
type MediaModule struct {
	c *core
}

const mediaCols = "id, tenant_id, filename, original_filename, hash, path, size, mime_type, folder_id, thumbnails, metadata, access, created_by, updated_by, created_at, updated_at"

func scanMedia(row rowScanner) (model.MediaItem, error) {
	var (
		it        model.MediaItem
		tenant    sql.NullString
		original  sql.NullString
		hash      sql.NullString
		path      sql.NullString
		mime      sql.NullString
		folderID  sql.NullString
		access    sql.NullString
		createdBy sql.NullString
		updatedBy sql.NullString
	)
	err := row.Scan(&it.ID, &tenant, &it.Filename, &original, &hash, &path,
		&it.Size, &mime, &folderID, &it.Thumbnails, &it.Metadata, &access,
		&createdBy, &updatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return model.MediaItem{}, err
	}
	it.TenantID = tenant.String
	it.OriginalFilename = original.String
	it.Hash = hash.String
	it.Path = path.String
	it.MimeType = mime.String
	if folderID.Valid {
		it.FolderID = &folderID.String
	}
	it.Access = access.String
	it.CreatedBy = createdBy.String
	it.UpdatedBy = updatedBy.String
	return it, nil
}

func getMedia(ctx context.Context, ex execer, id, tenantID string) (model.MediaItem, error) {
	q := "SELECT " + mediaCols + " FROM media WHERE id = ?"
	args := []any{id}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	it, err := scanMedia(ex.QueryRowContext(ctx, q+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.MediaItem{}, result.ErrNotFound
	}
	return it, err
}

func insertMedia(ctx context.Context, ex execer, it *model.MediaItem, tenantID string) error {
	it.ID = utils.NewID()
	it.TenantID = tenantID
	ts := now()
	it.CreatedAt = ts
	it.UpdatedAt = ts
	var folder any
	if it.FolderID != nil {
		folder = *it.FolderID
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO media (id, tenant_id, filename, original_filename, hash, path, size, mime_type, folder_id, thumbnails, metadata, access, created_by, updated_by, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, nullable(it.TenantID), it.Filename, nullable(it.OriginalFilename),
		nullable(it.Hash), nullable(it.Path), it.Size, nullable(it.MimeType),
		folder, it.Thumbnails, it.Metadata, nullable(it.Access),
		nullable(it.CreatedBy), nullable(it.UpdatedBy), it.CreatedAt, it.UpdatedAt)
	return err
}

// Create records a new media item.
func (m *MediaModule) Create(ctx context.Context, item model.MediaItem, tenantID string) result.Result[model.MediaItem] {
	r := wrap(ctx, m.c, "CREATE_MEDIA_FAILED", func(ctx context.Context, db *sql.DB) (model.MediaItem, error) {
		if err := insertMedia(ctx, db, &item, tenantID); err != nil {
			return model.MediaItem{}, err
		}
		return item, nil
	})
	if r.Success {
		m.c.publish(ctx, events.ActionCreated, "media", r.Data.ID, tenantID, r.Data.Path)
	}
	return r
}

// Get fetches one media item by id.
func (m *MediaModule) Get(ctx context.Context, id, tenantID string) result.Result[model.MediaItem] {
	return wrap(ctx, m.c, "GET_MEDIA_FAILED", func(ctx context.Context, db *sql.DB) (model.MediaItem, error) {
		return getMedia(ctx, db, id, tenantID)
	})
}

// Update applies a partial document to a media item.
func (m *MediaModule) Update(ctx context.Context, id string, patch map[string]any, tenantID string) result.Result[model.MediaItem] {
	return wrap(ctx, m.c, "UPDATE_MEDIA_FAILED", func(ctx context.Context, db *sql.DB) (model.MediaItem, error) {
		if err := updateByID(ctx, db, tables["media"], id, patch, tenantID); err != nil {
			return model.MediaItem{}, err
		}
		return getMedia(ctx, db, id, tenantID)
	})
}

// Delete removes one media item.
func (m *MediaModule) Delete(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_MEDIA_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM media WHERE id = ?"
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

func (m *MediaModule) pagedList(ctx context.Context, code, cond string, condArgs []any, tenantID string, page, pageSize int) result.Result[[]model.MediaItem] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if tenantID != "" {
		cond += " AND tenant_id = ?"
		condArgs = append(condArgs, tenantID)
	}
	r := wrap(ctx, m.c, code, func(ctx context.Context, db *sql.DB) ([]model.MediaItem, error) {
		q := "SELECT " + mediaCols + " FROM media WHERE " + cond +
			" ORDER BY created_at DESC LIMIT ? OFFSET ?"
		rows, err := db.QueryContext(ctx, q, append(append([]any{}, condArgs...), pageSize, (page-1)*pageSize)...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.MediaItem{}
		for rows.Next() {
			it, err := scanMedia(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, it)
		}
		return out, rows.Err()
	})
	if !r.Success {
		return r
	}
	count := wrap(ctx, m.c, code, func(ctx context.Context, db *sql.DB) (int64, error) {
		var n int64
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media WHERE "+cond, condArgs...).Scan(&n)
		return n, err
	})
	if count.Success {
		r.Meta = &result.Meta{Total: count.Data, Page: page, PageSize: pageSize}
	}
	return r
}

// GetByFolder returns a page of the media in one folder. An empty
// folderID selects unfiled items.
func (m *MediaModule) GetByFolder(ctx context.Context, folderID, tenantID string, page, pageSize int) result.Result[[]model.MediaItem] {
	if folderID == "" {
		return m.pagedList(ctx, "GET_MEDIA_BY_FOLDER_FAILED", "folder_id IS NULL", []any{}, tenantID, page, pageSize)
	}
	return m.pagedList(ctx, "GET_MEDIA_BY_FOLDER_FAILED", "folder_id = ?", []any{folderID}, tenantID, page, pageSize)
}

// Search returns a page of media whose filename or original filename
// contains the term, case-insensitively.
func (m *MediaModule) Search(ctx context.Context, term, tenantID string, page, pageSize int) result.Result[[]model.MediaItem] {
	like := "%" + strings.ToLower(term) + "%"
	return m.pagedList(ctx, "SEARCH_MEDIA_FAILED",
		"(LOWER(filename) LIKE ? OR LOWER(original_filename) LIKE ?)",
		[]any{like, like}, tenantID, page, pageSize)
}

// Move reassigns a media item to another folder. An empty folderID
// unfiles it.
func (m *MediaModule) Move(ctx context.Context, id, folderID, tenantID string) result.Result[model.MediaItem] {
	return wrap(ctx, m.c, "MOVE_MEDIA_FAILED", func(ctx context.Context, db *sql.DB) (model.MediaItem, error) {
		q := "UPDATE media SET folder_id = ?, updated_at = ? WHERE id = ?"
		args := []any{nullable(folderID), now(), id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return model.MediaItem{}, err
		}
		return getMedia(ctx, db, id, tenantID)
	})
}

// Duplicate inserts a metadata copy of an existing item under a new id.
func (m *MediaModule) Duplicate(ctx context.Context, id, tenantID string) result.Result[model.MediaItem] {
	return wrap(ctx, m.c, "DUPLICATE_MEDIA_FAILED", func(ctx context.Context, db *sql.DB) (model.MediaItem, error) {
		src, err := getMedia(ctx, db, id, tenantID)
		if err != nil {
			return model.MediaItem{}, err
		}
		dup := src
		if err := insertMedia(ctx, db, &dup, tenantID); err != nil {
			return model.MediaItem{}, err
		}
		return dup, nil
	})
}
