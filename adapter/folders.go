package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// FoldersModule manages the virtual folder tree used to organize media.
type FoldersModule struct {
	c *core
}

const folderCols = "id, tenant_id, name, path, parent_id, sort_order, type, metadata, created_at, updated_at"

func scanFolder(row rowScanner) (model.VirtualFolder, error) {
	var (
		f      model.VirtualFolder
		tenant sql.NullString
		parent sql.NullString
	)
	err := row.Scan(&f.ID, &tenant, &f.Name, &f.Path, &parent, &f.SortOrder,
		&f.Type, &f.Metadata, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return model.VirtualFolder{}, err
	}
	f.TenantID = tenant.String
	if parent.Valid {
		f.ParentID = &parent.String
	}
	return f, nil
}

func getFolder(ctx context.Context, ex execer, id, tenantID string) (model.VirtualFolder, error) {
	q := "SELECT " + folderCols + " FROM virtual_folders WHERE id = ?"
	args := []any{id}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	f, err := scanFolder(ex.QueryRowContext(ctx, q+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.VirtualFolder{}, result.ErrNotFound
	}
	return f, err
}

// Create adds a folder. Type defaults to "folder".
func (m *FoldersModule) Create(ctx context.Context, f model.VirtualFolder, tenantID string) result.Result[model.VirtualFolder] {
	return wrap(ctx, m.c, "CREATE_FOLDER_FAILED", func(ctx context.Context, db *sql.DB) (model.VirtualFolder, error) {
		f.ID = utils.NewID()
		f.TenantID = tenantID
		if f.Type == "" {
			f.Type = "folder"
		}
		ts := now()
		f.CreatedAt = ts
		f.UpdatedAt = ts
		var parent any
		if f.ParentID != nil {
			parent = *f.ParentID
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO virtual_folders (id, tenant_id, name, path, parent_id, sort_order, type, metadata, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			f.ID, nullable(f.TenantID), f.Name, f.Path, parent, f.SortOrder,
			f.Type, f.Metadata, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return model.VirtualFolder{}, err
		}
		return f, nil
	})
}

// Get fetches one folder by id.
func (m *FoldersModule) Get(ctx context.Context, id, tenantID string) result.Result[model.VirtualFolder] {
	return wrap(ctx, m.c, "GET_FOLDER_FAILED", func(ctx context.Context, db *sql.DB) (model.VirtualFolder, error) {
		return getFolder(ctx, db, id, tenantID)
	})
}

// Update applies a partial document to a folder.
func (m *FoldersModule) Update(ctx context.Context, id string, patch map[string]any, tenantID string) result.Result[model.VirtualFolder] {
	return wrap(ctx, m.c, "UPDATE_FOLDER_FAILED", func(ctx context.Context, db *sql.DB) (model.VirtualFolder, error) {
		if err := updateByID(ctx, db, tables["virtual_folders"], id, patch, tenantID); err != nil {
			return model.VirtualFolder{}, err
		}
		return getFolder(ctx, db, id, tenantID)
	})
}

// Delete removes a folder row. Children and contained media are left in
// place; reparenting them is the caller's concern.
func (m *FoldersModule) Delete(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_FOLDER_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM virtual_folders WHERE id = ?"
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

// GetTree returns every folder-typed row, ordered by path then
// position. Callers that want a nested view can rebuild it from
// ParentID.
func (m *FoldersModule) GetTree(ctx context.Context, tenantID string) result.Result[[]model.VirtualFolder] {
	return wrap(ctx, m.c, "GET_FOLDER_TREE_FAILED", func(ctx context.Context, db *sql.DB) ([]model.VirtualFolder, error) {
		q := "SELECT " + folderCols + " FROM virtual_folders WHERE type = 'folder'"
		args := []any{}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		rows, err := db.QueryContext(ctx, q+" ORDER BY path ASC, sort_order ASC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.VirtualFolder{}
		for rows.Next() {
			f, err := scanFolder(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, rows.Err()
	})
}

// FolderContents bundles a folder's immediate subfolders and media.
type FolderContents struct {
	Folders []model.VirtualFolder `json:"folders"`
	Media   []model.MediaItem     `json:"media"`
}

// GetFolderContents lists the direct children of one folder. An empty
// id selects the root level.
func (m *FoldersModule) GetFolderContents(ctx context.Context, id, tenantID string) result.Result[FolderContents] {
	return wrap(ctx, m.c, "GET_FOLDER_CONTENTS_FAILED", func(ctx context.Context, db *sql.DB) (FolderContents, error) {
		cond := "parent_id = ?"
		mediaCond := "folder_id = ?"
		args := []any{id}
		if id == "" {
			cond = "parent_id IS NULL"
			mediaCond = "folder_id IS NULL"
			args = nil
		}
		if tenantID != "" {
			cond += " AND tenant_id = ?"
			mediaCond += " AND tenant_id = ?"
			args = append(args, tenantID)
		}

		var out FolderContents
		rows, err := db.QueryContext(ctx,
			"SELECT "+folderCols+" FROM virtual_folders WHERE "+cond+" ORDER BY sort_order ASC, name ASC", args...)
		if err != nil {
			return out, err
		}
		defer rows.Close()
		out.Folders = []model.VirtualFolder{}
		for rows.Next() {
			f, err := scanFolder(rows)
			if err != nil {
				return out, err
			}
			out.Folders = append(out.Folders, f)
		}
		if err := rows.Err(); err != nil {
			return out, err
		}

		mrows, err := db.QueryContext(ctx,
			"SELECT "+mediaCols+" FROM media WHERE "+mediaCond+" ORDER BY filename ASC", args...)
		if err != nil {
			return out, err
		}
		defer mrows.Close()
		out.Media = []model.MediaItem{}
		for mrows.Next() {
			it, err := scanMedia(mrows)
			if err != nil {
				return out, err
			}
			out.Media = append(out.Media, it)
		}
		return out, mrows.Err()
	})
}

// Move reparents a folder. An empty parentID lifts it to the root.
func (m *FoldersModule) Move(ctx context.Context, id, parentID, tenantID string) result.Result[model.VirtualFolder] {
	return wrap(ctx, m.c, "MOVE_FOLDER_FAILED", func(ctx context.Context, db *sql.DB) (model.VirtualFolder, error) {
		q := "UPDATE virtual_folders SET parent_id = ?, updated_at = ? WHERE id = ?"
		args := []any{nullable(parentID), now(), id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return model.VirtualFolder{}, err
		}
		return getFolder(ctx, db, id, tenantID)
	})
}
