package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// ThemesModule manages installed themes. At most one theme per tenant
// is the default; SetDefault swaps the flag atomically.
type ThemesModule struct {
	c *core
}

const themeCols = "id, tenant_id, name, path, is_active, is_default, config, created_at, updated_at"

func scanTheme(row rowScanner) (model.Theme, error) {
	var (
		t      model.Theme
		tenant sql.NullString
		path   sql.NullString
	)
	err := row.Scan(&t.ID, &tenant, &t.Name, &path, &t.IsActive, &t.IsDefault,
		&t.Config, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Theme{}, err
	}
	t.TenantID = tenant.String
	t.Path = path.String
	return t, nil
}

func getTheme(ctx context.Context, ex execer, id, tenantID string) (model.Theme, error) {
	q := "SELECT " + themeCols + " FROM themes WHERE id = ?"
	args := []any{id}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	t, err := scanTheme(ex.QueryRowContext(ctx, q+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Theme{}, result.ErrNotFound
	}
	return t, err
}

// Create installs a theme record.
func (m *ThemesModule) Create(ctx context.Context, t model.Theme, tenantID string) result.Result[model.Theme] {
	return wrap(ctx, m.c, "CREATE_THEME_FAILED", func(ctx context.Context, db *sql.DB) (model.Theme, error) {
		t.ID = utils.NewID()
		t.TenantID = tenantID
		ts := now()
		t.CreatedAt = ts
		t.UpdatedAt = ts
		_, err := db.ExecContext(ctx,
			`INSERT INTO themes (id, tenant_id, name, path, is_active, is_default, config, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			t.ID, nullable(t.TenantID), t.Name, nullable(t.Path), t.IsActive,
			t.IsDefault, t.Config, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return model.Theme{}, err
		}
		return t, nil
	})
}

// Get fetches one theme by id.
func (m *ThemesModule) Get(ctx context.Context, id, tenantID string) result.Result[model.Theme] {
	return wrap(ctx, m.c, "GET_THEME_FAILED", func(ctx context.Context, db *sql.DB) (model.Theme, error) {
		return getTheme(ctx, db, id, tenantID)
	})
}

// List returns all themes for a tenant, default first.
func (m *ThemesModule) List(ctx context.Context, tenantID string) result.Result[[]model.Theme] {
	return wrap(ctx, m.c, "LIST_THEMES_FAILED", func(ctx context.Context, db *sql.DB) ([]model.Theme, error) {
		q := "SELECT " + themeCols + " FROM themes"
		args := []any{}
		if tenantID != "" {
			q += " WHERE tenant_id = ?"
			args = append(args, tenantID)
		}
		rows, err := db.QueryContext(ctx, q+" ORDER BY is_default DESC, name ASC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.Theme{}
		for rows.Next() {
			t, err := scanTheme(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, rows.Err()
	})
}

// Update applies a partial document to a theme.
func (m *ThemesModule) Update(ctx context.Context, id string, patch map[string]any, tenantID string) result.Result[model.Theme] {
	return wrap(ctx, m.c, "UPDATE_THEME_FAILED", func(ctx context.Context, db *sql.DB) (model.Theme, error) {
		if err := updateByID(ctx, db, tables["themes"], id, patch, tenantID); err != nil {
			return model.Theme{}, err
		}
		return getTheme(ctx, db, id, tenantID)
	})
}

// Delete removes a theme record.
func (m *ThemesModule) Delete(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_THEME_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM themes WHERE id = ?"
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

// GetDefault returns the tenant's default theme.
func (m *ThemesModule) GetDefault(ctx context.Context, tenantID string) result.Result[model.Theme] {
	return wrap(ctx, m.c, "GET_DEFAULT_THEME_FAILED", func(ctx context.Context, db *sql.DB) (model.Theme, error) {
		q := "SELECT " + themeCols + " FROM themes WHERE is_default = TRUE"
		args := []any{}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		t, err := scanTheme(db.QueryRowContext(ctx, q+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.Theme{}, result.ErrNotFound
		}
		return t, err
	})
}

// SetDefault marks one theme as the default, clearing the flag from
// any other theme in the same transaction.
func (m *ThemesModule) SetDefault(ctx context.Context, id, tenantID string) result.Result[model.Theme] {
	return wrap(ctx, m.c, "SET_DEFAULT_THEME_FAILED", func(ctx context.Context, db *sql.DB) (model.Theme, error) {
		var out model.Theme
		err := transact(ctx, db, func(tx *sql.Tx) error {
			q := "SELECT id FROM themes WHERE id = ?"
			args := []any{id}
			if tenantID != "" {
				q += " AND tenant_id = ?"
				args = append(args, tenantID)
			}
			var found string
			if err := tx.QueryRowContext(ctx, q+" LIMIT 1 FOR UPDATE", args...).Scan(&found); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return result.ErrNotFound
				}
				return err
			}

			ts := now()
			clear := "UPDATE themes SET is_default = FALSE, updated_at = ? WHERE is_default = TRUE AND id <> ?"
			clearArgs := []any{ts, id}
			if tenantID != "" {
				clear += " AND tenant_id = ?"
				clearArgs = append(clearArgs, tenantID)
			}
			if _, err := tx.ExecContext(ctx, clear, clearArgs...); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE themes SET is_default = TRUE, is_active = TRUE, updated_at = ? WHERE id = ?",
				ts, id); err != nil {
				return err
			}
			var err error
			out, err = getTheme(ctx, tx, id, tenantID)
			return err
		})
		return out, err
	})
}
