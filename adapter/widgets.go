package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// WidgetsModule keeps the registry of installed widget types, keyed by
// unique name within a tenant.
type WidgetsModule struct {
	c *core
}

const widgetCols = "id, tenant_id, name, active, instances, dependencies, created_at, updated_at"

func scanWidget(row rowScanner) (model.Widget, error) {
	var (
		w      model.Widget
		tenant sql.NullString
	)
	err := row.Scan(&w.ID, &tenant, &w.Name, &w.Active, &w.Instances,
		&w.Dependencies, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return model.Widget{}, err
	}
	w.TenantID = tenant.String
	return w, nil
}

func getWidgetByName(ctx context.Context, ex execer, name, tenantID string) (model.Widget, error) {
	q := "SELECT " + widgetCols + " FROM widgets WHERE name = ?"
	args := []any{name}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	w, err := scanWidget(ex.QueryRowContext(ctx, q+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Widget{}, result.ErrNotFound
	}
	return w, err
}

// Register installs a widget type, or refreshes its instances and
// dependencies if the name is already registered.
func (m *WidgetsModule) Register(ctx context.Context, w model.Widget, tenantID string) result.Result[model.Widget] {
	return wrap(ctx, m.c, "REGISTER_WIDGET_FAILED", func(ctx context.Context, db *sql.DB) (model.Widget, error) {
		var out model.Widget
		err := transact(ctx, db, func(tx *sql.Tx) error {
			q := "SELECT id FROM widgets WHERE name = ?"
			args := []any{w.Name}
			if tenantID != "" {
				q += " AND tenant_id = ?"
				args = append(args, tenantID)
			}
			var id string
			err := tx.QueryRowContext(ctx, q+" LIMIT 1 FOR UPDATE", args...).Scan(&id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				w.ID = utils.NewID()
				w.TenantID = tenantID
				ts := now()
				w.CreatedAt = ts
				w.UpdatedAt = ts
				_, err = tx.ExecContext(ctx,
					`INSERT INTO widgets (id, tenant_id, name, active, instances, dependencies, created_at, updated_at)
					 VALUES (?,?,?,?,?,?,?,?)`,
					w.ID, nullable(w.TenantID), w.Name, w.Active, w.Instances,
					w.Dependencies, w.CreatedAt, w.UpdatedAt)
				if err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				w.ID = id
				w.UpdatedAt = now()
				_, err = tx.ExecContext(ctx,
					"UPDATE widgets SET instances = ?, dependencies = ?, updated_at = ? WHERE id = ?",
					w.Instances, w.Dependencies, w.UpdatedAt, id)
				if err != nil {
					return err
				}
			}
			out, err = getWidgetByName(ctx, tx, w.Name, tenantID)
			return err
		})
		return out, err
	})
}

// Get fetches one widget by name.
func (m *WidgetsModule) Get(ctx context.Context, name, tenantID string) result.Result[model.Widget] {
	return wrap(ctx, m.c, "GET_WIDGET_FAILED", func(ctx context.Context, db *sql.DB) (model.Widget, error) {
		return getWidgetByName(ctx, db, name, tenantID)
	})
}

// List returns the registered widgets, optionally only active ones.
func (m *WidgetsModule) List(ctx context.Context, activeOnly bool, tenantID string) result.Result[[]model.Widget] {
	return wrap(ctx, m.c, "LIST_WIDGETS_FAILED", func(ctx context.Context, db *sql.DB) ([]model.Widget, error) {
		conds := []string{}
		args := []any{}
		if activeOnly {
			conds = append(conds, "active = TRUE")
		}
		if tenantID != "" {
			conds = append(conds, "tenant_id = ?")
			args = append(args, tenantID)
		}
		q := "SELECT " + widgetCols + " FROM widgets"
		for i, c := range conds {
			if i == 0 {
				q += " WHERE " + c
			} else {
				q += " AND " + c
			}
		}
		rows, err := db.QueryContext(ctx, q+" ORDER BY name ASC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.Widget{}
		for rows.Next() {
			w, err := scanWidget(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, rows.Err()
	})
}

func (m *WidgetsModule) setActive(ctx context.Context, code, name, tenantID string, active bool) result.Result[model.Widget] {
	return wrap(ctx, m.c, code, func(ctx context.Context, db *sql.DB) (model.Widget, error) {
		q := "UPDATE widgets SET active = ?, updated_at = ? WHERE name = ?"
		args := []any{active, now(), name}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return model.Widget{}, err
		}
		// Zero rows affected can also mean the widget was already in the
		// requested state, so the refetch decides between ok and missing.
		return getWidgetByName(ctx, db, name, tenantID)
	})
}

// Activate turns a widget on.
func (m *WidgetsModule) Activate(ctx context.Context, name, tenantID string) result.Result[model.Widget] {
	return m.setActive(ctx, "ACTIVATE_WIDGET_FAILED", name, tenantID, true)
}

// Deactivate turns a widget off.
func (m *WidgetsModule) Deactivate(ctx context.Context, name, tenantID string) result.Result[model.Widget] {
	return m.setActive(ctx, "DEACTIVATE_WIDGET_FAILED", name, tenantID, false)
}

// Delete unregisters a widget by name.
func (m *WidgetsModule) Delete(ctx context.Context, name, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_WIDGET_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM widgets WHERE name = ?"
		args := []any{name}
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
