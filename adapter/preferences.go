package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// PreferencesModule stores namespaced key/value settings. A preference
// is identified by its (key, scope, user_id) triple, not by row id.
type PreferencesModule struct {
	c *core
}

const prefCols = "id, tenant_id, pref_key, value, scope, user_id, visibility, created_at, updated_at"

func scanPref(row rowScanner) (model.Preference, error) {
	var (
		p      model.Preference
		tenant sql.NullString
		user   sql.NullString
		vis    sql.NullString
	)
	err := row.Scan(&p.ID, &tenant, &p.Key, &p.Value, &p.Scope, &user, &vis,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Preference{}, err
	}
	p.TenantID = tenant.String
	if user.Valid {
		p.UserID = &user.String
	}
	p.Visibility = vis.String
	return p, nil
}

// prefWhere builds the identity condition for one preference.
func prefWhere(key, scope string, userID *string, tenantID string) (string, []any) {
	cond := "pref_key = ? AND scope = ?"
	args := []any{key, scope}
	if userID != nil && *userID != "" {
		cond += " AND user_id = ?"
		args = append(args, *userID)
	} else {
		cond += " AND user_id IS NULL"
	}
	if tenantID != "" {
		cond += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	return cond, args
}

// Get fetches one preference by its identity triple.
func (m *PreferencesModule) Get(ctx context.Context, key, scope string, userID *string, tenantID string) result.Result[model.Preference] {
	return wrap(ctx, m.c, "GET_PREFERENCE_FAILED", func(ctx context.Context, db *sql.DB) (model.Preference, error) {
		cond, args := prefWhere(key, scope, userID, tenantID)
		p, err := scanPref(db.QueryRowContext(ctx,
			"SELECT "+prefCols+" FROM preferences WHERE "+cond+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.Preference{}, result.ErrNotFound
		}
		return p, err
	})
}

// GetMany lists every preference in a scope. A non-nil userID narrows
// to that user's entries.
func (m *PreferencesModule) GetMany(ctx context.Context, scope string, userID *string, tenantID string) result.Result[[]model.Preference] {
	return wrap(ctx, m.c, "GET_PREFERENCES_FAILED", func(ctx context.Context, db *sql.DB) ([]model.Preference, error) {
		cond := "scope = ?"
		args := []any{scope}
		if userID != nil && *userID != "" {
			cond += " AND user_id = ?"
			args = append(args, *userID)
		}
		if tenantID != "" {
			cond += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		rows, err := db.QueryContext(ctx,
			"SELECT "+prefCols+" FROM preferences WHERE "+cond+" ORDER BY pref_key ASC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.Preference{}
		for rows.Next() {
			p, err := scanPref(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, rows.Err()
	})
}

func setPref(ctx context.Context, tx *sql.Tx, p model.Preference, tenantID string) (model.Preference, error) {
	cond, args := prefWhere(p.Key, p.Scope, p.UserID, tenantID)
	var id string
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM preferences WHERE "+cond+" LIMIT 1 FOR UPDATE", args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p.ID = utils.NewID()
		p.TenantID = tenantID
		ts := now()
		p.CreatedAt = ts
		p.UpdatedAt = ts
		var user any
		if p.UserID != nil && *p.UserID != "" {
			user = *p.UserID
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO preferences (id, tenant_id, pref_key, value, scope, user_id, visibility, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			p.ID, nullable(p.TenantID), p.Key, p.Value, p.Scope, user,
			nullable(p.Visibility), p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return model.Preference{}, err
		}
	case err != nil:
		return model.Preference{}, err
	default:
		p.ID = id
		p.UpdatedAt = now()
		_, err = tx.ExecContext(ctx,
			"UPDATE preferences SET value = ?, visibility = ?, updated_at = ? WHERE id = ?",
			p.Value, nullable(p.Visibility), p.UpdatedAt, id)
		if err != nil {
			return model.Preference{}, err
		}
	}
	row := tx.QueryRowContext(ctx, "SELECT "+prefCols+" FROM preferences WHERE id = ? LIMIT 1", p.ID)
	return scanPref(row)
}

// Set writes a preference, inserting or updating by identity triple.
func (m *PreferencesModule) Set(ctx context.Context, p model.Preference, tenantID string) result.Result[model.Preference] {
	return wrap(ctx, m.c, "SET_PREFERENCE_FAILED", func(ctx context.Context, db *sql.DB) (model.Preference, error) {
		var out model.Preference
		err := transact(ctx, db, func(tx *sql.Tx) error {
			var err error
			out, err = setPref(ctx, tx, p, tenantID)
			return err
		})
		return out, err
	})
}

// SetMany writes several preferences in one transaction.
func (m *PreferencesModule) SetMany(ctx context.Context, prefs []model.Preference, tenantID string) result.Result[[]model.Preference] {
	return wrap(ctx, m.c, "SET_PREFERENCES_FAILED", func(ctx context.Context, db *sql.DB) ([]model.Preference, error) {
		out := make([]model.Preference, 0, len(prefs))
		err := transact(ctx, db, func(tx *sql.Tx) error {
			for _, p := range prefs {
				saved, err := setPref(ctx, tx, p, tenantID)
				if err != nil {
					return err
				}
				out = append(out, saved)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Delete removes one preference by its identity triple.
func (m *PreferencesModule) Delete(ctx context.Context, key, scope string, userID *string, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_PREFERENCE_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		cond, args := prefWhere(key, scope, userID, tenantID)
		res, err := db.ExecContext(ctx, "DELETE FROM preferences WHERE "+cond, args...)
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

// DeleteMany removes a set of keys within one scope.
func (m *PreferencesModule) DeleteMany(ctx context.Context, keys []string, scope string, userID *string, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_PREFERENCES_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		if len(keys) == 0 {
			return 0, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
		cond := "pref_key IN (" + marks + ") AND scope = ?"
		args := make([]any, 0, len(keys)+3)
		for _, k := range keys {
			args = append(args, k)
		}
		args = append(args, scope)
		if userID != nil && *userID != "" {
			cond += " AND user_id = ?"
			args = append(args, *userID)
		} else {
			cond += " AND user_id IS NULL"
		}
		if tenantID != "" {
			cond += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, "DELETE FROM preferences WHERE "+cond, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// Clear wipes every preference in a scope.
func (m *PreferencesModule) Clear(ctx context.Context, scope string, userID *string, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "CLEAR_PREFERENCES_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		cond := "scope = ?"
		args := []any{scope}
		if userID != nil && *userID != "" {
			cond += " AND user_id = ?"
			args = append(args, *userID)
		}
		if tenantID != "" {
			cond += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, "DELETE FROM preferences WHERE "+cond, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}
