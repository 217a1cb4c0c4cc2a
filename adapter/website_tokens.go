package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// WebsiteTokenModule manages named bearer credentials handed out to
// external API consumers.
type WebsiteTokenModule struct {
	c *core
}

const websiteTokenCols = "id, tenant_id, name, token, created_by, created_at, updated_at"

func scanWebsiteToken(row rowScanner) (model.WebsiteToken, error) {
	var (
		t         model.WebsiteToken
		tenant    sql.NullString
		createdBy sql.NullString
	)
	err := row.Scan(&t.ID, &tenant, &t.Name, &t.Token, &createdBy,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.WebsiteToken{}, err
	}
	t.TenantID = tenant.String
	t.CreatedBy = createdBy.String
	return t, nil
}

// Create mints a new token. The secret value is generated here and only
// ever returned from this call.
func (m *WebsiteTokenModule) Create(ctx context.Context, name, createdBy, tenantID string) result.Result[model.WebsiteToken] {
	return wrap(ctx, m.c, "CREATE_WEBSITE_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (model.WebsiteToken, error) {
		value, err := utils.RandomHex(32)
		if err != nil {
			return model.WebsiteToken{}, err
		}
		ts := now()
		t := model.WebsiteToken{
			ID:        utils.NewID(),
			TenantID:  tenantID,
			Name:      name,
			Token:     value,
			CreatedBy: createdBy,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO website_tokens (id, tenant_id, name, token, created_by, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?)`,
			t.ID, nullable(t.TenantID), t.Name, t.Token, nullable(t.CreatedBy),
			t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return model.WebsiteToken{}, err
		}
		return t, nil
	})
}

// Get fetches one token record by id.
func (m *WebsiteTokenModule) Get(ctx context.Context, id, tenantID string) result.Result[model.WebsiteToken] {
	return wrap(ctx, m.c, "GET_WEBSITE_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (model.WebsiteToken, error) {
		q := "SELECT " + websiteTokenCols + " FROM website_tokens WHERE id = ?"
		args := []any{id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		t, err := scanWebsiteToken(db.QueryRowContext(ctx, q+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.WebsiteToken{}, result.ErrNotFound
		}
		return t, err
	})
}

// GetByToken resolves a bearer value back to its record.
func (m *WebsiteTokenModule) GetByToken(ctx context.Context, token, tenantID string) result.Result[model.WebsiteToken] {
	return wrap(ctx, m.c, "GET_WEBSITE_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (model.WebsiteToken, error) {
		q := "SELECT " + websiteTokenCols + " FROM website_tokens WHERE token = ?"
		args := []any{token}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		t, err := scanWebsiteToken(db.QueryRowContext(ctx, q+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.WebsiteToken{}, result.ErrNotFound
		}
		return t, err
	})
}

// List returns every token record for a tenant, newest first.
func (m *WebsiteTokenModule) List(ctx context.Context, tenantID string) result.Result[[]model.WebsiteToken] {
	return wrap(ctx, m.c, "LIST_WEBSITE_TOKENS_FAILED", func(ctx context.Context, db *sql.DB) ([]model.WebsiteToken, error) {
		q := "SELECT " + websiteTokenCols + " FROM website_tokens"
		args := []any{}
		if tenantID != "" {
			q += " WHERE tenant_id = ?"
			args = append(args, tenantID)
		}
		rows, err := db.QueryContext(ctx, q+" ORDER BY created_at DESC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.WebsiteToken{}
		for rows.Next() {
			t, err := scanWebsiteToken(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, rows.Err()
	})
}

// Delete revokes a token by id.
func (m *WebsiteTokenModule) Delete(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_WEBSITE_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM website_tokens WHERE id = ?"
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
