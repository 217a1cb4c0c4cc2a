package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// AuthModule manages users, sessions, one-time tokens and roles.
type AuthModule struct {
	c *core
}

// ErrEmailExists is surfaced when a user insert collides on email.
var ErrEmailExists = errors.New("email already exists")

const userCols = "id, tenant_id, email, username, password, email_verified, blocked, role_ids, first_name, last_name, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser decodes one users row. The stored role list must be valid
// JSON; malformed data fails the operation instead of defaulting to an
// empty list.
func scanUser(row rowScanner) (model.User, error) {
	var (
		u         model.User
		tenantID  sql.NullString
		username  sql.NullString
		firstName sql.NullString
		lastName  sql.NullString
	)
	err := row.Scan(&u.ID, &tenantID, &u.Email, &username, &u.Password,
		&u.EmailVerified, &u.Blocked, &u.RoleIDs, &firstName, &lastName,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.TenantID = tenantID.String
	u.Username = username.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	normalizeUser(&u)
	return u, nil
}

// normalizeUser derives the legacy singular role and strips the hash
// from the public shape.
func normalizeUser(u *model.User) {
	if u.RoleIDs == nil {
		u.RoleIDs = model.StringList{}
	}
	if len(u.RoleIDs) > 0 {
		u.Role = u.RoleIDs[0]
	} else {
		u.Role = "user"
	}
	u.Password = ""
}

func getUserByID(ctx context.Context, ex execer, id, tenantID string) (model.User, error) {
	q := "SELECT " + userCols + " FROM users WHERE id = ?"
	args := []any{id}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	u, err := scanUser(ex.QueryRowContext(ctx, q+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, result.ErrNotFound
	}
	return u, err
}

// CreateUser inserts a new user. Plaintext passwords are hashed;
// already-hashed values (bcrypt prefix) are stored as-is so re-hashing is
// idempotent. When no role list is supplied it is derived from the legacy
// singular role field.
func (m *AuthModule) CreateUser(ctx context.Context, u model.User, tenantID string) result.Result[model.User] {
	return wrap(ctx, m.c, "CREATE_USER_FAILED", func(ctx context.Context, db *sql.DB) (model.User, error) {
		u.ID = utils.NewID()
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		u.CreatedAt = now()
		u.UpdatedAt = u.CreatedAt
		u.TenantID = tenantID

		if u.Password != "" && !utils.IsHashed(u.Password) {
			hash, err := utils.HashPassword(u.Password, m.c.bcryptCost)
			if err != nil {
				return model.User{}, err
			}
			u.Password = hash
		}
		if len(u.RoleIDs) == 0 && u.Role != "" {
			u.RoleIDs = model.StringList{u.Role}
		}
		if u.RoleIDs == nil {
			u.RoleIDs = model.StringList{}
		}

		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, tenant_id, email, username, password, email_verified, blocked, role_ids, first_name, last_name, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			u.ID, nullable(u.TenantID), u.Email, nullable(u.Username), u.Password,
			u.EmailVerified, u.Blocked, u.RoleIDs, nullable(u.FirstName), nullable(u.LastName),
			u.CreatedAt, u.UpdatedAt)
		if err != nil {
			if isDuplicate(err) {
				return model.User{}, ErrEmailExists
			}
			return model.User{}, err
		}
		normalizeUser(&u)
		return u, nil
	})
}

// GetUser fetches a user by id.
func (m *AuthModule) GetUser(ctx context.Context, id, tenantID string) result.Result[model.User] {
	return wrap(ctx, m.c, "GET_USER_FAILED", func(ctx context.Context, db *sql.DB) (model.User, error) {
		return getUserByID(ctx, db, id, tenantID)
	})
}

// GetUserByEmail fetches a user by normalized email.
func (m *AuthModule) GetUserByEmail(ctx context.Context, email, tenantID string) result.Result[model.User] {
	return wrap(ctx, m.c, "GET_USER_FAILED", func(ctx context.Context, db *sql.DB) (model.User, error) {
		email = strings.ToLower(strings.TrimSpace(email))
		q := "SELECT " + userCols + " FROM users WHERE email = ?"
		args := []any{email}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		u, err := scanUser(db.QueryRowContext(ctx, q+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, result.ErrNotFound
		}
		return u, err
	})
}

// VerifyPassword checks a login attempt against the stored hash and
// returns the user on success. Blocked accounts never verify.
func (m *AuthModule) VerifyPassword(ctx context.Context, email, password, tenantID string) result.Result[model.User] {
	return wrap(ctx, m.c, "VERIFY_PASSWORD_FAILED", func(ctx context.Context, db *sql.DB) (model.User, error) {
		email = strings.ToLower(strings.TrimSpace(email))
		q := "SELECT " + userCols + " FROM users WHERE email = ?"
		args := []any{email}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		var (
			u         model.User
			tenant    sql.NullString
			username  sql.NullString
			firstName sql.NullString
			lastName  sql.NullString
		)
		err := db.QueryRowContext(ctx, q+" LIMIT 1", args...).Scan(
			&u.ID, &tenant, &u.Email, &username, &u.Password,
			&u.EmailVerified, &u.Blocked, &u.RoleIDs, &firstName, &lastName,
			&u.CreatedAt, &u.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, result.ErrNotFound
		}
		if err != nil {
			return model.User{}, err
		}
		if u.Blocked || !utils.VerifyPassword(u.Password, password) {
			return model.User{}, errors.New("invalid credentials")
		}
		u.TenantID = tenant.String
		u.Username = username.String
		u.FirstName = firstName.String
		u.LastName = lastName.String
		normalizeUser(&u)
		return u, nil
	})
}

// UpdateUser applies a partial document to a user. A plaintext password
// in the patch is hashed before storage.
func (m *AuthModule) UpdateUser(ctx context.Context, id string, patch map[string]any, tenantID string) result.Result[model.User] {
	return wrap(ctx, m.c, "UPDATE_USER_FAILED", func(ctx context.Context, db *sql.DB) (model.User, error) {
		if pw, ok := patch["password"].(string); ok && pw != "" && !utils.IsHashed(pw) {
			hash, err := utils.HashPassword(pw, m.c.bcryptCost)
			if err != nil {
				return model.User{}, err
			}
			patch = cloneDoc(patch)
			patch["password"] = hash
		}
		if email, ok := patch["email"].(string); ok {
			patch = cloneDoc(patch)
			patch["email"] = strings.ToLower(strings.TrimSpace(email))
		}
		if err := updateByID(ctx, db, tables["users"], id, patch, tenantID); err != nil {
			if isDuplicate(err) {
				return model.User{}, ErrEmailExists
			}
			return model.User{}, err
		}
		return getUserByID(ctx, db, id, tenantID)
	})
}

// DeleteUser removes a user together with their sessions and tokens in
// one transaction; a user row is never orphaned from its auth state.
func (m *AuthModule) DeleteUser(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_USER_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		var deleted bool
		err := transact(ctx, db, func(tx *sql.Tx) error {
			scope := ""
			args := []any{id}
			if tenantID != "" {
				scope = " AND tenant_id = ?"
				args = append(args, tenantID)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?"+scope, args...); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM tokens WHERE user_id = ?"+scope, args...); err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?"+scope, args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return result.ErrNotFound
			}
			deleted = true
			return nil
		})
		return deleted, err
	})
}

// ListUsers returns a page of users, newest first, with the total in Meta.
func (m *AuthModule) ListUsers(ctx context.Context, tenantID string, page, pageSize int) result.Result[[]model.User] {
	r := wrap(ctx, m.c, "LIST_USERS_FAILED", func(ctx context.Context, db *sql.DB) ([]model.User, error) {
		if page < 1 {
			page = 1
		}
		if pageSize <= 0 {
			pageSize = 20
		}
		q := "SELECT " + userCols + " FROM users"
		args := []any{}
		if tenantID != "" {
			q += " WHERE tenant_id = ?"
			args = append(args, tenantID)
		}
		q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
		args = append(args, pageSize, (page-1)*pageSize)
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := make([]model.User, 0, pageSize)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, u)
		}
		return out, rows.Err()
	})
	return r
}

// CreateSession inserts a session for the user. A zero expiry uses the
// configured session lifetime.
func (m *AuthModule) CreateSession(ctx context.Context, userID, tenantID string, expires time.Time) result.Result[model.Session] {
	return wrap(ctx, m.c, "CREATE_SESSION_FAILED", func(ctx context.Context, db *sql.DB) (model.Session, error) {
		ts := now()
		if expires.IsZero() {
			expires = ts.Add(m.c.sessionTTL)
		}
		s := model.Session{
			ID:        utils.NewID(),
			TenantID:  tenantID,
			UserID:    userID,
			Expires:   expires.UTC(),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		_, err := db.ExecContext(ctx,
			"INSERT INTO sessions (id, tenant_id, user_id, expires, created_at, updated_at) VALUES (?,?,?,?,?,?)",
			s.ID, nullable(s.TenantID), s.UserID, s.Expires, s.CreatedAt, s.UpdatedAt)
		return s, err
	})
}

// ValidateSession returns the owning user when the session exists and is
// unexpired. Callers wanting only an identity check use the returned user.
func (m *AuthModule) ValidateSession(ctx context.Context, sessionID, tenantID string) result.Result[model.User] {
	return wrap(ctx, m.c, "VALIDATE_SESSION_FAILED", func(ctx context.Context, db *sql.DB) (model.User, error) {
		q := "SELECT user_id FROM sessions WHERE id = ? AND expires > ?"
		args := []any{sessionID, now()}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		var userID string
		err := db.QueryRowContext(ctx, q+" LIMIT 1", args...).Scan(&userID)
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, result.ErrNotFound
		}
		if err != nil {
			return model.User{}, err
		}
		return getUserByID(ctx, db, userID, tenantID)
	})
}

// RotateSession atomically replaces an unexpired session with a fresh id
// and expiry and removes the old row. The old session id is invalid the
// moment this returns.
func (m *AuthModule) RotateSession(ctx context.Context, sessionID, tenantID string) result.Result[model.Session] {
	return wrap(ctx, m.c, "ROTATE_SESSION_FAILED", func(ctx context.Context, db *sql.DB) (model.Session, error) {
		var fresh model.Session
		err := transact(ctx, db, func(tx *sql.Tx) error {
			q := "SELECT user_id, tenant_id FROM sessions WHERE id = ? AND expires > ?"
			args := []any{sessionID, now()}
			if tenantID != "" {
				q += " AND tenant_id = ?"
				args = append(args, tenantID)
			}
			var (
				userID string
				tenant sql.NullString
			)
			err := tx.QueryRowContext(ctx, q+" LIMIT 1 FOR UPDATE", args...).Scan(&userID, &tenant)
			if errors.Is(err, sql.ErrNoRows) {
				return result.ErrNotFound
			}
			if err != nil {
				return err
			}
			ts := now()
			fresh = model.Session{
				ID:        utils.NewID(),
				TenantID:  tenant.String,
				UserID:    userID,
				Expires:   ts.Add(m.c.sessionTTL),
				CreatedAt: ts,
				UpdatedAt: ts,
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sessions (id, tenant_id, user_id, expires, created_at, updated_at) VALUES (?,?,?,?,?,?)",
				fresh.ID, tenant, fresh.UserID, fresh.Expires, fresh.CreatedAt, fresh.UpdatedAt); err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
			return err
		})
		return fresh, err
	})
}

// DeleteSession removes one session.
func (m *AuthModule) DeleteSession(ctx context.Context, sessionID, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_SESSION_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM sessions WHERE id = ?"
		args := []any{sessionID}
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

// DeleteExpiredSessions sweeps expired session rows and returns the count.
func (m *AuthModule) DeleteExpiredSessions(ctx context.Context, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_EXPIRED_SESSIONS_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		q := "DELETE FROM sessions WHERE expires <= ?"
		args := []any{now()}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if n > 0 {
			m.c.log.Info().Int64("count", n).Msg("expired sessions removed")
		}
		return n, err
	})
}

// CreateToken generates and stores a one-time token and returns only the
// bare value; callers never supply it. A zero expiry uses the configured
// token lifetime.
func (m *AuthModule) CreateToken(ctx context.Context, userID, email, tokenType, tenantID string, expires time.Time) result.Result[string] {
	return wrap(ctx, m.c, "CREATE_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (string, error) {
		value, err := utils.RandomHex(32)
		if err != nil {
			return "", err
		}
		ts := now()
		if expires.IsZero() {
			expires = ts.Add(m.c.tokenTTL)
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO tokens (id, tenant_id, user_id, email, type, token, expires, consumed, blocked, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			utils.NewID(), nullable(tenantID), userID, nullable(email), tokenType, value,
			expires.UTC(), false, false, ts, ts)
		if err != nil {
			return "", err
		}
		return value, nil
	})
}

// ValidateToken checks a token without mutating it. Valid means
// unexpired, unconsumed, unblocked and matching the optional type, user
// and tenant constraints.
func (m *AuthModule) ValidateToken(ctx context.Context, value, tokenType, userID, tenantID string) result.Result[model.Token] {
	return wrap(ctx, m.c, "VALIDATE_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (model.Token, error) {
		q := "SELECT id, tenant_id, user_id, email, type, token, expires, consumed, blocked, created_at, updated_at FROM tokens WHERE token = ? AND consumed = 0 AND blocked = 0 AND expires > ?"
		args := []any{value, now()}
		if tokenType != "" {
			q += " AND type = ?"
			args = append(args, tokenType)
		}
		if userID != "" {
			q += " AND user_id = ?"
			args = append(args, userID)
		}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		var (
			t      model.Token
			tenant sql.NullString
			email  sql.NullString
		)
		err := db.QueryRowContext(ctx, q+" LIMIT 1", args...).Scan(
			&t.ID, &tenant, &t.UserID, &email, &t.Type, &t.Value,
			&t.Expires, &t.Consumed, &t.Blocked, &t.CreatedAt, &t.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Token{}, result.ErrNotFound
		}
		if err != nil {
			return model.Token{}, err
		}
		t.TenantID = tenant.String
		t.Email = email.String
		return t, nil
	})
}

// ConsumeToken flips the one-way consumed flag. Consuming twice fails
// with an already-consumed message; consuming an unknown token is
// NOT_FOUND.
func (m *AuthModule) ConsumeToken(ctx context.Context, value, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "CONSUME_TOKEN_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		scope := ""
		scopeArgs := []any{}
		if tenantID != "" {
			scope = " AND tenant_id = ?"
			scopeArgs = append(scopeArgs, tenantID)
		}
		res, err := db.ExecContext(ctx,
			"UPDATE tokens SET consumed = 1, updated_at = ? WHERE token = ? AND consumed = 0"+scope,
			append([]any{now(), value}, scopeArgs...)...)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
		var exists int
		err = db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM tokens WHERE token = ?"+scope,
			append([]any{value}, scopeArgs...)...).Scan(&exists)
		if err != nil {
			return false, err
		}
		if exists > 0 {
			return false, errors.New("token already consumed")
		}
		return false, result.ErrNotFound
	})
}

// DeleteExpiredTokens sweeps expired token rows and returns the count.
func (m *AuthModule) DeleteExpiredTokens(ctx context.Context, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_EXPIRED_TOKENS_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		q := "DELETE FROM tokens WHERE expires <= ?"
		args := []any{now()}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if n > 0 {
			m.c.log.Info().Int64("count", n).Msg("expired tokens removed")
		}
		return n, err
	})
}

// IssueAccessToken signs a short-lived JWT for a validated session. The
// DB session stays authoritative for revocation.
func (m *AuthModule) IssueAccessToken(ctx context.Context, sessionID, tenantID string) result.Result[utils.AccessToken] {
	if m.c.jwtSecret == "" {
		return result.Fail[utils.AccessToken]("ISSUE_ACCESS_TOKEN_FAILED", "no signing secret configured")
	}
	r := m.ValidateSession(ctx, sessionID, tenantID)
	if !r.Success {
		return result.Fail[utils.AccessToken](r.Error.Code, r.Message)
	}
	token, err := utils.NewAccessToken(m.c.jwtSecret, r.Data.ID, r.Data.Role, m.c.accessTTL)
	if err != nil {
		return result.Fail[utils.AccessToken]("ISSUE_ACCESS_TOKEN_FAILED", err.Error())
	}
	return result.OK(token)
}

// CreateRole inserts a role.
func (m *AuthModule) CreateRole(ctx context.Context, r model.Role, tenantID string) result.Result[model.Role] {
	return wrap(ctx, m.c, "CREATE_ROLE_FAILED", func(ctx context.Context, db *sql.DB) (model.Role, error) {
		r.ID = utils.NewID()
		r.TenantID = tenantID
		r.CreatedAt = now()
		r.UpdatedAt = r.CreatedAt
		if r.Permissions == nil {
			r.Permissions = model.StringList{}
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO roles (id, tenant_id, name, description, permissions, is_admin, icon, color, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			r.ID, nullable(r.TenantID), r.Name, nullable(r.Description), r.Permissions,
			r.IsAdmin, nullable(r.Icon), nullable(r.Color), r.CreatedAt, r.UpdatedAt)
		return r, err
	})
}

// GetRole fetches a role by id.
func (m *AuthModule) GetRole(ctx context.Context, id, tenantID string) result.Result[model.Role] {
	return wrap(ctx, m.c, "GET_ROLE_FAILED", func(ctx context.Context, db *sql.DB) (model.Role, error) {
		q := "SELECT id, tenant_id, name, description, permissions, is_admin, icon, color, created_at, updated_at FROM roles WHERE id = ?"
		args := []any{id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		r, err := scanRole(db.QueryRowContext(ctx, q+" LIMIT 1", args...))
		if errors.Is(err, sql.ErrNoRows) {
			return model.Role{}, result.ErrNotFound
		}
		return r, err
	})
}

// UpdateRole replaces the mutable role fields wholesale; the permission
// list is never merged.
func (m *AuthModule) UpdateRole(ctx context.Context, id string, r model.Role, tenantID string) result.Result[model.Role] {
	return wrap(ctx, m.c, "UPDATE_ROLE_FAILED", func(ctx context.Context, db *sql.DB) (model.Role, error) {
		if r.Permissions == nil {
			r.Permissions = model.StringList{}
		}
		q := "UPDATE roles SET name = ?, description = ?, permissions = ?, is_admin = ?, icon = ?, color = ?, updated_at = ? WHERE id = ?"
		args := []any{r.Name, nullable(r.Description), r.Permissions, r.IsAdmin,
			nullable(r.Icon), nullable(r.Color), now(), id}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return model.Role{}, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return model.Role{}, err
		} else if n == 0 {
			// The update may be a no-op on identical values; verify existence.
			var count int
			check := "SELECT COUNT(*) FROM roles WHERE id = ?"
			checkArgs := []any{id}
			if tenantID != "" {
				check += " AND tenant_id = ?"
				checkArgs = append(checkArgs, tenantID)
			}
			if err := db.QueryRowContext(ctx, check, checkArgs...).Scan(&count); err != nil {
				return model.Role{}, err
			}
			if count == 0 {
				return model.Role{}, result.ErrNotFound
			}
		}
		sel := "SELECT id, tenant_id, name, description, permissions, is_admin, icon, color, created_at, updated_at FROM roles WHERE id = ?"
		selArgs := []any{id}
		if tenantID != "" {
			sel += " AND tenant_id = ?"
			selArgs = append(selArgs, tenantID)
		}
		return scanRole(db.QueryRowContext(ctx, sel+" LIMIT 1", selArgs...))
	})
}

// DeleteRole removes a role.
func (m *AuthModule) DeleteRole(ctx context.Context, id, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "DELETE_ROLE_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "DELETE FROM roles WHERE id = ?"
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

// ListRoles returns all roles, name-ordered.
func (m *AuthModule) ListRoles(ctx context.Context, tenantID string) result.Result[[]model.Role] {
	return wrap(ctx, m.c, "LIST_ROLES_FAILED", func(ctx context.Context, db *sql.DB) ([]model.Role, error) {
		q := "SELECT id, tenant_id, name, description, permissions, is_admin, icon, color, created_at, updated_at FROM roles"
		args := []any{}
		if tenantID != "" {
			q += " WHERE tenant_id = ?"
			args = append(args, tenantID)
		}
		q += " ORDER BY name ASC"
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []model.Role{}
		for rows.Next() {
			r, err := scanRole(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()
	})
}

func scanRole(row rowScanner) (model.Role, error) {
	var (
		r      model.Role
		tenant sql.NullString
		desc   sql.NullString
		icon   sql.NullString
		color  sql.NullString
	)
	err := row.Scan(&r.ID, &tenant, &r.Name, &desc, &r.Permissions,
		&r.IsAdmin, &icon, &color, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Role{}, err
	}
	r.TenantID = tenant.String
	r.Description = desc.String
	r.Icon = icon.String
	r.Color = color.String
	if r.Permissions == nil {
		r.Permissions = model.StringList{}
	}
	return r, nil
}

// nullable converts an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// cloneDoc shallow-copies a patch before local mutation.
func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
