package model

import "time"

// User mirrors the `users` table. Password always holds a bcrypt hash;
// plaintext never reaches storage. RoleIDs is an ordered list whose first
// entry doubles as the legacy singular Role for older callers.
type User struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId,omitempty"`
	Email         string     `json:"email"`
	Username      string     `json:"username,omitempty"`
	Password      string     `json:"-"`
	EmailVerified bool       `json:"emailVerified"`
	Blocked       bool       `json:"blocked"`
	RoleIDs       StringList `json:"roleIds"`
	Role          string     `json:"role"` // derived, not a column
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Session mirrors the `sessions` table. A session is valid while
// Expires is in the future; rotation replaces the row wholesale.
type Session struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	UserID    string    `json:"userId"`
	Expires   time.Time `json:"expires"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Token mirrors the `tokens` table. Usable iff unconsumed, unblocked and
// unexpired; Consumed is a one-way transition.
type Token struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Type      string    `json:"type"`
	Value     string    `json:"-"`
	Expires   time.Time `json:"expires"`
	Consumed  bool      `json:"consumed"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Role mirrors the `roles` table. Permissions are replaced wholesale on
// update, never merged.
type Role struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Permissions StringList `json:"permissions"`
	IsAdmin     bool       `json:"isAdmin"`
	Icon        string     `json:"icon,omitempty"`
	Color       string     `json:"color,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// WebsiteToken mirrors the `website_tokens` table: a named bearer
// credential for external API consumers.
type WebsiteToken struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
