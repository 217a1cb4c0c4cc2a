package model

import "time"

// Preference mirrors the `preferences` table. Identity is the
// (key, scope, user_id) triple.
type Preference struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId,omitempty"`
	Key        string    `json:"key"`
	Value      JSONValue `json:"value"`
	Scope      string    `json:"scope"`
	UserID     *string   `json:"userId,omitempty"`
	Visibility string    `json:"visibility,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Theme mirrors the `themes` table. At most one row per tenant carries
// IsDefault at a time; SetDefault enforces this inside a transaction.
type Theme struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	IsActive  bool      `json:"isActive"`
	IsDefault bool      `json:"isDefault"`
	Config    JSONMap   `json:"config,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Widget mirrors the `widgets` table: one registry row per installed
// widget type, keyed by unique name.
type Widget struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId,omitempty"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	Instances    JSONMap   `json:"instances,omitempty"`
	Dependencies JSONMap   `json:"dependencies,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
