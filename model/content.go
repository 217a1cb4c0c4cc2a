package model

import "time"

// ContentNode mirrors the `content` table. Path is globally unique per
// tenant and slash-delimited; ParentID links nodes into a tree. Data and
// Metadata are opaque payloads owned by the caller.
type ContentNode struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenantId,omitempty"`
	Path        string         `json:"path"`
	ParentID    *string        `json:"parentId,omitempty"`
	Type        string         `json:"type,omitempty"`
	Status      string         `json:"status"`
	Title       string         `json:"title,omitempty"`
	Slug        string         `json:"slug,omitempty"`
	Data        JSONMap        `json:"data,omitempty"`
	Metadata    JSONMap        `json:"metadata,omitempty"`
	SortOrder   int            `json:"order"`
	IsPublished bool           `json:"isPublished"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Children    []*ContentNode `json:"children,omitempty"` // populated by nested structure queries only
}

// ContentDraft mirrors the `content_drafts` table. A draft is a pending
// replacement payload for one node and is deleted when published.
type ContentDraft struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	ContentID string    `json:"contentId"`
	Data      JSONMap   `json:"data"`
	Version   int       `json:"version"`
	Status    string    `json:"status,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContentRevision mirrors the `content_revisions` table: an append-only
// snapshot of a node's data. Rows are created, restored from, or pruned,
// never mutated.
type ContentRevision struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	ContentID string    `json:"contentId"`
	Data      JSONMap   `json:"data"`
	Version   int       `json:"version"`
	Message   string    `json:"message,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
