package model

import "time"

// MediaItem mirrors the `media` table. Move and duplicate are metadata
// operations; the stored object itself lives elsewhere.
type MediaItem struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenantId,omitempty"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"originalFilename,omitempty"`
	Hash             string    `json:"hash,omitempty"`
	Path             string    `json:"path,omitempty"`
	Size             int64     `json:"size"`
	MimeType         string    `json:"mimeType,omitempty"`
	FolderID         *string   `json:"folderId,omitempty"`
	Thumbnails       JSONMap   `json:"thumbnails,omitempty"`
	Metadata         JSONMap   `json:"metadata,omitempty"`
	Access           string    `json:"access,omitempty"`
	CreatedBy        string    `json:"createdBy,omitempty"`
	UpdatedBy        string    `json:"updatedBy,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// VirtualFolder mirrors the `virtual_folders` table: a second tree,
// independent of content, used to organize media.
type VirtualFolder struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	ParentID  *string   `json:"parentId,omitempty"`
	SortOrder int       `json:"order"`
	Type      string    `json:"type"`
	Metadata  JSONMap   `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
