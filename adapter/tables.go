package adapter

// Table describes one physical table: its name, the allowed columns, and
// which columns hold JSON payloads. Generic CRUD validates every caller
// supplied field name against the column list before it reaches SQL.
type Table struct {
	Name string
	// Columns lists every physical column. Order matters for stable
	// statement generation.
	Columns []string
	// JSON marks columns whose values are marshaled/unmarshaled as JSON.
	JSON map[string]bool
}

// HasColumn reports whether name is a physical column of the table.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DefaultCollection is the logical name unknown collections resolve to.
// Only generic document-style collections may rely on this default.
const DefaultCollection = "content"

var baseColumns = []string{"id", "tenant_id", "created_at", "updated_at"}

func table(name string, json map[string]bool, columns ...string) Table {
	all := append(append([]string{}, baseColumns...), columns...)
	if json == nil {
		json = map[string]bool{}
	}
	return Table{Name: name, Columns: all, JSON: json}
}

// tables is the static collection registry. There is deliberately no
// per-process model cache in front of it; every lookup resolves through
// this map so multi-process deployments share one source of truth.
var tables = map[string]Table{
	"users": table("users",
		map[string]bool{"role_ids": true},
		"email", "username", "password", "email_verified", "blocked",
		"role_ids", "first_name", "last_name"),
	"sessions": table("sessions", nil,
		"user_id", "expires"),
	"tokens": table("tokens", nil,
		"user_id", "email", "type", "token", "expires", "consumed", "blocked"),
	"roles": table("roles",
		map[string]bool{"permissions": true},
		"name", "description", "permissions", "is_admin", "icon", "color"),
	"content": table("content",
		map[string]bool{"data": true, "metadata": true},
		"path", "parent_id", "type", "status", "title", "slug",
		"data", "metadata", "sort_order", "is_published", "published_at"),
	"content_drafts": table("content_drafts",
		map[string]bool{"data": true},
		"content_id", "data", "version", "status", "created_by"),
	"content_revisions": table("content_revisions",
		map[string]bool{"data": true},
		"content_id", "data", "version", "message", "created_by"),
	"media": table("media",
		map[string]bool{"thumbnails": true, "metadata": true},
		"filename", "original_filename", "hash", "path", "size", "mime_type",
		"folder_id", "thumbnails", "metadata", "access", "created_by", "updated_by"),
	"virtual_folders": table("virtual_folders",
		map[string]bool{"metadata": true},
		"name", "path", "parent_id", "sort_order", "type", "metadata"),
	"preferences": table("preferences",
		map[string]bool{"value": true},
		"pref_key", "value", "scope", "user_id", "visibility"),
	"themes": table("themes",
		map[string]bool{"config": true},
		"name", "path", "is_active", "is_default", "config"),
	"widgets": table("widgets",
		map[string]bool{"instances": true, "dependencies": true},
		"name", "active", "instances", "dependencies"),
	"website_tokens": table("website_tokens", nil,
		"name", "token", "created_by"),
}

// tableFor resolves a logical collection name to its physical table,
// falling back to the content table for unknown names.
func tableFor(collection string) Table {
	if t, ok := tables[collection]; ok {
		return t
	}
	return tables[DefaultCollection]
}
