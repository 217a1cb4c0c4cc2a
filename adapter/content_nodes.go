package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/events"
	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
	"github.com/forgecms/storage/utils"
)

// ContentModule groups the three content sub-namespaces.
type ContentModule struct {
	Nodes     *ContentNodeModule
	Drafts    *ContentDraftModule
	Revisions *ContentRevisionModule
}

// ContentNodeModule manages the hierarchical content tree. Nodes are
// addressed by their unique slash-delimited path; most mutations key on
// path rather than id.
type ContentNodeModule struct {
	c *core
}

// ErrPathExists is surfaced when a node insert collides on path.
var ErrPathExists = errors.New("path already exists")

// Structure modes accepted by GetStructure.
const (
	StructureFlat   = "flat"
	StructureNested = "nested"
)

const nodeCols = "id, tenant_id, path, parent_id, type, status, title, slug, data, metadata, sort_order, is_published, published_at, created_at, updated_at"

func scanNode(row rowScanner) (*model.ContentNode, error) {
	var (
		n           model.ContentNode
		tenant      sql.NullString
		parentID    sql.NullString
		typ         sql.NullString
		title       sql.NullString
		slug        sql.NullString
		publishedAt sql.NullTime
	)
	err := row.Scan(&n.ID, &tenant, &n.Path, &parentID, &typ, &n.Status,
		&title, &slug, &n.Data, &n.Metadata, &n.SortOrder, &n.IsPublished,
		&publishedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.TenantID = tenant.String
	if parentID.Valid {
		n.ParentID = &parentID.String
	}
	n.Type = typ.String
	n.Title = title.String
	n.Slug = slug.String
	if publishedAt.Valid {
		t := publishedAt.Time
		n.PublishedAt = &t
	}
	return &n, nil
}

func queryNodes(ctx context.Context, ex execer, where string, args []any) ([]*model.ContentNode, error) {
	rows, err := ex.QueryContext(ctx,
		"SELECT "+nodeCols+" FROM content"+where+" ORDER BY path ASC, sort_order ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.ContentNode{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func getNodeByPath(ctx context.Context, ex execer, path, tenantID string) (*model.ContentNode, error) {
	q := "SELECT " + nodeCols + " FROM content WHERE path = ?"
	args := []any{path}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}
	n, err := scanNode(ex.QueryRowContext(ctx, q+" LIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, result.ErrNotFound
	}
	return n, err
}

// buildNodeTree links nodes to their parents by id and returns the
// roots. A node whose parent is absent from the input set is promoted to
// a root: filtered queries therefore yield ad-hoc subtrees, and callers
// needing structural fidelity must filter by subtree, not by arbitrary
// predicate.
func buildNodeTree(nodes []*model.ContentNode) []*model.ContentNode {
	byID := make(map[string]*model.ContentNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	roots := []*model.ContentNode{}
	for _, n := range nodes {
		if n.ParentID != nil {
			if p, ok := byID[*n.ParentID]; ok {
				p.Children = append(p.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// GetStructure returns the content tree either as a flat path-ordered
// list or, in nested mode, reassembled into parent/child form. See
// buildNodeTree for the nested-mode caller contract.
func (m *ContentNodeModule) GetStructure(ctx context.Context, mode string, filter map[string]any, tenantID string) result.Result[[]*model.ContentNode] {
	return wrap(ctx, m.c, "GET_CONTENT_STRUCTURE_FAILED", func(ctx context.Context, db *sql.DB) ([]*model.ContentNode, error) {
		where, args, err := buildWhere(tables["content"], filter, tenantID)
		if err != nil {
			return nil, err
		}
		nodes, err := queryNodes(ctx, db, where, args)
		if err != nil {
			return nil, err
		}
		if mode == StructureNested {
			return buildNodeTree(nodes), nil
		}
		return nodes, nil
	})
}

func insertNode(ctx context.Context, ex execer, n *model.ContentNode, tenantID string) error {
	n.ID = utils.NewID()
	n.TenantID = tenantID
	ts := now()
	n.CreatedAt = ts
	n.UpdatedAt = ts
	if n.Status == "" {
		n.Status = "draft"
	}
	var parent any
	if n.ParentID != nil {
		parent = *n.ParentID
	}
	var publishedAt any
	if n.PublishedAt != nil {
		publishedAt = n.PublishedAt.UTC()
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO content (id, tenant_id, path, parent_id, type, status, title, slug, data, metadata, sort_order, is_published, published_at, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		n.ID, nullable(n.TenantID), n.Path, parent, nullable(n.Type), n.Status,
		nullable(n.Title), nullable(n.Slug), n.Data, n.Metadata, n.SortOrder,
		n.IsPublished, publishedAt, n.CreatedAt, n.UpdatedAt)
	if isDuplicate(err) {
		return ErrPathExists
	}
	return err
}

// Create inserts a new content node. Status defaults to "draft".
func (m *ContentNodeModule) Create(ctx context.Context, node model.ContentNode, tenantID string) result.Result[*model.ContentNode] {
	r := wrap(ctx, m.c, "CREATE_CONTENT_NODE_FAILED", func(ctx context.Context, db *sql.DB) (*model.ContentNode, error) {
		if err := insertNode(ctx, db, &node, tenantID); err != nil {
			return nil, err
		}
		return &node, nil
	})
	if r.Success {
		m.c.publish(ctx, events.ActionCreated, "content", r.Data.ID, tenantID, r.Data.Path)
	}
	return r
}

// CreateMany inserts several nodes in one transaction; either all rows
// land or none do.
func (m *ContentNodeModule) CreateMany(ctx context.Context, nodes []model.ContentNode, tenantID string) result.Result[[]*model.ContentNode] {
	return wrap(ctx, m.c, "CREATE_CONTENT_NODES_FAILED", func(ctx context.Context, db *sql.DB) ([]*model.ContentNode, error) {
		out := make([]*model.ContentNode, 0, len(nodes))
		err := transact(ctx, db, func(tx *sql.Tx) error {
			for i := range nodes {
				if err := insertNode(ctx, tx, &nodes[i], tenantID); err != nil {
					return err
				}
				out = append(out, &nodes[i])
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Update applies a partial document to the node with the given path.
func (m *ContentNodeModule) Update(ctx context.Context, path string, patch map[string]any, tenantID string) result.Result[*model.ContentNode] {
	return wrap(ctx, m.c, "UPDATE_CONTENT_NODE_FAILED", func(ctx context.Context, db *sql.DB) (*model.ContentNode, error) {
		where := " WHERE path = ?"
		args := []any{path}
		if tenantID != "" {
			where += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		if _, err := applyPatch(ctx, db, tables["content"], patch, where, args); err != nil {
			return nil, err
		}
		// The patch may change the path itself.
		lookup := path
		if p, ok := patch["path"].(string); ok && p != "" {
			lookup = p
		}
		return getNodeByPath(ctx, db, lookup, tenantID)
	})
}

// UpsertStructureNode updates the node at the given path or creates it.
// The check-then-act runs inside a transaction with a row lock.
func (m *ContentNodeModule) UpsertStructureNode(ctx context.Context, node model.ContentNode, tenantID string) result.Result[*model.ContentNode] {
	return wrap(ctx, m.c, "UPSERT_CONTENT_NODE_FAILED", func(ctx context.Context, db *sql.DB) (*model.ContentNode, error) {
		var out *model.ContentNode
		err := transact(ctx, db, func(tx *sql.Tx) error {
			q := "SELECT id FROM content WHERE path = ?"
			args := []any{node.Path}
			if tenantID != "" {
				q += " AND tenant_id = ?"
				args = append(args, tenantID)
			}
			var id string
			err := tx.QueryRowContext(ctx, q+" LIMIT 1 FOR UPDATE", args...).Scan(&id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if err := insertNode(ctx, tx, &node, tenantID); err != nil {
					return err
				}
				out = &node
				return nil
			case err != nil:
				return err
			}
			patch := map[string]any{
				"parent_id":  nil,
				"type":       nullable(node.Type),
				"status":     node.Status,
				"title":      nullable(node.Title),
				"slug":       nullable(node.Slug),
				"data":       node.Data,
				"metadata":   node.Metadata,
				"sort_order": node.SortOrder,
			}
			if node.ParentID != nil {
				patch["parent_id"] = *node.ParentID
			}
			if node.Status == "" {
				patch["status"] = "draft"
			}
			if err := updateByID(ctx, tx, tables["content"], id, patch, tenantID); err != nil {
				return err
			}
			out, err = getNodeByPath(ctx, tx, node.Path, tenantID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// BulkUpdate creates or updates one node per path, collecting every
// outcome. Individual failures do not stop the loop; the overall result
// fails when any item failed, with the collected outcomes attached.
func (m *ContentNodeModule) BulkUpdate(ctx context.Context, nodes []model.ContentNode, tenantID string) result.Result[[]*model.ContentNode] {
	out := make([]*model.ContentNode, 0, len(nodes))
	var failures []string
	for _, n := range nodes {
		r := m.UpsertStructureNode(ctx, n, tenantID)
		if !r.Success {
			failures = append(failures, n.Path+": "+r.Message)
			continue
		}
		out = append(out, r.Data)
	}
	if len(failures) > 0 {
		return result.FailDetails[[]*model.ContentNode]("BULK_UPDATE_CONTENT_FAILED",
			"one or more nodes failed to update", failures)
	}
	return result.OK(out)
}

// Delete removes the node with the given path. The id is resolved
// before the row is removed so the change event can carry it.
func (m *ContentNodeModule) Delete(ctx context.Context, path, tenantID string) result.Result[bool] {
	var id string
	r := wrap(ctx, m.c, "DELETE_CONTENT_NODE_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "SELECT id FROM content WHERE path = ?"
		args := []any{path}
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		err := db.QueryRowContext(ctx, q+" LIMIT 1", args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return false, result.ErrNotFound
		}
		if err != nil {
			return false, err
		}
		res, err := db.ExecContext(ctx, "DELETE FROM content WHERE id = ?", id)
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
	if r.Success {
		m.c.publish(ctx, events.ActionDeleted, "content", id, tenantID, path)
	}
	return r
}

// DeleteMany removes all nodes whose path is in paths and returns the
// count.
func (m *ContentNodeModule) DeleteMany(ctx context.Context, paths []string, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "DELETE_CONTENT_NODES_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		if len(paths) == 0 {
			return 0, nil
		}
		marks := ""
		args := make([]any, 0, len(paths)+1)
		for i, p := range paths {
			if i > 0 {
				marks += ","
			}
			marks += "?"
			args = append(args, p)
		}
		q := "DELETE FROM content WHERE path IN (" + marks + ")"
		if tenantID != "" {
			q += " AND tenant_id = ?"
			args = append(args, tenantID)
		}
		res, err := db.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// ReorderItem assigns a sibling position to one path.
type ReorderItem struct {
	Path      string `json:"path"`
	SortOrder int    `json:"order"`
}

// Reorder sets the sibling position of a single node.
func (m *ContentNodeModule) Reorder(ctx context.Context, path string, sortOrder int, tenantID string) result.Result[bool] {
	return wrap(ctx, m.c, "REORDER_CONTENT_NODE_FAILED", func(ctx context.Context, db *sql.DB) (bool, error) {
		q := "UPDATE content SET sort_order = ?, updated_at = ? WHERE path = ?"
		args := []any{sortOrder, now(), path}
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

// ReorderStructure applies a set of position assignments in one
// transaction.
func (m *ContentNodeModule) ReorderStructure(ctx context.Context, items []ReorderItem, tenantID string) result.Result[int64] {
	return wrap(ctx, m.c, "REORDER_CONTENT_STRUCTURE_FAILED", func(ctx context.Context, db *sql.DB) (int64, error) {
		var total int64
		err := transact(ctx, db, func(tx *sql.Tx) error {
			for _, item := range items {
				q := "UPDATE content SET sort_order = ?, updated_at = ? WHERE path = ?"
				args := []any{item.SortOrder, now(), item.Path}
				if tenantID != "" {
					q += " AND tenant_id = ?"
					args = append(args, tenantID)
				}
				res, err := tx.ExecContext(ctx, q, args...)
				if err != nil {
					return err
				}
				n, err := res.RowsAffected()
				if err != nil {
					return err
				}
				total += n
			}
			return nil
		})
		return total, err
	})
}
