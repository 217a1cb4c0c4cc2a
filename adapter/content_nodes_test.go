package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecms/storage/model"
	"github.com/forgecms/storage/result"
)

func strptr(s string) *string { return &s }

func TestBuildNodeTree(t *testing.T) {
	t.Run("links children to parents", func(t *testing.T) {
		nodes := []*model.ContentNode{
			{ID: "root", Path: "/"},
			{ID: "child", Path: "/a", ParentID: strptr("root")},
			{ID: "grandchild", Path: "/a/b", ParentID: strptr("child")},
			{ID: "sibling", Path: "/c", ParentID: strptr("root")},
		}

		roots := buildNodeTree(nodes)
		require.Len(t, roots, 1)
		require.Len(t, roots[0].Children, 2)
		assert.Equal(t, "child", roots[0].Children[0].ID)
		assert.Equal(t, "sibling", roots[0].Children[1].ID)
		require.Len(t, roots[0].Children[0].Children, 1)
		assert.Equal(t, "grandchild", roots[0].Children[0].Children[0].ID)
	})

	t.Run("promotes orphans to roots", func(t *testing.T) {
		nodes := []*model.ContentNode{
			{ID: "a", Path: "/a", ParentID: strptr("absent")},
			{ID: "b", Path: "/b"},
		}

		roots := buildNodeTree(nodes)
		require.Len(t, roots, 2)
		assert.Equal(t, "a", roots[0].ID)
		assert.Equal(t, "b", roots[1].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, buildNodeTree(nil))
	})
}

func nodeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "path", "parent_id", "type", "status", "title",
		"slug", "data", "metadata", "sort_order", "is_published",
		"published_at", "created_at", "updated_at",
	})
}

func TestGetStructureNested(t *testing.T) {
	a, mock := newTestAdapter(t)

	ts := now()
	mock.ExpectQuery("SELECT .+ FROM content ORDER BY path ASC, sort_order ASC").
		WillReturnRows(nodeRows().
			AddRow("root", nil, "/", nil, "page", "published", "Home", "home",
				[]byte(`{"hero":"x"}`), nil, 0, true, nil, ts, ts).
			AddRow("child", nil, "/about", "root", "page", "draft", "About", "about",
				nil, nil, 1, false, nil, ts, ts))

	r := a.Content.Nodes.GetStructure(context.Background(), StructureNested, nil, "")
	require.True(t, r.Success)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "/", r.Data[0].Path)
	require.Len(t, r.Data[0].Children, 1)
	assert.Equal(t, "/about", r.Data[0].Children[0].Path)
	assert.Equal(t, model.JSONMap{"hero": "x"}, r.Data[0].Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentNodeCreateDefaultsStatus(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("INSERT INTO content").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := a.Content.Nodes.Create(context.Background(),
		model.ContentNode{Path: "/new"}, "t1")
	require.True(t, r.Success)
	assert.Equal(t, "draft", r.Data.Status)
	assert.Equal(t, "t1", r.Data.TenantID)
	assert.NotEmpty(t, r.Data.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentNodeCreateDuplicatePath(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("INSERT INTO content").
		WillReturnError(&mockMySQLError{msg: "Error 1062 (23000): Duplicate entry '/new' for key 'content.path'"})

	r := a.Content.Nodes.Create(context.Background(),
		model.ContentNode{Path: "/new"}, "")
	require.False(t, r.Success)
	assert.Equal(t, "path already exists", r.Message)
}

type mockMySQLError struct{ msg string }

func (e *mockMySQLError) Error() string { return e.msg }

func TestContentNodeDeleteMissing(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT id FROM content WHERE path = \\? LIMIT 1").
		WithArgs("/gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := a.Content.Nodes.Delete(context.Background(), "/gone", "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotFound, r.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentNodeDeleteEventCarriesID(t *testing.T) {
	a, mock := newTestAdapter(t)
	rec := captureEvents(a)

	mock.ExpectQuery("SELECT id FROM content WHERE path = \\? LIMIT 1").
		WithArgs("/blog/hello").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("n1"))
	mock.ExpectExec("DELETE FROM content WHERE id = \\?").
		WithArgs("n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := a.Content.Nodes.Delete(context.Background(), "/blog/hello", "")
	require.True(t, r.Success)
	require.Len(t, rec.published, 1)
	assert.Equal(t, "deleted", rec.published[0].Action)
	assert.Equal(t, "n1", rec.published[0].ID)
	assert.Equal(t, "/blog/hello", rec.published[0].Path)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReorderMissingPath(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("UPDATE content SET sort_order = \\?, updated_at = \\? WHERE path = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := a.Content.Nodes.Reorder(context.Background(), "/gone", 3, "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotFound, r.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStructureNode(t *testing.T) {
	t.Run("creates when the path is absent", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM content WHERE path = \\? LIMIT 1 FOR UPDATE").
			WithArgs("/fresh").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO content").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		r := a.Content.Nodes.UpsertStructureNode(context.Background(),
			model.ContentNode{Path: "/fresh", Title: "Fresh"}, "")
		require.True(t, r.Success)
		assert.Equal(t, "/fresh", r.Data.Path)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates the locked row when present", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		ts := now()
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM content WHERE path = \\? LIMIT 1 FOR UPDATE").
			WithArgs("/home").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("n1"))
		mock.ExpectExec("UPDATE `content` SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT .+ FROM content WHERE path = \\? LIMIT 1").
			WithArgs("/home").
			WillReturnRows(nodeRows().
				AddRow("n1", nil, "/home", nil, "page", "draft", "Home", "home",
					nil, nil, 0, false, nil, ts, ts))
		mock.ExpectCommit()

		r := a.Content.Nodes.UpsertStructureNode(context.Background(),
			model.ContentNode{Path: "/home", Title: "Home"}, "")
		require.True(t, r.Success)
		assert.Equal(t, "n1", r.Data.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReorderStructureRunsInOneTransaction(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE content SET sort_order = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE content SET sort_order = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := a.Content.Nodes.ReorderStructure(context.Background(), []ReorderItem{
		{Path: "/a", SortOrder: 2},
		{Path: "/b", SortOrder: 1},
	}, "")
	require.True(t, r.Success)
	assert.Equal(t, int64(2), r.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}
