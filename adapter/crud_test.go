package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecms/storage/result"
)

func TestBuildWhere(t *testing.T) {
	t.Run("sorted keys with tenant scope", func(t *testing.T) {
		where, args, err := buildWhere(tables["content"],
			map[string]any{"status": "published", "parent_id": nil}, "t1")
		require.NoError(t, err)
		assert.Equal(t, " WHERE `parent_id` IS NULL AND `status` = ? AND tenant_id = ?", where)
		assert.Equal(t, []any{"published", "t1"}, args)
	})

	t.Run("empty filter without tenant", func(t *testing.T) {
		where, args, err := buildWhere(tables["content"], nil, "")
		require.NoError(t, err)
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("unknown column is rejected", func(t *testing.T) {
		_, _, err := buildWhere(tables["content"], map[string]any{"1=1; --": "x"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown column")
	})

	t.Run("JSON column value is marshaled", func(t *testing.T) {
		_, args, err := buildWhere(tables["content"],
			map[string]any{"data": map[string]any{"k": "v"}}, "")
		require.NoError(t, err)
		require.Len(t, args, 1)
		assert.JSONEq(t, `{"k":"v"}`, string(args[0].([]byte)))
	})
}

func TestCrudFindOne(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT \\* FROM `content` WHERE `path` = \\? LIMIT 1").
		WithArgs("/about").
		WillReturnRows(sqlmock.NewRows([]string{"id", "path", "data", "sort_order"}).
			AddRow("n1", []byte("/about"), []byte(`{"title":"About"}`), 3))

	r := a.Crud.FindOne(context.Background(), "content", map[string]any{"path": "/about"}, "")
	require.True(t, r.Success)
	assert.Equal(t, "n1", r.Data["id"])
	assert.Equal(t, "/about", r.Data["path"])
	assert.Equal(t, map[string]any{"title": "About"}, r.Data["data"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudFindOneMissing(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT \\* FROM `content` WHERE `path` = \\? LIMIT 1").
		WithArgs("/missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := a.Crud.FindOne(context.Background(), "content", map[string]any{"path": "/missing"}, "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotFound, r.Error.Code)
	assert.Equal(t, 404, r.Error.StatusCode)
}

func TestCrudFindOneRejectsMalformedStoredJSON(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT \\* FROM `content`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("n1", []byte(`{not json`)))

	r := a.Crud.FindOne(context.Background(), "content", map[string]any{"path": "/bad"}, "")
	require.False(t, r.Success)
	assert.Contains(t, r.Message, "decode column")
}

func TestCrudInsertAssignsServerFields(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("INSERT INTO `content`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := a.Crud.Insert(context.Background(), "content",
		map[string]any{"path": "/new", "id": "caller-supplied"}, "t1")
	require.True(t, r.Success)
	assert.NotEqual(t, "caller-supplied", r.Data["id"])
	assert.NotEmpty(t, r.Data["id"])
	assert.Equal(t, "t1", r.Data["tenant_id"])
	assert.NotNil(t, r.Data["created_at"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudInsertRejectsUnknownColumn(t *testing.T) {
	a, _ := newTestAdapter(t)

	r := a.Crud.Insert(context.Background(), "content",
		map[string]any{"nope": 1}, "")
	require.False(t, r.Success)
	assert.Contains(t, r.Message, "unknown column")
}

func TestCrudDeleteMissingRow(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("DELETE FROM `content` WHERE id = \\?").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := a.Crud.Delete(context.Background(), "content", "gone", "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotFound, r.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudUpdateRefetches(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("UPDATE `content` SET `title` = \\?, updated_at = \\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `content` WHERE `id` = \\? LIMIT 1").
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("n1", []byte("New title")))

	r := a.Crud.Update(context.Background(), "content", "n1",
		map[string]any{"title": "New title"}, "")
	require.True(t, r.Success)
	assert.Equal(t, "New title", r.Data["title"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudUpdateSkipsServerManagedFields(t *testing.T) {
	a, mock := newTestAdapter(t)

	// id and created_at from the patch must not appear in SET.
	mock.ExpectExec("UPDATE `content` SET `status` = \\?, updated_at = \\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `content` WHERE `id` = \\? LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow("n1", []byte("published")))

	r := a.Crud.Update(context.Background(), "content", "n1",
		map[string]any{"status": "published", "id": "evil", "created_at": "evil"}, "")
	require.True(t, r.Success)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudUpsert(t *testing.T) {
	t.Run("updates the locked row when the key exists", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM `content` WHERE `path` = \\? LIMIT 1 FOR UPDATE").
			WithArgs("/home").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("n1"))
		mock.ExpectExec("UPDATE `content` SET `title` = \\?, updated_at = \\? WHERE id = \\?").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT \\* FROM `content` WHERE `id` = \\? LIMIT 1").
			WithArgs("n1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
				AddRow("n1", []byte("Home")))
		mock.ExpectCommit()

		r := a.Crud.Upsert(context.Background(), "content",
			map[string]any{"path": "/home"}, map[string]any{"title": "Home"}, "")
		require.True(t, r.Success)
		assert.Equal(t, "Home", r.Data["title"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inserts carrying the query key when missing", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM `content` WHERE `path` = \\? LIMIT 1 FOR UPDATE").
			WithArgs("/new").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO `content`").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		r := a.Crud.Upsert(context.Background(), "content",
			map[string]any{"path": "/new"}, map[string]any{"title": "New"}, "")
		require.True(t, r.Success)
		assert.Equal(t, "/new", r.Data["path"])
		assert.Equal(t, "New", r.Data["title"])
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCrudCountAndExists(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `media` WHERE `folder_id` = \\?").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `media` WHERE `folder_id` = \\?").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	count := a.Crud.Count(context.Background(), "media", map[string]any{"folder_id": "f1"}, "")
	require.True(t, count.Success)
	assert.Equal(t, int64(2), count.Data)

	exists := a.Crud.Exists(context.Background(), "media", map[string]any{"folder_id": "f1"}, "")
	require.True(t, exists.Success)
	assert.False(t, exists.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudAggregateNotImplemented(t *testing.T) {
	a, _ := newTestAdapter(t)

	r := a.Crud.Aggregate(context.Background(), "content", nil, "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotImplemented, r.Error.Code)
	assert.Equal(t, 501, r.Error.StatusCode)
}

func TestCrudDeleteManyCount(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("DELETE FROM `content` WHERE `status` = \\?").
		WithArgs("archived").
		WillReturnResult(sqlmock.NewResult(0, 5))

	r := a.Crud.DeleteMany(context.Background(), "content", map[string]any{"status": "archived"}, "")
	require.True(t, r.Success)
	assert.Equal(t, int64(5), r.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCrudFindByIDsEmpty(t *testing.T) {
	a, _ := newTestAdapter(t)

	r := a.Crud.FindByIDs(context.Background(), "content", nil, "")
	require.True(t, r.Success)
	assert.Empty(t, r.Data)
}

func TestCrudQueryError(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT \\* FROM `content`").
		WillReturnError(errors.New("connection reset"))

	r := a.Crud.FindMany(context.Background(), "content", nil, "", 0, 0)
	require.False(t, r.Success)
	assert.Equal(t, "FIND_MANY_FAILED", r.Error.Code)
	assert.Equal(t, "connection reset", r.Message)
}
