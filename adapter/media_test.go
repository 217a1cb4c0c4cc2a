package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecms/storage/model"
)

func mediaRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "filename", "original_filename", "hash", "path",
		"size", "mime_type", "folder_id", "thumbnails", "metadata", "access",
		"created_by", "updated_by", "created_at", "updated_at",
	})
}

func TestMediaCreatePublishesEvent(t *testing.T) {
	a, mock := newTestAdapter(t)
	rec := captureEvents(a)

	mock.ExpectExec("INSERT INTO media").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := a.Media.Create(context.Background(), model.MediaItem{
		Filename: "logo.png",
		Path:     "/m/logo.png",
		Size:     1024,
	}, "t1")
	require.True(t, r.Success)
	require.Len(t, rec.published, 1)
	assert.Equal(t, "created", rec.published[0].Action)
	assert.Equal(t, "media", rec.published[0].Collection)
	assert.Equal(t, r.Data.ID, rec.published[0].ID)
	assert.Equal(t, "t1", rec.published[0].TenantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaSearch(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM media WHERE \\(LOWER\\(filename\\) LIKE \\? OR LOWER\\(original_filename\\) LIKE \\?\\) ORDER BY created_at DESC LIMIT \\? OFFSET \\?").
		WithArgs("%logo%", "%logo%", 20, 0).
		WillReturnRows(mediaRows().
			AddRow("m1", nil, "logo.png", "Logo Final.png", nil, "/m/logo.png",
				1024, "image/png", nil, nil, nil, "public", nil, nil, ts, ts))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM media WHERE \\(LOWER\\(filename\\) LIKE \\? OR LOWER\\(original_filename\\) LIKE \\?\\)").
		WithArgs("%logo%", "%logo%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := a.Media.Search(context.Background(), "Logo", "", 1, 0)
	require.True(t, r.Success)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "logo.png", r.Data[0].Filename)
	require.NotNil(t, r.Meta)
	assert.Equal(t, int64(1), r.Meta.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaGetByFolder(t *testing.T) {
	t.Run("unfiled items use IS NULL", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectQuery("SELECT .+ FROM media WHERE folder_id IS NULL ORDER BY created_at DESC").
			WillReturnRows(mediaRows())
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM media WHERE folder_id IS NULL").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		r := a.Media.GetByFolder(context.Background(), "", "", 1, 20)
		require.True(t, r.Success)
		assert.Empty(t, r.Data)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scoped to folder and tenant", func(t *testing.T) {
		a, mock := newTestAdapter(t)
		ts := now()

		mock.ExpectQuery("SELECT .+ FROM media WHERE folder_id = \\? AND tenant_id = \\?").
			WithArgs("f1", "t1", 20, 0).
			WillReturnRows(mediaRows().
				AddRow("m1", "t1", "a.jpg", nil, nil, nil, 10, "image/jpeg",
					"f1", nil, nil, nil, nil, nil, ts, ts))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM media WHERE folder_id = \\? AND tenant_id = \\?").
			WithArgs("f1", "t1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		r := a.Media.GetByFolder(context.Background(), "f1", "t1", 1, 20)
		require.True(t, r.Success)
		require.Len(t, r.Data, 1)
		require.NotNil(t, r.Data[0].FolderID)
		assert.Equal(t, "f1", *r.Data[0].FolderID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMediaMoveUnfiles(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectExec("UPDATE media SET folder_id = \\?, updated_at = \\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM media WHERE id = \\? LIMIT 1").
		WithArgs("m1").
		WillReturnRows(mediaRows().
			AddRow("m1", nil, "a.jpg", nil, nil, nil, 10, "image/jpeg",
				nil, nil, nil, nil, nil, nil, ts, ts))

	r := a.Media.Move(context.Background(), "m1", "", "")
	require.True(t, r.Success)
	assert.Nil(t, r.Data.FolderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaDuplicate(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM media WHERE id = \\? LIMIT 1").
		WithArgs("m1").
		WillReturnRows(mediaRows().
			AddRow("m1", nil, "a.jpg", "orig.jpg", "abc123", "/m/a.jpg", 10,
				"image/jpeg", nil, []byte(`{"small":"/t/a.jpg"}`), nil, "public",
				nil, nil, ts, ts))
	mock.ExpectExec("INSERT INTO media").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := a.Media.Duplicate(context.Background(), "m1", "")
	require.True(t, r.Success)
	assert.NotEqual(t, "m1", r.Data.ID)
	assert.Equal(t, "a.jpg", r.Data.Filename)
	assert.Equal(t, "abc123", r.Data.Hash)
	assert.Equal(t, model.JSONMap{"small": "/t/a.jpg"}, r.Data.Thumbnails)
	require.NoError(t, mock.ExpectationsWereMet())
}
