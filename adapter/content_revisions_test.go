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

func revisionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "content_id", "data", "version", "message",
		"created_by", "created_at", "updated_at",
	})
}

func TestRevisionRestore(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM content_revisions WHERE id = \\? LIMIT 1").
		WithArgs("r2").
		WillReturnRows(revisionRows().
			AddRow("r2", nil, "n1", []byte(`{"title":"Old"}`), 2, "before redesign", nil, ts, ts))
	mock.ExpectExec("UPDATE content SET data = \\?, updated_at = \\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM content WHERE id = \\? LIMIT 1").
		WithArgs("n1").
		WillReturnRows(nodeRows().
			AddRow("n1", nil, "/home", nil, "page", "published", "Old", "home",
				[]byte(`{"title":"Old"}`), nil, 0, true, nil, ts, ts))

	r := a.Content.Revisions.Restore(context.Background(), "r2", "")
	require.True(t, r.Success)
	assert.Equal(t, model.JSONMap{"title": "Old"}, r.Data.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevisionRestoreUnknown(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT .+ FROM content_revisions WHERE id = \\? LIMIT 1").
		WillReturnRows(revisionRows())

	r := a.Content.Revisions.Restore(context.Background(), "ghost", "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotFound, r.Error.Code)
}

func TestRevisionCleanup(t *testing.T) {
	t.Run("prunes beyond the retention window", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectQuery("SELECT id FROM content_revisions WHERE content_id = \\? ORDER BY created_at DESC").
			WithArgs("n1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow("r5").AddRow("r4").AddRow("r3").AddRow("r2").AddRow("r1"))
		mock.ExpectExec("DELETE FROM content_revisions WHERE id IN \\(\\?,\\?,\\?\\)").
			WithArgs("r3", "r2", "r1").
			WillReturnResult(sqlmock.NewResult(0, 3))

		r := a.Content.Revisions.Cleanup(context.Background(), "n1", 2, "")
		require.True(t, r.Success)
		assert.Equal(t, int64(3), r.Data)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps everything when under the window", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectQuery("SELECT id FROM content_revisions WHERE content_id = \\? ORDER BY created_at DESC").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))

		r := a.Content.Revisions.Cleanup(context.Background(), "n1", 5, "")
		require.True(t, r.Success)
		assert.Equal(t, int64(0), r.Data)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRevisionGetHistoryMeta(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM content_revisions WHERE content_id = \\? ORDER BY created_at DESC LIMIT \\? OFFSET \\?").
		WithArgs("n1", 20, 0).
		WillReturnRows(revisionRows().
			AddRow("r2", nil, "n1", nil, 2, nil, nil, ts, ts).
			AddRow("r1", nil, "n1", nil, 1, nil, nil, ts, ts))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM content_revisions WHERE content_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	r := a.Content.Revisions.GetHistory(context.Background(), "n1", "", 1, 0)
	require.True(t, r.Success)
	require.Len(t, r.Data, 2)
	assert.Equal(t, 2, r.Data[0].Version)
	require.NotNil(t, r.Meta)
	assert.Equal(t, int64(2), r.Meta.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}
