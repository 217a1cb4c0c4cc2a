package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func themeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "path", "is_active", "is_default",
		"config", "created_at", "updated_at",
	})
}

func TestThemeSetDefault(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM themes WHERE id = \\? LIMIT 1 FOR UPDATE").
		WithArgs("th2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("th2"))
	mock.ExpectExec("UPDATE themes SET is_default = FALSE, updated_at = \\? WHERE is_default = TRUE AND id <> \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE themes SET is_default = TRUE, is_active = TRUE, updated_at = \\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM themes WHERE id = \\? LIMIT 1").
		WithArgs("th2").
		WillReturnRows(themeRows().
			AddRow("th2", nil, "midnight", "/themes/midnight", true, true, nil, ts, ts))
	mock.ExpectCommit()

	r := a.Themes.SetDefault(context.Background(), "th2", "")
	require.True(t, r.Success)
	assert.True(t, r.Data.IsDefault)
	assert.True(t, r.Data.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThemeSetDefaultUnknownRollsBack(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM themes WHERE id = \\? AND tenant_id = \\? LIMIT 1 FOR UPDATE").
		WithArgs("nope", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	r := a.Themes.SetDefault(context.Background(), "nope", "t1")
	require.False(t, r.Success)
	assert.Equal(t, "NOT_FOUND", r.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThemeGetDefaultMissing(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectQuery("SELECT .+ FROM themes WHERE is_default = TRUE LIMIT 1").
		WillReturnRows(themeRows())

	r := a.Themes.GetDefault(context.Background(), "")
	require.False(t, r.Success)
	assert.Equal(t, "NOT_FOUND", r.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestThemeListOrdersDefaultFirst(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM themes WHERE tenant_id = \\? ORDER BY is_default DESC, name ASC").
		WithArgs("t1").
		WillReturnRows(themeRows().
			AddRow("th1", "t1", "midnight", nil, true, true, nil, ts, ts).
			AddRow("th2", "t1", "plain", nil, false, false, nil, ts, ts))

	r := a.Themes.List(context.Background(), "t1")
	require.True(t, r.Success)
	require.Len(t, r.Data, 2)
	assert.True(t, r.Data[0].IsDefault)
	assert.Equal(t, "plain", r.Data[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
