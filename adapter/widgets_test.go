package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecms/storage/model"
)

func widgetRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "active", "instances", "dependencies",
		"created_at", "updated_at",
	})
}

func TestWidgetRegister(t *testing.T) {
	t.Run("installs a new name", func(t *testing.T) {
		a, mock := newTestAdapter(t)
		ts := now()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM widgets WHERE name = \\? LIMIT 1 FOR UPDATE").
			WithArgs("hero-banner").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO widgets").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT .+ FROM widgets WHERE name = \\? LIMIT 1").
			WithArgs("hero-banner").
			WillReturnRows(widgetRows().
				AddRow("w1", nil, "hero-banner", false, []byte(`{"home":1}`), nil, ts, ts))
		mock.ExpectCommit()

		r := a.Widgets.Register(context.Background(), model.Widget{
			Name:      "hero-banner",
			Instances: model.JSONMap{"home": 1},
		}, "")
		require.True(t, r.Success)
		assert.Equal(t, "w1", r.Data.ID)
		assert.False(t, r.Data.Active)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refreshes an existing name", func(t *testing.T) {
		a, mock := newTestAdapter(t)
		ts := now()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM widgets WHERE name = \\? LIMIT 1 FOR UPDATE").
			WithArgs("hero-banner").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("w1"))
		mock.ExpectExec("UPDATE widgets SET instances = \\?, dependencies = \\?, updated_at = \\? WHERE id = \\?").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT .+ FROM widgets WHERE name = \\? LIMIT 1").
			WithArgs("hero-banner").
			WillReturnRows(widgetRows().
				AddRow("w1", nil, "hero-banner", true, []byte(`{"home":2}`), nil, ts, ts))
		mock.ExpectCommit()

		r := a.Widgets.Register(context.Background(), model.Widget{
			Name:      "hero-banner",
			Instances: model.JSONMap{"home": 2},
		}, "")
		require.True(t, r.Success)
		assert.Equal(t, "w1", r.Data.ID)
		assert.True(t, r.Data.Active)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWidgetActivateRefetches(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectExec("UPDATE widgets SET active = \\?, updated_at = \\? WHERE name = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM widgets WHERE name = \\? LIMIT 1").
		WithArgs("hero-banner").
		WillReturnRows(widgetRows().
			AddRow("w1", nil, "hero-banner", true, nil, nil, ts, ts))

	r := a.Widgets.Activate(context.Background(), "hero-banner", "")
	require.True(t, r.Success)
	assert.True(t, r.Data.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWidgetDeactivateUnknown(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("UPDATE widgets SET active = \\?, updated_at = \\? WHERE name = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM widgets WHERE name = \\? LIMIT 1").
		WithArgs("ghost").
		WillReturnRows(widgetRows())

	r := a.Widgets.Deactivate(context.Background(), "ghost", "")
	require.False(t, r.Success)
	assert.Equal(t, "NOT_FOUND", r.Error.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWidgetListActiveOnly(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM widgets WHERE active = TRUE ORDER BY name ASC").
		WillReturnRows(widgetRows().
			AddRow("w1", nil, "hero-banner", true, nil, nil, ts, ts))

	r := a.Widgets.List(context.Background(), true, "")
	require.True(t, r.Success)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "hero-banner", r.Data[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
