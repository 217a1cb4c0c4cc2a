package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecms/storage/events"
	"github.com/forgecms/storage/result"
)

// newTestAdapter returns a connected adapter backed by sqlmock.
func newTestAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := New(Options{DB: db, Logger: zerolog.Nop()})
	a.core.connected = true
	return a, mock
}

// eventRecorder collects change events instead of delivering them.
type eventRecorder struct {
	published []events.ContentChangedEvent
}

func (r *eventRecorder) Publish(_ context.Context, event events.ContentChangedEvent) error {
	r.published = append(r.published, event)
	return nil
}

func captureEvents(a *Adapter) *eventRecorder {
	rec := &eventRecorder{}
	a.core.events = rec
	return rec
}

func TestOperationsFailBeforeConnect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := New(Options{DB: db, Logger: zerolog.Nop()})

	r := a.Crud.FindOne(context.Background(), "content", map[string]any{"path": "/a"}, "")
	require.False(t, r.Success)
	assert.Equal(t, result.CodeNotConnected, r.Error.Code)
	assert.Equal(t, 503, r.Error.StatusCode)
}

func TestWaitForConnection(t *testing.T) {
	t.Run("returns once connected", func(t *testing.T) {
		a, _ := newTestAdapter(t)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, a.WaitForConnection(ctx))
	})

	t.Run("context bounds the wait", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		a := New(Options{DB: db, Logger: zerolog.Nop()})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, a.WaitForConnection(ctx), context.DeadlineExceeded)
	})
}

func TestCapabilities(t *testing.T) {
	a, _ := newTestAdapter(t)

	caps := a.Capabilities()
	assert.True(t, caps.SupportsTransactions)
	assert.True(t, caps.SupportsIndexing)
	assert.False(t, caps.SupportsAggregation)
	assert.False(t, caps.SupportsFullTextSearch)
	assert.Equal(t, 100, caps.MaxBatchSize)
	assert.Equal(t, 10, caps.MaxQueryComplexity)
}

func TestConnectionHealth(t *testing.T) {
	a, mock := newTestAdapter(t)
	mock.ExpectPing()

	r := a.ConnectionHealth(context.Background())
	require.True(t, r.Success)
	assert.True(t, r.Data.Connected)
	assert.GreaterOrEqual(t, r.Data.OpenConns, 0)
}

func TestTenantScopingExcludesCollidingRows(t *testing.T) {
	// Tenants A and B hold rows with the same path and email; reads
	// scoped to A must pin the tenant in the statement so B's row can
	// never match.
	t.Run("content path collision", func(t *testing.T) {
		a, mock := newTestAdapter(t)

		mock.ExpectQuery("SELECT \\* FROM `content` WHERE `path` = \\? AND tenant_id = \\? LIMIT 1").
			WithArgs("/blog/hello", "tenant-a").
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "path"}).
				AddRow("n-a", []byte("tenant-a"), []byte("/blog/hello")))

		r := a.Crud.FindOne(context.Background(), "content",
			map[string]any{"path": "/blog/hello"}, "tenant-a")
		require.True(t, r.Success)
		assert.Equal(t, "tenant-a", r.Data["tenant_id"])
		assert.Equal(t, "n-a", r.Data["id"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user email collision", func(t *testing.T) {
		a, mock := newTestAdapter(t)
		ts := time.Now().UTC()

		mock.ExpectQuery("SELECT .+ FROM users WHERE email = \\? AND tenant_id = \\? LIMIT 1").
			WithArgs("shared@example.com", "tenant-a").
			WillReturnRows(userRows().
				AddRow("u-a", "tenant-a", "shared@example.com", "a", "$2a$10$hash",
					true, false, []byte(`["editor"]`), nil, nil, ts, ts))

		r := a.Auth.GetUserByEmail(context.Background(), "shared@example.com", "tenant-a")
		require.True(t, r.Success)
		assert.Equal(t, "u-a", r.Data.ID)
		assert.Equal(t, "tenant-a", r.Data.TenantID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountCollections(t *testing.T) {
	a, mock := newTestAdapter(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `content`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `media`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	r := a.CountCollections(context.Background(), []string{"content", "media"}, nil, "")
	require.True(t, r.Success)
	assert.Equal(t, int64(3), r.Data["content"])
	assert.Equal(t, int64(7), r.Data["media"])
	require.NoError(t, mock.ExpectationsWereMet())
}
