package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecms/storage/model"
)

func folderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "path", "parent_id", "sort_order",
		"type", "metadata", "created_at", "updated_at",
	})
}

func TestFolderCreateDefaultsType(t *testing.T) {
	a, mock := newTestAdapter(t)

	mock.ExpectExec("INSERT INTO virtual_folders").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := a.Folders.Create(context.Background(), model.VirtualFolder{
		Name: "images",
		Path: "/images",
	}, "t1")
	require.True(t, r.Success)
	assert.Equal(t, "folder", r.Data.Type)
	assert.Equal(t, "t1", r.Data.TenantID)
	assert.NotEmpty(t, r.Data.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderContentsAtRoot(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM virtual_folders WHERE parent_id IS NULL ORDER BY sort_order ASC, name ASC").
		WillReturnRows(folderRows().
			AddRow("f1", nil, "images", "/images", nil, 0, "folder", nil, ts, ts))
	mock.ExpectQuery("SELECT .+ FROM media WHERE folder_id IS NULL ORDER BY filename ASC").
		WillReturnRows(mediaRows().
			AddRow("m1", nil, "loose.txt", nil, nil, nil, 5, "text/plain",
				nil, nil, nil, nil, nil, nil, ts, ts))

	r := a.Folders.GetFolderContents(context.Background(), "", "")
	require.True(t, r.Success)
	require.Len(t, r.Data.Folders, 1)
	require.Len(t, r.Data.Media, 1)
	assert.Equal(t, "images", r.Data.Folders[0].Name)
	assert.Equal(t, "loose.txt", r.Data.Media[0].Filename)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderGetTreeOrder(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectQuery("SELECT .+ FROM virtual_folders WHERE type = 'folder' AND tenant_id = \\? ORDER BY path ASC, sort_order ASC").
		WithArgs("t1").
		WillReturnRows(folderRows().
			AddRow("f1", "t1", "images", "/images", nil, 0, "folder", nil, ts, ts).
			AddRow("f2", "t1", "icons", "/images/icons", "f1", 0, "folder", nil, ts, ts))

	r := a.Folders.GetTree(context.Background(), "t1")
	require.True(t, r.Success)
	require.Len(t, r.Data, 2)
	require.NotNil(t, r.Data[1].ParentID)
	assert.Equal(t, "f1", *r.Data[1].ParentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderGetTreeSelectsFolderTypeOnly(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	// Rows with other type values never reach the statement's result set.
	mock.ExpectQuery("SELECT .+ FROM virtual_folders WHERE type = 'folder' ORDER BY path ASC, sort_order ASC").
		WillReturnRows(folderRows().
			AddRow("f1", nil, "images", "/images", nil, 0, "folder", nil, ts, ts))

	r := a.Folders.GetTree(context.Background(), "")
	require.True(t, r.Success)
	require.Len(t, r.Data, 1)
	assert.Equal(t, "folder", r.Data[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderMoveToRoot(t *testing.T) {
	a, mock := newTestAdapter(t)
	ts := now()

	mock.ExpectExec("UPDATE virtual_folders SET parent_id = \\?, updated_at = \\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM virtual_folders WHERE id = \\? LIMIT 1").
		WithArgs("f2").
		WillReturnRows(folderRows().
			AddRow("f2", nil, "icons", "/icons", nil, 0, "folder", nil, ts, ts))

	r := a.Folders.Move(context.Background(), "f2", "", "")
	require.True(t, r.Success)
	assert.Nil(t, r.Data.ParentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
