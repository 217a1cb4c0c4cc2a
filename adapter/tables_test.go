package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableForFallsBackToContent(t *testing.T) {
	assert.Equal(t, "users", tableFor("users").Name)
	assert.Equal(t, DefaultCollection, tableFor("customthings").Name)
}

func TestHasColumn(t *testing.T) {
	users := tables["users"]
	assert.True(t, users.HasColumn("email"))
	assert.True(t, users.HasColumn("tenant_id"))
	assert.False(t, users.HasColumn("password; DROP TABLE users"))
	assert.False(t, users.HasColumn("pref_key"))
}

func TestEveryTableCarriesBaseColumns(t *testing.T) {
	for name, tbl := range tables {
		for _, col := range baseColumns {
			assert.True(t, tbl.HasColumn(col), "%s missing %s", name, col)
		}
	}
}
