package migration

import (
	"io/fs"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsPaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, "migrations/*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestRunAutoMigratesNonPostgres(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migration_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(db, "sqlite"))
	for _, table := range []string{"customers", "invoices", "invoice_items", "invoice_additional_charges", "invoice_sequences", "payments", "expenses", "gst_returns"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	for _, column := range []string{"invoice_rows", "expense_rows"} {
		assert.True(t, db.Migrator().HasColumn("gst_returns", column), column)
	}
}
