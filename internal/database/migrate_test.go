package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesTablesAndIsRepeatable(t *testing.T) {
	db := OpenTestSQLite(t)

	require.NoError(t, Migrate(context.Background(), db))

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.ElementsMatch(t, []string{
		"cupons", "eventos", "ingressos", "ingressos_vendidos", "lotes",
		"pedido_itens", "pedidos", "schema_migrations", "sessoes", "setores",
	}, tables)
}

func TestMigrate_RecordsEachVersionOnce(t *testing.T) {
	db := OpenTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	versions, err := AppliedMigrations(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial", "002_order_customer"}, versions)

	var cols []string
	require.NoError(t, db.Select(&cols, `SELECT name FROM pragma_table_info('pedidos')`))
	assert.Contains(t, cols, "cliente_id")
}

func TestLoadMigrations_SortedPerDriver(t *testing.T) {
	for _, driver := range []string{"sqlite", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			ms, err := loadMigrations(driver)
			require.NoError(t, err)
			require.Len(t, ms, 2)
			assert.Equal(t, "001_initial", ms[0].version)
			assert.Equal(t, "002_order_customer", ms[1].version)
			assert.Contains(t, ms[1].sql, "cliente_id")
		})
	}

	_, err := loadMigrations("postgres")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, got)
}
