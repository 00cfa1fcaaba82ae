package ddlschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/value"
)

const ordersDDL = `
CREATE TABLE orders (
	id INT PRIMARY KEY,
	customer_name VARCHAR(255) NOT NULL,
	placed_at DATETIME,
	ship_date DATE,
	pickup_time TIME,
	total DECIMAL(10,2),
	is_paid BOOLEAN
);
`

func TestParseCreateTableMapsEveryType(t *testing.T) {
	cols, err := ParseCreateTable(ordersDDL)
	require.NoError(t, err)

	byID := make(map[string]value.Type, len(cols))
	for _, c := range cols {
		byID[c.ID] = c.Type
	}

	assert.Equal(t, value.TypeNumber, byID["id"])
	assert.Equal(t, value.TypeText, byID["customer_name"])
	assert.Equal(t, value.TypeDateTime, byID["placed_at"])
	assert.Equal(t, value.TypeDate, byID["ship_date"])
	assert.Equal(t, value.TypeTimeOfDay, byID["pickup_time"])
	assert.Equal(t, value.TypeNumber, byID["total"])
	assert.Equal(t, value.TypeBoolean, byID["is_paid"])
}

func TestParseSchemaIgnoresNonDDLStatements(t *testing.T) {
	sql := ordersDDL + "\nINSERT INTO orders (id) VALUES (1);"
	tables, err := ParseSchema(sql)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "orders", tables[0].Name)
}

func TestParseCreateTableRejectsUnknownType(t *testing.T) {
	_, err := ParseCreateTable("CREATE TABLE t (x BLOB);")
	require.Error(t, err)
}

func TestParseCreateTableRejectsNoStatement(t *testing.T) {
	_, err := ParseCreateTable("SELECT 1;")
	require.Error(t, err)
}

func TestParseCreateTableRejectsDuplicateColumn(t *testing.T) {
	_, err := ParseCreateTable("CREATE TABLE t (a INT, a VARCHAR(10));")
	require.Error(t, err)
}
