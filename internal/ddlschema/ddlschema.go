// Package ddlschema loads column descriptions from a CREATE TABLE
// statement using the TiDB SQL parser. It never executes SQL and never
// touches a database: the parser only describes shape, giving engine
// users a text-based way to declare a DataTable's schema instead of
// constructing core.ColumnDescription literals by hand.
package ddlschema

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// ParseCreateTable parses a single CREATE TABLE statement and returns its
// columns as an ordered []core.ColumnDescription. If sql contains more
// than one CREATE TABLE statement, only the first is returned; use
// ParseSchema to load every table in a multi-statement dump.
func ParseCreateTable(sql string) ([]core.ColumnDescription, error) {
	tables, err := ParseSchema(sql)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, qerrors.InvalidQueryf("", "", "no CREATE TABLE statement found")
	}
	return tables[0].Columns, nil
}

// Table names one parsed CREATE TABLE statement's columns.
type Table struct {
	Name    string
	Columns []core.ColumnDescription
}

// ParseSchema parses every CREATE TABLE statement in sql, in source order.
// Non-DDL statements (INSERT, SELECT, ...) are silently ignored, matching
// a schema-only dump being fed through unmodified.
func ParseSchema(sql string) ([]Table, error) {
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, qerrors.WrapInvalidQuery("", "", fmt.Errorf("parse DDL: %w", err))
	}

	var tables []Table
	for _, stmt := range stmts {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok {
			continue
		}
		cols, err := columnsFromCreateTable(create)
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: create.Table.Name.O, Columns: cols})
	}
	return tables, nil
}

func columnsFromCreateTable(stmt *ast.CreateTableStmt) ([]core.ColumnDescription, error) {
	cols := make([]core.ColumnDescription, 0, len(stmt.Cols))
	seen := make(map[string]bool, len(stmt.Cols))
	for _, colDef := range stmt.Cols {
		id := colDef.Name.Name.O
		if seen[id] {
			return nil, qerrors.InvalidQueryf("", id, "duplicate column %q in CREATE TABLE", id)
		}
		seen[id] = true

		typ, err := valueTypeOf(colDef)
		if err != nil {
			return nil, err
		}
		cols = append(cols, core.ColumnDescription{ID: id, Type: typ, Label: id})
	}
	return cols, nil
}

// valueTypeOf maps a column's SQL type to its Value type tag: INT-family
// and DECIMAL/FLOAT/DOUBLE to NUMBER, CHAR/TEXT-family to TEXT, DATE to
// DATE, DATETIME/TIMESTAMP to DATETIME, TIME to TIMEOFDAY, and
// BOOL/TINYINT(1) to BOOLEAN.
func valueTypeOf(colDef *ast.ColumnDef) (value.Type, error) {
	raw := strings.ToLower(strings.TrimSpace(colDef.Tp.String()))

	switch {
	case strings.Contains(raw, "bool") || strings.Contains(raw, "tinyint(1)"):
		return value.TypeBoolean, nil
	case strings.Contains(raw, "datetime") || strings.Contains(raw, "timestamp"):
		return value.TypeDateTime, nil
	case strings.HasPrefix(raw, "date"):
		return value.TypeDate, nil
	case strings.HasPrefix(raw, "time"):
		return value.TypeTimeOfDay, nil
	case containsAny(raw, "char", "text", "enum", "set"):
		return value.TypeText, nil
	case containsAny(raw, "int", "decimal", "float", "double", "numeric", "real"):
		return value.TypeNumber, nil
	default:
		return 0, qerrors.InvalidQueryf("", colDef.Name.Name.O, "unsupported SQL type %q", colDef.Tp.String())
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
