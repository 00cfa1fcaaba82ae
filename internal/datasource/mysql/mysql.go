// Package mysql loads a DataTable snapshot from a MySQL query. It is a
// read-only source adapter: LoadTable runs a SELECT and converts the
// returned rows into typed Values, but the engine itself never writes
// anywhere through this package or any other.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// LoadTableWithLogger is LoadTable plus structured timing/row-count
// logging at the boundary. A nil logger is treated as zap.NewNop().
func LoadTableWithLogger(ctx context.Context, db *sql.DB, query string, schema []core.ColumnDescription, logger *zap.Logger) (*core.DataTable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	tbl, err := LoadTable(ctx, db, query, schema)
	if err != nil {
		logger.Error("mysql query failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	logger.Debug("mysql query loaded table",
		zap.String("query", query),
		zap.Int("rows", tbl.NumberOfRows()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return tbl, nil
}

// LoadTable runs query against db and converts the result set into a
// fresh DataTable, using schema to assign a Value type to each result
// column by position. len(schema) must equal the number of columns
// query's SELECT list returns.
func LoadTable(ctx context.Context, db *sql.DB, query string, schema []core.ColumnDescription) (*core.DataTable, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, qerrors.WrapInternal(err, "mysql: query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, qerrors.WrapInternal(err, "mysql: read column names")
	}
	if len(cols) != len(schema) {
		return nil, qerrors.Internalf("mysql: query returned %d columns, schema describes %d", len(cols), len(schema))
	}

	out := core.New()
	for _, c := range schema {
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}

	scanDest := make([]any, len(schema))
	rawValues := make([]sql.RawBytes, len(schema))
	for i := range rawValues {
		scanDest[i] = &rawValues[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return nil, qerrors.WrapInternal(err, "mysql: scan row")
		}
		cells := make([]core.TableCell, len(schema))
		for i, col := range schema {
			v, err := convertCell(col, rawValues[i])
			if err != nil {
				return nil, err
			}
			cells[i] = core.NewCell(v)
			rawValues[i] = nil
		}
		if err := out.AddRow(core.TableRow{Cells: cells}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, qerrors.WrapInternal(err, "mysql: row iteration failed")
	}
	return out, nil
}

// convertCell converts one raw column value, nil meaning SQL NULL, into
// a Value matching col's declared type.
func convertCell(col core.ColumnDescription, raw sql.RawBytes) (value.Value, error) {
	if raw == nil {
		return value.NullOf(col.Type), nil
	}
	s := string(raw)
	switch col.Type {
	case value.TypeText:
		return value.NewText(s), nil
	case value.TypeNumber:
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return value.Value{}, qerrors.Internalf("mysql: column %q: invalid NUMBER %q", col.ID, s)
		}
		return value.NewNumber(f), nil
	case value.TypeBoolean:
		return value.NewBoolean(s == "1" || s == "true"), nil
	case value.TypeDate:
		var y, m, d int
		if _, err := fmt.Sscanf(s, "%d-%d-%d", &y, &m, &d); err != nil {
			return value.Value{}, qerrors.Internalf("mysql: column %q: invalid DATE %q", col.ID, s)
		}
		v, err := value.NewDate(y, m-1, d)
		if err != nil {
			return value.Value{}, qerrors.WrapInternal(err, "mysql: convert value")
		}
		return v, nil
	case value.TypeTimeOfDay:
		var h, mi, sec int
		if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &mi, &sec); err != nil {
			return value.Value{}, qerrors.Internalf("mysql: column %q: invalid TIME %q", col.ID, s)
		}
		v, err := value.NewTimeOfDay(h, mi, sec, 0)
		if err != nil {
			return value.Value{}, qerrors.WrapInternal(err, "mysql: convert value")
		}
		return v, nil
	case value.TypeDateTime:
		var y, m, d, h, mi, sec int
		if _, err := fmt.Sscanf(s, "%d-%d-%d %d:%d:%d", &y, &m, &d, &h, &mi, &sec); err != nil {
			return value.Value{}, qerrors.Internalf("mysql: column %q: invalid DATETIME %q", col.ID, s)
		}
		v, err := value.NewDateTime(y, m-1, d, h, mi, sec, 0)
		if err != nil {
			return value.Value{}, qerrors.WrapInternal(err, "mysql: convert value")
		}
		return v, nil
	default:
		return value.Value{}, qerrors.Internalf("mysql: column %q: unsupported Value type %v", col.ID, col.Type)
	}
}
