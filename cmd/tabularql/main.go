// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tabularql/tabularql/internal/config"
	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/ddlschema"
	"github.com/tabularql/tabularql/internal/engine"
	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/queryparser"
	"github.com/tabularql/tabularql/internal/value"
)

type queryFlags struct {
	schemaFile string
	dataFile   string
	query      string
	configFile string
}

type validateFlags struct {
	schemaFile string
	query      string
	configFile string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rootCmd := &cobra.Command{
		Use:   "tabularql",
		Short: "In-memory tabular query engine",
	}

	rootCmd.AddCommand(queryCmd(logger))
	rootCmd.AddCommand(validateCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func queryCmd(logger *zap.Logger) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query string against a CREATE TABLE schema and a CSV data file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runQuery(flags, logger)
		},
	}

	cmd.Flags().StringVarP(&flags.schemaFile, "schema", "s", "", "Path to a CREATE TABLE .sql file describing the columns")
	cmd.Flags().StringVarP(&flags.dataFile, "data", "d", "", "Path to a .csv file holding the rows, header row matching the schema's column ids")
	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "The query string to run")
	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "Path to an engine configuration TOML file (default built-in config)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func validateCmd(logger *zap.Logger) *cobra.Command {
	flags := &validateFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a query string against a CREATE TABLE schema, without running it",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runValidate(flags, logger)
		},
	}

	cmd.Flags().StringVarP(&flags.schemaFile, "schema", "s", "", "Path to a CREATE TABLE .sql file describing the columns")
	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "The query string to validate")
	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "Path to an engine configuration TOML file (default built-in config)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runQuery(flags *queryFlags, logger *zap.Logger) error {
	cols, err := loadSchema(flags.schemaFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.configFile, logger)
	if err != nil {
		return err
	}

	table, err := loadCSVTable(flags.dataFile, cols)
	if err != nil {
		return err
	}
	table.Locale = cfg.DefaultLocale

	q, err := queryparser.ParseQuery(flags.query)
	if err != nil {
		return reportQueryError(err)
	}

	result, err := engine.Execute(q, table, nil, cfg)
	if err != nil {
		return reportQueryError(err)
	}

	logger.Debug("query executed",
		zap.String("query", flags.query),
		zap.Int("result_rows", result.NumberOfRows()),
		zap.Int("warnings", len(result.Warnings)),
	)

	return printResultJSON(result)
}

func runValidate(flags *validateFlags, logger *zap.Logger) error {
	cols, err := loadSchema(flags.schemaFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.configFile, logger)
	if err != nil {
		return err
	}

	table := core.New()
	for _, c := range cols {
		if err := table.AddColumn(c); err != nil {
			return err
		}
	}

	q, err := queryparser.ParseQuery(flags.query)
	if err != nil {
		return reportQueryError(err)
	}

	if err := q.Validate(table); err != nil {
		return reportQueryError(err)
	}
	if err := q.ValidateCapabilities(cfg); err != nil {
		return reportQueryError(err)
	}

	fmt.Println("OK")
	return nil
}

func loadSchema(path string) ([]core.ColumnDescription, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	cols, err := ddlschema.ParseCreateTable(string(raw))
	if err != nil {
		return nil, reportQueryError(err)
	}
	return cols, nil
}

func loadConfig(path string, logger *zap.Logger) (*config.EngineConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadWithLogger(path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadCSVTable reads a CSV file through the standard library's
// encoding/csv: the CLI's data source is a flat file, not a database or
// message stream, and nothing in the corpus's dependency set offers a
// richer CSV reader than what csv.Reader already provides.
func loadCSVTable(path string, cols []core.ColumnDescription) (*core.DataTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	order := make([]int, len(header))
	for i, name := range header {
		idx := -1
		for j, c := range cols {
			if c.ID == name {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("csv column %q has no matching schema column", name)
		}
		order[i] = idx
	}

	table := core.New()
	for _, c := range cols {
		if err := table.AddColumn(c); err != nil {
			return nil, err
		}
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		cells := make([]core.TableCell, len(cols))
		for i, field := range record {
			colIdx := order[i]
			v, err := parseCSVField(cols[colIdx], field)
			if err != nil {
				return nil, err
			}
			cells[colIdx] = core.NewCell(v)
		}
		if err := table.AddRow(core.TableRow{Cells: cells}); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func parseCSVField(col core.ColumnDescription, field string) (value.Value, error) {
	if field == "" {
		return value.NullOf(col.Type), nil
	}
	switch col.Type {
	case value.TypeText:
		return value.NewText(field), nil
	case value.TypeNumber:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("column %q: invalid number %q", col.ID, field)
		}
		return value.NewNumber(f), nil
	case value.TypeBoolean:
		return value.NewBoolean(strings.EqualFold(field, "true") || field == "1"), nil
	default:
		return value.Value{}, fmt.Errorf("column %q: csv loading does not support %s literals directly; use a CREATE TABLE type of NUMBER, TEXT or BOOLEAN, or pre-convert the column", col.ID, col.Type)
	}
}

// resultRow is the JSON-friendly projection of one TableRow: each cell
// renders as its FormattedText if the pipeline set one, else its
// underlying Go value via Value.ObjectToFormat.
type resultRow struct {
	Cells []any `json:"cells"`
}

type resultColumn struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type resultTable struct {
	Columns  []resultColumn `json:"columns"`
	Rows     []resultRow    `json:"rows"`
	Warnings []string       `json:"warnings,omitempty"`
}

func printResultJSON(table *core.DataTable) error {
	out := resultTable{
		Columns: make([]resultColumn, len(table.Columns)),
		Rows:    make([]resultRow, len(table.Rows)),
	}
	for i, c := range table.Columns {
		out.Columns[i] = resultColumn{ID: c.ID, Label: c.Label, Type: c.Type.String()}
	}
	for i, row := range table.Rows {
		cells := make([]any, len(row.Cells))
		for j, cell := range row.Cells {
			if cell.HasFormatted {
				cells[j] = cell.FormattedText
			} else {
				cells[j] = cell.Value.ObjectToFormat()
			}
		}
		out.Rows[i] = resultRow{Cells: cells}
	}
	for _, w := range table.Warnings {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s", w.Kind, w.Message))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// reportQueryError prints the first qerrors.Error found in err's chain and
// returns it so cobra exits non-zero, rather than dumping a Go error
// string stack to the user.
func reportQueryError(err error) error {
	if kind, ok := qerrors.KindOf(err); ok {
		fmt.Fprintf(os.Stderr, "%s: %v\n", kind, err)
		return err
	}
	fmt.Fprintln(os.Stderr, err)
	return err
}
