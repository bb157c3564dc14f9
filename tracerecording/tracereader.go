package tracerecording

import (
	"database/sql"
	"fmt"
	"strconv"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// QueryParams narrows and pages a trace query.
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword.
	Where string

	// Args holds the arguments for the placeholders in Where.
	Args []any

	// Limit is the maximum number of rows to return; 0 means no limit.
	Limit int

	// Offset is the number of rows to skip.
	Offset int

	// OrderBy specifies sorting, without the "ORDER BY" keywords.
	OrderBy string
}

// A TraceReader reads recorded traces back out of a SQLite file.
type TraceReader struct {
	*sql.DB
}

// OpenTrace opens the trace database at path (without the .sqlite3 suffix).
func OpenTrace(path string) (*TraceReader, error) {
	db, err := sql.Open("sqlite3", path+".sqlite3")
	if err != nil {
		return nil, err
	}

	return &TraceReader{DB: db}, nil
}

// ListTables returns the names of all tables in the trace database.
func (r *TraceReader) ListTables() ([]string, error) {
	rows, err := r.Query(
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// QueryTable returns the column names and rows of tableName, narrowed by
// params.
func (r *TraceReader) QueryTable(
	tableName string,
	params QueryParams,
) ([]string, [][]any, error) {
	query := "SELECT * FROM " + tableName
	if params.Where != "" {
		query += " WHERE " + params.Where
	}
	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}
	if params.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(params.Limit)
		if params.Offset > 0 {
			query += " OFFSET " + strconv.Itoa(params.Offset)
		}
	}

	rows, err := r.Query(query, params.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, err
		}

		result = append(result, values)
	}

	return columns, result, rows.Err()
}
