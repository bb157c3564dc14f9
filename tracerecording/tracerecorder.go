// Package tracerecording stores dispatch traces of simulated loops in a
// SQLite database, so that the exact order and timing of message execution
// can be inspected after a test run.
package tracerecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// TraceRecorder is a backend that can record and store trace entries.
type TraceRecorder interface {
	// CreateTable creates a new table with the given name
	CreateTable(tableName string, sampleEntry any)

	// InsertData writes a same-shape entry into a table that already exists
	InsertData(tableName string, entry any)

	// ListTables returns a slice containing the names of all tables
	ListTables() []string

	// Flush flushes all the buffered entries into the database
	Flush()
}

// New creates a TraceRecorder backed by a SQLite file at path.
func New(path string) TraceRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.open()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a TraceRecorder on top of an existing database handle.
func NewWithDB(db *sql.DB) TraceRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// A table buffers rows between flushes. Rows are extracted from entries at
// insert time, so a flush only talks to the database.
type table struct {
	columns   []string
	insertSQL string
	pending   [][]any
}

// sqliteWriter is the writer that writes trace entries into SQLite
type sqliteWriter struct {
	*sql.DB

	dbName       string
	tables       map[string]*table
	batchSize    int
	pendingCount int
}

// open establishes a connection to the database.
func (t *sqliteWriter) open() {
	if t.dbName == "" {
		t.dbName = "loopsim_trace_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func storableKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	for _, field := range structs.Fields(sampleEntry) {
		if !storableKind(field.Kind()) {
			panic(fmt.Sprintf("field %s of table %s has unsupported kind %s",
				field.Name(), tableName, field.Kind()))
		}
	}

	columns := structs.Names(sampleEntry)

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(columns, ", \n\t") + "\n" + `);`
	t.mustExecute(createTableSQL)

	placeholders := strings.TrimSuffix(
		strings.Repeat("?, ", len(columns)), ", ")

	t.tables[tableName] = &table{
		columns:   columns,
		insertSQL: "INSERT INTO " + tableName + " VALUES (" + placeholders + ")",
	}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	tbl, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	row := structs.Values(entry)
	if len(row) != len(tbl.columns) {
		panic(fmt.Sprintf("entry for table %s has %d fields, want %d",
			tableName, len(row), len(tbl.columns)))
	}

	tbl.pending = append(tbl.pending, row)

	t.pendingCount++
	if t.pendingCount >= t.batchSize {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	return tables
}

func (t *sqliteWriter) Flush() {
	if t.pendingCount == 0 {
		return
	}

	tx, err := t.Begin()
	if err != nil {
		panic(err)
	}

	for tableName, tbl := range t.tables {
		if len(tbl.pending) == 0 {
			continue
		}

		flushTable(tx, tableName, tbl)
	}

	err = tx.Commit()
	if err != nil {
		panic(err)
	}

	t.pendingCount = 0
}

func flushTable(tx *sql.Tx, tableName string, tbl *table) {
	stmt, err := tx.Prepare(tbl.insertSQL)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, row := range tbl.pending {
		_, err := stmt.Exec(row...)
		if err != nil {
			panic(fmt.Sprintf("failed to insert into %s: %s", tableName, err))
		}
	}

	tbl.pending = nil
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
