package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// QueryParams selects and pages the rows of a table.
type QueryParams struct {
	// Where is an SQL condition without the WHERE keyword, such as
	// "Run = ? AND Outcome = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// OrderBy lists the sort columns without the ORDER BY keywords.
	OrderBy string

	// Limit caps the number of rows returned. Zero returns every row.
	Limit int

	// Offset skips that many matching rows, with or without a Limit.
	Offset int
}

// clauses renders the part of a query that follows the table name.
func (p QueryParams) clauses(paged bool) string {
	var b strings.Builder

	if p.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(p.Where)
	}

	if !paged {
		return b.String()
	}

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(p.OrderBy)
	}

	switch {
	case p.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	case p.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		b.WriteString(" LIMIT -1")
	}

	if p.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", p.Offset)
	}

	return b.String()
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode
	// into. A table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// Query returns pointers to the decoded rows selected by params, and
	// the number of rows that match params.Where regardless of paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the database.
	Close() error
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]reflect.Type
}

// NewReader opens a trace database for reading.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, err
	}

	r := &sqliteReader{
		db:     db,
		tables: make(map[string]reflect.Type),
	}

	return r, nil
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.tables[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, mapped := r.tables[tableName]
	if !mapped {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+params.clauses(false),
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM "+tableName+params.clauses(true),
		params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	entries, err := decodeRows(rows, entryType)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", tableName, err)
	}

	return entries, total, nil
}

// decodeRows fills one new entry per row, matching columns to fields by
// name. Columns without a field are read and dropped.
func decodeRows(rows *sql.Rows, entryType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var entries []any

	for rows.Next() {
		entry := reflect.New(entryType)
		dests := make([]any, len(columns))

		for i, column := range columns {
			field := entry.Elem().FieldByName(column)
			if field.IsValid() && field.CanSet() {
				dests[i] = field.Addr().Interface()
				continue
			}

			dests[i] = new(any)
		}

		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}

		entries = append(entries, entry.Interface())
	}

	return entries, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
