package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// Filter selects and orders the rows of a table. Where and OrderBy are SQL
// fragments without their keywords. A zero Limit returns every row.
type Filter struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

func (f Filter) where() string {
	if f.Where == "" {
		return ""
	}

	return " WHERE " + f.Where
}

// Reader reads the tables of a recording back.
type Reader struct {
	db *sql.DB
}

// OpenReader opens the recording in file. Unlike the recorder, it refuses a
// file that does not exist.
func OpenReader(file string) (*Reader, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}

	return &Reader{db: db}, nil
}

// NewReaderWithDB creates a Reader over an open database.
func NewReaderWithDB(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Tables returns the sorted names of the tables in the recording.
func (r *Reader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// Count returns the number of rows of the table that pass the filter. Limit
// and Offset are ignored.
func (r *Reader) Count(
	ctx context.Context,
	tableName string,
	f Filter,
) (int, error) {
	var n int

	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s%s", tableName, f.where()),
		f.Args...).Scan(&n)

	return n, err
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Query reads the rows of a table into entries of type T. Columns are
// matched to fields by name, and columns without a field are skipped.
func Query[T any](
	ctx context.Context,
	r *Reader,
	tableName string,
	f Filter,
) ([]T, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "SELECT * FROM %s%s", tableName, f.where())

	if f.OrderBy != "" {
		sb.WriteString(" ORDER BY " + f.OrderBy)
	}

	if f.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), f.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var entries []T

	for rows.Next() {
		var entry T

		targets := scanTargets(reflect.ValueOf(&entry).Elem(), columns)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("table %s: %w", tableName, err)
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanTargets(v reflect.Value, columns []string) []any {
	targets := make([]any, len(columns))

	for i, c := range columns {
		field := v.FieldByName(c)
		if field.IsValid() && field.CanSet() {
			targets[i] = field.Addr().Interface()
			continue
		}

		var skipped any
		targets[i] = &skipped
	}

	return targets
}
