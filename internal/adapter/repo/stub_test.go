package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	query string
	args  []any
}

// stubExecutor answers queries from canned rows keyed by query text. When
// rowKey holds an entry for a query, the single row is only returned to calls
// whose first argument matches it.
type stubExecutor struct {
	rows    map[string][][]any
	row     map[string][]any
	rowKey  map[string]any
	rowErr  map[string]error
	tag     pgconn.CommandTag
	execErr error
	calls   []call
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{
		rows:   map[string][][]any{},
		row:    map[string][]any{},
		rowKey: map[string]any{},
		rowErr: map[string]error{},
		tag:    pgconn.NewCommandTag("UPDATE 1"),
	}
}

func (s *stubExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	return s.tag, s.execErr
}

func (s *stubExecutor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query: query, args: args})
	if err := s.rowErr[query]; err != nil {
		return stubRow{err: err}
	}
	values, ok := s.row[query]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	if key, keyed := s.rowKey[query]; keyed && (len(args) == 0 || !reflect.DeepEqual(args[0], key)) {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{values: values}
}

func (s *stubExecutor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	if err := s.rowErr[query]; err != nil {
		return nil, err
	}
	return &stubRows{data: s.rows[query], idx: -1}, nil
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type stubRows struct {
	data   [][]any
	idx    int
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.idx])
}

func (r *stubRows) Values() ([]any, error) {
	return r.data[r.idx], nil
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return errors.New("scan: destination must be a non-nil pointer")
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(elem.Type()) {
			return fmt.Errorf("scan: column %d: cannot assign %s to %s", i, v.Type(), elem.Type())
		}
		elem.Set(v)
	}
	return nil
}
