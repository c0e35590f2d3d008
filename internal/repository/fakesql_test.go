package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

// fakeSQL is an in-memory database/sql driver. Queries return the preset rows;
// statements are recorded and the failExec-th one (1-based) fails.
type fakeSQL struct {
	mu        sync.Mutex
	rows      [][]driver.Value
	queries   []fakeCall
	execs     []fakeCall
	failExec  int
	commits   int
	rollbacks int
}

type fakeCall struct {
	query string
	args  []driver.Value
}

func (f *fakeSQL) open() *sql.DB {
	return sql.OpenDB(f)
}

func (f *fakeSQL) Connect(context.Context) (driver.Conn, error) { return &fakeConn{db: f}, nil }
func (f *fakeSQL) Driver() driver.Driver                        { return fakeDriver{db: f} }

type fakeDriver struct{ db *fakeSQL }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{db: d.db}, nil }

type fakeConn struct{ db *fakeSQL }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{db: c.db, query: query}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{db: c.db}, nil }

type fakeTx struct{ db *fakeSQL }

func (t fakeTx) Commit() error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.commits++
	return nil
}

func (t fakeTx) Rollback() error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.rollbacks++
	return nil
}

type fakeStmt struct {
	db    *fakeSQL
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.execs = append(s.db.execs, fakeCall{query: s.query, args: args})
	if s.db.failExec == len(s.db.execs) {
		return nil, errors.New("insert failed")
	}
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.queries = append(s.db.queries, fakeCall{query: s.query, args: args})
	return &fakeRows{rows: s.db.rows}, nil
}

type fakeRows struct {
	rows [][]driver.Value
	next int
}

func (r *fakeRows) Columns() []string { return []string{"role", "content", "timestamp"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
