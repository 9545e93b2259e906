package repository

import (
	"context"
	"sync"

	"github.com/dalgona/diary/internal/database"
)

// ============================================================================
// Fake Database
// ============================================================================

type recordedCall struct {
	query string
	vars  map[string]interface{}
}

// fakeDB records every statement and answers with canned responses
type fakeDB struct {
	mu    sync.Mutex
	calls []recordedCall

	queryFn    func(query string, vars map[string]interface{}) ([]interface{}, error)
	queryOneFn func(query string, vars map[string]interface{}) (interface{}, error)
	executeErr error
}

func (f *fakeDB) record(query string, vars map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{query: query, vars: vars})
}

func (f *fakeDB) Connect(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                      { return nil }
func (f *fakeDB) Ping(ctx context.Context) error    { return nil }

func (f *fakeDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	f.record(query, vars)
	if f.queryFn != nil {
		return f.queryFn(query, vars)
	}
	return okResult(), nil
}

func (f *fakeDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	f.record(query, vars)
	if f.queryOneFn != nil {
		return f.queryOneFn(query, vars)
	}
	return nil, database.ErrNotFound
}

func (f *fakeDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	f.record(query, vars)
	return f.executeErr
}

func (f *fakeDB) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, database.ErrConnection
}

// okResult wraps rows the way SurrealDB.Query does
func okResult(rows ...interface{}) []interface{} {
	if rows == nil {
		rows = []interface{}{}
	}
	return []interface{}{map[string]interface{}{"status": "OK", "result": rows}}
}
