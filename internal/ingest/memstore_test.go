package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/caeruleus1F/systemjumps/internal/domain"
)

// memStore models a table-per-name store with insert-or-update semantics.
type memStore struct {
	mu     sync.Mutex
	tables map[string]*memTable

	ensureTableErr  error
	ensureColumnErr error
	upsertErr       map[string]error // by entity id
	calls           []string
}

type memTable struct {
	columns []string
	rows    map[string]map[string]int64
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string]*memTable), upsertErr: make(map[string]error)}
}

func (s *memStore) EnsureTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "table:"+table)
	if s.ensureTableErr != nil {
		return s.ensureTableErr
	}
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = &memTable{rows: make(map[string]map[string]int64)}
	}
	return nil
}

func (s *memStore) EnsureColumn(ctx context.Context, table, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "column:"+column)
	if s.ensureColumnErr != nil {
		return s.ensureColumnErr
	}
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("table %s does not exist", table)
	}
	for _, c := range t.columns {
		if c == column {
			return nil
		}
	}
	t.columns = append(t.columns, column)
	for _, row := range t.rows {
		row[column] = 0
	}
	return nil
}

func (s *memStore) Upsert(ctx context.Context, table, column string, e domain.Entity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "upsert:"+e.ID)
	if err := s.upsertErr[e.ID]; err != nil {
		return 0, err
	}
	t, ok := s.tables[table]
	if !ok {
		return 0, errors.New("no such table")
	}
	row, ok := t.rows[e.ID]
	if !ok {
		row = make(map[string]int64, len(t.columns))
		for _, c := range t.columns {
			row[c] = 0
		}
		t.rows[e.ID] = row
		row[column] = e.Value
		return 1, nil
	}
	if row[column] == e.Value {
		return 0, nil
	}
	row[column] = e.Value
	return 2, nil
}

func (s *memStore) table(name string) *memTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[name]
}

// snapshot renders a table as sorted "id:col=value" strings.
func (t *memTable) snapshot() []string {
	var out []string
	for id, row := range t.rows {
		for _, c := range t.columns {
			out = append(out, fmt.Sprintf("%s:%s=%d", id, c, row[c]))
		}
	}
	sort.Strings(out)
	return out
}
