package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/ingest"
)

// KeyColumn is the primary key of every jumps table.
const KeyColumn = "solarSystemID"

const defaultOpTimeout = 5 * time.Second

// Store implements ingest.Store on any database/sql handle.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	opTimeout time.Duration
}

// New creates a store. Each statement runs under opTimeout (5s if zero).
func New(db *sql.DB, dialect Dialect, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Store{db: db, dialect: dialect, opTimeout: opTimeout}
}

// EnsureTable creates table with the entity key column if it does not exist.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	if err := validate(table, KeyColumn); err != nil {
		return err
	}
	_, err := s.exec(ctx, s.dialect.CreateTable(table, KeyColumn))
	return err
}

// EnsureColumn adds column to table with a default of 0. A column that
// already exists is not an error.
func (s *Store) EnsureColumn(ctx context.Context, table, column string) error {
	if err := validate(table, column); err != nil {
		return err
	}
	_, err := s.exec(ctx, s.dialect.AddColumn(table, column))
	if err != nil && s.dialect.IsDuplicateColumn(err) {
		return nil
	}
	return err
}

// Upsert writes e.Value into column for e.ID, inserting the row if needed.
func (s *Store) Upsert(ctx context.Context, table, column string, e domain.Entity) (int64, error) {
	if err := validate(table, KeyColumn, column); err != nil {
		return 0, err
	}
	return s.exec(ctx, s.dialect.Upsert(table, KeyColumn, column), e.ID, e.Value)
}

// Rows reads up to limit rows of table ordered by the key column. NULL cells
// come back as empty strings.
func (s *Store) Rows(ctx context.Context, table string, limit int) ([]string, [][]string, error) {
	if err := validate(table, KeyColumn); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		return nil, nil, fmt.Errorf("sqlstore: limit must be positive, got %d", limit)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d",
		s.dialect.Quote(table), s.dialect.Quote(KeyColumn), limit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(columns))
		for i, c := range cells {
			row[i] = c.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		// Some drivers cannot report it; the statement itself succeeded.
		return 0, nil
	}
	return n, nil
}

func validate(idents ...string) error {
	for _, ident := range idents {
		if err := domain.ValidateIdentifier(ident); err != nil {
			return fmt.Errorf("sqlstore: %w", err)
		}
	}
	return nil
}

// Compile-time interface assertion
var _ ingest.Store = (*Store)(nil)
