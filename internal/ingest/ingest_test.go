package ingest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
)

func pullAt(at time.Time, entities ...domain.Entity) domain.PullResult {
	return domain.PullResult{
		Entities:    entities,
		DataTime:    at,
		CurrentTime: at,
		CachedUntil: at.Add(time.Hour),
	}
}

func newTestIngestor(store Store) *Ingestor {
	return New(Config{TableName: "systemjumps", NamingMode: domain.TableNamingFixed}, store)
}

func TestIngest_EndToEndScenario(t *testing.T) {
	store := newMemStore()
	ing := newTestIngestor(store)
	ctx := context.Background()

	pull1 := pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.Entity{ID: "30000142", Value: 120},
		domain.Entity{ID: "30000144", Value: 5},
	)
	n, err := ing.Ingest(ctx, pull1)
	if err != nil {
		t.Fatalf("pull 1: %v", err)
	}
	if n != 2 {
		t.Errorf("pull 1 wrote %d rows, want 2", n)
	}

	table := store.table("systemjumps")
	if !reflect.DeepEqual(table.columns, []string{"20240101_000000"}) {
		t.Fatalf("columns after pull 1 = %v", table.columns)
	}

	pull2 := pullAt(time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
		domain.Entity{ID: "30000142", Value: 80},
		domain.Entity{ID: "30000199", Value: 3},
	)
	if _, err := ing.Ingest(ctx, pull2); err != nil {
		t.Fatalf("pull 2: %v", err)
	}

	if !reflect.DeepEqual(table.columns, []string{"20240101_000000", "20240101_020000"}) {
		t.Fatalf("columns after pull 2 = %v", table.columns)
	}

	want := []string{
		"30000142:20240101_000000=120",
		"30000142:20240101_020000=80",
		"30000144:20240101_000000=5",
		"30000144:20240101_020000=0",
		"30000199:20240101_000000=0",
		"30000199:20240101_020000=3",
	}
	if got := table.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("table contents:\n got %v\nwant %v", got, want)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	pull := pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.Entity{ID: "30000142", Value: 120},
		domain.Entity{ID: "30000144", Value: 5},
	)

	once := newMemStore()
	if _, err := newTestIngestor(once).Ingest(context.Background(), pull); err != nil {
		t.Fatal(err)
	}

	twice := newMemStore()
	ing := newTestIngestor(twice)
	for i := 0; i < 2; i++ {
		if _, err := ing.Ingest(context.Background(), pull); err != nil {
			t.Fatalf("ingest %d: %v", i+1, err)
		}
	}

	a := once.table("systemjumps")
	b := twice.table("systemjumps")
	if !reflect.DeepEqual(a.snapshot(), b.snapshot()) || !reflect.DeepEqual(a.columns, b.columns) {
		t.Errorf("re-ingest changed the table:\nonce  %v %v\ntwice %v %v", a.columns, a.snapshot(), b.columns, b.snapshot())
	}
	if len(b.rows) != 2 {
		t.Errorf("rows = %d, want 2 (no duplicates)", len(b.rows))
	}
}

func TestIngest_SchemaGrowth(t *testing.T) {
	store := newMemStore()
	ing := newTestIngestor(store)

	const pulls = 5
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for k := 0; k < pulls; k++ {
		id := []string{"30000142", "30000144", "30000199", "30002187", "30002659"}[k]
		seen[id] = true
		seen["30000142"] = true
		pull := pullAt(start.Add(time.Duration(k)*time.Hour),
			domain.Entity{ID: "30000142", Value: int64(k + 1)},
			domain.Entity{ID: id, Value: int64(10 * (k + 1))},
		)
		if _, err := ing.Ingest(context.Background(), pull); err != nil {
			t.Fatalf("pull %d: %v", k, err)
		}
	}

	table := store.table("systemjumps")
	if len(table.columns) != pulls {
		t.Errorf("value columns = %d, want %d", len(table.columns), pulls)
	}
	for id := range seen {
		if _, ok := table.rows[id]; !ok {
			t.Errorf("entity %s has no row", id)
		}
	}
	if len(table.rows) != len(seen) {
		t.Errorf("rows = %d, want %d", len(table.rows), len(seen))
	}
}

func TestIngest_NewEntityGetsSentinelHistory(t *testing.T) {
	store := newMemStore()
	ing := newTestIngestor(store)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for k := 0; k < 3; k++ {
		entities := []domain.Entity{{ID: "30000142", Value: 100}}
		if k == 2 {
			entities = append(entities, domain.Entity{ID: "30045328", Value: 7})
		}
		if _, err := ing.Ingest(context.Background(), pullAt(start.Add(time.Duration(k)*time.Hour), entities...)); err != nil {
			t.Fatalf("pull %d: %v", k, err)
		}
	}

	row := store.table("systemjumps").rows["30045328"]
	want := map[string]int64{
		"20240101_000000": 0,
		"20240101_010000": 0,
		"20240101_020000": 7,
	}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("new entity row = %v, want %v", row, want)
	}
}

func TestIngest_PeriodNaming(t *testing.T) {
	store := newMemStore()
	ing := New(Config{TableName: "systemjumps", NamingMode: domain.TableNamingPeriod}, store)

	jan := pullAt(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), domain.Entity{ID: "1", Value: 1})
	feb := pullAt(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), domain.Entity{ID: "1", Value: 2})

	for _, p := range []domain.PullResult{jan, feb} {
		if _, err := ing.Ingest(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}

	if store.table("systemjumps_01_2024") == nil || store.table("systemjumps_02_2024") == nil {
		t.Fatalf("expected one table per month, got %v", store.tables)
	}
	if cols := store.table("systemjumps_02_2024").columns; !reflect.DeepEqual(cols, []string{"20240201_000000"}) {
		t.Errorf("february columns = %v", cols)
	}
}

func TestIngest_RowFailuresAreIsolated(t *testing.T) {
	store := newMemStore()
	store.upsertErr["30000144"] = errors.New("deadlock detected")
	ing := newTestIngestor(store)

	pull := pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.Entity{ID: "30000142", Value: 120},
		domain.Entity{ID: "30000144", Value: 5},
		domain.Entity{ID: "30000199", Value: 3},
	)
	n, err := ing.Ingest(context.Background(), pull)
	if err == nil {
		t.Fatal("expected an error for the failed row")
	}
	if n != 2 {
		t.Errorf("rows written = %d, want 2", n)
	}

	var ie *Error
	if !errors.As(err, &ie) || ie.Step != StepUpsert || ie.Entity != "30000144" {
		t.Errorf("expected upsert error for 30000144, got %v", err)
	}
	if IsSchemaFailure(err) {
		t.Error("row failure must not be reported as a schema failure")
	}

	rows := store.table("systemjumps").rows
	if _, ok := rows["30000199"]; !ok {
		t.Error("rows after the failed one must still be written")
	}
}

func TestIngest_SchemaFailureStillWritesRows(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(s *memStore)
		wantStep Step
	}{
		{"table", func(s *memStore) { s.ensureTableErr = errors.New("permission denied for schema public") }, StepEnsureTable},
		{"column", func(s *memStore) { s.ensureColumnErr = errors.New("must be owner of table systemjumps") }, StepEnsureColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			// table and column already exist, created by someone with DDL rights
			if err := store.EnsureTable(context.Background(), "systemjumps"); err != nil {
				t.Fatal(err)
			}
			if err := store.EnsureColumn(context.Background(), "systemjumps", "20240101_000000"); err != nil {
				t.Fatal(err)
			}
			tt.setup(store)
			ing := newTestIngestor(store)

			n, err := ing.Ingest(context.Background(), pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				domain.Entity{ID: "30000142", Value: 120},
				domain.Entity{ID: "30000144", Value: 5},
			))
			if n != 2 {
				t.Errorf("rows written = %d, want 2", n)
			}
			var ie *Error
			if !errors.As(err, &ie) || ie.Step != tt.wantStep {
				t.Fatalf("expected %s failure, got %v", tt.wantStep, err)
			}
			if !IsSchemaFailure(err) {
				t.Error("IsSchemaFailure should be true")
			}
			if got := store.table("systemjumps").rows["30000142"]["20240101_000000"]; got != 120 {
				t.Errorf("30000142 = %d, want 120", got)
			}
		})
	}
}

func TestIngest_MissingTableFailsEveryRow(t *testing.T) {
	store := newMemStore()
	store.ensureTableErr = errors.New("permission denied for schema public")
	ing := newTestIngestor(store)

	n, err := ing.Ingest(context.Background(), pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.Entity{ID: "1", Value: 1},
		domain.Entity{ID: "2", Value: 2},
	))
	if n != 0 {
		t.Errorf("rows written = %d, want 0", n)
	}
	if !IsSchemaFailure(err) {
		t.Errorf("expected schema failure, got %v", err)
	}

	upserts := 0
	for _, c := range store.calls {
		if strings.HasPrefix(c, "upsert:") {
			upserts++
		}
	}
	if upserts != 2 {
		t.Errorf("upsert calls = %d, want 2 (every row is attempted)", upserts)
	}
}

func TestIsSchemaFailure_Wrapped(t *testing.T) {
	rowErr := &Error{Step: StepUpsert, Table: "t", Column: "c", Entity: "1", Err: errors.New("deadlock")}
	schemaErr := &Error{Step: StepEnsureColumn, Table: "t", Column: "c", Err: errors.New("denied")}

	if IsSchemaFailure(errors.Join(rowErr)) {
		t.Error("row failures alone are not schema failures")
	}
	if !IsSchemaFailure(fmt.Errorf("ingest 20240101_000000: %w", errors.Join(rowErr, schemaErr))) {
		t.Error("schema failure behind a wrapped join should be found")
	}
	if IsSchemaFailure(nil) {
		t.Error("nil is not a schema failure")
	}
}

func TestIngest_RejectsUnsafeTableName(t *testing.T) {
	store := newMemStore()
	ing := New(Config{TableName: "jumps; DROP TABLE users", NamingMode: domain.TableNamingFixed}, store)

	_, err := ing.Ingest(context.Background(), pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), domain.Entity{ID: "1", Value: 1}))
	if !errors.Is(err, domain.ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("no statement should be issued, got %v", store.calls)
	}
}

func TestIngest_CancelledContextStopsRows(t *testing.T) {
	store := newMemStore()
	ing := newTestIngestor(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := ing.Ingest(ctx, pullAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.Entity{ID: "1", Value: 1},
		domain.Entity{ID: "2", Value: 2},
	))
	if n != 0 {
		t.Errorf("rows written = %d, want 0", n)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
