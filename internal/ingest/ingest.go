// Package ingest merges one pull into the jumps table as a new column.
//
// Ingestion runs three steps: make sure the table exists, add the pull's
// column, then upsert every entity into that column. The steps are not
// wrapped in a transaction. A failed table or column step is recorded but
// the rows are still attempted, since the table and column may already
// exist for a user without DDL rights. A failed row is recorded and the
// remaining rows are still written. Re-ingesting the same pull leaves the
// table unchanged.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/metrics"
)

type Step string

const (
	StepEnsureTable  Step = metrics.StepEnsureTable
	StepEnsureColumn Step = metrics.StepEnsureColumn
	StepUpsert       Step = "upsert"
)

// Error reports which step failed and, for upserts, which entity.
type Error struct {
	Step   Step
	Table  string
	Column string
	Entity string
	Err    error
}

func (e *Error) Error() string {
	if e.Step == StepUpsert {
		return fmt.Sprintf("%s %s.%s id=%s: %v", e.Step, e.Table, e.Column, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Step, e.Table, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsSchemaFailure reports whether err includes a failed table or column step.
func IsSchemaFailure(err error) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		if e.Step != StepUpsert {
			return true
		}
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsSchemaFailure(inner) {
				return true
			}
		}
		return false
	}
	return IsSchemaFailure(errors.Unwrap(err))
}

type Store interface {
	EnsureTable(ctx context.Context, table string) error
	EnsureColumn(ctx context.Context, table, column string) error
	Upsert(ctx context.Context, table, column string, e domain.Entity) (int64, error)
}

type Config struct {
	TableName  string
	NamingMode domain.TableNamingMode
}

type Ingestor struct {
	config  Config
	store   Store
	metrics metrics.Sink
}

func New(config Config, store Store) *Ingestor {
	return &Ingestor{
		config:  config,
		store:   store,
		metrics: metrics.NewNoopSink(),
	}
}

// WithMetrics attaches a metrics sink to the ingestor.
func (i *Ingestor) WithMetrics(sink metrics.Sink) *Ingestor {
	i.metrics = sink
	return i
}

// Table returns the destination table for pull under the configured naming mode.
func (i *Ingestor) Table(pull domain.PullResult) string {
	return domain.TableName(i.config.TableName, i.config.NamingMode, pull.DataTime)
}

// Ingest writes pull and returns the number of rows written. The returned
// error joins every schema and row failure.
func (i *Ingestor) Ingest(ctx context.Context, pull domain.PullResult) (int, error) {
	table := i.Table(pull)
	column := pull.Label()

	if err := domain.ValidateIdentifier(table); err != nil {
		return 0, i.schemaFailure(&Error{Step: StepEnsureTable, Table: table, Err: err})
	}
	if err := domain.ValidateIdentifier(column); err != nil {
		return 0, i.schemaFailure(&Error{Step: StepEnsureColumn, Table: table, Column: column, Err: err})
	}

	var (
		written int
		errs    []error
	)

	if err := i.store.EnsureTable(ctx, table); err != nil {
		errs = append(errs, i.schemaFailure(&Error{Step: StepEnsureTable, Table: table, Err: err}))
	}
	if err := i.store.EnsureColumn(ctx, table, column); err != nil {
		errs = append(errs, i.schemaFailure(&Error{Step: StepEnsureColumn, Table: table, Column: column, Err: err}))
	}
	schemaErrs := len(errs)
	for _, e := range pull.Entities {
		if ctx.Err() != nil {
			errs = append(errs, &Error{Step: StepUpsert, Table: table, Column: column, Entity: e.ID, Err: ctx.Err()})
			break
		}
		if _, err := i.store.Upsert(ctx, table, column, e); err != nil {
			errs = append(errs, &Error{Step: StepUpsert, Table: table, Column: column, Entity: e.ID, Err: err})
			continue
		}
		written++
	}

	i.metrics.RowsUpserted(written)
	if rowErrs := len(errs) - schemaErrs; rowErrs > 0 {
		i.metrics.UpsertFailures(rowErrs)
		log.Printf("ingest: %s.%s: %d of %d rows failed, first: %v", table, column, rowErrs, len(pull.Entities), errs[schemaErrs])
	}
	if len(errs) > 0 {
		return written, errors.Join(errs...)
	}
	return written, nil
}

func (i *Ingestor) schemaFailure(err *Error) error {
	i.metrics.SchemaFailure(string(err.Step))
	log.Printf("ingest: schema failure: %v", err)
	return err
}
