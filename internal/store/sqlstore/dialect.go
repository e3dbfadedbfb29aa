package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Driver names as registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
)

const (
	pgDuplicateColumn    = "42701"
	mysqlDuplicateColumn = 1060
)

// Dialect renders the three statements the ingestor needs. Identifiers passed
// in must already be validated; dialects only quote them.
type Dialect interface {
	Name() string
	Quote(ident string) string
	CreateTable(table, keyColumn string) string
	AddColumn(table, column string) string
	Upsert(table, keyColumn, column string) string
	IsDuplicateColumn(err error) bool
}

// DialectFor returns the dialect matching a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres, DriverPgx:
		return postgresDialect{}, nil
	case DriverMySQL:
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d postgresDialect) CreateTable(table, keyColumn string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(16) PRIMARY KEY)",
		d.Quote(table), d.Quote(keyColumn))
}

func (d postgresDialect) AddColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s BIGINT DEFAULT 0",
		d.Quote(table), d.Quote(column))
}

func (d postgresDialect) Upsert(table, keyColumn, column string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s",
		d.Quote(table), d.Quote(keyColumn), d.Quote(column),
		d.Quote(keyColumn), d.Quote(column), d.Quote(column))
}

func (postgresDialect) IsDuplicateColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgDuplicateColumn
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateColumn
	}
	return false
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d mysqlDialect) CreateTable(table, keyColumn string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s VARCHAR(16) PRIMARY KEY)",
		d.Quote(table), d.Quote(keyColumn))
}

// AddColumn has no IF NOT EXISTS on MySQL; a repeat fails with error 1060,
// which IsDuplicateColumn recognises.
func (d mysqlDialect) AddColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s BIGINT DEFAULT 0",
		d.Quote(table), d.Quote(column))
}

func (d mysqlDialect) Upsert(table, keyColumn, column string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON DUPLICATE KEY UPDATE %s = VALUES(%s)",
		d.Quote(table), d.Quote(keyColumn), d.Quote(column),
		d.Quote(column), d.Quote(column))
}

func (mysqlDialect) IsDuplicateColumn(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateColumn
	}
	return false
}
