package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/store/sqlstore"
)

// periodSuffixLen is the length of "_MM_YYYY".
const periodSuffixLen = 8

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// Either a full URL or the parts to build one
	if cfg.DatabaseURL == "" && (cfg.DBHost == "" || cfg.DBName == "") {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "required (or set DB_HOST and DB_NAME)",
		})
	}

	if _, err := sqlstore.DialectFor(cfg.DBDriver); err != nil {
		errs = append(errs, ValidationError{
			Field:   "DB_DRIVER",
			Message: fmt.Sprintf("must be 'postgres', 'pgx' or 'mysql', got %q", cfg.DBDriver),
		})
	}

	if u, err := url.Parse(cfg.SourceURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "SOURCE_URL",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", cfg.SourceURL),
		})
	}

	if cfg.CachePath == "" {
		errs = append(errs, ValidationError{Field: "CACHE_PATH", Message: "required"})
	}

	errs = checkDuration(errs, "SAFETY_MARGIN", cfg.SafetyMarginStr, true)
	errs = checkDuration(errs, "RETRY_INTERVAL", cfg.RetryIntervalStr, false)
	errs = checkDuration(errs, "FETCH_TIMEOUT", cfg.FetchTimeoutStr, false)
	errs = checkDuration(errs, "DB_OP_TIMEOUT", cfg.DBOpTimeoutStr, false)
	errs = checkDuration(errs, "HISTORY_RETENTION", cfg.HistoryRetentionStr, false)

	mode := domain.TableNamingMode(cfg.TableNamingMode)
	if mode != domain.TableNamingFixed && mode != domain.TableNamingPeriod {
		errs = append(errs, ValidationError{
			Field:   "TABLE_NAMING_MODE",
			Message: fmt.Sprintf("must be 'fixed' or 'period', got %q", cfg.TableNamingMode),
		})
	}

	if err := domain.ValidateIdentifier(cfg.TableName); err != nil {
		errs = append(errs, ValidationError{
			Field:   "TABLE_NAME",
			Message: "must be 1-63 letters, digits or underscores",
		})
	} else if mode == domain.TableNamingPeriod && len(cfg.TableName)+periodSuffixLen > 63 {
		errs = append(errs, ValidationError{
			Field:   "TABLE_NAME",
			Message: fmt.Sprintf("must be at most %d characters in period mode", 63-periodSuffixLen),
		})
	}

	if cfg.MetricsEnabled && (cfg.MetricsPort < 1 || cfg.MetricsPort > 65535) {
		errs = append(errs, ValidationError{
			Field:   "METRICS_PORT",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.MetricsPort),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkDuration(errs ValidationErrors, field, value string, allowZero bool) ValidationErrors {
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	}
	if d < 0 || (d == 0 && !allowZero) {
		msg := "must be positive"
		if allowZero {
			msg = "must not be negative"
		}
		return append(errs, ValidationError{Field: field, Message: msg})
	}
	return errs
}
