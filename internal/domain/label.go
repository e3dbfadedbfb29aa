package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// LabelLayout formats a pull timestamp as yyyyMMdd_HHmmss.
const LabelLayout = "20060102_150405"

var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,63}$`)

type TableNamingMode string

const (
	TableNamingFixed  TableNamingMode = "fixed"
	TableNamingPeriod TableNamingMode = "period"
)

// LabelFor returns the pull label for t, always in UTC.
func LabelFor(t time.Time) string {
	return t.UTC().Format(LabelLayout)
}

// TableName returns the destination table for a pull at t.
// Period mode appends the UTC calendar month as _MM_YYYY.
func TableName(base string, mode TableNamingMode, t time.Time) string {
	if mode != TableNamingPeriod {
		return base
	}
	t = t.UTC()
	return fmt.Sprintf("%s_%02d_%d", base, int(t.Month()), t.Year())
}

// ValidateIdentifier accepts 1-63 ASCII letters, digits and underscores.
// Dialects still quote the name; this keeps quoting from ever needing escapes.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}
