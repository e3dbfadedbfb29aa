// Package doccache keeps the last successfully fetched document on disk.
//
// The cache is single-slot: every Save replaces the previous document.
// Writes go through a temp file and rename, so a crash mid-write leaves
// either the old or the new document in place.
package doccache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
)

type Status string

const (
	StatusValid  Status = "valid"
	StatusStale  Status = "stale"
	StatusAbsent Status = "absent"
)

// ParseFunc turns a raw document into a pull.
type ParseFunc func(raw []byte) (domain.PullResult, error)

type Cache struct {
	path  string
	parse ParseFunc
	clock func() time.Time
}

func New(path string, parse ParseFunc) *Cache {
	return &Cache{
		path:  path,
		parse: parse,
		clock: time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *Cache) WithClock(clock func() time.Time) *Cache {
	c.clock = clock
	return c
}

func (c *Cache) Path() string {
	return c.path
}

// LoadIfValid returns the cached pull while now <= CachedUntil + margin.
// An unreadable or unparsable file reports StatusStale together with the
// cause, so the caller re-fetches.
func (c *Cache) LoadIfValid(margin time.Duration) (domain.PullResult, Status, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.PullResult{}, StatusAbsent, nil
		}
		return domain.PullResult{}, StatusStale, fmt.Errorf("read cache: %w", err)
	}

	pull, err := c.parse(raw)
	if err != nil {
		return domain.PullResult{}, StatusStale, fmt.Errorf("parse cache: %w", err)
	}

	if c.clock().UTC().After(pull.CachedUntil.Add(margin)) {
		return domain.PullResult{}, StatusStale, nil
	}
	return pull, StatusValid, nil
}

// Save atomically replaces the cached document with raw.
func (c *Cache) Save(raw []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
