// Package testutil provides shared test helpers for systemjumps.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// JumpsDocument renders a Jumps.xml document the way the EVE API lays it out.
func JumpsDocument(dataTime, currentTime, cachedUntil time.Time, entities ...domain.Entity) []byte {
	const layout = "2006-01-02 15:04:05"

	var b strings.Builder
	b.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	b.WriteString("<eveapi version=\"2\">\n")
	fmt.Fprintf(&b, "  <currentTime>%s</currentTime>\n", currentTime.UTC().Format(layout))
	b.WriteString("  <result>\n")
	b.WriteString("    <rowset name=\"solarSystems\" key=\"solarSystemID\" columns=\"solarSystemID,shipJumps\">\n")
	for _, e := range entities {
		fmt.Fprintf(&b, "      <row solarSystemID=\"%s\" shipJumps=\"%d\" />\n", e.ID, e.Value)
	}
	b.WriteString("    </rowset>\n")
	fmt.Fprintf(&b, "    <dataTime>%s</dataTime>\n", dataTime.UTC().Format(layout))
	b.WriteString("  </result>\n")
	fmt.Fprintf(&b, "  <cachedUntil>%s</cachedUntil>\n", cachedUntil.UTC().Format(layout))
	b.WriteString("</eveapi>\n")
	return []byte(b.String())
}
