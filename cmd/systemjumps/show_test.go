package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	columns := []string{"solarSystemID", "20240101_000000"}
	rows := [][]string{
		{"30000142", "120"},
		{"30000144", ""},
	}

	if err := printRows(&buf, columns, rows); err != nil {
		t.Fatalf("printRows: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want header + 2 rows", lines)
	}
	if !strings.HasPrefix(lines[0], "solarSystemID") || !strings.Contains(lines[0], "20240101_000000") {
		t.Errorf("header = %q", lines[0])
	}
	// values line up under their header
	col := strings.Index(lines[0], "20240101_000000")
	if got := strings.Index(lines[1], "120"); got != col {
		t.Errorf("value column at %d, header at %d", got, col)
	}
}

func TestPrintRows_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printRows(&buf, []string{"solarSystemID"}, nil); err != nil {
		t.Fatalf("printRows: %v", err)
	}
	if !strings.Contains(buf.String(), "(no rows)") {
		t.Errorf("output = %q, want (no rows) marker", buf.String())
	}
}

func TestShowCmd_Flags(t *testing.T) {
	if f := showCmd.Flags().Lookup("limit"); f == nil || f.DefValue != "20" {
		t.Errorf("limit flag = %+v", f)
	}
	if showCmd.Flags().Lookup("table") == nil {
		t.Error("missing --table flag")
	}
}
