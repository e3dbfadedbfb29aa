package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"midnight", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "20240101_000000"},
		{"afternoon", time.Date(2015, 10, 6, 14, 7, 9, 0, time.UTC), "20151006_140709"},
		{"non-utc input", time.Date(2024, 1, 1, 2, 0, 0, 0, time.FixedZone("UTC+2", 2*3600)), "20240101_000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelFor(tt.in); got != tt.want {
				t.Errorf("LabelFor() = %q, want %q", got, tt.want)
			}
			if err := ValidateIdentifier(LabelFor(tt.in)); err != nil {
				t.Errorf("label should be a valid identifier: %v", err)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	at := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	if got := TableName("systemjumps", TableNamingFixed, at); got != "systemjumps" {
		t.Errorf("fixed mode = %q, want systemjumps", got)
	}
	if got := TableName("systemjumps", TableNamingPeriod, at); got != "systemjumps_03_2024" {
		t.Errorf("period mode = %q, want systemjumps_03_2024", got)
	}
	if got := TableName("systemjumps", "", at); got != "systemjumps" {
		t.Errorf("empty mode = %q, want fixed behavior", got)
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"systemjumps", "20240101_000000", "solarSystemID", "a"}
	for _, name := range valid {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"jumps; DROP TABLE systemjumps",
		"2024-01-01",
		"name with space",
		`quo"te`,
		"back`tick",
		"20240101_000000_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	for _, name := range invalid {
		err := ValidateIdentifier(name)
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("ValidateIdentifier(%q) = %v, want ErrInvalidIdentifier", name, err)
		}
	}
}

func TestPullResult_Helpers(t *testing.T) {
	p := PullResult{
		Entities: []Entity{
			{ID: "30000142", Value: 120},
			{ID: "30000144", Value: 5},
		},
		DataTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CurrentTime: time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC),
		CachedUntil: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}

	if p.Label() != "20240101_000000" {
		t.Errorf("Label() = %q", p.Label())
	}
	if p.CacheWindow() != 50*time.Minute {
		t.Errorf("CacheWindow() = %v, want 50m", p.CacheWindow())
	}
	if p.Total() != 125 {
		t.Errorf("Total() = %d, want 125", p.Total())
	}
}
