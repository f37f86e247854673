// Package severity maps alert-type identifiers to base severity values.
// The mapping is configuration data, not code: new alert types get a row in
// the settings file, unmapped types fall back to the configured default.
package severity

import (
	"shrike/internal/config"
)

type Table struct {
	values   map[string]int
	fallback int
}

func NewTable(fallback int, mapping map[string]int) *Table {
	values := make(map[string]int, len(mapping))
	for alertType, sev := range mapping {
		values[alertType] = sev
	}
	return &Table{values: values, fallback: fallback}
}

func FromConfig(cfg config.SeverityConfig) *Table {
	return NewTable(cfg.Default, cfg.Table)
}

// Severity returns the base severity in [0,100] for the given alert type.
func (t *Table) Severity(alertType string) int {
	if sev, ok := t.values[alertType]; ok {
		return sev
	}
	return t.fallback
}
