// Package enrich assembles the threat-intelligence context for one alert.
package enrich

import (
	"context"

	"shrike/internal/domain"
	"shrike/internal/intel"
	"shrike/internal/severity"

	"github.com/charmbracelet/log"
)

// Assembler composes provider lookups and the severity table into a fully
// populated EnrichmentRecord. It never fails: a lookup error is replaced by
// the provider's defined default and logged as degraded enrichment.
type Assembler struct {
	provider intel.Provider
	severity *severity.Table
}

func NewAssembler(provider intel.Provider, table *severity.Table) *Assembler {
	return &Assembler{provider: provider, severity: table}
}

// Enrich tolerates any string input, including empty and malformed IPs.
// Recomputing with the same provider state yields the same record.
func (a *Assembler) Enrich(ctx context.Context, sourceIP, destinationIP, alertType, message string) domain.EnrichmentRecord {
	record := domain.EnrichmentRecord{
		SourceGeo:         domain.UnknownGeoInfo(),
		DestinationGeo:    domain.UnknownGeoInfo(),
		AlertTypeSeverity: a.severity.Severity(alertType),
	}

	if rep, err := a.provider.Reputation(ctx, sourceIP); err != nil {
		log.Warn("Degraded enrichment: reputation lookup failed", "ip", sourceIP, "error", err)
	} else {
		record.SourceReputation = rep
	}

	if geo, err := a.provider.Geo(ctx, sourceIP); err != nil {
		log.Warn("Degraded enrichment: source geo lookup failed", "ip", sourceIP, "error", err)
	} else {
		record.SourceGeo = geo
	}

	if geo, err := a.provider.Geo(ctx, destinationIP); err != nil {
		log.Warn("Degraded enrichment: destination geo lookup failed", "ip", destinationIP, "error", err)
	} else {
		record.DestinationGeo = geo
	}

	return record
}
