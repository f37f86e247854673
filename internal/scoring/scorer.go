// Package scoring implements the risk model: a weighted additive score over
// an alert's enrichment context and a priority tier derived from it. Pure
// computation, no I/O, no hidden state.
package scoring

import (
	"math"
	"strings"

	"shrike/internal/config"
	"shrike/internal/domain"
)

const (
	// Each keyword found in the message adds this much to the message
	// sub-score, which is capped before the message weight applies.
	keywordHitWeight = 15
	messageRiskCap   = 100

	maxScore = 100
)

// Model is an immutable snapshot of the scoring configuration. Build a new
// one after a config change; in-flight scorings keep their snapshot.
type Model struct {
	weights    config.Weights
	thresholds config.PriorityThresholds
	highRisk   map[string]struct{}
	keywords   []string
}

func NewModel(cfg config.ScoringConfig) *Model {
	highRisk := make(map[string]struct{}, len(cfg.HighRiskCountries))
	for _, country := range cfg.HighRiskCountries {
		highRisk[country] = struct{}{}
	}

	keywords := make([]string, 0, len(cfg.Keywords))
	for _, keyword := range cfg.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}

	return &Model{
		weights:    cfg.Weights,
		thresholds: cfg.Priority,
		highRisk:   highRisk,
		keywords:   keywords,
	}
}

// Score sums five independent contributions and clamps to [0,100]:
// alert-type severity, source reputation, source geolocation, the VPN flag
// and message keyword risk. The raw IPs and alert type are already folded
// into the enrichment record; only the message is inspected directly.
func (m *Model) Score(sourceIP, destinationIP, alertType, message string, enrichment domain.EnrichmentRecord) float64 {
	w := m.weights

	score := float64(enrichment.AlertTypeSeverity) * w.Severity

	score += float64(enrichment.SourceReputation.Reputation) / 100 * w.Reputation

	country := enrichment.SourceGeo.Country
	if _, ok := m.highRisk[country]; ok {
		score += w.GeoHighRisk
	} else if country == domain.UnknownGeo {
		score += w.GeoUnknown
	}

	if enrichment.SourceReputation.IsVPN {
		score += w.VPN
	}

	score += m.messageRisk(message) * w.Message

	return clamp(score, 0, maxScore)
}

// messageRisk counts which keywords appear in the message. Presence per
// keyword, not occurrences: a keyword repeated ten times still counts once.
func (m *Model) messageRisk(message string) float64 {
	if message == "" {
		return 0
	}

	lowered := strings.ToLower(message)
	hits := 0
	for _, keyword := range m.keywords {
		if strings.Contains(lowered, keyword) {
			hits++
		}
	}

	return math.Min(float64(hits)*keywordHitWeight, messageRiskCap)
}

// AssignPriority maps a risk score to its triage tier. Boundary values
// belong to the higher tier.
func (m *Model) AssignPriority(riskScore float64) domain.Priority {
	switch {
	case riskScore >= m.thresholds.High:
		return domain.PriorityHigh
	case riskScore >= m.thresholds.Medium:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Round2 trims a score to two decimals for display and export.
func Round2(score float64) float64 {
	return math.Round(score*100) / 100
}

func clamp(value, lower, upper float64) float64 {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
