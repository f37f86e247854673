package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const UnknownGeo = "Unknown"

// ReputationInfo is the threat-intelligence verdict for one IP address.
// The zero value is the documented "no data" answer for unknown IPs.
type ReputationInfo struct {
	Reputation  int      `json:"reputation"`
	IsVPN       bool     `json:"is_vpn"`
	ThreatTypes []string `json:"threat_types"`
}

type GeoInfo struct {
	Country string `json:"country"`
	City    string `json:"city"`
	ASN     string `json:"asn"`
}

// UnknownGeoInfo is the defined answer when geolocation has no data.
func UnknownGeoInfo() GeoInfo {
	return GeoInfo{Country: UnknownGeo, City: UnknownGeo, ASN: UnknownGeo}
}

// EnrichmentRecord is the fully populated context attached to an alert
// before scoring. Every field is always set; lookups that found nothing
// contribute their defined defaults instead of leaving gaps.
type EnrichmentRecord struct {
	SourceReputation  ReputationInfo `json:"source_reputation"`
	SourceGeo         GeoInfo        `json:"source_geo"`
	DestinationGeo    GeoInfo        `json:"destination_geo"`
	AlertTypeSeverity int            `json:"alert_type_severity"`
}

// Value implements driver.Valuer so the record persists as a JSON column.
func (e EnrichmentRecord) Value() (driver.Value, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Scan implements sql.Scanner to hydrate the record from the database.
func (e *EnrichmentRecord) Scan(value any) error {
	if value == nil {
		*e = EnrichmentRecord{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return e.unmarshal(v)
	case string:
		return e.unmarshal([]byte(v))
	default:
		return fmt.Errorf("domain.EnrichmentRecord: unsupported type %T", value)
	}
}

func (e *EnrichmentRecord) unmarshal(data []byte) error {
	if len(data) == 0 {
		*e = EnrichmentRecord{}
		return nil
	}
	return json.Unmarshal(data, e)
}
