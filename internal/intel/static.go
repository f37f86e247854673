package intel

import (
	_ "embed"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"shrike/internal/domain"
)

//go:embed static_tables.json
var defaultStaticTables []byte

// StaticTables is the on-disk format for a deterministic lookup table.
type StaticTables struct {
	Reputation map[string]domain.ReputationInfo `json:"reputation"`
	Geo        map[string]domain.GeoInfo        `json:"geo"`
}

// StaticProvider answers lookups from fixed in-memory tables. It never
// fails and never touches the network, which makes scoring runs fully
// reproducible.
type StaticProvider struct {
	tables   StaticTables
	denylist *Denylist
}

func NewStaticProvider(tables StaticTables, denylist *Denylist) *StaticProvider {
	return &StaticProvider{tables: tables, denylist: denylist}
}

// DefaultStaticProvider uses the embedded tables, optionally replaced by a
// JSON file so operators can swap fixtures without a rebuild.
func DefaultStaticProvider(tablePath string, denylist *Denylist) (*StaticProvider, error) {
	data := defaultStaticTables
	if tablePath != "" {
		fileData, err := os.ReadFile(tablePath)
		if err != nil {
			return nil, fmt.Errorf("intel: read static tables %q: %w", tablePath, err)
		}
		data = fileData
	}

	var tables StaticTables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("intel: parse static tables: %w", err)
	}

	return NewStaticProvider(tables, denylist), nil
}

func (p *StaticProvider) Reputation(_ context.Context, ip string) (domain.ReputationInfo, error) {
	if info, ok := p.tables.Reputation[ip]; ok {
		return info, nil
	}
	return domain.ReputationInfo{}, nil
}

func (p *StaticProvider) Geo(_ context.Context, ip string) (domain.GeoInfo, error) {
	if geo, ok := p.tables.Geo[ip]; ok {
		return geo, nil
	}
	return domain.UnknownGeoInfo(), nil
}

func (p *StaticProvider) URLMalicious(_ context.Context, url string) (bool, error) {
	if p.denylist == nil {
		return false, nil
	}
	return p.denylist.Matches(url), nil
}
