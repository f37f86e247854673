package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type Config struct {
	Scoring  ScoringConfig  `json:"scoring"`
	Severity SeverityConfig `json:"severity"`
	Intel    IntelConfig    `json:"intel"`
	Batch    BatchConfig    `json:"batch"`
}

// ScoringConfig carries every tunable of the risk model so the formula can
// be adjusted without a redeploy.
type ScoringConfig struct {
	Weights           Weights            `json:"weights"`
	Priority          PriorityThresholds `json:"priority"`
	HighRiskCountries []string           `json:"high_risk_countries"`
	Keywords          []string           `json:"keywords"`
}

type Weights struct {
	Severity    float64 `json:"severity"`
	Reputation  float64 `json:"reputation"`
	GeoHighRisk float64 `json:"geo_high_risk"`
	GeoUnknown  float64 `json:"geo_unknown"`
	VPN         float64 `json:"vpn"`
	Message     float64 `json:"message"`
}

type PriorityThresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

type SeverityConfig struct {
	Default int            `json:"default"`
	Table   map[string]int `json:"table"`
}

type IntelConfig struct {
	StaticTablePath    string   `json:"static_table_path"`
	GeoLiteCountryPath string   `json:"geolite_country_path"`
	GeoLiteCityPath    string   `json:"geolite_city_path"`
	GeoLiteASNPath     string   `json:"geolite_asn_path"`
	ReputationEndpoint string   `json:"reputation_endpoint"`
	LookupTimeoutMS    uint32   `json:"lookup_timeout_ms"`
	CacheTTLMinutes    uint32   `json:"cache_ttl_minutes"`
	MaliciousDomains   []string `json:"malicious_domains"`
}

type BatchConfig struct {
	Workers uint32 `json:"workers"`
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	cfg, err := parseConfig(defaultConfig)
	if err != nil {
		// The embedded defaults are part of the binary; this only trips
		// when the checked-in JSON is broken.
		panic(fmt.Sprintf("config: invalid embedded defaults: %v", err))
	}
	configValue.Store(cfg)
}

// ReadSettings loads the settings file, creating it from the embedded
// defaults on first run. An invalid file is a configuration error the
// caller should treat as fatal, not something to score alerts with.
func ReadSettings() error {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			if err := os.MkdirAll("data", os.ModePerm); err != nil {
				return fmt.Errorf("config: create settings directory: %w", err)
			}

			if err := os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm); err != nil {
				return fmt.Errorf("config: write default settings file: %w", err)
			}

			data = defaultConfig
		} else {
			return fmt.Errorf("config: read settings file: %w", err)
		}
	}

	newConfig, err := parseConfig(data)
	if err != nil {
		return fmt.Errorf("config: unmarshal settings file: %w", err)
	}

	if err := applyConfigUpdate(newConfig, configUpdateOptions{source: "file"}); err != nil {
		return err
	}

	log.Debug("Settings file loaded successfully")
	return nil
}

func SetConfig(newConfig Config) error {
	if err := applyConfigUpdate(newConfig, configUpdateOptions{persistToFile: true, broadcast: true, source: "local"}); err != nil {
		log.Error("Error applying configuration update:", err)
		return err
	}

	log.Debug("Configuration updated and written to file successfully")
	return nil
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type configUpdateOptions struct {
	persistToFile bool
	broadcast     bool
	source        string
}

func applyConfigUpdate(newConfig Config, opts configUpdateOptions) error {
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("config: rejecting update from %s: %w", opts.source, err)
	}

	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)

	var errs []error

	if opts.persistToFile {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			log.Error("Error marshalling new configuration:", err)
			errs = append(errs, err)
		} else if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
			log.Error("Error writing new configuration to file:", err)
			errs = append(errs, err)
		}
	}

	if opts.broadcast {
		payload, err := json.Marshal(newConfig)
		if err != nil {
			log.Error("Error serializing configuration for broadcast:", err)
			errs = append(errs, err)
		} else if err := broadcastConfigUpdate(payload); err != nil {
			log.Error("Error broadcasting configuration update:", err)
			errs = append(errs, err)
		}
	}

	if opts.source != "" {
		log.Debug("Configuration applied", "source", opts.source)
	}

	return errors.Join(errs...)
}

// Validate rejects configurations that would make scoring misbehave.
// Called on every update path; a failure at startup is fatal in bootstrap.
func (c Config) Validate() error {
	var errs []error

	p := c.Scoring.Priority
	if p.High < 0 || p.High > 100 {
		errs = append(errs, fmt.Errorf("priority high threshold %.2f outside [0,100]", p.High))
	}
	if p.Medium < 0 || p.Medium > 100 {
		errs = append(errs, fmt.Errorf("priority medium threshold %.2f outside [0,100]", p.Medium))
	}
	if p.Medium > p.High {
		errs = append(errs, fmt.Errorf("priority thresholds not monotonic: medium %.2f > high %.2f", p.Medium, p.High))
	}

	w := c.Scoring.Weights
	for name, value := range map[string]float64{
		"severity":      w.Severity,
		"reputation":    w.Reputation,
		"geo_high_risk": w.GeoHighRisk,
		"geo_unknown":   w.GeoUnknown,
		"vpn":           w.VPN,
		"message":       w.Message,
	} {
		if value < 0 {
			errs = append(errs, fmt.Errorf("scoring weight %s is negative: %f", name, value))
		}
	}

	if c.Severity.Default < 0 || c.Severity.Default > 100 {
		errs = append(errs, fmt.Errorf("default severity %d outside [0,100]", c.Severity.Default))
	}
	for alertType, severity := range c.Severity.Table {
		if severity < 0 || severity > 100 {
			errs = append(errs, fmt.Errorf("severity for %q is %d, outside [0,100]", alertType, severity))
		}
	}

	return errors.Join(errs...)
}
