package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"shrike/internal/config"
	"shrike/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

const defaultLookupTimeout = 3 * time.Second

// LiveProvider resolves geolocation from local GeoLite2 databases and
// reputation from an HTTP intelligence endpoint. Every failure path
// degrades to the documented default value; the returned error exists so
// callers can log the degradation, not to abort anything.
type LiveProvider struct {
	countryDB *geoip2.Reader
	cityDB    *geoip2.Reader
	asnDB     *geoip2.Reader

	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	denylist   *Denylist
}

func NewLiveProvider(cfg config.IntelConfig, denylist *Denylist) *LiveProvider {
	timeout := defaultLookupTimeout
	if cfg.LookupTimeoutMS > 0 {
		timeout = time.Duration(cfg.LookupTimeoutMS) * time.Millisecond
	}

	provider := &LiveProvider{
		endpoint:   cfg.ReputationEndpoint,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		denylist:   denylist,
	}

	provider.countryDB = openGeoLite(cfg.GeoLiteCountryPath, "country")
	provider.cityDB = openGeoLite(cfg.GeoLiteCityPath, "city")
	provider.asnDB = openGeoLite(cfg.GeoLiteASNPath, "asn")

	return provider
}

func openGeoLite(path, kind string) *geoip2.Reader {
	if path == "" {
		return nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		log.Warn("GeoLite database unavailable, lookups will return Unknown", "kind", kind, "path", path, "error", err)
		return nil
	}
	return reader
}

func (p *LiveProvider) Close() {
	for _, reader := range []*geoip2.Reader{p.countryDB, p.cityDB, p.asnDB} {
		if reader != nil {
			_ = reader.Close()
		}
	}
}

func (p *LiveProvider) Reputation(ctx context.Context, ip string) (domain.ReputationInfo, error) {
	if p.endpoint == "" {
		return domain.ReputationInfo{}, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s?ip=%s", p.endpoint, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(opCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.ReputationInfo{}, fmt.Errorf("intel: build reputation request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.ReputationInfo{}, fmt.Errorf("intel: reputation lookup for %q: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ReputationInfo{}, fmt.Errorf("intel: reputation lookup for %q: status %d", ip, resp.StatusCode)
	}

	var info domain.ReputationInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.ReputationInfo{}, fmt.Errorf("intel: decode reputation response: %w", err)
	}

	return info, nil
}

func (p *LiveProvider) Geo(_ context.Context, ip string) (domain.GeoInfo, error) {
	geo := domain.UnknownGeoInfo()

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return geo, nil
	}

	if p.countryDB != nil {
		if record, err := p.countryDB.Country(parsed); err == nil && record.Country.IsoCode != "" {
			geo.Country = record.Country.IsoCode
		}
	}

	if p.cityDB != nil {
		if record, err := p.cityDB.City(parsed); err == nil {
			if name := record.City.Names["en"]; name != "" {
				geo.City = name
			}
			if geo.Country == domain.UnknownGeo && record.Country.IsoCode != "" {
				geo.Country = record.Country.IsoCode
			}
		}
	}

	if p.asnDB != nil {
		if record, err := p.asnDB.ASN(parsed); err == nil && record.AutonomousSystemNumber != 0 {
			geo.ASN = fmt.Sprintf("AS%d", record.AutonomousSystemNumber)
		}
	}

	return geo, nil
}

func (p *LiveProvider) URLMalicious(_ context.Context, url string) (bool, error) {
	if p.denylist == nil {
		return false, nil
	}
	return p.denylist.Matches(url), nil
}
