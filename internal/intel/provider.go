// Package intel supplies threat-intelligence lookups: IP reputation,
// geolocation and URL verdicts. Absence of data is never an error; every
// lookup has a defined zero-value answer. Implementations must be safe for
// concurrent use.
package intel

import (
	"context"

	"shrike/internal/domain"
)

type Provider interface {
	// Reputation returns the reputation verdict for an IP. Unknown IPs get
	// the zero value: reputation 0, not a VPN, no threat types.
	Reputation(ctx context.Context, ip string) (domain.ReputationInfo, error)

	// Geo returns geolocation for an IP. Unknown IPs get "Unknown" for
	// every field.
	Geo(ctx context.Context, ip string) (domain.GeoInfo, error)

	// URLMalicious reports whether a URL matches the maintained deny-list.
	URLMalicious(ctx context.Context, url string) (bool, error)
}
