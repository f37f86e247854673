package bootstrap

import (
	"strings"
	"time"

	"shrike/internal/config"
	"shrike/internal/database"
	"shrike/internal/intel"
	"shrike/internal/support"

	"github.com/charmbracelet/log"
)

// Setup loads configuration, opens the database and assembles the intel
// provider chain. A broken settings file or unreachable database is fatal;
// scoring with half a configuration helps nobody.
func Setup() (*database.AlertStore, intel.Provider, error) {
	if err := config.ReadSettings(); err != nil {
		return nil, nil, err
	}

	db, err := database.SetupDB()
	if err != nil {
		return nil, nil, err
	}

	return database.NewAlertStore(db), buildProvider(), nil
}

func buildProvider() intel.Provider {
	cfg := config.GetConfig()
	denylist := intel.NewDenylist(cfg.Intel.MaliciousDomains)

	var inner intel.Provider
	if strings.EqualFold(support.GetEnv("INTEL_PROVIDER", "static"), "live") {
		inner = intel.NewLiveProvider(cfg.Intel, denylist)
	} else {
		static, err := intel.DefaultStaticProvider(cfg.Intel.StaticTablePath, denylist)
		if err != nil {
			log.Warn("Falling back to embedded intel tables", "error", err)
			static, _ = intel.DefaultStaticProvider("", denylist)
		}
		inner = static
	}

	client, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, intel cache runs in-process only", "error", err)
		client = nil
	}

	ttl := time.Duration(cfg.Intel.CacheTTLMinutes) * time.Minute
	return intel.NewCachedProvider(inner, client, ttl)
}
