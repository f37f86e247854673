package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"shrike/internal/app/bootstrap"
	"shrike/internal/app/server"
	"shrike/internal/config"
	"shrike/internal/database"
	"shrike/internal/domain"
	"shrike/internal/enrich"
	"shrike/internal/export"
	"shrike/internal/ingest"
	"shrike/internal/intel"
	"shrike/internal/jobs/batch"
	jobruntime "shrike/internal/jobs/runtime"
	"shrike/internal/scoring"
	"shrike/internal/severity"
	"shrike/internal/support"
)

const defaultBackendPort = 8080

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	log.SetLevel(log.DebugLevel)

	portFlag := flag.Int("port", defaultBackendPort, "Port for API server")
	ingestFlag := flag.String("ingest", "", "Ingest and score a batch file, export the results and exit")
	exportDirFlag := flag.String("export-dir", "data", "Directory for pipeline export files")
	flag.Parse()

	port := resolvePort("PORT", "BACKEND_PORT", *portFlag)

	ctx := context.Background()

	store, provider, err := bootstrap.Setup()
	if err != nil {
		return err
	}

	if client, redisErr := support.GetRedisClient(); redisErr != nil {
		log.Warn("Redis unavailable, configuration sync and heartbeat disabled", "error", redisErr)
	} else {
		config.EnableRedisSynchronization(ctx, client)

		heartbeatCancel := jobruntime.LaunchInstanceHeartbeat(ctx, client)
		defer heartbeatCancel()

		defer func() {
			if err := support.CloseRedisClient(); err != nil {
				log.Warn("error closing redis client", "error", err)
			}
		}()
	}

	if *ingestFlag != "" {
		return runPipeline(ctx, store, provider, *ingestFlag, *exportDirFlag)
	}

	server.Configure(store, provider)
	return server.OpenRoutes(port)
}

// runPipeline is the one-shot mode: ingest a batch file, score everything
// in the store, export CSV and JSON snapshots and log a summary.
func runPipeline(ctx context.Context, store *database.AlertStore, provider intel.Provider, path, exportDir string) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		_, err = ingest.FromCSV(ctx, store, path)
	case ".json":
		_, err = ingest.FromJSON(ctx, store, path)
	default:
		return fmt.Errorf("unsupported batch file %q, expected .csv or .json", path)
	}
	if err != nil {
		return err
	}

	alerts, err := store.GetAllAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load alerts for scoring: %w", err)
	}

	cfg := config.GetConfig()
	assembler := enrich.NewAssembler(provider, severity.FromConfig(cfg.Severity))
	engine := batch.NewEngine(store, assembler, scoring.NewModel(cfg.Scoring), int(cfg.Batch.Workers))
	_, summary := engine.ScoreBatch(ctx, alerts)

	scored, err := store.GetAllAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load alerts for export: %w", err)
	}

	csvPath := filepath.Join(exportDir, "enriched_alerts.csv")
	if err := export.ToCSVFile(csvPath, scored); err != nil {
		return err
	}
	jsonPath := filepath.Join(exportDir, "enriched_alerts.json")
	if err := export.ToJSONFile(jsonPath, scored); err != nil {
		return err
	}

	counts, err := store.CountAlertsByPriority(ctx)
	if err != nil {
		return fmt.Errorf("summarize priorities: %w", err)
	}

	log.Info("Batch pipeline finished",
		"total", summary.Total,
		"scored", summary.Scored,
		"failed", summary.Failed,
		"average", scoring.Round2(summary.AverageScore),
		"high", counts[domain.PriorityHigh],
		"medium", counts[domain.PriorityMedium],
		"low", counts[domain.PriorityLow],
		"csv", csvPath,
		"json", jsonPath)

	return nil
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
