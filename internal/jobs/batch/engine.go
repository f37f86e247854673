// Package batch drives the scoring of a set of alerts: enrich, score,
// persist, one result per input alert, in input order.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shrike/internal/domain"
	"shrike/internal/enrich"
	"shrike/internal/metrics"
	"shrike/internal/scoring"

	"github.com/charmbracelet/log"
)

// Store is the slice of the record store the engine needs: a single
// overwrite of the scoring fields, keyed by alert id.
type Store interface {
	UpdateAlertScoring(ctx context.Context, id uint64, riskScore float64, priority domain.Priority, enrichment domain.EnrichmentRecord) error
}

// Result is the outcome for one alert. Error is the failure marker; when it
// is empty the alert was scored and persisted.
type Result struct {
	AlertID    uint64                  `json:"alert_id"`
	RiskScore  float64                 `json:"risk_score"`
	Priority   domain.Priority         `json:"priority,omitempty"`
	Enrichment domain.EnrichmentRecord `json:"enrichment"`
	Error      string                  `json:"error,omitempty"`
}

func (r Result) Failed() bool {
	return r.Error != ""
}

type Summary struct {
	Total        int     `json:"total"`
	Scored       int     `json:"scored"`
	Failed       int     `json:"failed"`
	AverageScore float64 `json:"average_score"`
}

type Engine struct {
	store     Store
	assembler *enrich.Assembler
	model     *scoring.Model
	workers   int
}

func NewEngine(store Store, assembler *enrich.Assembler, model *scoring.Model, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		store:     store,
		assembler: assembler,
		model:     model,
		workers:   workers,
	}
}

// ScoreBatch scores every alert with a bounded worker pool. Alerts are
// independent, so interleaving does not affect outcomes; the result slice
// matches the input order for deterministic output. A cancelled context
// stops submission, marking the remaining alerts as failed; in-flight
// alerts finish normally.
func (e *Engine) ScoreBatch(ctx context.Context, alerts []domain.Alert) ([]Result, Summary) {
	start := time.Now()

	results := make([]Result, len(alerts))
	semaphore := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i := range alerts {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(alerts); j++ {
				results[j] = Result{AlertID: alerts[j].ID, Error: fmt.Sprintf("batch cancelled: %v", err)}
			}
			break
		}

		semaphore <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results[idx] = e.scoreOne(ctx, alerts[idx])
		}(i)
	}

	wg.Wait()
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	summary := summarize(results)
	log.Info("Batch scoring finished",
		"total", summary.Total,
		"scored", summary.Scored,
		"failed", summary.Failed,
		"avg_score", summary.AverageScore,
	)

	return results, summary
}

// scoreOne never lets a single alert take down the batch: provider panics
// and store errors become a failure marker for that alert's id.
func (e *Engine) scoreOne(ctx context.Context, alert domain.Alert) (result Result) {
	result.AlertID = alert.ID

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error("Scoring panicked for alert", "alert_id", alert.ID, "panic", recovered)
			result = Result{AlertID: alert.ID, Error: fmt.Sprintf("scoring panicked: %v", recovered)}
			metrics.AlertsFailed.Inc()
		}
	}()

	enrichment := e.assembler.Enrich(ctx, alert.SourceIP, alert.DestinationIP, alert.AlertType, alert.Message)
	riskScore := e.model.Score(alert.SourceIP, alert.DestinationIP, alert.AlertType, alert.Message, enrichment)
	priority := e.model.AssignPriority(riskScore)

	if err := e.store.UpdateAlertScoring(ctx, alert.ID, riskScore, priority, enrichment); err != nil {
		log.Error("Failed to persist scoring result", "alert_id", alert.ID, "error", err)
		metrics.AlertsFailed.Inc()
		return Result{AlertID: alert.ID, Error: err.Error()}
	}

	metrics.AlertsScored.Inc()
	result.RiskScore = scoring.Round2(riskScore)
	result.Priority = priority
	result.Enrichment = enrichment
	return result
}

func summarize(results []Result) Summary {
	summary := Summary{Total: len(results)}

	var sum float64
	for _, result := range results {
		if result.Failed() {
			summary.Failed++
			continue
		}
		summary.Scored++
		sum += result.RiskScore
	}

	if summary.Scored > 0 {
		summary.AverageScore = scoring.Round2(sum / float64(summary.Scored))
	}
	return summary
}
