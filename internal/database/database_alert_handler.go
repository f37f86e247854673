package database

import (
	"context"
	"fmt"

	"shrike/internal/domain"

	"gorm.io/gorm"
)

// AlertStore owns alert identity and persistence. Every other component
// receives a handle instead of touching a shared connection.
type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// InsertAlerts persists raw alerts and assigns their IDs.
func (s *AlertStore) InsertAlerts(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error) {
	if len(alerts) == 0 {
		return alerts, nil
	}

	if err := s.db.WithContext(ctx).Create(&alerts).Error; err != nil {
		return nil, fmt.Errorf("insert alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertStore) GetAllAlerts(ctx context.Context) ([]domain.Alert, error) {
	var alerts []domain.Alert
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertStore) GetAlertsByPriority(ctx context.Context, priority domain.Priority) ([]domain.Alert, error) {
	var alerts []domain.Alert
	err := s.db.WithContext(ctx).
		Where("priority = ?", priority).
		Order("timestamp DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("list alerts by priority: %w", err)
	}
	return alerts, nil
}

// UpdateAlertScoring overwrites the scoring fields of one alert. The raw
// alert fields are never touched here.
func (s *AlertStore) UpdateAlertScoring(ctx context.Context, id uint64, riskScore float64, priority domain.Priority, enrichment domain.EnrichmentRecord) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"risk_score":      riskScore,
			"priority":        priority,
			"enrichment_data": enrichment,
		})
	if result.Error != nil {
		return fmt.Errorf("update alert %d scoring: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update alert %d scoring: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ClearAlerts removes every alert. Administrative operation, nothing else
// deletes alerts.
func (s *AlertStore) ClearAlerts(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.Alert{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *AlertStore) CountAlertsByPriority(ctx context.Context) (map[domain.Priority]int64, error) {
	type row struct {
		Priority domain.Priority
		Count    int64
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Select("priority, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count alerts by priority: %w", err)
	}

	counts := make(map[domain.Priority]int64, len(rows))
	for _, r := range rows {
		counts[r.Priority] = r.Count
	}
	return counts, nil
}

func (s *AlertStore) AverageRiskScore(ctx context.Context) (float64, error) {
	var avg *float64
	err := s.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Select("AVG(risk_score)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("average risk score: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
