package dto

type DashboardStats struct {
	TotalAlerts     int64   `json:"totalAlerts"`
	HighPriority    int64   `json:"highPriority"`
	MediumPriority  int64   `json:"mediumPriority"`
	LowPriority     int64   `json:"lowPriority"`
	AverageRisk     float64 `json:"averageRisk"`
	ActiveInstances int     `json:"activeInstances"`
}
