package dto

type ExportRequest struct {
	OutputFormat string `json:"outputFormat"`
	Priority     string `json:"priority"`
}
