// Package his imports completed retinal scans from the hospital imaging
// system (SQL Server) into the local store as draft medical reports.
package his

import (
	"strings"
	"time"
)

// ScanRow is one completed scan as stored in the imaging system.
type ScanRow struct {
	ScanID          string
	PatientMRN      string
	ScanType        string
	Condition       string
	Severity        string
	Confidence      float64
	RiskLevel       string
	Description     string
	Recommendations string // semicolon separated
	PerformedBy     string
	ScanDate        time.Time
	LastModified    time.Time
}

// splitRecommendations parses the imaging system's semicolon-separated
// recommendation field, dropping empty segments.
func splitRecommendations(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
