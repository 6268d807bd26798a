package his

import (
	"context"
	"testing"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	s := store.New(kv, events.NewLocalBus(nil), nil)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return s
}

func testImporter(s *store.Store) *Importer {
	return New(config.HISConfig{
		Enabled:         true,
		PollIntervalSec: 30,
		ScanTable:       "dbo.RetinalScans",
	}, s, nil)
}

func seedScan() ScanRow {
	return ScanRow{
		ScanID:          "SCAN-2025-00042",
		PatientMRN:      "1025008479",
		ScanType:        "Fundus Photography",
		Condition:       "Mild Nonproliferative Diabetic Retinopathy",
		Severity:        "Mild",
		Confidence:      92.3,
		RiskLevel:       "Medium",
		Description:     "Scattered microaneurysms in the temporal quadrant.",
		Recommendations: "Schedule follow-up in 6 months; Maintain glycemic control",
		PerformedBy:     "Dr. Sarah Mitchell",
		ScanDate:        time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC),
		LastModified:    time.Date(2025, 3, 4, 11, 0, 0, 0, time.UTC),
	}
}

func TestImportScanCreatesDraftReport(t *testing.T) {
	s := newTestStore(t)
	imp := testImporter(s)
	ctx := context.Background()

	created, err := imp.ImportScan(ctx, seedScan())
	if err != nil {
		t.Fatalf("ImportScan failed: %v", err)
	}
	if !created {
		t.Fatal("Expected scan to be imported")
	}

	reports, err := store.ListWhere(ctx, s, store.MedicalReports, func(r *store.MedicalReport) bool {
		return r.SourceRef == "SCAN-2025-00042"
	})
	if err != nil {
		t.Fatalf("ListWhere failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 imported report, got %d", len(reports))
	}

	r := reports[0]
	if r.Status != store.ReportStatusDraft {
		t.Errorf("Expected draft status, got '%s'", r.Status)
	}
	if r.PatientID != store.SeedPatientID {
		t.Errorf("Expected patient resolved by MRN, got %s", r.PatientID)
	}
	if r.DoctorID != store.SeedDoctorID {
		t.Errorf("Expected doctor resolved by name, got %s", r.DoctorID)
	}
	if r.ReportDate != "2025-03-04" {
		t.Errorf("Expected report date 2025-03-04, got '%s'", r.ReportDate)
	}
	if len(r.Findings.Recommendations) != 2 {
		t.Errorf("Expected 2 recommendations, got %v", r.Findings.Recommendations)
	}
	if r.Findings.Recommendations[0] != "Schedule follow-up in 6 months" {
		t.Errorf("Unexpected first recommendation: '%s'", r.Findings.Recommendations[0])
	}
}

func TestImportScanIdempotent(t *testing.T) {
	s := newTestStore(t)
	imp := testImporter(s)
	ctx := context.Background()

	if _, err := imp.ImportScan(ctx, seedScan()); err != nil {
		t.Fatalf("first ImportScan failed: %v", err)
	}
	created, err := imp.ImportScan(ctx, seedScan())
	if err != nil {
		t.Fatalf("second ImportScan failed: %v", err)
	}
	if created {
		t.Error("Expected duplicate scan to be skipped")
	}

	reports, _ := store.ListWhere(ctx, s, store.MedicalReports, func(r *store.MedicalReport) bool {
		return r.SourceRef == "SCAN-2025-00042"
	})
	if len(reports) != 1 {
		t.Errorf("Expected 1 report after duplicate import, got %d", len(reports))
	}
}

func TestImportScanUnknownPatientSkipped(t *testing.T) {
	s := newTestStore(t)
	imp := testImporter(s)

	row := seedScan()
	row.ScanID = "SCAN-2025-00043"
	row.PatientMRN = "9999999999"

	created, err := imp.ImportScan(context.Background(), row)
	if err != nil {
		t.Fatalf("ImportScan failed: %v", err)
	}
	if created {
		t.Error("Expected unknown-patient scan to be skipped")
	}
}

func TestImportScanUnknownDoctorKeepsZeroID(t *testing.T) {
	s := newTestStore(t)
	imp := testImporter(s)
	ctx := context.Background()

	row := seedScan()
	row.ScanID = "SCAN-2025-00044"
	row.PerformedBy = "Dr. Nobody"

	created, err := imp.ImportScan(ctx, row)
	if err != nil {
		t.Fatalf("ImportScan failed: %v", err)
	}
	if !created {
		t.Fatal("Expected scan to be imported")
	}

	reports, _ := store.ListWhere(ctx, s, store.MedicalReports, func(r *store.MedicalReport) bool {
		return r.SourceRef == "SCAN-2025-00044"
	})
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}
	if !reports[0].DoctorID.IsZero() {
		t.Errorf("Expected zero doctor id for unknown doctor, got %s", reports[0].DoctorID)
	}
}

func TestSplitRecommendations(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"One", 1},
		{"One; Two", 2},
		{"One;; Two ;", 2},
	}
	for _, tt := range tests {
		if got := splitRecommendations(tt.raw); len(got) != tt.want {
			t.Errorf("splitRecommendations(%q) = %v, want %d items", tt.raw, got, tt.want)
		}
	}
}
