package his

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// Importer polls the imaging system's scan table and creates draft reports
// for scans not yet imported.
type Importer struct {
	db    *sql.DB
	store *store.Store
	cfg   config.HISConfig
	log   *zap.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastScan time.Time
}

// New creates an importer. Start opens the database connection.
func New(cfg config.HISConfig, s *store.Store, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		store: s,
		cfg:   cfg,
		log:   log,
	}
}

// Start connects to the imaging database and begins polling.
func (i *Importer) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.running {
		return fmt.Errorf("importer already running")
	}

	db, err := sql.Open("sqlserver", i.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open imaging database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping imaging database: %w", err)
	}

	interval := time.Duration(i.cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	i.db = db
	i.running = true
	i.lastScan = time.Now().Add(-interval)

	pollCtx, cancel := context.WithCancel(ctx)
	i.cancel = cancel

	i.wg.Add(1)
	go i.pollLoop(pollCtx, interval)

	i.log.Info("imaging importer started",
		zap.String("scan_table", i.cfg.ScanTable),
		zap.Duration("interval", interval))
	return nil
}

// Stop halts polling and closes the connection.
func (i *Importer) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running {
		return nil
	}

	if i.cancel != nil {
		i.cancel()
	}

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if i.db != nil {
		i.db.Close()
	}

	i.running = false
	return nil
}

// Health checks imaging database connectivity.
func (i *Importer) Health(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running {
		return fmt.Errorf("importer not running")
	}
	return i.db.PingContext(ctx)
}

func (i *Importer) pollLoop(ctx context.Context, interval time.Duration) {
	defer i.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.mu.Lock()
			since := i.lastScan
			i.lastScan = time.Now()
			i.mu.Unlock()

			if err := i.pollScans(ctx, since); err != nil {
				i.log.Warn("scan poll failed", zap.Error(err))
			}
		}
	}
}

// pollScans imports scans modified since the watermark.
func (i *Importer) pollScans(ctx context.Context, since time.Time) error {
	query := fmt.Sprintf(`
		SELECT
			ScanID,
			PatientMRN,
			ScanType,
			Condition,
			Severity,
			Confidence,
			RiskLevel,
			Description,
			Recommendations,
			PerformedBy,
			ScanDate,
			LastModified
		FROM %s
		WHERE LastModified > @since
		ORDER BY LastModified ASC
	`, i.cfg.ScanTable)

	rows, err := i.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ScanRow
		var riskLevel, description, recommendations, performedBy sql.NullString

		err := rows.Scan(
			&row.ScanID,
			&row.PatientMRN,
			&row.ScanType,
			&row.Condition,
			&row.Severity,
			&row.Confidence,
			&riskLevel,
			&description,
			&recommendations,
			&performedBy,
			&row.ScanDate,
			&row.LastModified,
		)
		if err != nil {
			i.log.Warn("failed to scan imaging row", zap.Error(err))
			continue
		}

		row.RiskLevel = riskLevel.String
		row.Description = description.String
		row.Recommendations = recommendations.String
		row.PerformedBy = performedBy.String

		if _, err := i.ImportScan(ctx, row); err != nil {
			i.log.Warn("failed to import scan",
				zap.String("scan_id", row.ScanID),
				zap.Error(err))
		}
	}

	return rows.Err()
}

// ImportScan creates a draft report for the scan. Returns false when the
// scan was already imported or its patient is unknown.
func (i *Importer) ImportScan(ctx context.Context, row ScanRow) (bool, error) {
	existing, err := store.ListWhere(ctx, i.store, store.MedicalReports, func(r *store.MedicalReport) bool {
		return r.SourceRef == row.ScanID
	})
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	patients, err := store.ListWhere(ctx, i.store, store.Users, func(u *store.User) bool {
		return string(u.MRN) == row.PatientMRN
	})
	if err != nil {
		return false, err
	}
	if len(patients) == 0 {
		i.log.Warn("scan references unknown patient",
			zap.String("scan_id", row.ScanID),
			zap.String("mrn", row.PatientMRN))
		return false, nil
	}

	// Doctor resolution is by display name; unresolved scans keep a zero
	// doctor id and render with the usual placeholder.
	doctor, err := i.resolveDoctor(ctx, row.PerformedBy)
	if err != nil {
		return false, err
	}

	report := &store.MedicalReport{
		PatientID:  patients[0].ID,
		ReportDate: row.ScanDate.Format("2006-01-02"),
		ScanType:   row.ScanType,
		Findings: store.Findings{
			Condition:       row.Condition,
			Severity:        row.Severity,
			Confidence:      row.Confidence,
			RiskLevel:       row.RiskLevel,
			Description:     row.Description,
			Recommendations: splitRecommendations(row.Recommendations),
		},
		SourceRef: row.ScanID,
		Status:    store.ReportStatusDraft,
	}
	if doctor != nil {
		report.DoctorID = doctor.ID
	}

	if _, err := store.Create(ctx, i.store, store.MedicalReports, report); err != nil {
		return false, err
	}

	metrics.RecordHISImport()
	i.log.Info("imported scan",
		zap.String("scan_id", row.ScanID),
		zap.String("patient_id", patients[0].ID.String()))
	return true, nil
}

func (i *Importer) resolveDoctor(ctx context.Context, name string) (*store.User, error) {
	if name == "" {
		return nil, nil
	}
	doctors, err := store.ListWhere(ctx, i.store, store.Users, func(u *store.User) bool {
		return (u.Role == store.RoleDoctor || u.Role == store.RoleClinician) &&
			strings.EqualFold(u.Name, name)
	})
	if err != nil {
		return nil, err
	}
	if len(doctors) == 0 {
		return nil, nil
	}
	return doctors[0], nil
}
