package store

import (
	"context"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Admin aggregates. modelTraining and systemAnalytics each hold a single
// record; the operations below read and rewrite that record whole.

// GetModelTraining returns the model training aggregate.
func (s *Store) GetModelTraining(ctx context.Context) (*ModelTraining, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelTrainingLocked(ctx)
}

func (s *Store) modelTrainingLocked(ctx context.Context) (*ModelTraining, error) {
	records, err := readCollection[*ModelTraining](ctx, s, CollectionModelTraining)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NotFound(CollectionModelTraining, "singleton")
	}
	return records[0], nil
}

// RunModelTraining performs an admin-triggered training pass: bumps the
// version counter, recomputes accuracy from the sample count, and appends a
// history entry. The accuracy model approaches a 99 percent ceiling as the
// report corpus grows.
func (s *Store) RunModelTraining(ctx context.Context, triggeredBy types.ID) (*ModelTraining, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.modelTrainingLocked(ctx)
	if err != nil {
		return nil, err
	}
	reports, err := readCollection[*MedicalReport](ctx, s, CollectionMedicalReports)
	if err != nil {
		return nil, err
	}

	samples := 12000 + 280*len(reports)
	accuracy := 99.0 - 64000.0/float64(samples)
	if accuracy < record.Accuracy {
		accuracy = record.Accuracy
	}

	now := s.now()
	record.ModelVersion++
	record.Accuracy = accuracy
	record.LastTrained = now
	record.UpdatedAt = now
	record.History = append(record.History, TrainingRun{
		Version:     record.ModelVersion,
		Accuracy:    accuracy,
		SampleCount: samples,
		TrainedAt:   now,
		TriggeredBy: triggeredBy,
	})

	if err := writeCollection(ctx, s, CollectionModelTraining, []*ModelTraining{record}); err != nil {
		return nil, err
	}
	queued = append(queued, queuedEvent{CollectionModelTraining, events.VerbUpdated, record})
	return record, nil
}

// GetSystemAnalytics returns the analytics aggregate as last refreshed.
func (s *Store) GetSystemAnalytics(ctx context.Context) (*SystemAnalytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readCollection[*SystemAnalytics](ctx, s, CollectionSystemAnalytics)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NotFound(CollectionSystemAnalytics, "singleton")
	}
	return records[0], nil
}

// RefreshSystemAnalytics recomputes portal-wide counts from the live
// collections and persists the refreshed aggregate.
func (s *Store) RefreshSystemAnalytics(ctx context.Context) (*SystemAnalytics, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readCollection[*SystemAnalytics](ctx, s, CollectionSystemAnalytics)
	if err != nil {
		return nil, err
	}
	var record *SystemAnalytics
	if len(records) > 0 {
		record = records[0]
	} else {
		record = &SystemAnalytics{ID: types.NewEntityID("sa")}
	}

	users, err := readCollection[*User](ctx, s, CollectionUsers)
	if err != nil {
		return nil, err
	}
	appointments, err := readCollection[*Appointment](ctx, s, CollectionAppointments)
	if err != nil {
		return nil, err
	}
	reports, err := readCollection[*MedicalReport](ctx, s, CollectionMedicalReports)
	if err != nil {
		return nil, err
	}

	record.TotalUsers = len(users)
	record.TotalDoctors = 0
	record.TotalPatients = 0
	for _, u := range users {
		switch u.Role {
		case RoleDoctor, RoleClinician:
			record.TotalDoctors++
		case RolePatient:
			record.TotalPatients++
		}
	}
	record.TotalAppointments = len(appointments)
	record.TotalReports = len(reports)
	record.RefreshedAt = s.now()
	record.History = append(record.History, AnalyticsSnapshot{
		RefreshedAt: record.RefreshedAt,
		TotalUsers:  record.TotalUsers,
	})

	if err := writeCollection(ctx, s, CollectionSystemAnalytics, []*SystemAnalytics{record}); err != nil {
		return nil, err
	}
	queued = append(queued, queuedEvent{CollectionSystemAnalytics, events.VerbUpdated, record})
	return record, nil
}
