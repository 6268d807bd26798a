package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

func appendEntries(t *testing.T, repo Repository, n int) []*Entry {
	t.Helper()
	actor := types.NewID()
	var entries []*Entry
	for i := 0; i < n; i++ {
		resource := types.NewID()
		e := NewEntry(actor, "doctor", "appointments.updated", "appointments", &resource, map[string]any{
			"status": "confirmed",
		})
		if err := repo.Append(context.Background(), e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAppendChainsEntries(t *testing.T) {
	repo := NewMemoryRepository()
	entries := appendEntries(t, repo, 3)

	if entries[0].PrevHash != "" {
		t.Errorf("Expected empty prev hash on first entry, got '%s'", entries[0].PrevHash)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].PrevHash != entries[i-1].Hash {
			t.Errorf("Entry %d not chained to its predecessor", i)
		}
		if entries[i].Sequence != int64(i+1) {
			t.Errorf("Expected sequence %d, got %d", i+1, entries[i].Sequence)
		}
	}
	if repo.GetLastHash() != entries[2].Hash {
		t.Error("GetLastHash does not match the newest entry")
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	repo := NewMemoryRepository()
	entries := appendEntries(t, repo, 3)

	result, err := repo.VerifyChain(context.Background(), 0)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if !result.Valid || result.Checked != 3 {
		t.Errorf("Expected valid chain of 3, got %+v", result)
	}

	entries[1].Changes["status"] = "cancelled"

	result, err = repo.VerifyChain(context.Background(), 0)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if result.Valid {
		t.Fatal("Expected tampered chain to fail verification")
	}
	if result.FirstInvalid == nil || *result.FirstInvalid != entries[1].ID {
		t.Errorf("Expected entry 1 flagged, got %+v", result)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := NewMemoryRepository()
	actor := types.NewID()
	other := types.NewID()

	for i := 0; i < 3; i++ {
		repo.Append(context.Background(), NewEntry(actor, "doctor", "messages.created", "messages", nil, nil))
	}
	repo.Append(context.Background(), NewEntry(other, "patient", "appointments.created", "appointments", nil, nil))

	entries, total, err := repo.List(context.Background(), Filter{ActorID: &actor})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Errorf("Expected 3 entries for actor, got total=%d len=%d", total, len(entries))
	}

	entries, total, _ = repo.List(context.Background(), Filter{ActorID: &actor, Limit: 2, Offset: 2})
	if total != 3 || len(entries) != 1 {
		t.Errorf("Expected page of 1 with total 3, got total=%d len=%d", total, len(entries))
	}

	entries, _, _ = repo.List(context.Background(), Filter{ResourceType: "appointments"})
	if len(entries) != 1 || entries[0].ActorRole != "patient" {
		t.Errorf("Expected the appointment entry, got %+v", entries)
	}
}

func TestSubscriberRecordsStoreMutations(t *testing.T) {
	bus := events.NewLocalBus(nil)
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	s := store.New(kv, bus, nil)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	repo := NewMemoryRepository()
	sub := NewSubscriber(repo, bus)
	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	appt, err := store.Create(ctx, s, store.Appointments, &store.Appointment{
		PatientID:       store.SeedPatientID,
		DoctorID:        store.SeedDoctorID,
		AppointmentDate: "2025-06-01",
		AppointmentTime: "10:00",
		Type:            "Retinal Screening",
		Status:          store.AppointmentStatusPending,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries, _, err := repo.List(ctx, Filter{ResourceType: "appointments"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != "appointments.created" {
		t.Errorf("Expected action 'appointments.created', got '%s'", e.Action)
	}
	if e.ResourceID == nil || *e.ResourceID != appt.ID {
		t.Errorf("Expected resource id %s, got %v", appt.ID, e.ResourceID)
	}

	result, _ := repo.VerifyChain(ctx, 0)
	if !result.Valid {
		t.Errorf("Expected valid chain, got %+v", result)
	}
}

func TestSubscriberIgnoresUnstructuredTypes(t *testing.T) {
	if entry := eventToEntry(events.NewEvent("heartbeat", "test", nil)); entry != nil {
		t.Errorf("Expected single-segment event to be skipped, got %+v", entry)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	repo := NewMemoryRepository()
	appendEntries(t, repo, 2)
	h := NewHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var result VerifyResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.Valid || result.Checked != 2 {
		t.Errorf("Expected valid chain of 2, got %+v", result)
	}
}

func TestListEndpointRejectsBadTime(t *testing.T) {
	h := NewHandler(NewMemoryRepository())

	req := httptest.NewRequest(http.MethodGet, "/?start_time=yesterday", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
