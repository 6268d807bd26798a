package store

import (
	"encoding/json"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Seed ids are fixed so the canned records reference each other and tests
// can address them. Real records get random uuid-suffixed ids from Create.
const (
	SeedDoctorID       types.ID = "usr-6c1f8e4a-2f4b-4d6e-9a3c-8b2d5f7e1a90"
	SeedPatientID      types.ID = "usr-9d2a7b3c-5e6f-4a8b-b1c4-3f9e0d6a2c51"
	SeedAdminID        types.ID = "usr-1e5b9c7d-8a2f-4c3e-a6d9-7b4f2e8c0a13"
	SeedAppointmentID  types.ID = "apt-4f7a2d9b-1c8e-4b5a-9f3d-6e2c7a0b8d41"
	SeedReportID       types.ID = "rpt-8b3e6f1a-9d4c-4e7b-a2f8-5c1d9e3b7a62"
	SeedConversationID types.ID = "conv-2d9c4a7e-6b1f-4d8a-b5e3-0f7c2a9d4e16"
	SeedMessageID      types.ID = "msg-7a4d1e8b-3f6c-4a9d-8b2e-5d0f3c7e1b94"
	SeedTrainingID     types.ID = "mt-5c8f2b6d-0a3e-4f7c-9d1b-4e8a6c2f0d35"
	SeedAnalyticsID    types.ID = "sa-3e6a9d2c-7f0b-4e5a-8c3f-1b9d4a7e2c60"
)

type seedEntry struct {
	key   string
	value string
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// seedCollections returns the canned first-run contents for every known
// collection. Static and well-formed, so building it cannot fail.
func seedCollections() []seedEntry {
	seedTime := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	users := []*User{
		{
			ID:             SeedDoctorID,
			Name:           "Dr. Sarah Mitchell",
			Email:          "sarah.mitchell@retinal.example",
			Role:           RoleDoctor,
			Status:         UserStatusActive,
			Specialization: "Ophthalmology",
			LicenseNumber:  "OPH-48213",
			Phone:          "+1-555-0142",
			CreatedAt:      seedTime,
			UpdatedAt:      seedTime,
		},
		{
			ID:          SeedPatientID,
			Name:        "James Carter",
			Email:       "james.carter@mail.example",
			Role:        RolePatient,
			Status:      UserStatusActive,
			MRN:         types.MRN("1025008479"),
			DateOfBirth: "1961-07-22",
			CreatedAt:   seedTime,
			UpdatedAt:   seedTime,
		},
		{
			ID:        SeedAdminID,
			Name:      "Alex Rivera",
			Email:     "alex.rivera@retinal.example",
			Role:      RoleAdmin,
			Status:    UserStatusActive,
			CreatedAt: seedTime,
			UpdatedAt: seedTime,
		},
	}

	appointments := []*Appointment{
		{
			ID:              SeedAppointmentID,
			PatientID:       SeedPatientID,
			DoctorID:        SeedDoctorID,
			AppointmentDate: "2025-02-10",
			AppointmentTime: "10:30",
			DurationMinutes: 30,
			Type:            "Retinal Screening",
			Status:          AppointmentStatusConfirmed,
			Priority:        PriorityRoutine,
			CreatedAt:       seedTime,
			UpdatedAt:       seedTime,
		},
	}

	reports := []*MedicalReport{
		{
			ID:         SeedReportID,
			PatientID:  SeedPatientID,
			DoctorID:   SeedDoctorID,
			ReportDate: "2025-01-20",
			ScanType:   "Fundus Photography",
			Findings: Findings{
				Condition:   "Mild Nonproliferative Diabetic Retinopathy",
				Severity:    "Mild",
				Confidence:  91.4,
				RiskLevel:   "Medium",
				Description: "Scattered microaneurysms in the temporal quadrant.",
				Recommendations: []string{
					"Schedule a follow-up scan in 6 months",
					"Maintain glycemic control",
				},
			},
			ScansPerformed: []string{"fundus-left", "fundus-right"},
			Status:         ReportStatusFinalized,
			CreatedAt:      seedTime,
			UpdatedAt:      seedTime,
		},
	}

	conversations := []*Conversation{
		{
			ID:              SeedConversationID,
			DoctorID:        SeedDoctorID,
			PatientID:       SeedPatientID,
			Status:          ConversationStatusActive,
			LastMessage:     "Your scan results look stable. See you at the follow-up.",
			LastMessageTime: seedTime.Add(26 * time.Hour),
			CreatedAt:       seedTime,
			UpdatedAt:       seedTime.Add(26 * time.Hour),
		},
	}

	messages := []*Message{
		{
			ID:             SeedMessageID,
			ConversationID: SeedConversationID,
			SenderID:       SeedDoctorID,
			SenderType:     SenderDoctor,
			Content:        "Your scan results look stable. See you at the follow-up.",
			MessageType:    "text",
			Timestamp:      seedTime.Add(26 * time.Hour),
			ReadBy:         []ReadReceipt{},
		},
	}

	training := []*ModelTraining{
		{
			ID:           SeedTrainingID,
			ModelVersion: 3,
			Accuracy:     93.7,
			LastTrained:  seedTime,
			History: []TrainingRun{
				{Version: 3, Accuracy: 93.7, SampleCount: 12840, TrainedAt: seedTime},
			},
			UpdatedAt: seedTime,
		},
	}

	analytics := []*SystemAnalytics{
		{
			ID:                SeedAnalyticsID,
			TotalUsers:        3,
			TotalDoctors:      1,
			TotalPatients:     1,
			TotalAppointments: 1,
			TotalReports:      1,
			RefreshedAt:       seedTime,
		},
	}

	return []seedEntry{
		{CollectionUsers, mustJSON(users)},
		{CollectionAppointments, mustJSON(appointments)},
		{CollectionMedicalReports, mustJSON(reports)},
		{CollectionConversations, mustJSON(conversations)},
		{CollectionMessages, mustJSON(messages)},
		// Legacy duplicate of messages kept for layout compatibility with
		// older exports. Seeded, never read.
		{CollectionChatMessages, mustJSON(messages)},
		{CollectionEmails, "[]"},
		{CollectionAIConversations, "{}"},
		{CollectionModelTraining, mustJSON(training)},
		{CollectionSystemAnalytics, mustJSON(analytics)},
	}
}
