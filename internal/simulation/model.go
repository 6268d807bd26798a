package simulation

import (
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Step is one stage of a simulated retinal analysis run.
type Step struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// AnalysisSteps is the fixed pipeline every simulated run walks through.
var AnalysisSteps = []Step{
	{Name: "upload", Detail: "Uploading retinal scan"},
	{Name: "preprocess", Detail: "Normalizing image quality"},
	{Name: "detect", Detail: "Running condition detection model"},
	{Name: "grade", Detail: "Grading severity and risk"},
	{Name: "report", Detail: "Compiling analysis summary"},
}

// TaskStatus is the lifecycle state of an analysis task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// TaskView is the JSON snapshot of a task returned to clients.
type TaskView struct {
	ID          types.ID   `json:"id"`
	PatientID   types.ID   `json:"patientId"`
	Status      TaskStatus `json:"status"`
	CurrentStep int        `json:"currentStep"`
	TotalSteps  int        `json:"totalSteps"`
	StepDetail  string     `json:"stepDetail,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Event types published while a task runs.
const (
	EventAnalysisStarted   = "analysis.started"
	EventAnalysisStep      = "analysis.step"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisCancelled = "analysis.cancelled"
)
