package models

import (
	"time"

	"github.com/google/uuid"
)

// Modality is one of the two independent media analyses for a scan.
type Modality string

const (
	ModalityPhoto Modality = "photo"
	ModalityVideo Modality = "video"
)

// Status of a single modality result. Monotonic: new -> done.
type Status string

const (
	StatusNew  Status = "new"
	StatusDone Status = "done"
)

// AnalysisStatus is the terminal-state machine of a scan's analysis run.
type AnalysisStatus string

const (
	AnalysisPending AnalysisStatus = "pending"
	AnalysisRunning AnalysisStatus = "running"
	AnalysisDone    AnalysisStatus = "done"
	AnalysisFailed  AnalysisStatus = "failed"
)

type Person struct {
	UUID     string
	Name     string
	HeightCM int
}

func NewPerson(name string, heightCM int) *Person {
	return &Person{
		UUID:     uuid.New().String(),
		Name:     name,
		HeightCM: heightCM,
	}
}

// SaddleAdjustment is the recommended saddle correction in centimeters.
// SaddleYCM is signed: positive means raise the saddle, negative lower it.
// SaddleXCM is always 0; no horizontal recommendation is computed.
type SaddleAdjustment struct {
	SaddleXCM float64 `json:"saddle_x_cm"`
	SaddleYCM float64 `json:"saddle_y_cm"`
}

type Scan struct {
	UUID       string
	PersonUUID string
	CreatedAt  time.Time
	Status     AnalysisStatus
	Result     *SaddleAdjustment
}

func NewScan(personUUID string) *Scan {
	return &Scan{
		UUID:       uuid.New().String(),
		PersonUUID: personUUID,
		CreatedAt:  time.Now(),
		Status:     AnalysisPending,
	}
}
