package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status int

// the database stores the lower-case string form, new jobs start as "queued"
const (
	StatusUnknown    Status = iota
	StatusQueued            // 1
	StatusProcessing        // 2
	StatusCompleted         // 3
	StatusFailed            // 4
)

// ResumeFile is one uploaded PDF of a ranking job. Position is the index the
// resume will carry as SourceIndex once ranked.
type ResumeFile struct {
	Position  int    `json:"position" db:"position"`
	FileName  string `json:"file_name" db:"file_name"`
	ObjectKey string `json:"object_key" db:"object_key"`
}

type Job struct {
	ID uuid.UUID `json:"id" db:"id"`

	Status Status `json:"status" db:"status"`

	JobDescription string `json:"job_description" db:"job_description"`

	Resumes []ResumeFile `json:"resumes"`

	Report *Report `json:"report,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseStatus converts the stored string form back into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "queued":
		return StatusQueued, nil
	case "processing":
		return StatusProcessing, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	}
	return StatusUnknown, fmt.Errorf("invalid job status %q", s)
}

// Done reports whether the job reached a terminal status.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}
