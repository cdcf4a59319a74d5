// Package models defines the core domain models of the job board:
// users, job postings and the applications employees submit against them.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the workflow state of an application.
type Status string

const (
	// StatusApplied is the initial state of every application.
	StatusApplied     Status = "applied"
	StatusViewed      Status = "viewed"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
	StatusAccepted    Status = "accepted"
)

// Statuses lists the closed set of application states in workflow order.
var Statuses = []Status{
	StatusApplied,
	StatusViewed,
	StatusShortlisted,
	StatusRejected,
	StatusAccepted,
}

// Valid reports whether s is one of the known application states.
// Any state may follow any other; there is no transition table.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusViewed, StatusShortlisted, StatusRejected, StatusAccepted:
		return true
	default:
		return false
	}
}

// Notifiable reports whether an employer moving an application into s
// should alert the applicant.
func (s Status) Notifiable() bool {
	return s == StatusShortlisted || s == StatusAccepted || s == StatusRejected
}

// Attachments holds the optional material supplied with an application.
// The resume itself lives in external upload storage; only its reference is kept.
type Attachments struct {
	ResumeFilename string
	ResumeURL      string
	ResumeSize     int64
	CoverLetter    string
	Phone          string
	Location       string
}

// Application is one employee's candidacy for one job.
type Application struct {
	// ID is the unique identifier of the application.
	ID uuid.UUID
	// JobID references the job applied to. Immutable.
	JobID uuid.UUID
	// EmployeeID references the submitting employee. Immutable.
	EmployeeID uuid.UUID
	// Status is the current workflow state.
	Status Status
	// Attachments are set at creation and never modified.
	Attachments Attachments
	// AppliedAt records when the application was submitted.
	AppliedAt time.Time
	// UpdatedAt records the last status change.
	UpdatedAt time.Time
}

// ApplicationView is an application joined with the job and people it refers to.
type ApplicationView struct {
	Application
	JobTitle      string
	EmployerID    uuid.UUID
	EmployerName  string
	EmployeeName  string
	EmployeeEmail string
}

// ApplicationUpdate carries the mutable fields of an application.
// Only non-nil fields are written.
type ApplicationUpdate struct {
	ID        uuid.UUID
	Status    *Status
	UpdatedAt *time.Time
}

// ApplicationStats aggregates an employee's applications by status.
type ApplicationStats struct {
	Total       int `json:"total"`
	Applied     int `json:"applied"`
	Viewed      int `json:"viewed"`
	Shortlisted int `json:"shortlisted"`
	Rejected    int `json:"rejected"`
	Accepted    int `json:"accepted"`
}

// Add counts one application in the given state.
func (s *ApplicationStats) Add(status Status) {
	s.Total++
	switch status {
	case StatusApplied:
		s.Applied++
	case StatusViewed:
		s.Viewed++
	case StatusShortlisted:
		s.Shortlisted++
	case StatusRejected:
		s.Rejected++
	case StatusAccepted:
		s.Accepted++
	}
}

// StatusNotification is the payload handed to the notification sink
// when an employer moves an application into a notifiable state.
type StatusNotification struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Status        Status    `json:"status"`
	JobTitle      string    `json:"job_title"`
	EmployerName  string    `json:"employer_name"`
	EmployeeEmail string    `json:"employee_email"`
	EmployeeName  string    `json:"employee_name"`
	OccurredAt    time.Time `json:"occurred_at"`
}
