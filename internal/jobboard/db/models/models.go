// Package models contains the storage rows of the job board,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. Emails are stored lowercased and are unique.
type User struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	Name         string    `gorm:"size:100;not null"`
	Role         string    `gorm:"size:20;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Job is a posting row. IsActive carries no database default so that
// gorm writes false explicitly.
type Job struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	EmployerID     uuid.UUID `gorm:"type:char(36);not null;index"`
	Title          string    `gorm:"size:200;not null"`
	Description    string    `gorm:"size:10000"`
	Location       string    `gorm:"size:255"`
	EmploymentType string    `gorm:"size:50"`
	SalaryMin      int       `gorm:"check:salary_min >= 0"`
	SalaryMax      int       `gorm:"check:salary_max >= 0"`
	IsActive       bool      `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

// Application is an application row. The composite unique index is the
// safety net behind the duplicate check done before insert.
type Application struct {
	ID             uuid.UUID `gorm:"type:char(36);primaryKey"`
	JobID          uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_applications_job_employee,priority:1"`
	EmployeeID     uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_applications_job_employee,priority:2;index"`
	Status         string    `gorm:"size:20;not null;index"`
	ResumeFilename string    `gorm:"size:255"`
	ResumeURL      string    `gorm:"size:1024"`
	ResumeSize     int64
	CoverLetter    string `gorm:"size:5000"`
	Phone          string `gorm:"size:32"`
	Location       string `gorm:"size:255"`
	AppliedAt      time.Time `gorm:"not null;index"`
	UpdatedAt      time.Time
}
