package db

import (
	"time"

	dbmodels "github.com/gartstein/jobboard/internal/jobboard/db/models"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

func userRow(u *models.User) *dbmodels.User {
	return &dbmodels.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userModel(row *dbmodels.User) *models.User {
	return &models.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		Role:         models.Role(row.Role),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func jobRow(j *models.Job) *dbmodels.Job {
	return &dbmodels.Job{
		ID:             j.ID,
		EmployerID:     j.EmployerID,
		Title:          j.Title,
		Description:    j.Description,
		Location:       j.Location,
		EmploymentType: j.EmploymentType,
		SalaryMin:      j.SalaryMin,
		SalaryMax:      j.SalaryMax,
		IsActive:       j.IsActive,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

func jobModel(row *dbmodels.Job) *models.Job {
	return &models.Job{
		ID:             row.ID,
		EmployerID:     row.EmployerID,
		Title:          row.Title,
		Description:    row.Description,
		Location:       row.Location,
		EmploymentType: row.EmploymentType,
		SalaryMin:      row.SalaryMin,
		SalaryMax:      row.SalaryMax,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// jobColumns returns the columns present in update, keyed by column name.
func jobColumns(update *models.JobUpdate, now time.Time) map[string]interface{} {
	columns := map[string]interface{}{"updated_at": now}
	if update.Title != nil {
		columns["title"] = *update.Title
	}
	if update.Description != nil {
		columns["description"] = *update.Description
	}
	if update.Location != nil {
		columns["location"] = *update.Location
	}
	if update.EmploymentType != nil {
		columns["employment_type"] = *update.EmploymentType
	}
	if update.SalaryMin != nil {
		columns["salary_min"] = *update.SalaryMin
	}
	if update.SalaryMax != nil {
		columns["salary_max"] = *update.SalaryMax
	}
	if update.IsActive != nil {
		columns["is_active"] = *update.IsActive
	}
	return columns
}

func applicationRow(a *models.Application) *dbmodels.Application {
	return &dbmodels.Application{
		ID:             a.ID,
		JobID:          a.JobID,
		EmployeeID:     a.EmployeeID,
		Status:         string(a.Status),
		ResumeFilename: a.Attachments.ResumeFilename,
		ResumeURL:      a.Attachments.ResumeURL,
		ResumeSize:     a.Attachments.ResumeSize,
		CoverLetter:    a.Attachments.CoverLetter,
		Phone:          a.Attachments.Phone,
		Location:       a.Attachments.Location,
		AppliedAt:      a.AppliedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func applicationModel(row *dbmodels.Application) models.Application {
	return models.Application{
		ID:         row.ID,
		JobID:      row.JobID,
		EmployeeID: row.EmployeeID,
		Status:     models.Status(row.Status),
		Attachments: models.Attachments{
			ResumeFilename: row.ResumeFilename,
			ResumeURL:      row.ResumeURL,
			ResumeSize:     row.ResumeSize,
			CoverLetter:    row.CoverLetter,
			Phone:          row.Phone,
			Location:       row.Location,
		},
		AppliedAt: row.AppliedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func applicationViewModel(row *applicationViewRow) *models.ApplicationView {
	return &models.ApplicationView{
		Application:   applicationModel(&row.Application),
		JobTitle:      row.JobTitle,
		EmployerID:    row.EmployerID,
		EmployerName:  row.EmployerName,
		EmployeeName:  row.EmployeeName,
		EmployeeEmail: row.EmployeeEmail,
	}
}

// applicationColumns returns the columns present in update. Job and
// employee references are never part of it.
func applicationColumns(update *models.ApplicationUpdate) map[string]interface{} {
	columns := map[string]interface{}{}
	if update.Status != nil {
		columns["status"] = string(*update.Status)
	}
	if update.UpdatedAt != nil {
		columns["updated_at"] = *update.UpdatedAt
	}
	return columns
}
