package handlers

import (
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

type jobRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Location       *string `json:"location"`
	EmploymentType *string `json:"employment_type"`
	SalaryMin      *int    `json:"salary_min"`
	SalaryMax      *int    `json:"salary_max"`
	IsActive       *bool   `json:"is_active"`
}

type jobResponse struct {
	ID               string    `json:"id"`
	EmployerID       string    `json:"employer_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	EmploymentType   string    `json:"employment_type"`
	SalaryMin        int       `json:"salary_min"`
	SalaryMax        int       `json:"salary_max"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ApplicationCount *int64    `json:"application_count,omitempty"`
}

type jobListResponse struct {
	Jobs []jobResponse `json:"jobs"`
}

type jobConflictResponse struct {
	Code                 int    `json:"code"`
	Message              string `json:"message"`
	BlockingApplications int64  `json:"blocking_applications"`
}

type applyRequest struct {
	ResumeFilename string `json:"resume_filename"`
	ResumeURL      string `json:"resume_url"`
	ResumeSize     int64  `json:"resume_size"`
	CoverLetter    string `json:"cover_letter"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type applicationResponse struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	EmployeeID     string    `json:"employee_id"`
	Status         string    `json:"status"`
	ResumeFilename string    `json:"resume_filename,omitempty"`
	ResumeURL      string    `json:"resume_url,omitempty"`
	ResumeSize     int64     `json:"resume_size,omitempty"`
	CoverLetter    string    `json:"cover_letter,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Location       string    `json:"location,omitempty"`
	AppliedAt      time.Time `json:"applied_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	JobTitle       string    `json:"job_title,omitempty"`
	EmployerID     string    `json:"employer_id,omitempty"`
	EmployerName   string    `json:"employer_name,omitempty"`
	EmployeeName   string    `json:"employee_name,omitempty"`
	EmployeeEmail  string    `json:"employee_email,omitempty"`
}

type applicationListResponse struct {
	Applications []applicationResponse   `json:"applications"`
	Stats        *models.ApplicationStats `json:"stats,omitempty"`
}

type statusResponse struct {
	Updated bool `json:"updated"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// requestToJob converts a create request into a Job model.
func requestToJob(req *jobRequest) *models.Job {
	job := &models.Job{}
	if req.Title != nil {
		job.Title = *req.Title
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.Location != nil {
		job.Location = *req.Location
	}
	if req.EmploymentType != nil {
		job.EmploymentType = *req.EmploymentType
	}
	if req.SalaryMin != nil {
		job.SalaryMin = *req.SalaryMin
	}
	if req.SalaryMax != nil {
		job.SalaryMax = *req.SalaryMax
	}
	return job
}

// requestToJobUpdate keeps absent fields nil so only supplied ones change.
func requestToJobUpdate(req *jobRequest, id uuid.UUID) *models.JobUpdate {
	return &models.JobUpdate{
		ID:             id,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		EmploymentType: req.EmploymentType,
		SalaryMin:      req.SalaryMin,
		SalaryMax:      req.SalaryMax,
		IsActive:       req.IsActive,
	}
}

func jobToResponse(job *models.Job) jobResponse {
	return jobResponse{
		ID:             job.ID.String(),
		EmployerID:     job.EmployerID.String(),
		Title:          job.Title,
		Description:    job.Description,
		Location:       job.Location,
		EmploymentType: job.EmploymentType,
		SalaryMin:      job.SalaryMin,
		SalaryMax:      job.SalaryMax,
		IsActive:       job.IsActive,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

func jobsToResponse(jobs []models.Job) jobListResponse {
	out := jobListResponse{Jobs: make([]jobResponse, 0, len(jobs))}
	for i := range jobs {
		out.Jobs = append(out.Jobs, jobToResponse(&jobs[i]))
	}
	return out
}

func employerJobsToResponse(jobs []models.EmployerJob) jobListResponse {
	out := jobListResponse{Jobs: make([]jobResponse, 0, len(jobs))}
	for i := range jobs {
		resp := jobToResponse(&jobs[i].Job)
		count := jobs[i].ApplicationCount
		resp.ApplicationCount = &count
		out.Jobs = append(out.Jobs, resp)
	}
	return out
}

func requestToAttachments(req *applyRequest) models.Attachments {
	return models.Attachments{
		ResumeFilename: req.ResumeFilename,
		ResumeURL:      req.ResumeURL,
		ResumeSize:     req.ResumeSize,
		CoverLetter:    req.CoverLetter,
		Phone:          req.Phone,
		Location:       req.Location,
	}
}

func applicationToResponse(app *models.Application) applicationResponse {
	return applicationResponse{
		ID:             app.ID.String(),
		JobID:          app.JobID.String(),
		EmployeeID:     app.EmployeeID.String(),
		Status:         string(app.Status),
		ResumeFilename: app.Attachments.ResumeFilename,
		ResumeURL:      app.Attachments.ResumeURL,
		ResumeSize:     app.Attachments.ResumeSize,
		CoverLetter:    app.Attachments.CoverLetter,
		Phone:          app.Attachments.Phone,
		Location:       app.Attachments.Location,
		AppliedAt:      app.AppliedAt,
		UpdatedAt:      app.UpdatedAt,
	}
}

func viewToResponse(view *models.ApplicationView) applicationResponse {
	resp := applicationToResponse(&view.Application)
	resp.JobTitle = view.JobTitle
	resp.EmployerID = view.EmployerID.String()
	resp.EmployerName = view.EmployerName
	resp.EmployeeName = view.EmployeeName
	resp.EmployeeEmail = view.EmployeeEmail
	return resp
}

func viewsToResponse(views []models.ApplicationView) applicationListResponse {
	out := applicationListResponse{Applications: make([]applicationResponse, 0, len(views))}
	for i := range views {
		out.Applications = append(out.Applications, viewToResponse(&views[i]))
	}
	return out
}

func userToResponse(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}
