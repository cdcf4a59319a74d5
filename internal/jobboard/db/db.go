package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbmodels "github.com/gartstein/jobboard/internal/jobboard/db/models"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the database file for the sqlite driver.
	Path string
}

const applicationViewColumns = `applications.*,
	jobs.title AS job_title,
	jobs.employer_id AS employer_id,
	COALESCE(employers.name, '') AS employer_name,
	COALESCE(employees.name, '') AS employee_name,
	COALESCE(employees.email, '') AS employee_email`

// Dialector picks the gorm driver named by cfg.Driver. Postgres is the default.
func Dialector(cfg *Config) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "mysql":
		// clientFoundRows makes RowsAffected count matched rows, so an
		// update that rewrites identical values is not taken for a miss.
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return mysql.Open(dsn), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "jobboard.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", e.ErrInvalidInput, cfg.Driver)
	}
}

func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return Open(dialector)
}

// Open connects through the given dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&dbmodels.User{}, &dbmodels.Job{}, &dbmodels.Application{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Create(userRow(user))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateEmail
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row dbmodels.User
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return userModel(&row), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row dbmodels.User
	result := r.db.WithContext(ctx).First(&row, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return userModel(&row), nil
}

func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(jobRow(job)).Error
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var row dbmodels.Job
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return jobModel(&row), nil
}

func (r *Repository) UpdateJob(ctx context.Context, update *models.JobUpdate) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Job{}).
		Where("id = ?", update.ID).
		Updates(jobColumns(update, time.Now().UTC()))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteJob hard-deletes a job that holds no applications. Counting and
// deleting happen in one transaction.
func (r *Repository) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		count, err := tx.CountApplicationsForJob(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &e.JobHasApplicationsError{Count: count}
		}

		result := tx.db.WithContext(ctx).Delete(&dbmodels.Job{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) ListActiveJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	query := r.db.WithContext(ctx).Model(&dbmodels.Job{}).Where("is_active = ?", true)
	if kw := strings.ToLower(strings.TrimSpace(filter.Keyword)); kw != "" {
		pattern := containsPattern(kw)
		query = query.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if loc := strings.ToLower(strings.TrimSpace(filter.Location)); loc != "" {
		query = query.Where("LOWER(location) LIKE ? ESCAPE '!'", containsPattern(loc))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []dbmodels.Job
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	jobs := make([]models.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, *jobModel(&rows[i]))
	}
	return jobs, nil
}

// likeEscaper neutralises LIKE wildcards. '!' is used as the escape
// character because backslash is itself special in MySQL string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type employerJobRow struct {
	dbmodels.Job     `gorm:"embedded"`
	ApplicationCount int64
}

func (r *Repository) ListEmployerJobs(ctx context.Context, employerID uuid.UUID) ([]models.EmployerJob, error) {
	var rows []employerJobRow
	err := r.db.WithContext(ctx).Table("jobs").
		Select("jobs.*, COUNT(applications.id) AS application_count").
		Joins("LEFT JOIN applications ON applications.job_id = jobs.id").
		Where("jobs.employer_id = ?", employerID).
		Group("jobs.id").
		Order("jobs.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]models.EmployerJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, models.EmployerJob{
			Job:              *jobModel(&rows[i].Job),
			ApplicationCount: rows[i].ApplicationCount,
		})
	}
	return jobs, nil
}

func (r *Repository) CountApplicationsForJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Application{}).
		Where("job_id = ?", jobID).
		Count(&count)
	return count, result.Error
}

func (r *Repository) ApplicationExists(ctx context.Context, jobID, employeeID uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Application{}).
		Where("job_id = ? AND employee_id = ?", jobID, employeeID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) error {
	result := r.db.WithContext(ctx).Create(applicationRow(app))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateApplication
		}
		return result.Error
	}
	return nil
}

type applicationViewRow struct {
	dbmodels.Application `gorm:"embedded"`
	JobTitle             string
	EmployerID           uuid.UUID
	EmployerName         string
	EmployeeName         string
	EmployeeEmail        string
}

func (r *Repository) applicationViews(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("applications").
		Select(applicationViewColumns).
		Joins("JOIN jobs ON jobs.id = applications.job_id").
		Joins("LEFT JOIN users employers ON employers.id = jobs.employer_id").
		Joins("LEFT JOIN users employees ON employees.id = applications.employee_id")
}

func (r *Repository) GetApplicationView(ctx context.Context, id uuid.UUID) (*models.ApplicationView, error) {
	var rows []applicationViewRow
	err := r.applicationViews(ctx).
		Where("applications.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, e.ErrNotFound
	}
	return applicationViewModel(&rows[0]), nil
}

func (r *Repository) ListApplicationsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.ApplicationView, error) {
	return r.listApplicationViews(ctx, "applications.employee_id = ?", employeeID)
}

func (r *Repository) ListApplicationsByEmployer(ctx context.Context, employerID uuid.UUID) ([]models.ApplicationView, error) {
	return r.listApplicationViews(ctx, "jobs.employer_id = ?", employerID)
}

func (r *Repository) listApplicationViews(ctx context.Context, cond string, arg interface{}) ([]models.ApplicationView, error) {
	var rows []applicationViewRow
	err := r.applicationViews(ctx).
		Where(cond, arg).
		Order("applications.applied_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	views := make([]models.ApplicationView, 0, len(rows))
	for i := range rows {
		views = append(views, *applicationViewModel(&rows[i]))
	}
	return views, nil
}

func (r *Repository) UpdateApplication(ctx context.Context, update *models.ApplicationUpdate) error {
	columns := applicationColumns(update)
	if len(columns) == 0 {
		return fmt.Errorf("%w: empty application update", e.ErrInvalidInput)
	}

	result := r.db.WithContext(ctx).Model(&dbmodels.Application{}).
		Where("id = ?", update.ID).
		Updates(columns)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Application{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
