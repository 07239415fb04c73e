package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
	"github.com/campusops/school-ops-api/pkg/export"
	"github.com/campusops/school-ops-api/pkg/jobs"
	"github.com/campusops/school-ops-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, resultURL, errorMessage *string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService runs exports asynchronously: jobs are persisted, processed by
// the worker queue, and their results served through signed download URLs.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(
	repo reportJobStore,
	queue jobDispatcher,
	exporter *ExportService,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		store:     store,
		signer:    signer,
		validator: validate,
		logger:    logger,
	}
}

// CreateJob persists a queued report job and hands it to the worker pool.
func (s *ReportService) CreateJob(ctx context.Context, req dto.CreateReportRequest, createdBy string) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid report request: %v", err))
	}

	params := models.ReportJobParams{
		SchoolID: req.SchoolID,
		Format:   models.ReportFormat(req.Format),
	}
	if req.WingID != "" {
		wing := req.WingID
		params.WingID = &wing
	}
	if req.SectionID != "" {
		section := req.SectionID
		params.SectionID = &section
	}
	if req.Date != "" {
		date := req.Date
		params.Date = &date
	}
	if models.ReportType(req.Type) == models.ReportTypeSubstitutions && req.Date == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitution reports require a date")
	}

	job := &models.ReportJob{
		ID:        uuid.NewString(),
		Type:      models.ReportType(req.Type),
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		msg := "failed to enqueue job"
		_ = s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusFailed, nil, &msg)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admin users.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdmin && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ListMine returns the caller's recent jobs.
func (s *ReportService) ListMine(ctx context.Context, actorID string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	jobsList, err := s.repo.ListByUser(ctx, actorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return jobsList, nil
}

// ResolveDownload validates a signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return &ReportDownload{
		File:      file,
		Filename:  relPath,
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Process is the queue handler: it renders the export and stores the result.
func (s *ReportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.FindByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusProcessing, nil, nil); err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}

	data, filename, err := s.render(ctx, job)
	if err != nil {
		msg := err.Error()
		_ = s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusFailed, nil, &msg)
		return err
	}

	relPath, err := s.store.Save(filename, data)
	if err != nil {
		msg := "failed to store export file"
		_ = s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusFailed, nil, &msg)
		return fmt.Errorf("store export: %w", err)
	}

	url, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		msg := "failed to sign download url"
		_ = s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusFailed, nil, &msg)
		return fmt.Errorf("sign download url: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusFinished, &url, nil); err != nil {
		return fmt.Errorf("mark job finished: %w", err)
	}

	s.logger.Info("report job finished", zap.String("job_id", job.ID), zap.String("file", relPath))
	return nil
}

func (s *ReportService) render(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	var (
		ds    export.Dataset
		err   error
		title string
	)

	switch job.Type {
	case models.ReportTypeTimetable:
		sectionID := ""
		if job.Params.SectionID != nil {
			sectionID = *job.Params.SectionID
		}
		ds, err = s.exporter.TimetableDataset(ctx, job.Params.SchoolID, sectionID)
		title = "Weekly Timetable"
	case models.ReportTypeSubstitutions:
		if job.Params.Date == nil {
			return nil, "", fmt.Errorf("substitution report without a date")
		}
		date, parseErr := time.Parse("2006-01-02", *job.Params.Date)
		if parseErr != nil {
			return nil, "", fmt.Errorf("invalid report date %q", *job.Params.Date)
		}
		ds, err = s.exporter.SubstitutionDataset(ctx, job.Params.SchoolID, date)
		title = "Substitution Sheet " + *job.Params.Date
	default:
		return nil, "", fmt.Errorf("unsupported report type %q", job.Type)
	}
	if err != nil {
		return nil, "", err
	}

	data, err := s.exporter.Render(ds, job.Params.Format, title)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("%s-%s.%s", job.Type, job.ID, job.Params.Format)
	return data, filename, nil
}
