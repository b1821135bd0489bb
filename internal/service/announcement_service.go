package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type sectionEnrollmentReader interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error)
}

// CreateAnnouncementRequest publishes a new announcement.
type CreateAnnouncementRequest struct {
	Title           string     `json:"title" validate:"required,max=200"`
	Content         string     `json:"content" validate:"required"`
	Audience        string     `json:"audience" validate:"required,oneof=ALL INSTRUCTORS STUDENTS SECTION"`
	TargetSectionID *string    `json:"target_section_id" validate:"omitempty,uuid4"`
	IsPinned        bool       `json:"is_pinned"`
	PublishedAt     *time.Time `json:"published_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// UpdateAnnouncementRequest edits a published announcement.
type UpdateAnnouncementRequest struct {
	Title     *string    `json:"title" validate:"omitempty,max=200"`
	Content   *string    `json:"content"`
	IsPinned  *bool      `json:"is_pinned"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// AnnouncementService manages announcements and fans them out to the
// affected users.
type AnnouncementService struct {
	repo        announcementRepository
	sections    sectionReader
	enrollments sectionEnrollmentReader
	students    studentReader
	notifier    notifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService.
func NewAnnouncementService(
	repo announcementRepository,
	sections sectionReader,
	enrollments sectionEnrollmentReader,
	students studentReader,
	notifier notifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:        repo,
		sections:    sections,
		enrollments: enrollments,
		students:    students,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// List returns visible announcements for the filter.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	announcements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return announcements, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one announcement.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}

// Create publishes an announcement. Section-scoped announcements notify
// the section's active students on a best-effort basis.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest, actorID string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	audience := models.AnnouncementAudience(req.Audience)
	if audience == models.AnnouncementAudienceSection {
		if req.TargetSectionID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "section announcements require a target section")
		}
		if _, err := s.sections.FindDetailByID(ctx, *req.TargetSectionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "target section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target section")
		}
	} else if req.TargetSectionID != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target section only applies to section announcements")
	}

	announcement := &models.Announcement{
		Title:           req.Title,
		Content:         req.Content,
		Audience:        audience,
		TargetSectionID: req.TargetSectionID,
		IsPinned:        req.IsPinned,
		ExpiresAt:       req.ExpiresAt,
		CreatedBy:       actorID,
	}
	if req.PublishedAt != nil {
		announcement.PublishedAt = *req.PublishedAt
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	if audience == models.AnnouncementAudienceSection && announcement.PublishedAt.Before(time.Now().UTC().Add(time.Second)) {
		s.fanOut(ctx, announcement)
	}
	return announcement, nil
}

// Update edits an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	announcement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		announcement.Title = *req.Title
	}
	if req.Content != nil {
		announcement.Content = *req.Content
	}
	if req.IsPinned != nil {
		announcement.IsPinned = *req.IsPinned
	}
	if req.ExpiresAt != nil {
		announcement.ExpiresAt = req.ExpiresAt
	}
	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

// fanOut notifies each active student of the target section. Failures are
// logged, never surfaced to the publisher.
func (s *AnnouncementService) fanOut(ctx context.Context, announcement *models.Announcement) {
	if s.notifier == nil || announcement.TargetSectionID == nil {
		return
	}
	enrollments, err := s.enrollments.ListBySection(ctx, *announcement.TargetSectionID)
	if err != nil {
		s.logger.Warn("announcement fan-out skipped", zap.String("announcement_id", announcement.ID), zap.Error(err))
		return
	}
	for _, enrollment := range enrollments {
		switch enrollment.Status {
		case models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted, models.EnrollmentStatusAuditing:
		default:
			continue
		}
		student, err := s.students.FindByID(ctx, enrollment.StudentID)
		if err != nil {
			s.logger.Warn("announcement recipient lookup failed",
				zap.String("announcement_id", announcement.ID),
				zap.String("student_id", enrollment.StudentID),
				zap.Error(err))
			continue
		}
		outcome := s.notifier.Dispatch(&models.Notification{
			UserID:  student.UserID,
			Type:    models.NotificationTypeAnnouncement,
			Title:   announcement.Title,
			Message: announcement.Content,
			Payload: encodeJSON(map[string]string{"announcement_id": announcement.ID}),
		})
		if outcome == models.DeliveryDropped {
			s.logger.Warn("announcement notification dropped",
				zap.String("announcement_id", announcement.ID),
				zap.String("user_id", student.UserID))
		}
	}
}
