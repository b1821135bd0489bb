package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseSection, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ExistsByCode(ctx context.Context, courseID, term, sectionCode, excludeID string) (bool, error)
	Create(ctx context.Context, section *models.CourseSection) error
	Update(ctx context.Context, section *models.CourseSection) error
	UpdateStatus(ctx context.Context, id string, status models.SectionStatus) error
	ListByInstructor(ctx context.Context, instructorID, term string) ([]models.SectionDetail, error)
}

type sectionCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type sectionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateSectionRequest describes a new scheduled offering.
type CreateSectionRequest struct {
	CourseID         string          `json:"course_id" validate:"required"`
	SectionCode      string          `json:"section_code" validate:"required,max=8"`
	Term             string          `json:"term" validate:"required,max=16"`
	InstructorID     *string         `json:"instructor_id"`
	Capacity         int             `json:"capacity" validate:"required,gt=0"`
	WaitlistCapacity int             `json:"waitlist_capacity" validate:"gte=0"`
	Schedule         models.Schedule `json:"schedule" validate:"required"`
	StartDate        time.Time       `json:"start_date" validate:"required"`
	EndDate          time.Time       `json:"end_date" validate:"required"`
	DeliveryMode     string          `json:"delivery_mode" validate:"omitempty,oneof=InPerson Online Hybrid"`
	AllowAudit       bool            `json:"allow_audit"`
}

// UpdateSectionRequest carries section updates. Counters are never part of
// the payload; only the registration engine writes them.
type UpdateSectionRequest struct {
	InstructorID     *string          `json:"instructor_id"`
	Capacity         *int             `json:"capacity" validate:"omitempty,gt=0"`
	WaitlistCapacity *int             `json:"waitlist_capacity" validate:"omitempty,gte=0"`
	Schedule         *models.Schedule `json:"schedule"`
	StartDate        *time.Time       `json:"start_date"`
	EndDate          *time.Time       `json:"end_date"`
	DeliveryMode     *string          `json:"delivery_mode" validate:"omitempty,oneof=InPerson Online Hybrid"`
	AllowAudit       *bool            `json:"allow_audit"`
}

// SectionService manages scheduled course offerings.
type SectionService struct {
	repo                    sectionRepository
	courses                 sectionCourseReader
	users                   sectionUserReader
	defaultWaitlistCapacity int
	validator               *validator.Validate
	logger                  *zap.Logger
}

// NewSectionService constructs a SectionService.
func NewSectionService(repo sectionRepository, courses sectionCourseReader, users sectionUserReader,
	defaultWaitlistCapacity int, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultWaitlistCapacity <= 0 {
		defaultWaitlistCapacity = 10
	}
	return &SectionService{repo: repo, courses: courses, users: users,
		defaultWaitlistCapacity: defaultWaitlistCapacity, validator: validate, logger: logger}
}

// List returns sections with pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one section with catalog context.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return detail, nil
}

// Create schedules a new offering of a course.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.CourseSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if err := validateSchedule(req.Schedule); err != nil {
		return nil, err
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not active")
	}
	if req.InstructorID != nil {
		if err := s.checkInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.ExistsByCode(ctx, req.CourseID, req.Term, req.SectionCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section code already used for this course and term")
	}

	waitlistCapacity := req.WaitlistCapacity
	if waitlistCapacity == 0 {
		waitlistCapacity = s.defaultWaitlistCapacity
	}
	deliveryMode := req.DeliveryMode
	if deliveryMode == "" {
		deliveryMode = "InPerson"
	}
	section := &models.CourseSection{
		CourseID:         req.CourseID,
		SectionCode:      req.SectionCode,
		Term:             req.Term,
		InstructorID:     req.InstructorID,
		Capacity:         req.Capacity,
		WaitlistCapacity: waitlistCapacity,
		Schedule:         req.Schedule,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		DeliveryMode:     deliveryMode,
		Status:           models.SectionStatusOpen,
		AllowAudit:       req.AllowAudit,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// Update modifies a scheduled offering.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.CourseSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if req.InstructorID != nil {
		if err := s.checkInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
		section.InstructorID = req.InstructorID
	}
	if req.Capacity != nil {
		// Shrinking below the current enrollment is allowed; existing seats
		// are never revoked, the section just stops admitting.
		section.Capacity = *req.Capacity
	}
	if req.WaitlistCapacity != nil {
		section.WaitlistCapacity = *req.WaitlistCapacity
	}
	if req.Schedule != nil {
		if err := validateSchedule(*req.Schedule); err != nil {
			return nil, err
		}
		section.Schedule = *req.Schedule
	}
	if req.StartDate != nil {
		section.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		section.EndDate = *req.EndDate
	}
	if !section.EndDate.After(section.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	if req.DeliveryMode != nil {
		section.DeliveryMode = *req.DeliveryMode
	}
	if req.AllowAudit != nil {
		section.AllowAudit = *req.AllowAudit
	}

	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// UpdateStatus transitions the section lifecycle. Cancelled is terminal.
func (s *SectionService) UpdateStatus(ctx context.Context, id string, status models.SectionStatus) (*models.CourseSection, error) {
	switch status {
	case models.SectionStatusOpen, models.SectionStatusClosed, models.SectionStatusCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown section status")
	}
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.Status == models.SectionStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "section is cancelled")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section status")
	}
	section.Status = status
	return section, nil
}

// ListByInstructor returns an instructor's sections for a term.
func (s *SectionService) ListByInstructor(ctx context.Context, instructorID, term string) ([]models.SectionDetail, error) {
	sections, err := s.repo.ListByInstructor(ctx, instructorID, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor sections")
	}
	return sections, nil
}

func (s *SectionService) checkInstructor(ctx context.Context, instructorID string) error {
	user, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if user.Role != models.RoleInstructor {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "user is not an instructor")
	}
	return nil
}

var validDays = map[string]bool{
	"Mon": true, "Tue": true, "Wed": true, "Thu": true, "Fri": true, "Sat": true, "Sun": true,
}

func validateSchedule(schedule models.Schedule) error {
	if len(schedule.Days) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "schedule needs at least one meeting day")
	}
	for _, day := range schedule.Days {
		if !validDays[day] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown meeting day %q", day))
		}
	}
	start, err := time.Parse("15:04", schedule.Start)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "schedule start must be HH:MM")
	}
	end, err := time.Parse("15:04", schedule.End)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "schedule end must be HH:MM")
	}
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "schedule end must be after start")
	}
	return nil
}
