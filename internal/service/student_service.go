package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.StudentProfile) error
	Update(ctx context.Context, student *models.StudentProfile) error
	UpdateAcademicStatus(ctx context.Context, id, status string) error
}

type studentUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// CreateStudentRequest provisions a user account plus a student profile.
type CreateStudentRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8"`
	FullName       string  `json:"full_name" validate:"required,max=150"`
	StudentNumber  string  `json:"student_number" validate:"required,max=20"`
	Program        *string `json:"program"`
	Major          *string `json:"major"`
	EnrollmentYear int     `json:"enrollment_year" validate:"required,gte=1950"`
	AdvisorID      *string `json:"advisor_id"`
}

// UpdateStudentRequest carries profile updates.
type UpdateStudentRequest struct {
	Program        *string `json:"program"`
	Major          *string `json:"major"`
	EnrollmentYear *int    `json:"enrollment_year" validate:"omitempty,gte=1950"`
	AdvisorID      *string `json:"advisor_id"`
	AcademicStatus *string `json:"academic_status" validate:"omitempty,oneof=Active Suspended Graduated Withdrawn"`
}

// StudentService manages student profiles and their user accounts.
type StudentService struct {
	repo      studentRepository
	users     studentUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, users studentUserRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns student profiles with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student profile with user context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByUserID returns the profile owned by a user account.
func (s *StudentService) GetByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create provisions a student account and profile.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	exists, err := s.repo.ExistsByStudentNumber(ctx, req.StudentNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	enrollmentYear := req.EnrollmentYear
	if enrollmentYear == 0 {
		enrollmentYear = time.Now().UTC().Year()
	}
	student := &models.StudentProfile{
		UserID:         user.ID,
		StudentNumber:  req.StudentNumber,
		Program:        req.Program,
		Major:          req.Major,
		EnrollmentYear: enrollmentYear,
		AcademicStatus: models.AcademicStatusActive,
		AdvisorID:      req.AdvisorID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
	}

	return s.Get(ctx, student.ID)
}

// Update modifies a student profile.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := detail.StudentProfile
	if req.Program != nil {
		profile.Program = req.Program
	}
	if req.Major != nil {
		profile.Major = req.Major
	}
	if req.EnrollmentYear != nil {
		profile.EnrollmentYear = *req.EnrollmentYear
	}
	if req.AdvisorID != nil {
		profile.AdvisorID = req.AdvisorID
	}
	if req.AcademicStatus != nil {
		profile.AcademicStatus = *req.AcademicStatus
	}
	if err := s.repo.Update(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// UpdateAcademicStatus transitions a student's standing.
func (s *StudentService) UpdateAcademicStatus(ctx context.Context, id, status string) error {
	switch status {
	case models.AcademicStatusActive, models.AcademicStatusSuspended,
		models.AcademicStatusGraduated, models.AcademicStatusWithdrawn:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown academic status")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateAcademicStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic status")
	}
	return nil
}
