package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetActive(ctx context.Context, id string, active bool) error
	ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
	ListPrerequisiteCourses(ctx context.Context, courseID string) ([]models.Course, error)
	AddPrerequisite(ctx context.Context, edge *models.CoursePrerequisite) error
	RemovePrerequisite(ctx context.Context, courseID, prerequisiteID string) error
}

type departmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type studentHistoryReader interface {
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// CreateCourseRequest describes a new catalog entry.
type CreateCourseRequest struct {
	Code         string  `json:"code" validate:"required,max=16"`
	Title        string  `json:"title" validate:"required,max=200"`
	Description  *string `json:"description"`
	DepartmentID string  `json:"department_id" validate:"required"`
	Credits      float64 `json:"credits" validate:"required,gt=0,lte=12"`
	Level        *string `json:"level"`
}

// UpdateCourseRequest carries catalog entry updates.
type UpdateCourseRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	Credits     *float64 `json:"credits" validate:"omitempty,gt=0,lte=12"`
	Level       *string  `json:"level"`
	Active      *bool    `json:"active"`
}

// AddPrerequisiteRequest adds one edge to the prerequisite graph.
type AddPrerequisiteRequest struct {
	PrerequisiteID string `json:"prerequisite_id" validate:"required"`
	MinimumGrade   string `json:"minimum_grade" validate:"omitempty,max=2"`
	Mandatory      *bool  `json:"mandatory"`
}

// CourseDetail joins a catalog entry with its direct prerequisites.
type CourseDetail struct {
	models.Course
	Prerequisites []models.CoursePrerequisite `json:"prerequisites"`
}

// PrerequisiteReport is the outcome of a prerequisite check for a student.
type PrerequisiteReport struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// CourseService manages the catalog and the prerequisite graph.
type CourseService struct {
	repo         courseRepository
	departments  departmentReader
	history      studentHistoryReader
	passingGrade float64
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, departments departmentReader, history studentHistoryReader,
	passingGrade float64, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if passingGrade <= 0 {
		passingGrade = 50
	}
	return &CourseService{repo: repo, departments: departments, history: history,
		passingGrade: passingGrade, validator: validate, logger: logger}
}

// List returns catalog entries with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one catalog entry with its direct prerequisites.
func (s *CourseService) Get(ctx context.Context, id string) (*CourseDetail, error) {
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	edges, err := s.repo.ListPrerequisites(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	return &CourseDetail{Course: *course, Prerequisites: edges}, nil
}

// Create adds a catalog entry.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if _, err := s.departments.FindByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}

	course := &models.Course{
		Code:         req.Code,
		Title:        req.Title,
		Description:  req.Description,
		DepartmentID: req.DepartmentID,
		Credits:      req.Credits,
		Level:        req.Level,
		Active:       true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies a catalog entry.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Level != nil {
		course.Level = req.Level
	}
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Deactivate hides a course from the catalog without deleting history.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.loadCourse(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	return nil
}

// AddPrerequisite adds an edge to the prerequisite graph, rejecting
// self-references and anything that would close a cycle.
func (s *CourseService) AddPrerequisite(ctx context.Context, courseID string, req AddPrerequisiteRequest) (*models.CoursePrerequisite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if courseID == req.PrerequisiteID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot be its own prerequisite")
	}
	if req.MinimumGrade != "" && !models.IsValidLetterGrade(req.MinimumGrade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "minimum grade must be a letter grade")
	}
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if _, err := s.loadCourse(ctx, req.PrerequisiteID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListPrerequisites(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	for _, edge := range existing {
		if edge.PrerequisiteID == req.PrerequisiteID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite already exists")
		}
	}

	cycle, err := s.reachable(ctx, req.PrerequisiteID, courseID)
	if err != nil {
		return nil, err
	}
	if cycle {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite would create a cycle")
	}

	minimum := req.MinimumGrade
	if minimum == "" {
		minimum = "C"
	}
	mandatory := true
	if req.Mandatory != nil {
		mandatory = *req.Mandatory
	}
	edge := &models.CoursePrerequisite{
		CourseID:       courseID,
		PrerequisiteID: req.PrerequisiteID,
		MinimumGrade:   minimum,
		Mandatory:      mandatory,
	}
	if err := s.repo.AddPrerequisite(ctx, edge); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add prerequisite")
	}
	return edge, nil
}

// RemovePrerequisite deletes one edge from the prerequisite graph.
func (s *CourseService) RemovePrerequisite(ctx context.Context, courseID, prerequisiteID string) error {
	if err := s.repo.RemovePrerequisite(ctx, courseID, prerequisiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove prerequisite")
	}
	return nil
}

// PrerequisiteClosure returns every course reachable through the
// prerequisite graph from the given course. Traversal tracks visited nodes
// so malformed data containing a cycle cannot loop.
func (s *CourseService) PrerequisiteClosure(ctx context.Context, courseID string) ([]models.Course, error) {
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return nil, err
	}
	visited := map[string]bool{courseID: true}
	queue := []string{courseID}
	var closure []models.Course
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		direct, err := s.repo.ListPrerequisiteCourses(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk prerequisites")
		}
		for _, course := range direct {
			if visited[course.ID] {
				continue
			}
			visited[course.ID] = true
			closure = append(closure, course)
			queue = append(queue, course.ID)
		}
	}
	return closure, nil
}

// CheckPrerequisites verifies a student's completed work against a course's
// mandatory prerequisites. The check is advisory and not part of the
// enrollment eligibility aggregate.
func (s *CourseService) CheckPrerequisites(ctx context.Context, studentID, courseID string) (*PrerequisiteReport, error) {
	edges, err := s.repo.ListPrerequisites(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	report := &PrerequisiteReport{OK: true}
	if len(edges) == 0 {
		return report, nil
	}

	enrollments, err := s.history.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student history")
	}

	for _, edge := range edges {
		if !edge.Mandatory {
			continue
		}
		prereq, err := s.loadCourse(ctx, edge.PrerequisiteID)
		if err != nil {
			return nil, err
		}
		if !s.satisfies(enrollments, prereq.Code, edge.MinimumGrade) {
			report.OK = false
			report.Missing = append(report.Missing, fmt.Sprintf("%s with minimum grade %s", prereq.Code, edge.MinimumGrade))
		}
	}
	return report, nil
}

// satisfies reports whether any completed enrollment in the course meets
// the minimum grade. Numeric grades satisfy the minimum when they pass.
func (s *CourseService) satisfies(enrollments []models.EnrollmentDetail, courseCode, minimumGrade string) bool {
	required := models.GradePoints[minimumGrade]
	for _, e := range enrollments {
		if e.CourseCode != courseCode || e.Status != models.EnrollmentStatusCompleted || e.Grade == nil {
			continue
		}
		if required == nil {
			return true
		}
		if points, ok := models.GradePoints[*e.Grade]; ok {
			if points != nil && *points >= *required {
				return true
			}
			continue
		}
		if v, ok := models.ParseNumericGrade(*e.Grade); ok && v >= s.passingGrade {
			return true
		}
	}
	return false
}

// reachable walks the prerequisite graph from one course looking for
// another, with a visited set guarding against existing cycles.
func (s *CourseService) reachable(ctx context.Context, fromID, targetID string) (bool, error) {
	visited := map[string]bool{fromID: true}
	queue := []string{fromID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		edges, err := s.repo.ListPrerequisites(ctx, id)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk prerequisites")
		}
		for _, edge := range edges {
			if edge.PrerequisiteID == targetID {
				return true, nil
			}
			if visited[edge.PrerequisiteID] {
				continue
			}
			visited[edge.PrerequisiteID] = true
			queue = append(queue, edge.PrerequisiteID)
		}
	}
	return false, nil
}

func (s *CourseService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
