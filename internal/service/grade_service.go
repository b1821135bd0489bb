package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

type gradeStore interface {
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error)
	Roster(ctx context.Context, sectionID string) ([]models.RosterEntry, error)
	GradeCounts(ctx context.Context, sectionID string) (models.GradeDistribution, error)
}

type gradeStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	UpdateAcademics(ctx context.Context, id string, gpa, creditsEarned float64) error
}

type gradeMetrics interface {
	RecordGrade()
}

// SetGradeRequest carries a final grade value, either a letter grade or a
// numeric percentage such as "85" or "72.5%".
type SetGradeRequest struct {
	Grade string `json:"grade" validate:"required,max=6"`
}

// BulkGradeEntry is one row of a bulk grading submission.
type BulkGradeEntry struct {
	EnrollmentID string `json:"enrollment_id" validate:"required"`
	Grade        string `json:"grade" validate:"required,max=6"`
}

// BulkGradeFailure reports one rejected row of a bulk submission.
type BulkGradeFailure struct {
	EnrollmentID string `json:"enrollment_id"`
	Reason       string `json:"reason"`
}

// BulkGradeResult summarises a bulk grading submission.
type BulkGradeResult struct {
	Applied  int                `json:"applied"`
	Failures []BulkGradeFailure `json:"failures,omitempty"`
}

// GradeChangeResult reports a recorded grade together with the
// human-readable outcome messages shown to the grader.
type GradeChangeResult struct {
	Enrollment *models.EnrollmentDetail `json:"enrollment"`
	Messages   []string                 `json:"messages"`
}

// GPAResult reports a recomputed grade point average.
type GPAResult struct {
	StudentID     string  `json:"student_id"`
	GPA           float64 `json:"gpa"`
	GradedCredits float64 `json:"graded_credits"`
	CreditsEarned float64 `json:"credits_earned"`
}

// GradeService implements the grading engine: recording final grades,
// deriving enrollment outcomes and recomputing GPA aggregates.
type GradeService struct {
	store         gradeStore
	students      gradeStudentStore
	notifications notifier
	audit         auditWriter
	metrics       gradeMetrics
	passingGrade  float64
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewGradeService constructs a GradeService. Notification, audit and metrics
// collaborators are optional.
func NewGradeService(store gradeStore, students gradeStudentStore, notifications notifier,
	audit auditWriter, metrics gradeMetrics, passingGrade float64,
	validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if passingGrade <= 0 {
		passingGrade = 50
	}
	return &GradeService{
		store:         store,
		students:      students,
		notifications: notifications,
		audit:         audit,
		metrics:       metrics,
		passingGrade:  passingGrade,
		validator:     validate,
		logger:        logger,
	}
}

// SetGrade records a final grade on one enrollment and refreshes the
// student's cached GPA. The result carries a message describing the change,
// "Grade set to A" on a first grade or "Grade changed from B to A" on a
// correction.
func (s *GradeService) SetGrade(ctx context.Context, enrollmentID string, req SetGradeRequest, actorID string) (*GradeChangeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Status.Gradable() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot grade an enrollment in status %s", enrollment.Status))
	}

	previousGrade := enrollment.Grade
	if err := enrollment.ApplyGrade(req.Grade, s.passingGrade, time.Now().UTC()); err != nil {
		if errors.Is(err, models.ErrInvalidGradeValue) {
			return nil, appErrors.Clone(appErrors.ErrInvalidGrade, fmt.Sprintf("%q is not a letter grade or percentage", req.Grade))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply grade")
	}
	if err := s.store.Update(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist grade")
	}
	if s.metrics != nil {
		s.metrics.RecordGrade()
	}

	message := fmt.Sprintf("Grade set to %s", *enrollment.Grade)
	if previousGrade != nil {
		message = fmt.Sprintf("Grade changed from %s to %s", *previousGrade, *enrollment.Grade)
	}

	if _, err := s.RecalculateGPA(ctx, enrollment.StudentID, actorID); err != nil {
		s.logger.Warn("gpa recalculation after grading failed",
			zap.String("student_id", enrollment.StudentID), zap.Error(err))
	}

	s.recordGradeAudit(ctx, actorID, enrollmentID, previousGrade, enrollment.Grade)

	detail, err := s.store.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	if student, err := s.students.FindByID(ctx, detail.StudentID); err == nil {
		s.notify(student.UserID, detail)
	}
	return &GradeChangeResult{Enrollment: detail, Messages: []string{message}}, nil
}

// BulkSetGrades applies a batch of grades to one section. Rows are applied
// independently; a failed row is reported without blocking the rest.
func (s *GradeService) BulkSetGrades(ctx context.Context, sectionID string, entries []BulkGradeEntry, actorID string) (*BulkGradeResult, error) {
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grades submitted")
	}

	result := &BulkGradeResult{}
	for _, entry := range entries {
		if err := s.validator.Struct(entry); err != nil {
			result.Failures = append(result.Failures, BulkGradeFailure{EnrollmentID: entry.EnrollmentID, Reason: "invalid entry"})
			continue
		}
		enrollment, err := s.store.GetEnrollment(ctx, entry.EnrollmentID)
		if err != nil {
			result.Failures = append(result.Failures, BulkGradeFailure{EnrollmentID: entry.EnrollmentID, Reason: "enrollment not found"})
			continue
		}
		if enrollment.SectionID != sectionID {
			result.Failures = append(result.Failures, BulkGradeFailure{EnrollmentID: entry.EnrollmentID, Reason: "enrollment does not belong to section"})
			continue
		}
		if _, err := s.SetGrade(ctx, entry.EnrollmentID, SetGradeRequest{Grade: entry.Grade}, actorID); err != nil {
			result.Failures = append(result.Failures, BulkGradeFailure{EnrollmentID: entry.EnrollmentID, Reason: appErrors.FromError(err).Message})
			continue
		}
		result.Applied++
	}
	return result, nil
}

// RecalculateGPA recomputes a student's GPA and earned credits from their
// enrollments and writes the cached aggregates back to the profile. Both
// aggregates cover the same rows: letter grades with grade points, F
// included. Numeric grades carry no grade points and never contribute.
func (s *GradeService) RecalculateGPA(ctx context.Context, studentID, actorID string) (*GPAResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments, err := s.store.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	gpa, gradedCredits, ok := computeGPA(enrollments)
	creditsEarned := gradedCredits
	if !ok {
		// No graded credits yet; the cached aggregates stand.
		gpa = student.GPA
		creditsEarned = student.TotalCreditsEarned
	}

	if err := s.students.UpdateAcademics(ctx, studentID, gpa, creditsEarned); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student aggregates")
	}
	s.recordAudit(ctx, actorID, models.AuditActionGPARecalc, "student", studentID, map[string]interface{}{
		"gpa":            gpa,
		"credits_earned": creditsEarned,
	})
	return &GPAResult{StudentID: studentID, GPA: gpa, GradedCredits: gradedCredits, CreditsEarned: creditsEarned}, nil
}

// TermGPA computes a student's GPA over one term without touching the
// cached aggregates.
func (s *GradeService) TermGPA(ctx context.Context, studentID, term string) (*GPAResult, error) {
	enrollments, err := s.store.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	var scoped []models.EnrollmentDetail
	for _, e := range enrollments {
		if e.Term == term {
			scoped = append(scoped, e)
		}
	}
	gpa, gradedCredits, _ := computeGPA(scoped)
	return &GPAResult{StudentID: studentID, GPA: gpa, GradedCredits: gradedCredits}, nil
}

// Distribution returns the grade histogram of a section.
func (s *GradeService) Distribution(ctx context.Context, sectionID string) (models.GradeDistribution, error) {
	dist, err := s.store.GradeCounts(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade distribution")
	}
	return dist, nil
}

// Summary reports grading progress for a section. Dropped and waitlisted
// enrollments are not counted.
func (s *GradeService) Summary(ctx context.Context, sectionID string) (*models.GradingSummary, error) {
	enrollments, err := s.store.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	summary := &models.GradingSummary{}
	for _, e := range enrollments {
		if e.Status == models.EnrollmentStatusDropped || e.Status == models.EnrollmentStatusWaitlisted {
			continue
		}
		summary.TotalStudents++
		if e.Grade != nil {
			summary.Graded++
		}
	}
	summary.Ungraded = summary.TotalStudents - summary.Graded
	if summary.TotalStudents > 0 {
		summary.PercentageComplete = round1(float64(summary.Graded) / float64(summary.TotalStudents) * 100)
	}
	return summary, nil
}

// Roster returns the student rows of a section for grading.
func (s *GradeService) Roster(ctx context.Context, sectionID string) ([]models.RosterEntry, error) {
	roster, err := s.store.Roster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// computeGPA averages grade points weighted by credits. Rows without grade
// points or without credits are skipped; ok is false when nothing counted.
func computeGPA(enrollments []models.EnrollmentDetail) (gpa float64, gradedCredits float64, ok bool) {
	var totalPoints float64
	for _, e := range enrollments {
		if e.GradePoints == nil || e.Credits <= 0 {
			continue
		}
		totalPoints += *e.GradePoints * e.Credits
		gradedCredits += e.Credits
	}
	if gradedCredits == 0 {
		return 0, 0, false
	}
	return round2(totalPoints / gradedCredits), gradedCredits, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (s *GradeService) notify(userID string, detail *models.EnrollmentDetail) {
	if s.notifications == nil || userID == "" || detail.Grade == nil {
		return
	}
	outcome := s.notifications.Dispatch(&models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeGrade,
		Title:   "Grade posted",
		Message: fmt.Sprintf("A final grade was posted for %s %s.", detail.CourseCode, detail.SectionCode),
		Payload: encodeJSON(map[string]interface{}{"enrollment_id": detail.ID, "grade": *detail.Grade}),
	})
	if outcome != models.DeliveryQueued {
		s.logger.Debug("grade notification not queued", zap.String("user_id", userID), zap.String("outcome", string(outcome)))
	}
}

func (s *GradeService) recordGradeAudit(ctx context.Context, actorID, enrollmentID string, oldGrade, newGrade *string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     models.AuditActionGradeChange,
		EntityType: "enrollment",
		EntityID:   &enrollmentID,
		OldValues:  encodeJSON(map[string]interface{}{"grade": oldGrade}),
		NewValues:  encodeJSON(map[string]interface{}{"grade": newGrade}),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record grade audit log", zap.Error(err))
	}
}

func (s *GradeService) recordAudit(ctx context.Context, actorID, action, entityType, entityID string, values interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		NewValues:  encodeJSON(values),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
