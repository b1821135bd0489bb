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
	"github.com/uniserve/registrar-api/internal/repository"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

const availabilityKeyPrefix = "registrar:availability:"

type enrollmentStore interface {
	InTx(ctx context.Context, fn func(tx repository.EnrollmentTx) error) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	GetByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	ListActiveByStudentTerm(ctx context.Context, studentID, term string) ([]models.EnrollmentDetail, error)
	ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseSection, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type notifier interface {
	Dispatch(notification *models.Notification) models.DeliveryOutcome
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type registrationMetrics interface {
	RecordEnrollment(status models.EnrollmentStatus)
	RecordDrop()
	RecordPromotion()
}

// EnrollRequest describes an enrollment attempt.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	Audit     bool   `json:"audit"`
	Override  bool   `json:"override"`
}

// DropRequest carries the optional drop reason.
type DropRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// EnrollmentPolicy carries the registration policy knobs.
type EnrollmentPolicy struct {
	MaxCreditsPerTerm    float64
	AvailabilityCacheTTL time.Duration
}

// SectionAvailability is the cached seat summary for a section.
type SectionAvailability struct {
	SectionID        string               `json:"section_id"`
	Status           models.SectionStatus `json:"status"`
	Capacity         int                  `json:"capacity"`
	EnrolledCount    int                  `json:"enrolled_count"`
	AvailableSeats   int                  `json:"available_seats"`
	WaitlistCount    int                  `json:"waitlist_count"`
	WaitlistCapacity int                  `json:"waitlist_capacity"`
}

// ReconcileResult reports what a counter reconciliation found and fixed.
type ReconcileResult struct {
	SectionID          string `json:"section_id"`
	PreviousEnrolled   int    `json:"previous_enrolled"`
	PreviousWaitlisted int    `json:"previous_waitlisted"`
	Enrolled           int    `json:"enrolled"`
	Waitlisted         int    `json:"waitlisted"`
	Changed            bool   `json:"changed"`
}

// EnrollmentService implements the registration engine: eligibility checks,
// seat allocation, waitlist bookkeeping and promotion.
type EnrollmentService struct {
	store         enrollmentStore
	sections      sectionReader
	students      studentReader
	notifications notifier
	cache         availabilityCache
	audit         auditWriter
	metrics       registrationMetrics
	policy        EnrollmentPolicy
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService. The notification,
// cache, audit and metrics collaborators are optional.
func NewEnrollmentService(store enrollmentStore, sections sectionReader, students studentReader,
	notifications notifier, cache availabilityCache, audit auditWriter, metrics registrationMetrics,
	policy EnrollmentPolicy, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxCreditsPerTerm <= 0 {
		policy.MaxCreditsPerTerm = 18
	}
	return &EnrollmentService{
		store:         store,
		sections:      sections,
		students:      students,
		notifications: notifications,
		cache:         cache,
		audit:         audit,
		metrics:       metrics,
		policy:        policy,
		validator:     validate,
		logger:        logger,
	}
}

// CheckEligibility runs every enrollment check without mutating anything.
// Errors block enrollment; warnings are advisory.
func (s *EnrollmentService) CheckEligibility(ctx context.Context, studentID, sectionID string) (*models.EligibilityReport, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	section, err := s.loadSectionDetail(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	report, err := s.buildReport(ctx, student, section, true)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Enroll registers a student into a section, taking a seat when one is free
// and joining the waitlist otherwise. Override skips the eligibility checks
// and records who forced the registration.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest, actorID string) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	sectionDetail, err := s.loadSectionDetail(ctx, req.SectionID)
	if err != nil {
		return nil, err
	}

	if !req.Override {
		// Capacity is not checked here: a full section sends the student to
		// the waitlist inside the transaction rather than rejecting them.
		report, err := s.buildReport(ctx, student, sectionDetail, false)
		if err != nil {
			return nil, err
		}
		if !report.OK {
			e := appErrors.Clone(appErrors.ErrNotEligible, report.Errors[0])
			return nil, e
		}
	}

	var (
		enrollmentID string
		status       models.EnrollmentStatus
		position     *int
	)
	err = s.store.InTx(ctx, func(tx repository.EnrollmentTx) error {
		section, err := tx.LockSection(ctx, req.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
		}
		if section.Status != models.SectionStatusOpen && !req.Override {
			return appErrors.Clone(appErrors.ErrSectionClosed, fmt.Sprintf("section is %s", section.Status))
		}

		existing, err := tx.GetByStudentAndSection(ctx, req.StudentID, req.SectionID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		}

		var enrollment *models.Enrollment
		if existing != nil {
			if existing.Status != models.EnrollmentStatusDropped {
				return appErrors.Clone(appErrors.ErrConflict, "student already has an enrollment in this section")
			}
			// Re-registering after a drop reuses the row.
			existing.DroppedAt = nil
			existing.DropReason = nil
			enrollment = existing
		} else {
			enrollment = &models.Enrollment{StudentID: req.StudentID, SectionID: req.SectionID}
		}

		now := time.Now().UTC()
		if req.Audit {
			err = enrollment.Audit(section, now)
		} else {
			err = enrollment.Enroll(section, now)
		}
		if err != nil {
			switch {
			case errors.Is(err, models.ErrWaitlistFull):
				return appErrors.Clone(appErrors.ErrWaitlistFull, "section and waitlist are both full")
			case errors.Is(err, models.ErrAuditingNotAllowed):
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "section does not allow auditing")
			default:
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register enrollment")
			}
		}
		if req.Override {
			enrollment.OverrideBy = &actorID
			overrideAt := now
			enrollment.OverrideAt = &overrideAt
		}

		if existing != nil {
			err = tx.Update(ctx, enrollment)
		} else {
			err = tx.Insert(ctx, enrollment)
		}
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment")
		}

		enrollmentID = enrollment.ID
		status = enrollment.Status
		position = enrollment.WaitlistPosition
		return tx.UpdateSectionCounts(ctx, section.ID, section.EnrolledCount, section.WaitlistCount)
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.invalidateAvailability(ctx, req.SectionID)
	if s.metrics != nil {
		s.metrics.RecordEnrollment(status)
	}

	action := models.AuditActionEnroll
	if req.Override {
		action = models.AuditActionEnrollOverride
	}
	s.recordAudit(ctx, actorID, action, "enrollment", enrollmentID, map[string]interface{}{
		"student_id": req.StudentID,
		"section_id": req.SectionID,
		"status":     status,
	})

	title := "Enrollment confirmed"
	message := fmt.Sprintf("You are enrolled in %s %s (%s).", sectionDetail.CourseCode, sectionDetail.SectionCode, sectionDetail.Term)
	if status == models.EnrollmentStatusWaitlisted && position != nil {
		title = "Added to waitlist"
		message = fmt.Sprintf("%s %s is full; you are number %d on the waitlist.", sectionDetail.CourseCode, sectionDetail.SectionCode, *position)
	}
	s.notify(student.UserID, models.NotificationTypeEnrollment, title, message, map[string]interface{}{
		"enrollment_id": enrollmentID,
		"section_id":    req.SectionID,
		"status":        status,
	})

	detail, err := s.store.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Drop releases an active enrollment. Dropping an enrolled student frees a
// seat and triggers a waitlist promotion; dropping a waitlisted student
// renumbers the remaining queue.
func (s *EnrollmentService) Drop(ctx context.Context, enrollmentID string, req DropRequest, actorID string) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop payload")
	}

	var (
		sectionID  string
		prevStatus models.EnrollmentStatus
	)
	err := s.store.InTx(ctx, func(tx repository.EnrollmentTx) error {
		enrollment, err := tx.GetEnrollment(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if !enrollment.Status.Droppable() {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("cannot drop an enrollment in status %s", enrollment.Status))
		}

		section, err := tx.LockSection(ctx, enrollment.SectionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
		}

		sectionID = section.ID
		prevStatus = enrollment.Status
		enrollment.Drop(section, req.Reason, time.Now().UTC())
		if err := tx.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
		}

		if prevStatus == models.EnrollmentStatusWaitlisted {
			if err := s.renumberWaitlist(ctx, tx, section.ID); err != nil {
				return err
			}
		}
		return tx.UpdateSectionCounts(ctx, section.ID, section.EnrolledCount, section.WaitlistCount)
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.invalidateAvailability(ctx, sectionID)
	if s.metrics != nil {
		s.metrics.RecordDrop()
	}
	s.recordAudit(ctx, actorID, models.AuditActionDrop, "enrollment", enrollmentID, map[string]interface{}{
		"previous_status": prevStatus,
		"reason":          req.Reason,
	})

	// A freed seat is offered to the waitlist in its own transaction; a
	// failure here never undoes the drop.
	if prevStatus == models.EnrollmentStatusEnrolled {
		if _, err := s.PromoteWaitlist(ctx, sectionID); err != nil {
			s.logger.Warn("waitlist promotion after drop failed",
				zap.String("section_id", sectionID), zap.Error(err))
		}
	}

	detail, err := s.store.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// PromoteWaitlist moves the head of the waitlist into an open seat. Returns
// nil without error when the section is full or the waitlist is empty.
func (s *EnrollmentService) PromoteWaitlist(ctx context.Context, sectionID string) (*models.EnrollmentDetail, error) {
	var (
		promotedID     string
		promotedUserID string
	)
	err := s.store.InTx(ctx, func(tx repository.EnrollmentTx) error {
		section, err := tx.LockSection(ctx, sectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
		}
		if section.IsFull() {
			return nil
		}

		waitlisted, err := tx.ListWaitlisted(ctx, sectionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
		}
		if len(waitlisted) == 0 {
			return nil
		}

		now := time.Now().UTC()
		next := &waitlisted[0]
		if !next.Promote(section, now) {
			return nil
		}
		if err := tx.Update(ctx, next); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote enrollment")
		}

		remaining := make([]*models.Enrollment, 0, len(waitlisted)-1)
		for i := range waitlisted[1:] {
			remaining = append(remaining, &waitlisted[i+1])
		}
		models.RenumberWaitlist(remaining)
		if err := tx.UpdateWaitlistPositions(ctx, remaining); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renumber waitlist")
		}

		promotedID = next.ID
		return tx.UpdateSectionCounts(ctx, sectionID, section.EnrolledCount, section.WaitlistCount)
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if promotedID == "" {
		return nil, nil
	}

	s.invalidateAvailability(ctx, sectionID)
	if s.metrics != nil {
		s.metrics.RecordPromotion()
	}

	detail, err := s.store.FindDetailByID(ctx, promotedID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promoted enrollment")
	}
	s.recordAudit(ctx, "", models.AuditActionWaitlistPromote, "enrollment", promotedID, map[string]interface{}{
		"section_id": sectionID,
		"student_id": detail.StudentID,
	})
	if student, err := s.students.FindByID(ctx, detail.StudentID); err == nil {
		promotedUserID = student.UserID
	}
	if promotedUserID != "" {
		s.notify(promotedUserID, models.NotificationTypeEnrollment,
			"Enrolled from waitlist",
			fmt.Sprintf("A seat opened up in %s %s and you are now enrolled.", detail.CourseCode, detail.SectionCode),
			map[string]interface{}{"enrollment_id": promotedID, "section_id": sectionID})
	}
	return detail, nil
}

// ReconcileSection recomputes a section's counters and waitlist positions
// from enrollment rows, repairing any drift in the cached values.
func (s *EnrollmentService) ReconcileSection(ctx context.Context, sectionID, actorID string) (*ReconcileResult, error) {
	result := &ReconcileResult{SectionID: sectionID}
	err := s.store.InTx(ctx, func(tx repository.EnrollmentTx) error {
		section, err := tx.LockSection(ctx, sectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
		}
		counts, err := tx.CountByStatus(ctx, sectionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if err := s.renumberWaitlist(ctx, tx, sectionID); err != nil {
			return err
		}

		result.PreviousEnrolled = section.EnrolledCount
		result.PreviousWaitlisted = section.WaitlistCount
		result.Enrolled = counts[models.EnrollmentStatusEnrolled]
		result.Waitlisted = counts[models.EnrollmentStatusWaitlisted]
		result.Changed = result.Enrolled != result.PreviousEnrolled || result.Waitlisted != result.PreviousWaitlisted
		return tx.UpdateSectionCounts(ctx, sectionID, result.Enrolled, result.Waitlisted)
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	s.invalidateAvailability(ctx, sectionID)
	if result.Changed {
		s.logger.Info("section counters reconciled",
			zap.String("section_id", sectionID),
			zap.Int("enrolled", result.Enrolled),
			zap.Int("waitlisted", result.Waitlisted))
	}
	s.recordAudit(ctx, actorID, models.AuditActionReconcile, "section", sectionID, result)
	return result, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with catalog context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.store.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Schedule returns a student's Enrolled sections for a term.
func (s *EnrollmentService) Schedule(ctx context.Context, studentID, term string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.store.ListActiveByStudentTerm(ctx, studentID, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return enrollments, nil
}

// Summary aggregates a student's registration state.
func (s *EnrollmentService) Summary(ctx context.Context, studentID string) (*models.EnrollmentSummary, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.store.ListDetailsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	summary := &models.EnrollmentSummary{GPA: student.GPA}
	for _, e := range enrollments {
		switch e.Status {
		case models.EnrollmentStatusEnrolled:
			summary.EnrolledCount++
			summary.TotalCredits += e.Credits
		case models.EnrollmentStatusWaitlisted:
			summary.WaitlistedCount++
		case models.EnrollmentStatusCompleted:
			summary.CompletedCount++
		}
	}
	return summary, nil
}

// Availability returns the seat summary for a section, served from cache
// when possible.
func (s *EnrollmentService) Availability(ctx context.Context, sectionID string) (*SectionAvailability, error) {
	key := availabilityKeyPrefix + sectionID
	if s.cache != nil {
		var cached SectionAvailability
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	availability := &SectionAvailability{
		SectionID:        section.ID,
		Status:           section.Status,
		Capacity:         section.Capacity,
		EnrolledCount:    section.EnrolledCount,
		AvailableSeats:   section.AvailableSeats(),
		WaitlistCount:    section.WaitlistCount,
		WaitlistCapacity: section.WaitlistCapacity,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, availability, s.policy.AvailabilityCacheTTL); err != nil {
			s.logger.Debug("failed to cache availability", zap.Error(err))
		}
	}
	return availability, nil
}

func (s *EnrollmentService) renumberWaitlist(ctx context.Context, tx repository.EnrollmentTx, sectionID string) error {
	waitlisted, err := tx.ListWaitlisted(ctx, sectionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}
	refs := make([]*models.Enrollment, len(waitlisted))
	for i := range waitlisted {
		refs[i] = &waitlisted[i]
	}
	models.RenumberWaitlist(refs)
	if err := tx.UpdateWaitlistPositions(ctx, refs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renumber waitlist")
	}
	return nil
}

func (s *EnrollmentService) buildReport(ctx context.Context, student *models.StudentDetail, section *models.SectionDetail, includeCapacity bool) (*models.EligibilityReport, error) {
	report := &models.EligibilityReport{}

	if student.AcademicStatus != models.AcademicStatusActive {
		report.Errors = append(report.Errors, fmt.Sprintf("student status is %s; only Active students may enroll", student.AcademicStatus))
	}
	if section.Status != models.SectionStatusOpen {
		report.Errors = append(report.Errors, fmt.Sprintf("section is %s", section.Status))
	}
	if includeCapacity && section.IsFull() {
		report.Errors = append(report.Errors, "section is full")
	}

	existing, err := s.store.GetByStudentAndSection(ctx, student.ID, section.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if existing != nil {
		switch existing.Status {
		case models.EnrollmentStatusEnrolled:
			report.Errors = append(report.Errors, "already enrolled in this section")
		case models.EnrollmentStatusWaitlisted:
			if existing.WaitlistPosition != nil {
				report.Warnings = append(report.Warnings, fmt.Sprintf("already on the waitlist at position %d", *existing.WaitlistPosition))
			} else {
				report.Warnings = append(report.Warnings, "already on the waitlist")
			}
		}
	}

	active, err := s.store.ListActiveByStudentTerm(ctx, student.ID, section.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term enrollments")
	}
	var termCredits float64
	for _, e := range active {
		termCredits += e.Credits
		if e.SectionID == section.ID {
			continue
		}
		if e.Schedule.Overlaps(section.Schedule) {
			report.Errors = append(report.Errors, fmt.Sprintf("schedule conflict with %s %s", e.CourseCode, e.SectionCode))
		}
	}
	if termCredits+section.Credits > s.policy.MaxCreditsPerTerm {
		report.Warnings = append(report.Warnings, fmt.Sprintf("enrolling exceeds the %.0f credit limit for the term", s.policy.MaxCreditsPerTerm))
	}

	report.OK = len(report.Errors) == 0
	return report, nil
}

func (s *EnrollmentService) loadStudent(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *EnrollmentService) loadSectionDetail(ctx context.Context, sectionID string) (*models.SectionDetail, error) {
	section, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

func (s *EnrollmentService) invalidateAvailability(ctx context.Context, sectionID string) {
	if s.cache == nil || sectionID == "" {
		return
	}
	if err := s.cache.Delete(ctx, availabilityKeyPrefix+sectionID); err != nil {
		s.logger.Debug("failed to invalidate availability cache", zap.Error(err))
	}
}

func (s *EnrollmentService) notify(userID, notificationType, title, message string, payload interface{}) {
	if s.notifications == nil || userID == "" {
		return
	}
	outcome := s.notifications.Dispatch(&models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Payload: encodeJSON(payload),
	})
	if outcome != models.DeliveryQueued {
		s.logger.Debug("notification not queued",
			zap.String("user_id", userID), zap.String("outcome", string(outcome)))
	}
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actorID, action, entityType, entityID string, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		NewValues:  encodeJSON(newValues),
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
