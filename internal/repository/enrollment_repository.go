package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniserve/registrar-api/internal/models"
)

const enrollmentColumns = `id, student_id, section_id, status, waitlist_position, grade, grade_points,
        enrolled_at, waitlisted_at, dropped_at, graded_at, drop_reason, override_by, override_at, created_at, updated_at`

// EnrollmentTx exposes the persistence operations available inside a
// registration transaction. The section row returned by LockSection is held
// under a row lock until the transaction ends, so counter updates based on
// it cannot race.
type EnrollmentTx interface {
	LockSection(ctx context.Context, sectionID string) (*models.CourseSection, error)
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	GetByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	UpdateSectionCounts(ctx context.Context, sectionID string, enrolled, waitlisted int) error
	ListWaitlisted(ctx context.Context, sectionID string) ([]models.Enrollment, error)
	UpdateWaitlistPositions(ctx context.Context, enrollments []*models.Enrollment) error
	CountByStatus(ctx context.Context, sectionID string) (map[models.EnrollmentStatus]int, error)
}

// EnrollmentRepository handles persistence of enrollments and the section
// counters they maintain.
type EnrollmentRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, ext: db}
}

// InTx runs fn inside a database transaction. The EnrollmentTx passed to fn
// is bound to that transaction; the transaction commits when fn returns nil
// and rolls back otherwise.
func (r *EnrollmentRepository) InTx(ctx context.Context, fn func(tx EnrollmentTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration tx: %w", err)
	}
	txRepo := &EnrollmentRepository{db: r.db, ext: tx}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration tx: %w", err)
	}
	return nil
}

// LockSection loads a section row under FOR UPDATE.
func (r *EnrollmentRepository) LockSection(ctx context.Context, sectionID string) (*models.CourseSection, error) {
	const query = `SELECT id, course_id, section_code, term, instructor_id, capacity, enrolled_count,
        waitlist_capacity, waitlist_count, schedule, start_date, end_date, delivery_mode, status, allow_audit, created_at, updated_at
        FROM course_sections WHERE id = $1 FOR UPDATE`
	var section models.CourseSection
	if err := sqlx.GetContext(ctx, r.ext, &section, query, sectionID); err != nil {
		return nil, err
	}
	return &section, nil
}

// GetEnrollment returns an enrollment by its ID.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.ext, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// GetByStudentAndSection returns the enrollment for a student/section pair.
func (r *EnrollmentRepository) GetByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 AND section_id = $2", enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.ext, &enrollment, query, studentID, sectionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Insert persists a new enrollment row.
func (r *EnrollmentRepository) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, section_id, status, waitlist_position, grade, grade_points,
        enrolled_at, waitlisted_at, dropped_at, graded_at, drop_reason, override_by, override_at, created_at, updated_at)
        VALUES (:id, :student_id, :section_id, :status, :waitlist_position, :grade, :grade_points,
        :enrolled_at, :waitlisted_at, :dropped_at, :graded_at, :drop_reason, :override_by, :override_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update persists every mutable column of an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET status = :status, waitlist_position = :waitlist_position,
        grade = :grade, grade_points = :grade_points, enrolled_at = :enrolled_at, waitlisted_at = :waitlisted_at,
        dropped_at = :dropped_at, graded_at = :graded_at, drop_reason = :drop_reason,
        override_by = :override_by, override_at = :override_at, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.ext, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// UpdateSectionCounts writes the cached seat and waitlist counters.
func (r *EnrollmentRepository) UpdateSectionCounts(ctx context.Context, sectionID string, enrolled, waitlisted int) error {
	const query = `UPDATE course_sections SET enrolled_count = $2, waitlist_count = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.ext.ExecContext(ctx, query, sectionID, enrolled, waitlisted, time.Now().UTC()); err != nil {
		return fmt.Errorf("update section counts: %w", err)
	}
	return nil
}

// ListWaitlisted returns the waitlisted enrollments of a section ordered by
// position, ties broken by waitlist entry time.
func (r *EnrollmentRepository) ListWaitlisted(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE section_id = $1 AND status = $2
        ORDER BY waitlist_position ASC NULLS LAST, waitlisted_at ASC`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, sectionID, models.EnrollmentStatusWaitlisted); err != nil {
		return nil, fmt.Errorf("list waitlisted: %w", err)
	}
	return enrollments, nil
}

// UpdateWaitlistPositions writes the given positions back, one row each.
func (r *EnrollmentRepository) UpdateWaitlistPositions(ctx context.Context, enrollments []*models.Enrollment) error {
	const query = `UPDATE enrollments SET waitlist_position = $2, updated_at = $3 WHERE id = $1`
	now := time.Now().UTC()
	for _, e := range enrollments {
		if _, err := r.ext.ExecContext(ctx, query, e.ID, e.WaitlistPosition, now); err != nil {
			return fmt.Errorf("update waitlist position: %w", err)
		}
	}
	return nil
}

// CountByStatus tallies a section's enrollments grouped by status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, sectionID string) (map[models.EnrollmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM enrollments WHERE section_id = $1 GROUP BY status`
	rows, err := r.ext.QueryxContext(ctx, query, sectionID)
	if err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	defer rows.Close()
	counts := make(map[models.EnrollmentStatus]int)
	for rows.Next() {
		var (
			status models.EnrollmentStatus
			total  int
		)
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = total
	}
	return counts, rows.Err()
}

// List returns enrollments with catalog context, filtered and paginated.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN course_sections cs ON cs.id = e.section_id
JOIN courses c ON c.id = cs.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("cs.term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Graded != nil {
		if *filter.Graded {
			conditions = append(conditions, "e.grade IS NOT NULL")
		} else {
			conditions = append(conditions, "e.grade IS NULL")
		}
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":  "e.created_at",
		"enrolled_at": "e.enrolled_at",
		"course_code": "c.code",
		"term":        "cs.term",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.section_id, e.status, e.waitlist_position, e.grade, e.grade_points,
        e.enrolled_at, e.waitlisted_at, e.dropped_at, e.graded_at, e.drop_reason, e.override_by, e.override_at, e.created_at, e.updated_at,
        c.code AS course_code, c.title AS course_title, cs.section_code, cs.term, c.credits, cs.schedule
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := sqlx.GetContext(ctx, r.ext, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindDetailByID returns one enrollment with catalog context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.waitlist_position, e.grade, e.grade_points,
        e.enrolled_at, e.waitlisted_at, e.dropped_at, e.graded_at, e.drop_reason, e.override_by, e.override_at, e.created_at, e.updated_at,
        c.code AS course_code, c.title AS course_title, cs.section_code, cs.term, c.credits, cs.schedule
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, r.ext, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListDetailsByStudent returns every enrollment of a student with catalog
// context, most recent first. Used for GPA recalculation and transcripts.
func (r *EnrollmentRepository) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.waitlist_position, e.grade, e.grade_points,
        e.enrolled_at, e.waitlisted_at, e.dropped_at, e.graded_at, e.drop_reason, e.override_by, e.override_at, e.created_at, e.updated_at,
        c.code AS course_code, c.title AS course_title, cs.section_code, cs.term, c.credits, cs.schedule
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.student_id = $1
        ORDER BY cs.term ASC, c.code ASC`
	var enrollments []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveByStudentTerm returns a student's Enrolled registrations within a
// term. Feeds the time-conflict and credit-limit checks.
func (r *EnrollmentRepository) ListActiveByStudentTerm(ctx context.Context, studentID, term string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.waitlist_position, e.grade, e.grade_points,
        e.enrolled_at, e.waitlisted_at, e.dropped_at, e.graded_at, e.drop_reason, e.override_by, e.override_at, e.created_at, e.updated_at,
        c.code AS course_code, c.title AS course_title, cs.section_code, cs.term, c.credits, cs.schedule
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.student_id = $1 AND cs.term = $2 AND e.status = $3`
	var enrollments []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, studentID, term, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// ListBySection returns the enrollments of one section.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE section_id = $1 ORDER BY created_at ASC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := sqlx.SelectContext(ctx, r.ext, &enrollments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return enrollments, nil
}

// Roster returns the student rows of a section ordered by student number.
func (r *EnrollmentRepository) Roster(ctx context.Context, sectionID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, sp.student_number, u.full_name, e.status, e.grade
        FROM enrollments e
        JOIN students sp ON sp.id = e.student_id
        JOIN users u ON u.id = sp.user_id
        WHERE e.section_id = $1 AND e.status <> $2
        ORDER BY sp.student_number ASC`
	var roster []models.RosterEntry
	if err := sqlx.SelectContext(ctx, r.ext, &roster, query, sectionID, models.EnrollmentStatusDropped); err != nil {
		return nil, fmt.Errorf("section roster: %w", err)
	}
	return roster, nil
}

// GradeCounts tallies recorded grade values for a section.
func (r *EnrollmentRepository) GradeCounts(ctx context.Context, sectionID string) (models.GradeDistribution, error) {
	const query = `SELECT grade, COUNT(*) AS total FROM enrollments
        WHERE section_id = $1 AND grade IS NOT NULL GROUP BY grade`
	rows, err := r.ext.QueryxContext(ctx, query, sectionID)
	if err != nil {
		return nil, fmt.Errorf("grade distribution: %w", err)
	}
	defer rows.Close()
	dist := make(models.GradeDistribution)
	for rows.Next() {
		var (
			grade string
			total int
		)
		if err := rows.Scan(&grade, &total); err != nil {
			return nil, fmt.Errorf("scan grade count: %w", err)
		}
		dist[grade] = total
	}
	return dist, rows.Err()
}
