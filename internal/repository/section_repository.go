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

const sectionColumns = `cs.id, cs.course_id, cs.section_code, cs.term, cs.instructor_id, cs.capacity, cs.enrolled_count,
        cs.waitlist_capacity, cs.waitlist_count, cs.schedule, cs.start_date, cs.end_date, cs.delivery_mode, cs.status, cs.allow_audit,
        cs.created_at, cs.updated_at`

// SectionRepository manages persistence for course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections with catalog context, filtered and paginated.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM course_sections cs
JOIN courses c ON c.id = cs.course_id
LEFT JOIN users u ON u.id = cs.instructor_id`
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("cs.term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("cs.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(c.title) LIKE $%d)", idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, c.code AS course_code, c.title AS course_title, c.credits, u.full_name AS instructor_name
        %s ORDER BY cs.term DESC, c.code ASC, cs.section_code ASC LIMIT %d OFFSET %d`, sectionColumns, base, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID returns a section row by ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	query := fmt.Sprintf("SELECT %s FROM course_sections cs WHERE cs.id = $1", sectionColumns)
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section with catalog context.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s, c.code AS course_code, c.title AS course_title, c.credits, u.full_name AS instructor_name
        FROM course_sections cs
        JOIN courses c ON c.id = cs.course_id
        LEFT JOIN users u ON u.id = cs.instructor_id
        WHERE cs.id = $1`, sectionColumns)
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks for a duplicate section code within a course and term.
func (r *SectionRepository) ExistsByCode(ctx context.Context, courseID, term, sectionCode, excludeID string) (bool, error) {
	query := "SELECT 1 FROM course_sections WHERE course_id = $1 AND term = $2 AND section_code = $3"
	args := []interface{}{courseID, term, sectionCode}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section code: %w", err)
	}
	return true, nil
}

// Create inserts a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.CourseSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now
	if section.Status == "" {
		section.Status = models.SectionStatusOpen
	}
	const query = `INSERT INTO course_sections (id, course_id, section_code, term, instructor_id, capacity, enrolled_count,
        waitlist_capacity, waitlist_count, schedule, start_date, end_date, delivery_mode, status, allow_audit, created_at, updated_at)
        VALUES (:id, :course_id, :section_code, :term, :instructor_id, :capacity, :enrolled_count,
        :waitlist_capacity, :waitlist_count, :schedule, :start_date, :end_date, :delivery_mode, :status, :allow_audit, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies an existing section. Counter columns are intentionally
// excluded; only the registration transaction writes them.
func (r *SectionRepository) Update(ctx context.Context, section *models.CourseSection) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_sections SET section_code = :section_code, term = :term, instructor_id = :instructor_id,
        capacity = :capacity, waitlist_capacity = :waitlist_capacity, schedule = :schedule,
        start_date = :start_date, end_date = :end_date, delivery_mode = :delivery_mode, allow_audit = :allow_audit,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// UpdateStatus transitions the section lifecycle state.
func (r *SectionRepository) UpdateStatus(ctx context.Context, id string, status models.SectionStatus) error {
	const query = `UPDATE course_sections SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update section status: %w", err)
	}
	return nil
}

// ListByInstructor returns the sections an instructor teaches in a term.
func (r *SectionRepository) ListByInstructor(ctx context.Context, instructorID, term string) ([]models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s, c.code AS course_code, c.title AS course_title, c.credits, u.full_name AS instructor_name
        FROM course_sections cs
        JOIN courses c ON c.id = cs.course_id
        LEFT JOIN users u ON u.id = cs.instructor_id
        WHERE cs.instructor_id = $1 AND cs.term = $2
        ORDER BY c.code ASC, cs.section_code ASC`, sectionColumns)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, instructorID, term); err != nil {
		return nil, fmt.Errorf("list instructor sections: %w", err)
	}
	return sections, nil
}
