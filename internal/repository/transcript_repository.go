package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniserve/registrar-api/internal/models"
)

const transcriptRequestColumns = "id, student_id, status, purpose, processed_by, processed_at, decision_notes, issued_at, filename, created_at, updated_at"

// TranscriptRepository manages transcript requests and the graded rows
// transcripts are built from.
type TranscriptRepository struct {
	db *sqlx.DB
}

// NewTranscriptRepository constructs a TranscriptRepository.
func NewTranscriptRepository(db *sqlx.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// CreateRequest inserts a new transcript request in the Pending state.
func (r *TranscriptRepository) CreateRequest(ctx context.Context, request *models.TranscriptRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.TranscriptRequestPending
	}
	const query = `INSERT INTO transcript_requests (id, student_id, status, purpose, processed_by, processed_at, decision_notes, issued_at, filename, created_at, updated_at)
        VALUES (:id, :student_id, :status, :purpose, :processed_by, :processed_at, :decision_notes, :issued_at, :filename, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create transcript request: %w", err)
	}
	return nil
}

// FindRequestByID returns a transcript request by ID.
func (r *TranscriptRepository) FindRequestByID(ctx context.Context, id string) (*models.TranscriptRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM transcript_requests WHERE id = $1", transcriptRequestColumns)
	var request models.TranscriptRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListRequests returns transcript requests, newest first.
func (r *TranscriptRepository) ListRequests(ctx context.Context, studentID string, status models.TranscriptRequestStatus, page, pageSize int) ([]models.TranscriptRequest, int, error) {
	base := "FROM transcript_requests"
	conditions := []string{"1=1"}
	var args []interface{}

	if studentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		transcriptRequestColumns, base, pageSize, offset)
	var requests []models.TranscriptRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transcript requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transcript requests: %w", err)
	}
	return requests, total, nil
}

// UpdateRequest writes the lifecycle fields of a transcript request.
func (r *TranscriptRepository) UpdateRequest(ctx context.Context, request *models.TranscriptRequest) error {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE transcript_requests SET status = :status, processed_by = :processed_by, processed_at = :processed_at,
        decision_notes = :decision_notes, issued_at = :issued_at, filename = :filename, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("update transcript request: %w", err)
	}
	return nil
}

// ListGradedRows returns a student's graded course lines ordered by term
// then course code.
func (r *TranscriptRepository) ListGradedRows(ctx context.Context, studentID string) ([]models.TranscriptRow, error) {
	const query = `SELECT cs.term, c.code AS course_code, c.title AS course_title, c.credits, e.grade, e.grade_points
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.student_id = $1 AND e.grade IS NOT NULL
        ORDER BY cs.term ASC, c.code ASC`
	var rows []models.TranscriptRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list transcript rows: %w", err)
	}
	return rows, nil
}
