package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/registrar-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryLockSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "section_code", "term", "instructor_id", "capacity", "enrolled_count",
		"waitlist_capacity", "waitlist_count", "schedule", "start_date", "end_date", "delivery_mode", "status", "allow_audit", "created_at", "updated_at"}).
		AddRow("sec-1", "course-1", "A", "2026-Fall", nil, 30, 12, 10, 0,
			[]byte(`{"days":["Mon","Wed"],"start":"10:00","end":"11:15"}`), now, now, "InPerson", models.SectionStatusOpen, false, now, now)
	mock.ExpectQuery("FROM course_sections WHERE id = \\$1 FOR UPDATE").
		WithArgs("sec-1").
		WillReturnRows(rows)

	section, err := repo.LockSection(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, 12, section.EnrolledCount)
	assert.Equal(t, []string{"Mon", "Wed"}, section.Schedule.Days)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled}
	require.NoError(t, repo.Insert(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateSectionCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_sections SET enrolled_count = $2, waitlist_count = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("sec-1", 13, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSectionCounts(context.Background(), "sec-1", 13, 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListWaitlisted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "status", "waitlist_position", "grade", "grade_points",
		"enrolled_at", "waitlisted_at", "dropped_at", "graded_at", "drop_reason", "override_by", "override_at", "created_at", "updated_at"}).
		AddRow("e1", "stu-1", "sec-1", models.EnrollmentStatusWaitlisted, 1, nil, nil, nil, now, nil, nil, nil, nil, nil, now, now).
		AddRow("e2", "stu-2", "sec-1", models.EnrollmentStatusWaitlisted, 2, nil, nil, nil, now, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery("FROM enrollments WHERE section_id = \\$1 AND status = \\$2").
		WithArgs("sec-1", models.EnrollmentStatusWaitlisted).
		WillReturnRows(rows)

	waitlisted, err := repo.ListWaitlisted(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, waitlisted, 2)
	assert.Equal(t, 1, *waitlisted[0].WaitlistPosition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateWaitlistPositions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	p1, p2 := 1, 2
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET waitlist_position = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("e1", p1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET waitlist_position = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("e2", p2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateWaitlistPositions(context.Background(), []*models.Enrollment{
		{ID: "e1", WaitlistPosition: &p1},
		{ID: "e2", WaitlistPosition: &p2},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow(models.EnrollmentStatusEnrolled, 24).
		AddRow(models.EnrollmentStatusWaitlisted, 3)
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS total FROM enrollments").
		WithArgs("sec-1").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, 24, counts[models.EnrollmentStatusEnrolled])
	assert.Equal(t, 3, counts[models.EnrollmentStatusWaitlisted])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "status", "waitlist_position", "grade", "grade_points",
		"enrolled_at", "waitlisted_at", "dropped_at", "graded_at", "drop_reason", "override_by", "override_at", "created_at", "updated_at",
		"course_code", "course_title", "section_code", "term", "credits", "schedule"}).
		AddRow("e1", "stu-1", "sec-1", models.EnrollmentStatusEnrolled, nil, nil, nil, now, nil, nil, nil, nil, nil, nil, now, now,
			"CS101", "Intro to Computer Science", "A", "2026-Fall", 3.0, []byte(`{"days":["Mon"],"start":"10:00","end":"11:15"}`))
	mock.ExpectQuery("SELECT e\\.id, e\\.student_id").
		WithArgs("stu-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WithArgs("stu-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		StudentID: "stu-1",
		Status:    models.EnrollmentStatusEnrolled,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "CS101", list[0].CourseCode)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "student_id", "student_number", "full_name", "status", "grade"}).
		AddRow("e1", "stu-1", "S2026001", "Ada Lovelace", models.EnrollmentStatusEnrolled, nil).
		AddRow("e2", "stu-2", "S2026002", "Alan Turing", models.EnrollmentStatusCompleted, "A")
	mock.ExpectQuery("SELECT e\\.id AS enrollment_id").
		WithArgs("sec-1", models.EnrollmentStatusDropped).
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "S2026001", roster[0].StudentNumber)
	require.NotNil(t, roster[1].Grade)
	assert.Equal(t, "A", *roster[1].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}
