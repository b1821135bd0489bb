package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

type fakeCatalog struct {
	courses map[string]*models.Course
	edges   map[string][]models.CoursePrerequisite
	history []models.EnrollmentDetail
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		courses: make(map[string]*models.Course),
		edges:   make(map[string][]models.CoursePrerequisite),
	}
}

func (f *fakeCatalog) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (f *fakeCatalog) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, c := range f.courses {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = course.Code
	}
	f.courses[course.ID] = course
	return nil
}

func (f *fakeCatalog) Update(ctx context.Context, course *models.Course) error {
	f.courses[course.ID] = course
	return nil
}

func (f *fakeCatalog) SetActive(ctx context.Context, id string, active bool) error {
	if c, ok := f.courses[id]; ok {
		c.Active = active
	}
	return nil
}

func (f *fakeCatalog) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	return f.edges[courseID], nil
}

func (f *fakeCatalog) ListPrerequisiteCourses(ctx context.Context, courseID string) ([]models.Course, error) {
	var courses []models.Course
	for _, edge := range f.edges[courseID] {
		if c, ok := f.courses[edge.PrerequisiteID]; ok {
			courses = append(courses, *c)
		}
	}
	return courses, nil
}

func (f *fakeCatalog) AddPrerequisite(ctx context.Context, edge *models.CoursePrerequisite) error {
	f.edges[edge.CourseID] = append(f.edges[edge.CourseID], *edge)
	return nil
}

func (f *fakeCatalog) RemovePrerequisite(ctx context.Context, courseID, prerequisiteID string) error {
	edges := f.edges[courseID]
	for i, edge := range edges {
		if edge.PrerequisiteID == prerequisiteID {
			f.edges[courseID] = append(edges[:i], edges[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeCatalog) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return f.history, nil
}

type fakeDepartmentReader struct{}

func (fakeDepartmentReader) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Department{ID: id}, nil
}

func newCatalogFixture() (*CourseService, *fakeCatalog) {
	catalog := newFakeCatalog()
	catalog.courses["cs101"] = &models.Course{ID: "cs101", Code: "CS101", Title: "Intro", DepartmentID: "dep-1", Credits: 3, Active: true}
	catalog.courses["cs201"] = &models.Course{ID: "cs201", Code: "CS201", Title: "Data Structures", DepartmentID: "dep-1", Credits: 3, Active: true}
	catalog.courses["cs301"] = &models.Course{ID: "cs301", Code: "CS301", Title: "Algorithms", DepartmentID: "dep-1", Credits: 3, Active: true}
	svc := NewCourseService(catalog, fakeDepartmentReader{}, catalog, 60, nil, nil)
	return svc, catalog
}

func TestCourseServiceCreateRejectsDuplicateCode(t *testing.T) {
	svc, _ := newCatalogFixture()

	_, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS101", Title: "Clone", DepartmentID: "dep-1", Credits: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	course, err := svc.Create(context.Background(), CreateCourseRequest{Code: "CS400", Title: "Compilers", DepartmentID: "dep-1", Credits: 3})
	require.NoError(t, err)
	assert.True(t, course.Active)
}

func TestCourseServiceAddPrerequisite(t *testing.T) {
	svc, catalog := newCatalogFixture()

	edge, err := svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs101"})
	require.NoError(t, err)
	assert.Equal(t, "C", edge.MinimumGrade)
	assert.True(t, edge.Mandatory)
	assert.Len(t, catalog.edges["cs201"], 1)

	// Duplicate edge.
	_, err = svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs101"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Self-reference.
	_, err = svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs201"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceAddPrerequisiteRejectsCycle(t *testing.T) {
	svc, _ := newCatalogFixture()

	_, err := svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs101"})
	require.NoError(t, err)
	_, err = svc.AddPrerequisite(context.Background(), "cs301", AddPrerequisiteRequest{PrerequisiteID: "cs201"})
	require.NoError(t, err)

	// cs101 -> cs301 would close cs301 -> cs201 -> cs101 into a loop.
	_, err = svc.AddPrerequisite(context.Background(), "cs101", AddPrerequisiteRequest{PrerequisiteID: "cs301"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cycle")
}

func TestCourseServicePrerequisiteClosure(t *testing.T) {
	svc, _ := newCatalogFixture()

	_, err := svc.AddPrerequisite(context.Background(), "cs301", AddPrerequisiteRequest{PrerequisiteID: "cs201"})
	require.NoError(t, err)
	_, err = svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs101"})
	require.NoError(t, err)

	closure, err := svc.PrerequisiteClosure(context.Background(), "cs301")
	require.NoError(t, err)
	require.Len(t, closure, 2)
	codes := []string{closure[0].Code, closure[1].Code}
	assert.Contains(t, codes, "CS201")
	assert.Contains(t, codes, "CS101")
}

func TestCourseServiceCheckPrerequisites(t *testing.T) {
	svc, catalog := newCatalogFixture()
	b := 3.0
	gradeB := "B"
	_, err := svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs101", MinimumGrade: "C"})
	require.NoError(t, err)

	// No completed work yet.
	report, err := svc.CheckPrerequisites(context.Background(), "stu-1", "cs201")
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.Len(t, report.Missing, 1)
	assert.Contains(t, report.Missing[0], "CS101")

	// Completed with a grade above the minimum.
	catalog.history = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{Status: models.EnrollmentStatusCompleted, Grade: &gradeB, GradePoints: &b},
		CourseCode: "CS101",
	}}
	report, err = svc.CheckPrerequisites(context.Background(), "stu-1", "cs201")
	require.NoError(t, err)
	assert.True(t, report.OK)
}

func TestCourseServiceCheckPrerequisitesNumericGrade(t *testing.T) {
	svc, catalog := newCatalogFixture()
	passing, failing := "75", "45"
	_, err := svc.AddPrerequisite(context.Background(), "cs201", AddPrerequisiteRequest{PrerequisiteID: "cs101", MinimumGrade: "C"})
	require.NoError(t, err)

	catalog.history = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{Status: models.EnrollmentStatusCompleted, Grade: &failing},
		CourseCode: "CS101",
	}}
	report, err := svc.CheckPrerequisites(context.Background(), "stu-1", "cs201")
	require.NoError(t, err)
	assert.False(t, report.OK)

	catalog.history[0].Grade = &passing
	report, err = svc.CheckPrerequisites(context.Background(), "stu-1", "cs201")
	require.NoError(t, err)
	assert.True(t, report.OK)
}

func TestCourseServiceDeactivate(t *testing.T) {
	svc, catalog := newCatalogFixture()

	require.NoError(t, svc.Deactivate(context.Background(), "cs101"))
	assert.False(t, catalog.courses["cs101"].Active)

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
