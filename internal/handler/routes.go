package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uniserve/registrar-api/internal/middleware"
	"github.com/uniserve/registrar-api/internal/models"
	"github.com/uniserve/registrar-api/internal/repository"
	"github.com/uniserve/registrar-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Departments   *DepartmentHandler
	Courses       *CourseHandler
	Sections      *SectionHandler
	Enrollments   *EnrollmentHandler
	Grades        *GradeHandler
	Students      *StudentHandler
	Transcripts   *TranscriptHandler
	Announcements *AnnouncementHandler
	Notifications *NotificationHandler
	Audits        *AuditHandler
}

// RegisterRoutes mounts the API under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService, auditRepo *repository.AuditRepository) {
	api := r.Group(prefix)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
	faculty := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar, models.RoleInstructor)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(authService), h.Auth.Logout)
		auth.POST("/change-password", middleware.JWT(authService), h.Auth.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		departments := protected.Group("/departments")
		{
			departments.GET("", h.Departments.List)
			departments.GET("/:id", h.Departments.Get)
			departments.POST("", staff, h.Departments.Create)
			departments.PUT("/:id", staff, h.Departments.Update)
		}

		courses := protected.Group("/courses")
		{
			courses.GET("", h.Courses.List)
			courses.GET("/:id", h.Courses.Get)
			courses.POST("", staff, h.Courses.Create)
			courses.PUT("/:id", staff, h.Courses.Update)
			courses.DELETE("/:id", staff, h.Courses.Deactivate)
			courses.GET("/:id/prerequisites", h.Courses.ListPrerequisites)
			courses.GET("/:id/prerequisites/check", h.Courses.CheckPrerequisites)
			courses.POST("/:id/prerequisites", staff, h.Courses.AddPrerequisite)
			courses.DELETE("/:id/prerequisites/:prerequisiteId", staff, h.Courses.RemovePrerequisite)
		}

		sections := protected.Group("/sections")
		{
			sections.GET("", h.Sections.List)
			sections.GET("/:id", h.Sections.Get)
			sections.GET("/:id/availability", h.Sections.Availability)
			sections.POST("", staff, h.Sections.Create)
			sections.PUT("/:id", staff, h.Sections.Update)
			sections.PUT("/:id/status", staff, h.Sections.UpdateStatus)
			sections.POST("/:id/promote", staff, h.Sections.Promote)
			sections.POST("/:id/reconcile", staff, h.Sections.Reconcile)
			sections.GET("/:id/roster", faculty, h.Grades.Roster)
			sections.GET("/:id/roster/export", faculty, h.Sections.ExportRoster)
			sections.GET("/:id/grade-distribution", faculty, h.Grades.Distribution)
			sections.GET("/:id/grading-summary", faculty, h.Grades.Summary)
			sections.POST("/:id/grades", faculty, h.Grades.BulkSetGrades)
		}
		protected.GET("/instructors/:instructorId/sections", h.Sections.ListByInstructor)

		enrollments := protected.Group("/enrollments")
		{
			enrollments.GET("", faculty, h.Enrollments.List)
			enrollments.GET("/eligibility", h.Enrollments.Eligibility)
			enrollments.GET("/:id", h.Enrollments.Get)
			enrollments.POST("", h.Enrollments.Create)
			enrollments.POST("/:id/drop", h.Enrollments.Drop)
			enrollments.PUT("/:id/grade", faculty, h.Grades.SetGrade)
		}

		students := protected.Group("/students")
		{
			students.GET("", faculty, h.Students.List)
			students.GET("/:id", h.Students.Get)
			students.POST("", staff, h.Students.Create)
			students.PUT("/:id", staff, h.Students.Update)
			students.PUT("/:id/academic-status", staff, h.Students.UpdateAcademicStatus)
			students.GET("/:id/schedule", h.Students.Schedule)
			students.GET("/:id/summary", h.Students.Summary)
			students.GET("/:id/term-gpa", h.Students.TermGPA)
			students.GET("/:id/transcript", h.Students.Transcript)
			students.POST("/:id/recalculate-gpa", staff, h.Students.RecalculateGPA)
		}

		transcripts := protected.Group("/transcript-requests")
		{
			transcripts.POST("", h.Transcripts.Create)
			transcripts.GET("", h.Transcripts.List)
			transcripts.GET("/:id", h.Transcripts.Get)
			transcripts.POST("/:id/process", staff, h.Transcripts.Process)
			transcripts.POST("/:id/issue", staff, h.Transcripts.Issue)
			transcripts.GET("/:id/download-url", h.Transcripts.DownloadURL)
		}

		announcements := protected.Group("/announcements")
		{
			announcements.GET("", h.Announcements.List)
			announcements.GET("/:id", h.Announcements.Get)
			announcements.POST("", faculty, h.Announcements.Create)
			announcements.PUT("/:id", faculty, h.Announcements.Update)
			announcements.DELETE("/:id", staff, h.Announcements.Delete)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.Notifications.List)
			notifications.POST("/:id/read", h.Notifications.MarkRead)
			notifications.POST("/read-all", h.Notifications.MarkAllRead)
		}

		protected.GET("/audit-logs", middleware.RequireRoles(models.RoleAdmin), h.Audits.List)
	}

	// Download is authenticated by the signed token itself; the optional JWT
	// only attributes the audit entry when the caller is logged in.
	api.GET("/transcripts/download",
		middleware.OptionalJWT(authService),
		middleware.Audit(auditRepo, models.AuditActionTranscriptDownload, "transcript_request"),
		h.Transcripts.Download)
}
