package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
	"github.com/uniserve/registrar-api/pkg/export"
)

type transcriptRepository interface {
	CreateRequest(ctx context.Context, request *models.TranscriptRequest) error
	FindRequestByID(ctx context.Context, id string) (*models.TranscriptRequest, error)
	ListRequests(ctx context.Context, studentID string, status models.TranscriptRequestStatus, page, pageSize int) ([]models.TranscriptRequest, int, error)
	UpdateRequest(ctx context.Context, request *models.TranscriptRequest) error
	ListGradedRows(ctx context.Context, studentID string) ([]models.TranscriptRow, error)
}

type transcriptRenderer interface {
	RenderDocument(title, subtitle string, sections []export.Section, summary []string) ([]byte, error)
}

type documentStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

type downloadSigner interface {
	Generate(docID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (docID, relPath string, expiresAt time.Time, err error)
}

// TranscriptRequestInput creates a new official transcript request.
type TranscriptRequestInput struct {
	StudentID string  `json:"student_id" validate:"required,uuid4"`
	Purpose   *string `json:"purpose" validate:"omitempty,max=500"`
}

// ProcessRequestInput records a registrar decision on a pending request.
type ProcessRequestInput struct {
	Approve       bool    `json:"approve"`
	DecisionNotes *string `json:"decision_notes" validate:"omitempty,max=500"`
}

// DownloadLink is a time-limited URL token for an issued transcript.
type DownloadLink struct {
	RequestID string    `json:"request_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TranscriptService builds transcript read models and manages the
// request/approve/issue lifecycle for official copies.
type TranscriptService struct {
	repo      transcriptRepository
	students  studentReader
	renderer  transcriptRenderer
	storage   documentStorage
	signer    downloadSigner
	notifier  notifier
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(
	repo transcriptRepository,
	students studentReader,
	renderer transcriptRenderer,
	storage documentStorage,
	signer downloadSigner,
	notifier notifier,
	audit auditWriter,
	validate *validator.Validate,
	logger *zap.Logger,
) *TranscriptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		repo:      repo,
		students:  students,
		renderer:  renderer,
		storage:   storage,
		signer:    signer,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// GetTranscript builds the transcript read model for a student. Unofficial
// transcripts are generated on demand without a request.
func (s *TranscriptService) GetTranscript(ctx context.Context, studentID string, official bool) (*models.Transcript, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListGradedRows(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript rows")
	}
	return buildTranscript(student, rows, official), nil
}

// RequestTranscript opens a pending official transcript request.
func (s *TranscriptService) RequestTranscript(ctx context.Context, input TranscriptRequestInput) (*models.TranscriptRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transcript request")
	}
	if _, err := s.loadStudent(ctx, input.StudentID); err != nil {
		return nil, err
	}

	request := &models.TranscriptRequest{
		StudentID: input.StudentID,
		Status:    models.TranscriptRequestPending,
		Purpose:   input.Purpose,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transcript request")
	}
	return request, nil
}

// GetRequest returns one transcript request.
func (s *TranscriptService) GetRequest(ctx context.Context, id string) (*models.TranscriptRequest, error) {
	request, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transcript request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript request")
	}
	return request, nil
}

// ListRequests returns transcript requests with pagination metadata.
func (s *TranscriptService) ListRequests(ctx context.Context, studentID string, status models.TranscriptRequestStatus, page, pageSize int) ([]models.TranscriptRequest, *models.Pagination, error) {
	requests, total, err := s.repo.ListRequests(ctx, studentID, status, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transcript requests")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ProcessRequest approves or rejects a pending transcript request.
func (s *TranscriptService) ProcessRequest(ctx context.Context, id, actorID string, input ProcessRequestInput) (*models.TranscriptRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TranscriptRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "transcript request already processed")
	}

	now := time.Now().UTC()
	oldStatus := request.Status
	if input.Approve {
		request.Status = models.TranscriptRequestApproved
	} else {
		request.Status = models.TranscriptRequestRejected
	}
	request.ProcessedBy = &actorID
	request.ProcessedAt = &now
	request.DecisionNotes = input.DecisionNotes
	if err := s.repo.UpdateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transcript request")
	}

	s.recordAudit(ctx, actorID, models.AuditActionTranscriptDecision, request.ID, oldStatus, request.Status)
	s.notifyStudent(ctx, request, "Transcript request "+string(request.Status),
		fmt.Sprintf("Your transcript request has been %s.", request.Status))
	return request, nil
}

// IssueTranscript renders and stores the official PDF for an approved
// request and marks it issued.
func (s *TranscriptService) IssueTranscript(ctx context.Context, id, actorID string) (*models.TranscriptRequest, error) {
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TranscriptRequestApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "transcript request is not approved")
	}

	transcript, err := s.GetTranscript(ctx, request.StudentID, true)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderDocument(
		"Official Transcript",
		fmt.Sprintf("%s (%s)", transcript.StudentName, transcript.StudentNumber),
		transcriptSections(transcript),
		transcriptSummary(transcript),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}

	filename := fmt.Sprintf("transcript-%s-%s.pdf", transcript.StudentNumber, request.ID)
	if _, err := s.storage.Save(filename, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store transcript")
	}

	now := time.Now().UTC()
	oldStatus := request.Status
	request.Status = models.TranscriptRequestIssued
	request.IssuedAt = &now
	request.Filename = &filename
	if err := s.repo.UpdateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transcript request")
	}

	s.recordAudit(ctx, actorID, models.AuditActionTranscriptIssue, request.ID, oldStatus, request.Status)
	s.notifyStudent(ctx, request, "Transcript ready",
		"Your official transcript has been issued and is ready for download.")
	return request, nil
}

// DownloadURL returns a signed token for an issued transcript.
func (s *TranscriptService) DownloadURL(ctx context.Context, id string) (*DownloadLink, error) {
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TranscriptRequestIssued || request.Filename == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "transcript has not been issued")
	}
	token, expiresAt, err := s.signer.Generate(request.ID, *request.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &DownloadLink{RequestID: request.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// Download validates a signed token and opens the stored document.
func (s *TranscriptService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	docID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	request, err := s.GetRequest(ctx, docID)
	if err != nil {
		return nil, "", err
	}
	if request.Filename == nil || *request.Filename != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "transcript document not found")
	}
	reader, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transcript document")
	}
	return reader, relPath, nil
}

func (s *TranscriptService) loadStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *TranscriptService) notifyStudent(ctx context.Context, request *models.TranscriptRequest, title, message string) {
	if s.notifier == nil {
		return
	}
	student, err := s.students.FindByID(ctx, request.StudentID)
	if err != nil {
		s.logger.Warn("transcript notification skipped", zap.String("request_id", request.ID), zap.Error(err))
		return
	}
	outcome := s.notifier.Dispatch(&models.Notification{
		UserID:  student.UserID,
		Type:    models.NotificationTypeEnrollment,
		Title:   title,
		Message: message,
		Payload: encodeJSON(map[string]string{"request_id": request.ID, "status": string(request.Status)}),
	})
	if outcome == models.DeliveryDropped {
		s.logger.Warn("transcript notification dropped", zap.String("request_id", request.ID))
	}
}

func (s *TranscriptService) recordAudit(ctx context.Context, actorID, action, requestID string, oldStatus, newStatus models.TranscriptRequestStatus) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityType: "transcript_request",
		EntityID:   &requestID,
		OldValues:  encodeJSON(map[string]string{"status": string(oldStatus)}),
		NewValues:  encodeJSON(map[string]string{"status": string(newStatus)}),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// buildTranscript groups graded rows by term and computes per-term and
// cumulative GPA. Numeric grades carry no grade points and are excluded
// from GPA math while still appearing on the document.
func buildTranscript(student *models.StudentDetail, rows []models.TranscriptRow, official bool) *models.Transcript {
	var terms []models.TranscriptTerm
	for _, row := range rows {
		if len(terms) == 0 || terms[len(terms)-1].Term != row.Term {
			terms = append(terms, models.TranscriptTerm{Term: row.Term})
		}
		terms[len(terms)-1].Rows = append(terms[len(terms)-1].Rows, row)
	}
	for i := range terms {
		terms[i].TermGPA = transcriptGPA(terms[i].Rows)
	}

	program := ""
	if student.Program != nil {
		program = *student.Program
	}
	return &models.Transcript{
		StudentName:   student.FullName,
		StudentNumber: student.StudentNumber,
		Program:       program,
		Official:      official,
		Terms:         terms,
		CumulativeGPA: transcriptGPA(rows),
		CreditsEarned: student.TotalCreditsEarned,
		GeneratedAt:   time.Now().UTC(),
	}
}

func transcriptGPA(rows []models.TranscriptRow) float64 {
	var totalPoints, totalCredits float64
	for _, row := range rows {
		if row.GradePoints == nil || row.Credits <= 0 {
			continue
		}
		totalPoints += *row.GradePoints * row.Credits
		totalCredits += row.Credits
	}
	if totalCredits == 0 {
		return 0
	}
	return round2(totalPoints / totalCredits)
}

func transcriptSections(transcript *models.Transcript) []export.Section {
	headers := []string{"Course", "Title", "Credits", "Grade", "Points"}
	sections := make([]export.Section, 0, len(transcript.Terms))
	for _, term := range transcript.Terms {
		rows := make([]map[string]string, 0, len(term.Rows))
		for _, row := range term.Rows {
			points := ""
			if row.GradePoints != nil {
				points = fmt.Sprintf("%.2f", *row.GradePoints)
			}
			rows = append(rows, map[string]string{
				"Course":  row.CourseCode,
				"Title":   row.CourseTitle,
				"Credits": fmt.Sprintf("%.1f", row.Credits),
				"Grade":   row.Grade,
				"Points":  points,
			})
		}
		sections = append(sections, export.Section{
			Title: fmt.Sprintf("%s (GPA %.2f)", term.Term, term.TermGPA),
			Data:  export.Dataset{Headers: headers, Rows: rows},
		})
	}
	if len(sections) == 0 {
		sections = append(sections, export.Section{
			Title: "No graded coursework",
			Data:  export.Dataset{Headers: headers},
		})
	}
	return sections
}

func transcriptSummary(transcript *models.Transcript) []string {
	return []string{
		fmt.Sprintf("Cumulative GPA: %.2f", transcript.CumulativeGPA),
		fmt.Sprintf("Credits Earned: %.1f", transcript.CreditsEarned),
	}
}
