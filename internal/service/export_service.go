package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
	"github.com/uniserve/registrar-api/pkg/export"
)

type rosterReader interface {
	Roster(ctx context.Context, sectionID string) ([]models.RosterEntry, error)
}

type tabularRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportDocument is a rendered file ready for download.
type ExportDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders section rosters into downloadable documents.
type ExportService struct {
	enrollments rosterReader
	sections    sectionReader
	csv         tabularRenderer
	pdf         transcriptRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments rosterReader, sections sectionReader, csv tabularRenderer, pdf transcriptRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		sections:    sections,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
	}
}

// RosterCSV renders a section roster as CSV.
func (s *ExportService) RosterCSV(ctx context.Context, sectionID string) (*ExportDocument, error) {
	section, dataset, err := s.rosterDataset(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
	}
	return &ExportDocument{
		Filename:    fmt.Sprintf("roster-%s-%s-%s.csv", section.CourseCode, section.SectionCode, section.Term),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// RosterPDF renders a section roster as PDF.
func (s *ExportService) RosterPDF(ctx context.Context, sectionID string) (*ExportDocument, error) {
	section, dataset, err := s.rosterDataset(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s %s Roster", section.CourseCode, section.SectionCode)
	subtitle := fmt.Sprintf("%s, %s", section.CourseTitle, section.Term)
	data, err := s.pdf.RenderDocument(title, subtitle, []export.Section{{Data: dataset}},
		[]string{fmt.Sprintf("Total students: %d", len(dataset.Rows))})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
	}
	return &ExportDocument{
		Filename:    fmt.Sprintf("roster-%s-%s-%s.pdf", section.CourseCode, section.SectionCode, section.Term),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *ExportService) rosterDataset(ctx context.Context, sectionID string) (*models.SectionDetail, export.Dataset, error) {
	section, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, export.Dataset{}, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	roster, err := s.enrollments.Roster(ctx, sectionID)
	if err != nil {
		return nil, export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	headers := []string{"Student Number", "Name", "Status", "Grade"}
	rows := make([]map[string]string, 0, len(roster))
	for _, entry := range roster {
		grade := ""
		if entry.Grade != nil {
			grade = *entry.Grade
		}
		rows = append(rows, map[string]string{
			"Student Number": entry.StudentNumber,
			"Name":           entry.FullName,
			"Status":         string(entry.Status),
			"Grade":          grade,
		})
	}
	return section, export.Dataset{Headers: headers, Rows: rows}, nil
}
