package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/export"
)

const (
	recapStatusApproved = "Disetujui"
	recapStatusPending  = "Menunggu"
)

// RecapFormat identifies an export encoding.
type RecapFormat string

const (
	RecapCSV RecapFormat = "csv"
	RecapPDF RecapFormat = "pdf"
)

type submissionLister interface {
	ListFor(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter) ([]models.Submission, error)
}

type materialLister interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

var recapColumns = []export.Column{
	{Key: "studentName", Label: "Nama Siswa", Width: 2},
	{Key: "studentNisn", Label: "NISN", Width: 1.2},
	{Key: "classGrade", Label: "Kelas", Width: 0.6},
	{Key: "materialTitle", Label: "Materi", Width: 2.4},
	{Key: "status", Label: "Status", Width: 1},
	{Key: "submittedAt", Label: "Dikirim", Width: 1.6},
	{Key: "teacherNotes", Label: "Catatan Guru", Width: 2.6},
}

// RecapService builds the submission recap table for teachers and admins.
type RecapService struct {
	submissions submissionLister
	materials   materialLister
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewRecapService constructs a RecapService.
func NewRecapService(submissions submissionLister, materials materialLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *RecapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &RecapService{
		submissions: submissions,
		materials:   materials,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		now:         time.Now,
	}
}

// Rows returns the recap rows visible to actor, newest submission first.
func (s *RecapService) Rows(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter) ([]models.RecapRow, error) {
	if actor == nil || actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "recap is available to teachers and admins")
	}
	subs, err := s.submissions.ListFor(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	materials, err := s.materials.List(ctx, models.MaterialFilter{})
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(materials))
	for _, m := range materials {
		titles[m.ID] = m.Title
	}

	rows := make([]models.RecapRow, 0, len(subs))
	for _, sub := range subs {
		title, ok := titles[sub.MaterialID]
		if !ok {
			title = sub.MaterialID
		}
		status := recapStatusPending
		if sub.IsApproved {
			status = recapStatusApproved
		}
		rows = append(rows, models.RecapRow{
			StudentName:   sub.StudentName,
			StudentNISN:   sub.StudentNISN,
			ClassGrade:    sub.ClassGrade,
			MaterialTitle: title,
			Status:        status,
			SubmittedAt:   sub.SubmittedAt,
			TeacherNotes:  sub.TeacherNotes,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SubmittedAt > rows[j].SubmittedAt })
	return rows, nil
}

// Export renders the recap in the requested format.
func (s *RecapService) Export(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter, format RecapFormat) (*models.RenderedFile, error) {
	if format == "" {
		format = RecapCSV
	}
	if format != RecapCSV && format != RecapPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	rows, err := s.Rows(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Columns: recapColumns, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"studentName":   row.StudentName,
			"studentNisn":   row.StudentNISN,
			"classGrade":    row.ClassGrade,
			"materialTitle": row.MaterialTitle,
			"status":        row.Status,
			"submittedAt":   row.SubmittedAt,
			"teacherNotes":  row.TeacherNotes,
		})
	}

	stamp := s.now().Format("20060102-150405")
	scope := "Semua Kelas"
	if actor.Role == models.RoleTeacher {
		scope = fmt.Sprintf("Kelas %s", actor.ClassGrade)
	} else if filter.ClassGrade != "" {
		scope = fmt.Sprintf("Kelas %s", filter.ClassGrade)
	}

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case RecapPDF:
		payload, err = s.pdf.Render(dataset, "Rekap Refleksi Literasi", scope)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render recap")
	}

	s.logger.Info("recap exported", zap.String("format", string(format)), zap.Int("rows", len(rows)), zap.String("user_id", actor.UserID))
	return &models.RenderedFile{
		Filename:    fmt.Sprintf("rekap-refleksi-%s.%s", stamp, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}
