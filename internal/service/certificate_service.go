package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/certificate"
)

type certificateRenderer interface {
	Render(content certificate.Content) ([]byte, error)
}

type submissionReader interface {
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Submission, error)
}

type backgroundReader interface {
	CertificateBackground(ctx context.Context) (string, bool, error)
}

// CertificateService renders certificates for approved submissions.
type CertificateService struct {
	submissions submissionReader
	materials   materialLookup
	settings    backgroundReader
	png         certificateRenderer
	pdf         certificateRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(submissions submissionReader, materials materialLookup, settings backgroundReader, png, pdf certificateRenderer, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		submissions: submissions,
		materials:   materials,
		settings:    settings,
		png:         png,
		pdf:         pdf,
		logger:      logger,
		now:         time.Now,
	}
}

// Render produces the certificate file for an approved submission visible to actor.
func (s *CertificateService) Render(ctx context.Context, actor *models.JWTClaims, submissionID string, format models.CertificateFormat) (*models.RenderedFile, error) {
	renderer, ext, contentType := s.png, "png", "image/png"
	switch format {
	case "", models.CertificatePNG:
	case models.CertificatePDF:
		renderer, ext, contentType = s.pdf, "pdf", "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be png or pdf")
	}
	if renderer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "certificate renderer unavailable")
	}

	sub, err := s.submissions.Get(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsApproved {
		return nil, appErrors.ErrNotApproved
	}

	title := sub.MaterialID
	if material, err := s.materials.Get(ctx, sub.MaterialID); err == nil {
		title = material.Title
	} else {
		s.logger.Warn("material for certificate not found", zap.String("material_id", sub.MaterialID), zap.Error(err))
	}

	background, _, err := s.settings.CertificateBackground(ctx)
	if err != nil {
		s.logger.Warn("certificate background unavailable", zap.Error(err))
		background = ""
	}

	issuedAt, err := time.Parse(time.RFC3339, sub.SubmittedAt)
	if err != nil {
		issuedAt = s.now()
	}

	payload, err := renderer.Render(certificate.Content{
		StudentName:   sub.StudentName,
		MaterialTitle: title,
		IssuedAt:      issuedAt,
		Background:    background,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	return &models.RenderedFile{
		Filename:    certificate.Filename(sub.StudentName, ext),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}
