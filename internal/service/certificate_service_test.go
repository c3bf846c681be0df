package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/pkg/certificate"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
)

type recordingRenderer struct {
	content certificate.Content
	err     error
}

func (r *recordingRenderer) Render(content certificate.Content) ([]byte, error) {
	r.content = content
	if r.err != nil {
		return nil, r.err
	}
	return []byte("rendered"), nil
}

func newCertificateFixture(t *testing.T) (*CertificateService, *SubmissionService, *SettingService, *recordingRenderer, *recordingRenderer) {
	t.Helper()
	subs, materials, _ := newSubmissionFixture(t)
	settings := NewSettingService(subs.sync, nil)
	png, pdf := &recordingRenderer{}, &recordingRenderer{}
	return NewCertificateService(subs, materials, settings, png, pdf, nil), subs, settings, png, pdf
}

func TestCertificateRequiresApproval(t *testing.T) {
	svc, subs, _, _, _ := newCertificateFixture(t)
	ctx := context.Background()

	sub, err := subs.Submit(ctx, studentActor, "m1", models.SubmitRequest{})
	require.NoError(t, err)

	_, err = svc.Render(ctx, studentActor, sub.ID, models.CertificatePNG)
	assert.ErrorIs(t, err, appErrors.ErrNotApproved)
}

func TestCertificateRendersApprovedSubmission(t *testing.T) {
	svc, subs, settings, png, pdf := newCertificateFixture(t)
	ctx := context.Background()

	require.NoError(t, settings.SaveCertificateBackground(ctx, "data:image/png;base64,AAAA"))
	sub, err := subs.Submit(ctx, studentActor, "m1", models.SubmitRequest{})
	require.NoError(t, err)
	_, err = subs.Review(ctx, teacherActor, sub.ID, models.ReviewRequest{Approved: true})
	require.NoError(t, err)

	file, err := svc.Render(ctx, studentActor, sub.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Sertifikat-Ani-Putri.png", file.Filename)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, []byte("rendered"), file.Payload)
	assert.Equal(t, "Ani Putri", png.content.StudentName)
	assert.Equal(t, "Kancil dan Buaya", png.content.MaterialTitle)
	assert.Equal(t, "data:image/png;base64,AAAA", png.content.Background)
	assert.True(t, png.content.IssuedAt.Equal(time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC)))

	file, err = svc.Render(ctx, teacherActor, sub.ID, models.CertificatePDF)
	require.NoError(t, err)
	assert.Equal(t, "Sertifikat-Ani-Putri.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "Ani Putri", pdf.content.StudentName)
}

func TestCertificateRejectsUnknownFormatAndRenderFailure(t *testing.T) {
	svc, subs, _, png, _ := newCertificateFixture(t)
	ctx := context.Background()

	_, err := svc.Render(ctx, studentActor, "x", "gif")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	sub, err := subs.Submit(ctx, studentActor, "m1", models.SubmitRequest{})
	require.NoError(t, err)
	_, err = subs.Review(ctx, adminActor, sub.ID, models.ReviewRequest{Approved: true})
	require.NoError(t, err)

	png.err = errors.New("font failure")
	_, err = svc.Render(ctx, studentActor, sub.ID, models.CertificatePNG)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	other := &models.JWTClaims{UserID: "s2", Username: "002", Role: models.RoleStudent, ClassGrade: "5"}
	_, err = svc.Render(ctx, other, sub.ID, models.CertificatePNG)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
