package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/internal/service"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

type submissionService interface {
	ListFor(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter) ([]models.Submission, error)
	Review(ctx context.Context, actor *models.JWTClaims, id string, req models.ReviewRequest) (*models.Submission, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

type certificateService interface {
	Render(ctx context.Context, actor *models.JWTClaims, submissionID string, format models.CertificateFormat) (*models.RenderedFile, error)
}

type recapService interface {
	Export(ctx context.Context, actor *models.JWTClaims, filter models.SubmissionFilter, format service.RecapFormat) (*models.RenderedFile, error)
}

// SubmissionHandler exposes grading, certificates and the recap export.
type SubmissionHandler struct {
	service      submissionService
	certificates certificateService
	recap        recapService
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(svc submissionService, certificates certificateService, recap recapService) *SubmissionHandler {
	return &SubmissionHandler{service: svc, certificates: certificates, recap: recap}
}

func submissionFilterFromQuery(c *gin.Context) models.SubmissionFilter {
	return models.SubmissionFilter{
		ClassGrade:  c.Query("classGrade"),
		StudentNISN: c.Query("studentNisn"),
		MaterialID:  c.Query("materialId"),
	}
}

// List godoc
// @Summary List submissions
// @Description Admins see all, teachers their class grade, students their own
// @Tags Submissions
// @Produce json
// @Param classGrade query string false "Class grade"
// @Param studentNisn query string false "Student NISN"
// @Param materialId query string false "Material ID"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	subs, err := h.service.ListFor(c.Request.Context(), claims, submissionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, map[string]interface{}{"total": len(subs)})
}

// Review godoc
// @Summary Review submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/review [post]
func (h *SubmissionHandler) Review(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	sub, err := h.service.Review(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Delete godoc
// @Summary Reset submission
// @Tags Submissions
// @Param id path string true "Submission ID"
// @Success 204
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Certificate godoc
// @Summary Download certificate
// @Description Only approved submissions have a certificate
// @Tags Submissions
// @Produce png
// @Produce application/pdf
// @Param id path string true "Submission ID"
// @Param format query string false "png or pdf"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/certificate [get]
func (h *SubmissionHandler) Certificate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	format := models.CertificateFormat(strings.ToLower(c.DefaultQuery("format", string(models.CertificatePNG))))
	file, err := h.certificates.Render(c.Request.Context(), claims, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Export godoc
// @Summary Export submission recap
// @Tags Submissions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param classGrade query string false "Class grade (admin only)"
// @Success 200 {file} binary
// @Router /exports/submissions [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	format := service.RecapFormat(strings.ToLower(c.DefaultQuery("format", string(service.RecapCSV))))
	file, err := h.recap.Export(c.Request.Context(), claims, submissionFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
