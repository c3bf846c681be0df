package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

type materialService interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error)
	Get(ctx context.Context, id string) (*models.Material, error)
	Save(ctx context.Context, material models.Material) (*models.Material, error)
	Delete(ctx context.Context, id string) error
}

type submitService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, materialID string, req models.SubmitRequest) (*models.Submission, error)
}

// MaterialHandler exposes reading materials and the student submission flow.
type MaterialHandler struct {
	service     materialService
	submissions submitService
}

// NewMaterialHandler constructs a MaterialHandler.
func NewMaterialHandler(svc materialService, submissions submitService) *MaterialHandler {
	return &MaterialHandler{service: svc, submissions: submissions}
}

// List godoc
// @Summary List materials
// @Description Teachers and students only see their own class grade. Each item carries an embeddable media URL.
// @Tags Materials
// @Produce json
// @Param classGrade query string false "Class grade (admin only)"
// @Success 200 {object} response.Envelope
// @Router /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.MaterialFilter{ClassGrade: scopedClassGrade(claims, c.Query("classGrade"))}
	materials, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]models.MaterialView, 0, len(materials))
	for _, m := range materials {
		views = append(views, m.View())
	}
	response.JSON(c, http.StatusOK, views, map[string]interface{}{"total": len(views)})
}

// Save godoc
// @Summary Create or update material
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body models.Material true "Material payload"
// @Success 200 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Save(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	req, ok := bindRecord[models.Material](c, "invalid material payload")
	if !ok {
		return
	}
	if !canManageClass(claims, req.ClassGrade) {
		response.Error(c, errOtherClass)
		return
	}
	if !h.authorizeExisting(c, claims, req.ID) {
		return
	}
	material, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material.View(), nil)
}

// Delete godoc
// @Summary Delete material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if !h.authorizeExisting(c, claims, c.Param("id")) {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// authorizeExisting rejects changes to a stored material of another class.
// Unknown ids pass.
func (h *MaterialHandler) authorizeExisting(c *gin.Context, claims *models.JWTClaims, id string) bool {
	if claims.Role == models.RoleAdmin || strings.TrimSpace(id) == "" {
		return true
	}
	current, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, appErrors.ErrNotFound) {
		return true
	}
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !canManageClass(claims, current.ClassGrade) {
		response.Error(c, errOtherClass)
		return false
	}
	return true
}

// Submit godoc
// @Summary Submit reflection
// @Description Replaces the student's previous submission for the material and resets its approval
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body models.SubmitRequest true "Answers"
// @Success 201 {object} response.Envelope
// @Router /materials/{id}/submissions [post]
func (h *MaterialHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	sub, err := h.submissions.Submit(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}
