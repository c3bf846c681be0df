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

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Get(ctx context.Context, nisn string) (*models.Student, error)
	Save(ctx context.Context, student models.Student) (*models.Student, error)
	SaveBulk(ctx context.Context, students []models.Student) ([]models.Student, error)
	Delete(ctx context.Context, nisn string) error
}

// StudentHandler exposes the class roster.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs a StudentHandler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Description Teachers only see their own class grade
// @Tags Students
// @Produce json
// @Param classGrade query string false "Class grade (admin only)"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	filter := models.StudentFilter{ClassGrade: scopedClassGrade(claims, c.Query("classGrade"))}
	students, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// Create godoc
// @Summary Create or update student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.Student true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	req, ok := bindRecord[models.Student](c, "invalid student payload")
	if !ok {
		return
	}
	if !canManageClass(claims, req.ClassGrade) {
		response.Error(c, errOtherClass)
		return
	}
	existing, err := h.existing(c.Request.Context(), req.NISN)
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing != nil && !canManageClass(claims, existing.ClassGrade) {
		response.Error(c, errOtherClass)
		return
	}
	student, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Bulk godoc
// @Summary Import students
// @Description Existing NISNs are updated, new ones appended
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.BulkStudentsRequest true "Students"
// @Success 200 {object} response.Envelope
// @Router /students/bulk [post]
func (h *StudentHandler) Bulk(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	req, ok := bindRecord[models.BulkStudentsRequest](c, "invalid students payload")
	if !ok {
		return
	}
	if claims.Role != models.RoleAdmin {
		current, err := h.service.List(c.Request.Context(), models.StudentFilter{})
		if err != nil {
			response.Error(c, err)
			return
		}
		grades := make(map[string]string, len(current))
		for _, st := range current {
			grades[st.NISN] = st.ClassGrade
		}
		for _, st := range req.Students {
			grade, exists := grades[strings.TrimSpace(st.NISN)]
			if !canManageClass(claims, st.ClassGrade) || (exists && !canManageClass(claims, grade)) {
				response.Error(c, errOtherClass)
				return
			}
		}
	}
	students, err := h.service.SaveBulk(c.Request.Context(), req.Students)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Param nisn path string true "NISN"
// @Success 204
// @Router /students/{nisn} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	existing, err := h.existing(c.Request.Context(), c.Param("nisn"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if existing != nil && !canManageClass(claims, existing.ClassGrade) {
		response.Error(c, errOtherClass)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("nisn")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// existing returns the stored student, or nil when the NISN is unknown.
func (h *StudentHandler) existing(ctx context.Context, nisn string) (*models.Student, error) {
	student, err := h.service.Get(ctx, nisn)
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil, nil
	}
	return student, err
}
