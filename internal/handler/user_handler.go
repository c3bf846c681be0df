package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

type userService interface {
	List(ctx context.Context) ([]models.User, error)
	Save(ctx context.Context, req models.UpsertUserRequest) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserHandler exposes account management to administrators.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description Passwords are never returned
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	response.JSON(c, http.StatusOK, views, map[string]interface{}{"total": len(views)})
}

// Save godoc
// @Summary Create or update user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.UpsertUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Save(c *gin.Context) {
	req, ok := bindRecord[models.UpsertUserRequest](c, "invalid user payload")
	if !ok {
		return
	}
	user, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user.View(), nil)
}

// Delete godoc
// @Summary Delete user
// @Description Deleting the built-in administrator is ignored
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
