package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/internal/service"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

// bindRecord decodes a loosely typed JSON body into T. Numeric ids and class
// grades are accepted as strings. On failure a 400 is written and ok is false.
func bindRecord[T any](c *gin.Context, message string) (out T, ok bool) {
	var body models.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return out, false
	}
	out, err := service.DecodeRequest[T](body)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return out, false
	}
	return out, true
}
