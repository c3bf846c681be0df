package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/senja-literasi-api/internal/middleware"
	"github.com/noah-isme/senja-literasi-api/internal/models"
	appErrors "github.com/noah-isme/senja-literasi-api/pkg/errors"
	"github.com/noah-isme/senja-literasi-api/pkg/response"
)

var errOtherClass = appErrors.Clone(appErrors.ErrForbidden, "teachers can only manage their own class")

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes a 401 and returns nil when the request carries no user.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// scopedClassGrade pins non-admins to their own class grade.
func scopedClassGrade(claims *models.JWTClaims, requested string) string {
	if claims.Role == models.RoleAdmin {
		return requested
	}
	return claims.ClassGrade
}

// canManageClass reports whether claims may change rows of classGrade.
func canManageClass(claims *models.JWTClaims, classGrade string) bool {
	return claims.Role == models.RoleAdmin || claims.ClassGrade == strings.TrimSpace(classGrade)
}
