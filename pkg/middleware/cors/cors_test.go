package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, allowed []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(allowed))
	r.GET("/materials", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/materials", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowsListedAndWildcardOrigins(t *testing.T) {
	allowed := []string{"https://senja.sch.id/", "https://*.github.io"}

	w := serve(t, allowed, http.MethodGet, "https://senja.sch.id")
	assert.Equal(t, "https://senja.sch.id", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(t, allowed, http.MethodGet, "https://guru.github.io")
	assert.Equal(t, "https://guru.github.io", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(t, allowed, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreflightShortCircuits(t *testing.T) {
	w := serve(t, nil, http.MethodOptions, "http://localhost:5173")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}
