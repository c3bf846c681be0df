package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/noah-isme/senja-literasi-api/internal/middleware"
	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/internal/repository"
	"github.com/noah-isme/senja-literasi-api/internal/service"
	"github.com/noah-isme/senja-literasi-api/pkg/certificate"
)

type testApp struct {
	router    *gin.Engine
	students  *service.StudentService
	materials *service.MaterialService
}

// buildTestApp wires the real services over an in-memory cache with no
// spreadsheet configured. X-Test-Role, X-Test-User and X-Test-Class stand in
// for a decoded token.
func buildTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := service.NewLocalCacheStore(repository.NewMemoryCacheRepository(), nil, nil)
	sync := service.NewSyncService(cache, nil, nil, nil)
	users := service.NewUserService(sync, nil, nil)
	students := service.NewStudentService(sync, nil, nil)
	materials := service.NewMaterialService(sync, nil, nil)
	submissions := service.NewSubmissionService(sync, materials, nil)
	settings := service.NewSettingService(sync, nil)
	png, err := certificate.NewPNGRenderer(certificate.Options{}, nil)
	require.NoError(t, err)
	certificates := service.NewCertificateService(submissions, materials, settings, png, certificate.NewPDFRenderer(certificate.Options{}, nil), nil)
	recap := service.NewRecapService(submissions, materials, nil, nil, nil)
	auth := service.NewAuthService(users, nil, nil, service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})

	authHandler := NewAuthHandler(auth)
	userHandler := NewUserHandler(users)
	studentHandler := NewStudentHandler(students)
	materialHandler := NewMaterialHandler(materials, submissions)
	submissionHandler := NewSubmissionHandler(submissions, certificates, recap)
	settingHandler := NewSettingHandler(settings)
	syncHandler := NewSyncHandler(sync, nil)

	router := gin.New()
	router.POST("/auth/login", authHandler.Login)

	secured := router.Group("")
	secured.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:     "test-user",
				Username:   c.GetHeader("X-Test-User"),
				Name:       "Ani Putri",
				Role:       models.UserRole(role),
				ClassGrade: c.GetHeader("X-Test-Class"),
			})
		}
		c.Next()
	})
	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admin := internalmiddleware.RequireRoles(models.RoleAdmin)
	anyone := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)

	secured.GET("/auth/me", anyone, authHandler.Me)
	secured.GET("/users", admin, userHandler.List)
	secured.POST("/users", admin, userHandler.Save)
	secured.GET("/students", staff, studentHandler.List)
	secured.POST("/students", staff, studentHandler.Create)
	secured.POST("/students/bulk", staff, studentHandler.Bulk)
	secured.DELETE("/students/:nisn", staff, studentHandler.Delete)
	secured.GET("/materials", anyone, materialHandler.List)
	secured.POST("/materials", staff, materialHandler.Save)
	secured.DELETE("/materials/:id", staff, materialHandler.Delete)
	secured.POST("/materials/:id/submissions", internalmiddleware.RequireRoles(models.RoleStudent), materialHandler.Submit)
	secured.GET("/submissions", anyone, submissionHandler.List)
	secured.POST("/submissions/:id/review", staff, submissionHandler.Review)
	secured.GET("/submissions/:id/certificate", anyone, submissionHandler.Certificate)
	secured.GET("/exports/submissions", staff, submissionHandler.Export)
	secured.GET("/certificate-background", admin, settingHandler.CertificateBackground)
	secured.PUT("/certificate-background", admin, settingHandler.SaveCertificateBackground)
	secured.PUT("/settings/:key", admin, settingHandler.Update)
	secured.GET("/sync/status", admin, syncHandler.Status)

	ctx := context.Background()
	_, err = materials.Save(ctx, models.Material{
		ID: "m1", Title: "Kancil dan Buaya", ClassGrade: "5",
		MediaType: models.MediaVideo, MediaURL: "https://www.youtube.com/watch?v=abc",
		Questions: []models.Question{{ID: "q1", Text: "Siapa tokohnya?"}},
	})
	require.NoError(t, err)
	_, err = materials.Save(ctx, models.Material{ID: "m2", Title: "Malin Kundang", ClassGrade: "6"})
	require.NoError(t, err)

	return &testApp{router: router, students: students, materials: materials}
}

func (a *testApp) do(method, path string, body interface{}, role models.UserRole, user, class string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", string(role))
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Class", class)
	}
	return performRequest(a.router, req)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMaterialsScopedWithEmbedURL(t *testing.T) {
	app := buildTestApp(t)

	w := app.do(http.MethodGet, "/materials", nil, models.RoleStudent, "001", "5")
	require.Equal(t, http.StatusOK, w.Code)
	var views []models.MaterialView
	decodeData(t, w, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "m1", views[0].ID)
	assert.Equal(t, "https://www.youtube.com/embed/abc", views[0].EmbedURL)

	w = app.do(http.MethodGet, "/materials?classGrade=6", nil, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "m2", views[0].ID)

	w = app.do(http.MethodGet, "/materials", nil, "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserRoutesAreAdminOnly(t *testing.T) {
	app := buildTestApp(t)

	w := app.do(http.MethodPost, "/users", models.UpsertUserRequest{Username: "x", Password: "y", Name: "z", Role: "teacher"}, models.RoleTeacher, "guru", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodGet, "/users", nil, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin-001"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLoginAndMe(t *testing.T) {
	app := buildTestApp(t)

	w := app.do(http.MethodPost, "/auth/login", models.LoginRequest{Username: "admin", Password: "admin"}, "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var login models.LoginResponse
	decodeData(t, w, &login)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, models.RoleAdmin, login.User.Role)

	w = app.do(http.MethodPost, "/auth/login", models.LoginRequest{Username: "admin", Password: "nope"}, "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/auth/me", nil, models.RoleStudent, "001", "5")
	require.Equal(t, http.StatusOK, w.Code)
	var me models.UserView
	decodeData(t, w, &me)
	assert.Equal(t, "001", me.Username)
	assert.Equal(t, "5", me.ClassGrade)
}

func TestSubmissionReviewCertificateFlow(t *testing.T) {
	app := buildTestApp(t)

	w := app.do(http.MethodPost, "/materials/m1/submissions", models.SubmitRequest{Answers: map[string]string{"q1": "Kancil"}}, models.RoleStudent, "001", "5")
	require.Equal(t, http.StatusCreated, w.Code)
	var sub models.Submission
	decodeData(t, w, &sub)
	assert.False(t, sub.IsApproved)

	w = app.do(http.MethodGet, "/submissions/"+sub.ID+"/certificate", nil, models.RoleStudent, "001", "5")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_APPROVED")

	w = app.do(http.MethodPost, "/submissions/"+sub.ID+"/review", models.ReviewRequest{Approved: true, TeacherNotes: "Bagus"}, models.RoleStudent, "001", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodPost, "/submissions/"+sub.ID+"/review", models.ReviewRequest{Approved: true, TeacherNotes: "Bagus"}, models.RoleTeacher, "guru5", "5")
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/submissions/"+sub.ID+"/certificate", nil, models.RoleStudent, "001", "5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Sertifikat-Ani-Putri.png")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = app.do(http.MethodGet, "/submissions/"+sub.ID+"/certificate", nil, models.RoleStudent, "002", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodGet, "/exports/submissions?format=csv", nil, models.RoleTeacher, "guru5", "5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Disetujui")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

	w = app.do(http.MethodGet, "/submissions", nil, models.RoleTeacher, "guru6", "6")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Submission
	decodeData(t, w, &listed)
	assert.Empty(t, listed)
}

func TestStudentBulkScopedToTeacherClass(t *testing.T) {
	app := buildTestApp(t)

	payload := models.BulkStudentsRequest{Students: []models.Student{{NISN: "001", Name: "Ani", ClassGrade: "6"}}}
	w := app.do(http.MethodPost, "/students/bulk", payload, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	payload.Students[0].ClassGrade = "5"
	w = app.do(http.MethodPost, "/students/bulk", payload, models.RoleTeacher, "guru5", "5")
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/students", nil, models.RoleTeacher, "guru5", "5")
	require.Equal(t, http.StatusOK, w.Code)
	var students []models.Student
	decodeData(t, w, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "001", students[0].NISN)
}

func TestSettingsAndSyncStatus(t *testing.T) {
	app := buildTestApp(t)

	w := app.do(http.MethodPut, "/certificate-background", models.CertificateBackgroundRequest{DataURL: "data:image/png;base64,AAAA"}, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/certificate-background", nil, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	var bg models.CertificateBackgroundResponse
	decodeData(t, w, &bg)
	assert.True(t, bg.Present)
	assert.Equal(t, "data:image/png;base64,AAAA", bg.DataURL)

	w = app.do(http.MethodPut, "/settings/certBg_chunk0", models.UpdateSettingRequest{Value: "x"}, models.RoleAdmin, "admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/sync/status", nil, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status []models.SyncStatus
	decodeData(t, w, &status)
	assert.NotEmpty(t, status)
}

func TestStudentCreateAcceptsNumericFields(t *testing.T) {
	app := buildTestApp(t)

	body := map[string]interface{}{"nisn": 12345, "name": "Budi", "classGrade": 5}
	w := app.do(http.MethodPost, "/students", body, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/students?classGrade=5", nil, models.RoleAdmin, "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	var students []models.Student
	decodeData(t, w, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "12345", students[0].NISN)
	assert.Equal(t, "5", students[0].ClassGrade)

	bulk := map[string]interface{}{"students": []interface{}{
		map[string]interface{}{"nisn": 12346, "name": "Citra", "classGrade": 5},
	}}
	w = app.do(http.MethodPost, "/students/bulk", bulk, models.RoleTeacher, "guru5", "5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodPost, "/students", map[string]interface{}{"nisn": "1", "name": []int{1}}, models.RoleAdmin, "admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaterialSaveAcceptsNumericClassGrade(t *testing.T) {
	app := buildTestApp(t)

	body := map[string]interface{}{
		"id": 7, "title": "Bawang Merah", "classGrade": 5,
		"questions": []interface{}{map[string]interface{}{"id": 1, "text": "Apa pesannya?"}},
	}
	w := app.do(http.MethodPost, "/materials", body, models.RoleTeacher, "guru5", "5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	saved, err := app.materials.Get(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "5", saved.ClassGrade)
	require.Len(t, saved.Questions, 1)
	assert.Equal(t, "1", saved.Questions[0].ID)
}

func TestTeacherCannotTouchOtherClassRows(t *testing.T) {
	app := buildTestApp(t)
	ctx := context.Background()
	_, err := app.students.Save(ctx, models.Student{NISN: "601", Name: "Dodi", ClassGrade: "6"})
	require.NoError(t, err)

	w := app.do(http.MethodDelete, "/materials/m2", nil, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	takeover := map[string]interface{}{"id": "m2", "title": "Punya kelas 5", "classGrade": "5"}
	w = app.do(http.MethodPost, "/materials", takeover, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodDelete, "/students/601", nil, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	move := map[string]interface{}{"nisn": "601", "name": "Dodi", "classGrade": "5"}
	w = app.do(http.MethodPost, "/students", move, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	bulk := map[string]interface{}{"students": []interface{}{move}}
	w = app.do(http.MethodPost, "/students/bulk", bulk, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusForbidden, w.Code)

	m2, err := app.materials.Get(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "Malin Kundang", m2.Title)
	st, err := app.students.Get(ctx, "601")
	require.NoError(t, err)
	assert.Equal(t, "6", st.ClassGrade)

	w = app.do(http.MethodDelete, "/materials/m2", nil, models.RoleTeacher, "guru6", "6")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(http.MethodDelete, "/students/601", nil, models.RoleAdmin, "admin", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(http.MethodDelete, "/students/unknown", nil, models.RoleTeacher, "guru5", "5")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
