package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := &fakeUserRepository{users: map[string]*models.User{
		"teacher-1": {ID: "teacher-1", FullName: "Stored Teacher", Role: models.RoleTeacher},
	}}
	auth := newCasdoorAuthMiddleware(fakeTokenParser{}, userRepo, testLogger())

	router := gin.New()
	router.GET("/me", auth.AuthMiddleware(), func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, user)
	})
	return router
}

func TestCasdoorAuthMiddleware_Rejects(t *testing.T) {
	router := newAuthTestRouter(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic good-teacher-1"},
		{"extra parts", "Bearer good-teacher-1 more"},
		{"invalid token", "Bearer forged"},
		{"empty user id", "Bearer good-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "unauthorized")
		})
	}
}

func TestCasdoorAuthMiddleware_ResolvesUser(t *testing.T) {
	router := newAuthTestRouter(t)

	t.Run("stored user wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good-teacher-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Stored Teacher")
	})

	t.Run("falls back to claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "bearer good-newcomer")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "From Claims")
		assert.Contains(t, rec.Body.String(), `"prefers_high_contrast":true`)
		assert.Contains(t, rec.Body.String(), `"role":"teacher"`)
	})
}

func TestMapCasdoorTypeToUserRole(t *testing.T) {
	assert.Equal(t, models.RoleAdmin, mapCasdoorTypeToUserRole("student", true))
	assert.Equal(t, models.RoleAdmin, mapCasdoorTypeToUserRole("Administrator", false))
	assert.Equal(t, models.RoleTeacher, mapCasdoorTypeToUserRole("instructor", false))
	assert.Equal(t, models.RoleStudent, mapCasdoorTypeToUserRole("", false))
}
