package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/response"
	"github.com/stemsi/exampro-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	handlers = append(handlers, func(c *gin.Context) {
		actor := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"userId": actor.UserID, "role": actor.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func serve(r *gin.Engine, target, authHeader string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func issue(t *testing.T, auth *service.AuthService, userID int64, role model.Role) string {
	t.Helper()
	token, err := auth.IssueToken(userID, role)
	require.NoError(t, err)
	return token
}

func TestRequireAuth(t *testing.T) {
	auth := service.NewAuthService(testSecret, time.Hour)
	r := newEngine(RequireAuth(auth))
	token := issue(t, auth, 7, model.RoleStudent)

	t.Run("bearer header", func(t *testing.T) {
		w, _ := serve(r, "/protected", "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userId":7,"role":"student"}`, w.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		w, _ := serve(r, "/protected?token="+token, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w, env := serve(r, "/protected", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, response.ErrTokenRequired, env.Error.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w, env := serve(r, "/protected", "Basic "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenRequired, env.Error.Code)
	})

	t.Run("expired", func(t *testing.T) {
		expired := issue(t, service.NewAuthService(testSecret, -time.Minute), 7, model.RoleStudent)
		w, env := serve(r, "/protected", "Bearer "+expired)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenExpired, env.Error.Code)
	})

	t.Run("foreign signature", func(t *testing.T) {
		foreign := issue(t, service.NewAuthService("someone-else", time.Hour), 7, model.RoleStudent)
		w, env := serve(r, "/protected", "Bearer "+foreign)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.ErrTokenInvalid, env.Error.Code)
	})
}

func TestRequireRole(t *testing.T) {
	auth := service.NewAuthService(testSecret, time.Hour)
	student := "Bearer " + issue(t, auth, 1, model.RoleStudent)
	teacher := "Bearer " + issue(t, auth, 2, model.RoleTeacher)
	admin := "Bearer " + issue(t, auth, 3, model.RoleAdmin)

	tests := []struct {
		name   string
		guard  gin.HandlerFunc
		header string
		status int
		code   response.ErrCode
	}{
		{"student route admits student", RequireStudent(), student, http.StatusOK, ""},
		{"student route rejects teacher", RequireStudent(), teacher, http.StatusForbidden, response.ErrStudentAccessOnly},
		{"staff route admits teacher", RequireStaff(), teacher, http.StatusOK, ""},
		{"staff route admits admin", RequireStaff(), admin, http.StatusOK, ""},
		{"staff route rejects student", RequireStaff(), student, http.StatusForbidden, response.ErrStaffAccessOnly},
		{"admin route rejects teacher", RequireRole(model.RoleAdmin), teacher, http.StatusForbidden, response.ErrStaffAccessOnly},
		{"mixed route rejects admin", RequireRole(model.RoleStudent, model.RoleTeacher), admin, http.StatusForbidden, response.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := serve(newEngine(RequireAuth(auth), tt.guard), "/protected", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}

	t.Run("without auth", func(t *testing.T) {
		w, _ := serve(newEngine(RequireStaff()), "/protected", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	auth := service.NewAuthService(testSecret, time.Hour)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return clock }

	r := newEngine(RequireAuth(auth), rl.Middleware())
	alice := "Bearer " + issue(t, auth, 1, model.RoleStudent)
	bob := "Bearer " + issue(t, auth, 2, model.RoleStudent)

	for i := 0; i < 2; i++ {
		w, _ := serve(r, "/protected", alice)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, env := serve(r, "/protected", alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)

	w, _ = serve(r, "/protected", bob)
	assert.Equal(t, http.StatusOK, w.Code, "buckets are per user")

	clock = clock.Add(time.Minute)
	w, _ = serve(r, "/protected", alice)
	assert.Equal(t, http.StatusOK, w.Code, "refilled after one interval")

	clock = clock.Add(4 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}
