package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exampro-backend/internal/model"
	"github.com/stemsi/exampro-backend/internal/response"
)

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	code := response.ErrForbidden
	if len(roles) == 1 && roles[0] == model.RoleStudent {
		code = response.ErrStudentAccessOnly
	} else if !containsRole(roles, model.RoleStudent) {
		code = response.ErrStaffAccessOnly
	}

	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !containsRole(roles, claims.Role) {
			response.AbortFail(c, http.StatusForbidden, code)
			return
		}
		c.Next()
	}
}

// RequireStudent is RequireRole(model.RoleStudent).
func RequireStudent() gin.HandlerFunc {
	return RequireRole(model.RoleStudent)
}

// RequireStaff admits teachers and administrators.
func RequireStaff() gin.HandlerFunc {
	return RequireRole(model.RoleTeacher, model.RoleAdmin)
}

func containsRole(roles []model.Role, r model.Role) bool {
	for _, role := range roles {
		if role == r {
			return true
		}
	}
	return false
}
