package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/service/auth"
)

const (
	ctxKeyUsername = "username"
	ctxKeyRole     = "role"
)

// RequireAuth 要求有效的 Bearer JWT，身份放入上下文
func RequireAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    -1,
				"message": "Missing or malformed Authorization header",
			})
			c.Abort()
			return
		}

		identity, err := authSvc.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    -1,
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxKeyUsername, identity.Username)
		c.Set(ctxKeyRole, identity.Role)
		c.Next()
	}
}

// RequireAdmin 仅管理员可过，必须挂在 RequireAuth 之后
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) != model.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    -1,
				"message": "Permission denied",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRegistered 访客不可过，必须挂在 RequireAuth 之后
func RequireRegistered() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) == model.RoleGuest {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    -1,
				"message": "访客用户无权执行该操作",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUsername 从上下文获取当前用户名
func CurrentUsername(c *gin.Context) string {
	return c.GetString(ctxKeyUsername)
}

// CurrentRole 从上下文获取当前角色
func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}
