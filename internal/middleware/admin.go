package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/backend/internal/domain"
)

// RequireAdmin 要求管理员权限
//
// 依赖 JWTAuth 先行写入的角色声明；看板、标签、提交审核等管理
// 端点只对管理员开放。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(ContextRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		role, ok := roleVal.(string)
		if !ok || domain.UserRole(role) != domain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole 要求特定角色之一
func RequireRole(allowedRoles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(ContextRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		role, _ := roleVal.(string)
		for _, allowed := range allowedRoles {
			if domain.UserRole(role) == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		c.Abort()
	}
}

// IsAdmin 当前请求是否来自管理员
func IsAdmin(c *gin.Context) bool {
	return domain.UserRole(Role(c)) == domain.RoleAdmin
}
