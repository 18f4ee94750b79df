package handlers

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gin-gonic/gin"
)

// CurrentUser 从上下文取已登录用户，未登录返回 nil, false
func CurrentUser(c *gin.Context) (*models.User, bool) {
	val, exists := c.Get(middleware.CheckUserKey)
	if !exists || val == nil {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok
}

// respondError 统一的错误响应格式
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"message": message,
	})
}

// respondOK 统一的成功响应格式，payload 会并入响应体
func respondOK(c *gin.Context, code int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(code, payload)
}
