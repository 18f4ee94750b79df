package middleware

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CheckUserKey 上下文里已登录用户的键
const CheckUserKey = "user"

// LoadUser 会话里有 user_id 就把用户挂到上下文，没有或查不到则静默跳过
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := sessions.Default(c).Get("user_id"); userID != nil {
			var user models.User
			if err := db.DB.First(&user, userID).Error; err == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// AuthRequired 拦截未登录请求，需要挂在 LoadUser 之后
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CheckUserKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "login required",
			})
			return
		}
		c.Next()
	}
}
