package handlers

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/utils"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type signupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 注册 (POST /api/signup)
func (h *AuthHandler) Register(c *gin.Context) {
	var in signupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	parts := strings.Split(in.Email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		respondError(c, http.StatusBadRequest, "invalid email")
		return
	}

	if len(in.Password) < 6 {
		respondError(c, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	// 用户名缺省时取邮箱前缀
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = parts[0]
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	user := models.User{
		Username: username,
		Email:    in.Email,
		Password: hash,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		respondError(c, http.StatusConflict, "email already registered")
		return
	}

	// 注册成功直接登录
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	respondOK(c, http.StatusCreated, gin.H{
		"message": "signup successful",
		"user":    user,
	})
}

// Login 登录 (POST /api/login)
func (h *AuthHandler) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", strings.TrimSpace(strings.ToLower(in.Email))).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !utils.CheckPasswordHash(in.Password, user.Password) {
		respondError(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	respondOK(c, http.StatusOK, gin.H{
		"message": "login successful",
		"user":    user,
	})
}

// Logout 退出登录 (POST /api/logout)
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	respondOK(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me 当前登录用户 (GET /api/me)
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "login required")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": user})
}
