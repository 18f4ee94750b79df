package handlers

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Profile 用户主页 (GET /api/users/:id)
func (h *UserHandler) Profile(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		respondError(c, http.StatusNotFound, "user not found")
		return
	}

	// 查询用户发布的文章
	var posts []models.Post
	db.DB.Preload("Category").Preload("Tags").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&posts)

	var postCount int64
	db.DB.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&postCount)

	respondOK(c, http.StatusOK, gin.H{
		"user":       user,
		"posts":      posts,
		"post_count": postCount,
	})
}

type profileInput struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar_url"`
}

// UpdateProfile 更新个人资料 (PUT /api/profile)
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, _ := CurrentUser(c)

	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if username := strings.TrimSpace(in.Username); username != "" {
		user.Username = username
	}
	if len(in.Bio) > 200 {
		respondError(c, http.StatusBadRequest, "bio is too long")
		return
	}
	user.Bio = in.Bio
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := db.DB.Save(user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"message": "profile updated",
		"user":    user,
	})
}

// UploadAvatar 上传头像 (POST /api/profile/avatar)
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	user, _ := CurrentUser(c)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	// 验证文件类型
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "only image files are allowed")
		return
	}

	// 验证文件大小（限制 10MB）
	if header.Size > 10*1024*1024 {
		respondError(c, http.StatusBadRequest, "image must be under 10MB")
		return
	}

	result, err := services.UploadImage(file, header)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "upload failed")
		return
	}

	user.Avatar = result.URL
	if err := db.DB.Save(user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update avatar")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"message":    "avatar updated",
		"avatar_url": result.URL,
	})
}
