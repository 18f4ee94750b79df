package handlers

import (
	"fmt"
	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PostHandler struct{}

func NewPostHandler() *PostHandler {
	return &PostHandler{}
}

type postInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// List 文章列表 (GET /api/posts)
func (h *PostHandler) List(c *gin.Context) {
	// 分页参数
	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}

	cacheKey := fmt.Sprintf("post:list:page:%d", page)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if data, ok := cached.(gin.H); ok {
			respondOK(c, http.StatusOK, data)
			return
		}
	}

	perPage := 30
	offset := (page - 1) * perPage

	// 查询总数
	var total int64
	db.DB.Model(&models.Post{}).Count(&total)

	// 计算总页数
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	var posts []models.Post
	db.DB.Preload("User").Preload("Category").Preload("Tags").
		Order("created_at DESC").
		Limit(perPage).
		Offset(offset).
		Find(&posts)

	data := gin.H{
		"posts":        posts,
		"current_page": page,
		"total_pages":  totalPages,
	}

	// 写入缓存，有效期 1 分钟
	utils.GetCache().Set(cacheKey, data, 1*time.Minute)

	respondOK(c, http.StatusOK, data)
}

// ListByCategory 某分类下的文章 (GET /api/categories/:name/posts)
func (h *PostHandler) ListByCategory(c *gin.Context) {
	name := c.Param("name")

	var posts []models.Post
	query := db.DB.Preload("User").Preload("Category").Preload("Tags").
		Order("created_at DESC").
		Limit(50)

	// "all" 返回全部分类
	if name != "all" {
		var category models.Category
		if err := db.DB.Where("name = ?", name).First(&category).Error; err != nil {
			respondError(c, http.StatusNotFound, "category not found")
			return
		}
		query = query.Where("category_id = ?", category.ID)
	}
	query.Find(&posts)

	respondOK(c, http.StatusOK, gin.H{"posts": posts})
}

// ListByTag 某标签下的文章 (GET /api/tags/:name/posts)
func (h *PostHandler) ListByTag(c *gin.Context) {
	name := c.Param("name")

	var tag models.Tag
	if err := db.DB.Where("name = ?", name).First(&tag).Error; err != nil {
		respondError(c, http.StatusNotFound, "tag not found")
		return
	}

	var posts []models.Post
	db.DB.Preload("User").Preload("Category").Preload("Tags").
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ?", tag.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&posts)

	respondOK(c, http.StatusOK, gin.H{"posts": posts})
}

// Detail 文章详情 (GET /api/posts/:pid)
func (h *PostHandler) Detail(c *gin.Context) {
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Preload("User").Preload("Category").Preload("Tags").
		Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	// 增加浏览量
	db.DB.Model(&post).UpdateColumn("views", gorm.Expr("views + 1"))
	post.Views++

	respondOK(c, http.StatusOK, gin.H{
		"post":         post,
		"content_html": utils.RenderMarkdown(post.Content),
	})
}

// Create 发布文章 (POST /api/posts)
func (h *PostHandler) Create(c *gin.Context) {
	user, _ := CurrentUser(c)

	var in postInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		respondError(c, http.StatusBadRequest, "title is required")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		respondError(c, http.StatusBadRequest, "content is required")
		return
	}
	if len(in.Content) > 50000 {
		respondError(c, http.StatusBadRequest, "content is too long")
		return
	}

	// 解析分类，默认 general
	categoryName := in.Category
	if categoryName == "" {
		categoryName = "general"
	}
	var category models.Category
	if err := db.DB.Where("name = ?", categoryName).First(&category).Error; err != nil {
		// 未知分类回落到默认分类
		db.DB.First(&category)
	}

	post := models.Post{
		Pid:        utils.RandStringBytesMaskImpr(8),
		UserID:     user.ID,
		CategoryID: category.ID,
		Title:      in.Title,
		Content:    in.Content,
	}

	// 标签：不存在则创建（编辑时则是整组重挂，见 Update）
	for _, name := range in.Tags {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		var tag models.Tag
		db.DB.Where(models.Tag{Name: name}).FirstOrCreate(&tag)
		post.Tags = append(post.Tags, tag)
	}

	if err := db.DB.Create(&post).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create post")
		return
	}

	// 列表页第一页缓存失效
	utils.GetCache().Delete("post:list:page:1")

	respondOK(c, http.StatusCreated, gin.H{
		"message": "post created",
		"post":    post,
	})
}

// Update 更新文章 (PUT /api/posts/:pid)
func (h *PostHandler) Update(c *gin.Context) {
	user, _ := CurrentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	// 验证是否为作者
	if post.UserID != user.ID {
		respondError(c, http.StatusForbidden, "not the author")
		return
	}

	var in postInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		respondError(c, http.StatusBadRequest, "title is required")
		return
	}

	if in.Category != "" {
		var category models.Category
		if err := db.DB.Where("name = ?", in.Category).First(&category).Error; err == nil {
			post.CategoryID = category.ID
		}
	}

	post.Title = in.Title
	post.Content = in.Content

	// 标签边整组替换：先清空再重建，避免悬挂关联
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var tags []models.Tag
		for _, name := range in.Tags {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" {
				continue
			}
			var tag models.Tag
			if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
			return err
		}
		return tx.Save(&post).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to update post")
		return
	}

	utils.GetCache().Delete("post:list:page:1")

	respondOK(c, http.StatusOK, gin.H{
		"message": "post updated",
		"post":    post,
	})
}

// Delete 删除文章 (DELETE /api/posts/:pid)
func (h *PostHandler) Delete(c *gin.Context) {
	user, _ := CurrentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	if post.UserID != user.ID {
		respondError(c, http.StatusForbidden, "not the author")
		return
	}

	// Hard Delete
	db.DB.Unscoped().Delete(&post)

	utils.GetCache().Delete("post:list:page:1")

	respondOK(c, http.StatusOK, gin.H{"message": "post deleted"})
}

// Like 点赞/取消点赞切换 (POST /api/posts/:pid/like)
func (h *PostHandler) Like(c *gin.Context) {
	user, _ := CurrentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	liked := false
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&existing).Error
		if err == nil {
			// 已点赞则取消
			return tx.Delete(&existing).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		liked = true
		return tx.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to toggle like")
		return
	}

	// 异步重算点赞计数
	services.GetStatsService().ScheduleUpdate(post.Pid)

	var likeCount int64
	db.DB.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeCount)

	respondOK(c, http.StatusOK, gin.H{
		"liked":      liked,
		"like_count": likeCount,
	})
}
