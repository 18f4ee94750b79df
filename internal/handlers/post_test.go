package handlers

import (
	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostAPI 帖子接口测试环境，请求以 seed 用户身份发出
func newPostAPI(t *testing.T) (*gin.Engine, *gorm.DB, *models.Post) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.CommentAuthor{},
		&models.CommentPost{},
	); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	db.DB = gdb

	user := models.User{Username: "ada", Email: "ada@example.com", Password: "x"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	category := models.Category{Name: "general"}
	if err := gdb.Create(&category).Error; err != nil {
		t.Fatalf("Failed to seed category: %v", err)
	}
	post := models.Post{Pid: "p1234567", UserID: user.ID, CategoryID: category.ID, Title: "hello", Content: "world"}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("Failed to seed post: %v", err)
	}

	h := NewPostHandler()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CheckUserKey, &user)
		c.Next()
	})
	r.POST("/api/posts/:pid/like", h.Like)
	r.GET("/api/posts/:pid", h.Detail)
	return r, gdb, &post
}

func TestLikeToggle(t *testing.T) {
	r, gdb, post := newPostAPI(t)

	like := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/posts/"+post.Pid+"/like", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// 第一次点赞
	w := like()
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"liked":true`) || !strings.Contains(w.Body.String(), `"like_count":1`) {
		t.Errorf("Expected liked=true count=1, got %s", w.Body.String())
	}

	// 再点一次取消
	w = like()
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"liked":false`) || !strings.Contains(w.Body.String(), `"like_count":0`) {
		t.Errorf("Expected liked=false count=0, got %s", w.Body.String())
	}

	// 一个用户一篇文章至多一条记录
	like()
	var count int64
	gdb.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected a single like row, got %d", count)
	}
}

func TestPostDetailCountsViews(t *testing.T) {
	r, gdb, post := newPostAPI(t)

	req := httptest.NewRequest("GET", "/api/posts/"+post.Pid, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got models.Post
	if err := gdb.Where("pid = ?", post.Pid).First(&got).Error; err != nil {
		t.Fatalf("Failed to reload post: %v", err)
	}
	if got.Views != 1 {
		t.Errorf("Expected view counter at 1, got %d", got.Views)
	}

	req = httptest.NewRequest("GET", "/api/posts/nope1234", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown post, got %d", w.Code)
	}
}
