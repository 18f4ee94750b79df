package handlers

import (
	"bytes"
	"encoding/json"
	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newAuthAPI 带真实 cookie 会话的注册/登录测试环境
func newAuthAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	db.DB = gdb

	h := NewAuthHandler()
	r := gin.New()
	r.Use(sessions.Sessions("inkwell_session", cookie.NewStore([]byte("test_secret"))))
	r.Use(middleware.LoadUser())
	r.POST("/api/signup", h.Register)
	r.POST("/api/login", h.Login)
	r.POST("/api/logout", h.Logout)
	r.GET("/api/me", h.Me)
	return r
}

func authPost(r *gin.Engine, url string, body gin.H, cookies []*http.Cookie) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignupLoginFlow(t *testing.T) {
	r := newAuthAPI(t)

	// 注册后直接获得登录态
	w := authPost(r, "/api/signup", gin.H{"email": "ada@example.com", "password": "secret123"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	// 用户名缺省时取邮箱前缀
	if !strings.Contains(w.Body.String(), `"username":"ada"`) {
		t.Errorf("Expected default username from email prefix, got %s", w.Body.String())
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie after signup")
	}

	req := httptest.NewRequest("GET", "/api/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	mw := httptest.NewRecorder()
	r.ServeHTTP(mw, req)
	if mw.Code != http.StatusOK || !strings.Contains(mw.Body.String(), "ada@example.com") {
		t.Errorf("Expected logged-in user from /api/me, got %d: %s", mw.Code, mw.Body.String())
	}

	// 错误密码
	w = authPost(r, "/api/login", gin.H{"email": "ada@example.com", "password": "wrong"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", w.Code)
	}

	// 正确密码
	w = authPost(r, "/api/login", gin.H{"email": "ada@example.com", "password": "secret123"}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for valid login, got %d: %s", w.Code, w.Body.String())
	}

	// 重复注册同一邮箱
	w = authPost(r, "/api/signup", gin.H{"email": "ada@example.com", "password": "secret123"}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	r := newAuthAPI(t)

	w := authPost(r, "/api/signup", gin.H{"email": "not-an-email", "password": "secret123"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid email, got %d", w.Code)
	}

	w = authPost(r, "/api/signup", gin.H{"email": "ada@example.com", "password": "short"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for short password, got %d", w.Code)
	}
}

func TestMeRequiresLogin(t *testing.T) {
	r := newAuthAPI(t)

	req := httptest.NewRequest("GET", "/api/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without session, got %d", w.Code)
	}
}
