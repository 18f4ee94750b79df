package handlers

import (
	"fmt"
	"inkwell/internal/services"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	maxUploadBytes = 10 << 20
	proxyMaxAge    = 7 * 24 * time.Hour
)

// 盗链请求返回的占位图
const hotlinkPlaceholder = `<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="#f8f9fa"/>
  <text x="50%" y="50%" font-family="Arial" font-size="14" fill="#6c757d" text-anchor="middle">
    For use on Inkwell only
  </text>
</svg>`

type ImageHandler struct {
	client *http.Client
}

func NewImageHandler() *ImageHandler {
	return &ImageHandler{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Upload 上传文章配图 (POST /api/upload)，返回站内反代链接
func (h *ImageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		respondError(c, http.StatusBadRequest, "only image files are allowed")
		return
	}
	if header.Size > maxUploadBytes {
		respondError(c, http.StatusBadRequest, "image must be under 10MB")
		return
	}

	result, err := services.UploadImage(file, header)
	if err != nil {
		respondError(c, http.StatusInternalServerError, fmt.Sprintf("upload failed: %v", err))
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"url": result.URL,
		"id":  result.ID,
	})
}

// Proxy 反代图床图片 (GET /img/:id)。
// 站外引用按 Sec-Fetch-* 头识别，命中时回占位图而不是 403，
// 这样盗链页面显示的是提示而非裂图。
func (h *ImageHandler) Proxy(c *gin.Context) {
	imageID := c.Param("id")
	if imageID == "" {
		c.String(http.StatusBadRequest, "missing image id")
		return
	}

	if hotlinked(c.Request) {
		c.Header("Content-Type", "image/svg+xml")
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.String(http.StatusOK, hotlinkPlaceholder)
		return
	}

	ext := filepath.Ext(imageID)
	if ext == "" {
		ext = ".jpg"
	}
	upstream := fmt.Sprintf("https://i.imgur.com/%s%s", strings.TrimSuffix(imageID, filepath.Ext(imageID)), ext)

	req, err := http.NewRequestWithContext(c.Request.Context(), "GET", upstream, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to build request")
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		c.String(http.StatusBadGateway, "failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.String(resp.StatusCode, "image not found")
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(proxyMaxAge.Seconds())))
	c.Header("Vary", "Sec-Fetch-Site, Sec-Fetch-Mode")

	c.Status(http.StatusOK)
	io.Copy(c.Writer, resp.Body)
}

// hotlinked 判断是否为站外图片引用。
// 老浏览器不带 Sec-Fetch-* 头，放行；跨站且非用户主动导航的才算盗链。
func hotlinked(r *http.Request) bool {
	site := r.Header.Get("Sec-Fetch-Site")
	switch site {
	case "", "same-origin", "same-site", "none":
		return false
	}
	return r.Header.Get("Sec-Fetch-Mode") != "navigate"
}
