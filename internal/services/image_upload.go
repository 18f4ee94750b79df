package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// 图床走 Imgur 匿名上传，站内只暴露 /img/:id 反代链接，
// 原始链接保留在结果里备用。

const imgurUploadURL = "https://api.imgur.com/3/image"

type imgurResponse struct {
	Data struct {
		ID   string `json:"id"`
		Link string `json:"link"`
		Type string `json:"type"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// ImageUploadResult 上传成功后的图片定位信息
type ImageUploadResult struct {
	URL         string `json:"url"`          // 站内反代链接
	OriginalURL string `json:"original_url"` // Imgur 原始链接
	ID          string `json:"id"`
}

// UploadImage 上传一张图片并返回站内可用的链接。
// 当前实现基于 Imgur，需要 IMGUR_CLIENT_ID。
func UploadImage(file multipart.File, header *multipart.FileHeader) (*ImageUploadResult, error) {
	clientID := os.Getenv("IMGUR_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("IMGUR_CLIENT_ID is not configured")
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// Imgur 接收 base64 的 multipart 字段
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("image", base64.StdEncoding.EncodeToString(raw)); err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	if err := form.WriteField("type", "base64"); err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	form.Close()

	req, err := http.NewRequest("POST", imgurUploadURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+clientID)
	req.Header.Set("Content-Type", form.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	var parsed imgurResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("imgur upload failed: status %d", parsed.Status)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = extForMIME(parsed.Data.Type)
	}

	return &ImageUploadResult{
		URL:         fmt.Sprintf("/img/%s%s", parsed.Data.ID, ext),
		OriginalURL: parsed.Data.Link,
		ID:          parsed.Data.ID,
	}, nil
}

// extForMIME 按 Imgur 返回的 MIME 类型推断扩展名
func extForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
