package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/realtime"
	"inkwell/internal/services"
	"inkwell/internal/utils"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 评论树读取缓存的 TTL，写入时主动失效
const commentTreeCacheTTL = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type CommentHandler struct {
	store       *services.CommentStore
	hub         *realtime.Hub
	mailService *services.MailService
}

func NewCommentHandler(store *services.CommentStore, hub *realtime.Hub) *CommentHandler {
	return &CommentHandler{
		store:       store,
		hub:         hub,
		mailService: services.NewMailService(),
	}
}

type commentInput struct {
	ParentID *string `json:"parent_id"`
	Content  string  `json:"content"`
}

// Create 发表评论 (POST /api/posts/:pid/comments)
func (h *CommentHandler) Create(c *gin.Context) {
	user, _ := CurrentUser(c)

	pid := c.Param("pid")

	var in commentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var userID uint
	if user != nil {
		userID = user.ID
	}

	record, err := h.submit(c.Request.Context(), pid, in.ParentID, userID, in.Content)
	if err != nil {
		code, msg := commentErrorStatus(err)
		respondError(c, code, msg)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"message": "comment saved",
		"comment": record,
	})
}

// List 获取帖子的两层评论树 (GET /api/posts/:pid/comments)
func (h *CommentHandler) List(c *gin.Context) {
	pid := c.Param("pid")
	if pid == "" {
		respondError(c, http.StatusBadRequest, "post_id is required")
		return
	}

	cacheKey := fmt.Sprintf("comments:tree:%s", pid)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if threads, ok := cached.([]services.CommentThread); ok {
			respondOK(c, http.StatusOK, gin.H{"comments": threads})
			return
		}
	}

	threads, err := h.store.FetchCommentTree(c.Request.Context(), pid)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to fetch comments")
		return
	}

	utils.GetCache().Set(cacheKey, threads, commentTreeCacheTTL)

	respondOK(c, http.StatusOK, gin.H{"comments": threads})
}

// Stream 订阅帖子的实时评论流 (GET /ws/posts/:pid)
// 订阅不要求登录；通过长连接提交评论时才需要已登录用户。
func (h *CommentHandler) Stream(c *gin.Context) {
	pid := c.Param("pid")
	if pid == "" {
		respondError(c, http.StatusBadRequest, "post_id is required")
		return
	}

	var userID uint
	if user, ok := CurrentUser(c); ok && user != nil {
		userID = user.ID
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade websocket: %v", err)
		return
	}

	client := realtime.NewClient(h.hub, pid, conn, func(client *realtime.Client, data []byte) {
		h.handleSocketSubmit(client, userID, data)
	})
	h.hub.Register(client)

	go client.WritePump()
	// ReadPump 阻塞到连接关闭，并负责从 Hub 注销
	client.ReadPump()
}

// handleSocketSubmit 处理长连接上行的评论提交。
// 失败通过 comment_error 事件只通知提交者本人，成功则和 HTTP 路径一样广播。
func (h *CommentHandler) handleSocketSubmit(client *realtime.Client, userID uint, data []byte) {
	var req realtime.SubmitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		client.Send(realtime.Event{Type: realtime.EventCommentError, Success: false, Message: "invalid message"})
		return
	}
	if req.Action != "comment" {
		return
	}

	_, err := h.submit(context.Background(), client.Room(), req.ParentID, userID, req.Content)
	if err != nil {
		_, msg := commentErrorStatus(err)
		client.Send(realtime.Event{Type: realtime.EventCommentError, Success: false, Message: msg})
	}
}

// submit 评论写入的唯一通道：校验 -> 落库 -> 广播。
// 校验顺序固定：post_id、content、user_id，任何一步失败都不会落库；
// 成功恰好广播一次，失败零次。
func (h *CommentHandler) submit(ctx context.Context, postID string, parentID *string, userID uint, content string) (*services.CommentRecord, error) {
	if postID == "" {
		return nil, &services.ValidationError{Field: "post_id"}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &services.ValidationError{Field: "content"}
	}
	if userID == 0 {
		return nil, &services.ValidationError{Field: "user_id"}
	}

	// 评论按纯文本存储，入库前剥掉 HTML
	content = utils.SanitizeText(content)

	record, err := h.store.CreateComment(ctx, postID, parentID, userID, content)
	if err != nil {
		return nil, err
	}

	// 广播顺序跟随落库完成顺序，并发提交之间不加互斥
	h.hub.Publish(postID, realtime.Event{
		Type:    realtime.EventNewComment,
		Success: true,
		Comment: record,
	})

	// 主动失效评论树缓存
	utils.GetCache().Delete(fmt.Sprintf("comments:tree:%s", postID))

	// 异步更新帖子评论数
	services.GetStatsService().ScheduleUpdate(postID)

	// 如果是回复，异步给被回复者发邮件通知
	if record.ParentID != nil {
		go h.notifyParentAuthor(*record)
	}

	return record, nil
}

// notifyParentAuthor 查出父评论作者并发送回复通知邮件
func (h *CommentHandler) notifyParentAuthor(record services.CommentRecord) {
	var parent models.Comment
	if err := db.DB.First(&parent, "id = ?", *record.ParentID).Error; err != nil {
		return
	}
	// 不通知自己
	if parent.AuthorID == record.AuthorID {
		return
	}

	var parentUser models.User
	if err := db.DB.First(&parentUser, parent.AuthorID).Error; err != nil {
		return
	}

	postTitle := record.PostID
	var post models.Post
	if err := db.DB.Where("pid = ?", record.PostID).First(&post).Error; err == nil {
		postTitle = post.Title
	}

	postLink := fmt.Sprintf("%s/blog/%s#comment-%s", os.Getenv("SITE_URL"), record.PostID, record.ID)
	h.mailService.SendReplyNotification(parentUser.Email, record.Author.Name, postTitle, record.Content, postLink)
}

// commentErrorStatus 把评论子系统的错误分类映射为 HTTP 状态与对外文案
func commentErrorStatus(err error) (int, string) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, vErr.Error()
	}
	if errors.Is(err, services.ErrUserNotFound) {
		return http.StatusNotFound, "user not found"
	}
	var pErr *services.PersistenceError
	if errors.As(err, &pErr) {
		return http.StatusInternalServerError, "failed to save comment"
	}
	var fErr *services.FetchError
	if errors.As(err, &fErr) {
		return http.StatusInternalServerError, "failed to fetch comments"
	}
	return http.StatusInternalServerError, "internal error"
}
