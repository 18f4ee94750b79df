package handlers

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type NewsletterHandler struct {
	mailService *services.MailService
}

func NewNewsletterHandler() *NewsletterHandler {
	return &NewsletterHandler{
		mailService: services.NewMailService(),
	}
}

type subscribeInput struct {
	Email string `json:"email"`
}

// Subscribe 订阅邮件通讯 (POST /api/newsletter)
func (h *NewsletterHandler) Subscribe(c *gin.Context) {
	var in subscribeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !strings.Contains(email, "@") {
		respondError(c, http.StatusBadRequest, "invalid email")
		return
	}

	// 重复订阅静默成功
	var subscriber models.Subscriber
	result := db.DB.Where(models.Subscriber{Email: email}).FirstOrCreate(&subscriber)
	if result.Error != nil {
		respondError(c, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	// 首次订阅发送欢迎邮件
	if result.RowsAffected > 0 {
		h.mailService.SendNewsletterWelcome(email)
	}

	respondOK(c, http.StatusOK, gin.H{"message": "subscribed"})
}
