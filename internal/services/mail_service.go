package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// MailService 站内所有外发邮件的出口。
// SMTP 环境变量不全时服务自动禁用，调用方无需判空。
type MailService struct {
	host     string
	port     string
	username string
	password string
	from     string
	enabled  bool
}

func NewMailService() *MailService {
	s := &MailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASS"),
		from:     os.Getenv("SMTP_FROM"),
	}
	s.enabled = s.host != "" && s.port != "" && s.username != "" && s.password != "" && s.from != ""
	if !s.enabled {
		log.Println("MailService disabled: missing SMTP environment variables")
	}
	return s
}

// sendAsync 后台投递一封 HTML 邮件，失败只记日志
func (s *MailService) sendAsync(to []string, subject, body string) {
	if !s.enabled {
		return
	}
	go func() {
		msg := []byte(fmt.Sprintf(
			"To: %s\r\nFrom: Inkwell <%s>\r\nSubject: %s\r\n"+
				"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n%s",
			strings.Join(to, ","), s.from, subject, body))

		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, to, msg); err != nil {
			log.Printf("Failed to send email to %v: %v", to, err)
			return
		}
		log.Printf("Email sent to %v: %s", to, subject)
	}()
}

// SendNewsletterWelcome 订阅成功后的欢迎邮件
func (s *MailService) SendNewsletterWelcome(email string) {
	body := `<p>Thanks for subscribing to the Inkwell newsletter.</p>
<p>New posts and community highlights will land in your inbox from time to time.</p>`
	s.sendAsync([]string{email}, "Welcome to Inkwell", body)
}

// SendReplyNotification 有人回复评论时通知被回复者
func (s *MailService) SendReplyNotification(to, actorName, postTitle, replyContent, postLink string) {
	if to == "" {
		return
	}
	body := fmt.Sprintf(`<p><strong>%s</strong> replied to your comment on <em>%s</em>:</p>
<blockquote>%s</blockquote>
<p><a href="%s">View the conversation</a></p>`, actorName, postTitle, replyContent, postLink)
	s.sendAsync([]string{to}, fmt.Sprintf("%s replied to your comment", actorName), body)
}
