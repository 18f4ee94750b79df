package realtime

import (
	"encoding/json"
	"log"
)

// 事件类型
const (
	EventNewComment   = "new_comment"   // 评论落库成功，广播给帖子的所有订阅者
	EventCommentError = "comment_error" // 提交失败，只发给提交者本人
)

// Event 下行事件。new_comment 携带完整评论记录，
// comment_error 只携带失败信息。
type Event struct {
	Type    string      `json:"type"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Comment interface{} `json:"comment,omitempty"`
}

// SubmitRequest 上行消息：通过长连接直接提交评论
type SubmitRequest struct {
	Action   string  `json:"action"` // "comment"
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

func (e Event) encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("failed to encode realtime event: %v", err)
		return nil
	}
	return data
}
