package models

import (
	"time"
)

// 评论子系统使用独立的三张表，按图谱的思路建模：
// 作者快照节点、帖子占位节点、评论节点，节点之间只靠外键连边。
// 主业务表（users/posts）不直接参与评论读写。

// CommentAuthor 评论作者快照。同一作者的所有评论共享一行，
// 每次该作者发表新评论时用身份解析结果刷新（name/avatar 随最近一次写入）。
type CommentAuthor struct {
	UserID    uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Avatar    string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"-"`
}

// CommentPost 帖子占位节点。评论引擎不负责帖子创建，
// 首条顶层评论落库时按需补建。
type CommentPost struct {
	Pid       string    `gorm:"primaryKey;size:36" json:"pid"`
	CreatedAt time.Time `json:"-"`
}

// Comment 评论节点。PostPid 与 ParentID 互斥：
// 顶层评论挂在帖子上（PostPid 非空），回复挂在父评论上（ParentID 非空），
// 有且只有一条归属边，由 CommentStore 在事务内保证。
type Comment struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	PostPid   *string       `gorm:"index;size:36" json:"post_id,omitempty"`
	ParentID  *string       `gorm:"index;size:36" json:"parent_id,omitempty"`
	AuthorID  uint          `gorm:"not null;index" json:"author_id"`
	Author    CommentAuthor `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	// 评论只增不改不删，没有 UpdatedAt / DeletedAt。
}
