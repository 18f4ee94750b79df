package services

import (
	"context"
	"fmt"
	"inkwell/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxCommentLength 评论内容长度上限（防滥用）
const MaxCommentLength = 1000

// ValidationError 输入缺失或不合法，写入不会发生
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// PersistenceError 写路径上的存储失败，事务已整体回滚
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "failed to save comment: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// FetchError 读路径上的存储失败，与“没有评论”严格区分
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "failed to fetch comments: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// CommentRecord 一条完整落库后的评论，含写入时冗余的作者信息。
// 回复的 PostID 来自请求上下文透传，库里只存一条归属边。
type CommentRecord struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	AuthorID  uint       `json:"author_id"`
	ParentID  *string    `json:"parent_id"`
	PostID    string     `json:"post_id"`
	Author    AuthorInfo `json:"author"`
}

// CommentThread 顶层评论 + 直接回复，读取契约固定两层
type CommentThread struct {
	CommentRecord
	Replies []CommentRecord `json:"replies"`
}

// CommentStore 评论图谱的持久层。
// 所有并发控制交给数据库，Store 本身无共享可变状态。
type CommentStore struct {
	db       *gorm.DB
	identity IdentityResolver
}

func NewCommentStore(gdb *gorm.DB, identity IdentityResolver) *CommentStore {
	return &CommentStore{db: gdb, identity: identity}
}

// CreateComment 创建一条评论或回复。
// 一次调用的多条写入（刷新作者快照、补建帖子占位、评论本体）在同一个
// 事务内完成，部分写入不会被 FetchCommentTree 观察到。
func (s *CommentStore) CreateComment(ctx context.Context, postID string, parentID *string, userID uint, content string) (*CommentRecord, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Field: "content"}
	}
	if len(content) > MaxCommentLength {
		return nil, &ValidationError{Field: "content", Reason: fmt.Sprintf("exceeds %d characters", MaxCommentLength)}
	}

	// 写入前解析作者，解析失败不产生任何写入
	author, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		AuthorID:  userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if parentID != nil && *parentID != "" {
		comment.ParentID = parentID
	} else {
		// 顶层评论：归属边指向帖子
		pid := postID
		comment.PostPid = &pid
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 刷新作者快照（首次写入时创建，之后每次发言跟随最新展示信息）
		snapshot := models.CommentAuthor{
			UserID: author.ID,
			Name:   author.Name,
			Avatar: author.AvatarURL,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "avatar", "updated_at"}),
		}).Create(&snapshot).Error; err != nil {
			return err
		}

		if comment.ParentID != nil {
			// 回复必须挂在已存在的父评论上
			var parent models.Comment
			if err := tx.Select("id").First(&parent, "id = ?", *comment.ParentID).Error; err != nil {
				return fmt.Errorf("parent comment %s: %w", *comment.ParentID, err)
			}
		} else {
			// 帖子占位节点按需补建
			if err := tx.FirstOrCreate(&models.CommentPost{}, models.CommentPost{Pid: postID}).Error; err != nil {
				return err
			}
		}

		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	record := recordFrom(comment, postID)
	record.Author = *author
	return &record, nil
}

// FetchCommentTree 取一篇帖子的两层评论树，两级都按创建时间升序。
// 未知帖子与零评论的帖子同样返回空序列，不作区分。
func (s *CommentStore) FetchCommentTree(ctx context.Context, postID string) ([]CommentThread, error) {
	// Phase 1: 顶层评论
	var tops []models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").
		Where("post_pid = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&tops).Error; err != nil {
		return nil, &FetchError{Err: err}
	}

	threads := make([]CommentThread, 0, len(tops))
	for _, top := range tops {
		// Phase 2: 每条顶层评论只解析一跳回复。
		// 小规模讨论串下多一轮查询可以接受，换来平坦的访问模式。
		var replies []models.Comment
		if err := s.db.WithContext(ctx).Preload("Author").
			Where("parent_id = ?", top.ID).
			Order("created_at ASC, id ASC").
			Find(&replies).Error; err != nil {
			return nil, &FetchError{Err: err}
		}

		thread := CommentThread{
			CommentRecord: recordFrom(top, postID),
			Replies:       make([]CommentRecord, 0, len(replies)),
		}
		for _, reply := range replies {
			thread.Replies = append(thread.Replies, recordFrom(reply, postID))
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// recordFrom 把库内行转成对外记录，postID 始终随上下文透传
func recordFrom(c models.Comment, postID string) CommentRecord {
	return CommentRecord{
		ID:        c.ID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		AuthorID:  c.AuthorID,
		ParentID:  c.ParentID,
		PostID:    postID,
		Author: AuthorInfo{
			ID:        c.Author.UserID,
			Name:      c.Author.Name,
			AvatarURL: c.Author.Avatar,
		},
	}
}
