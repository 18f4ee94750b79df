package services

import (
	"context"
	"errors"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// ErrUserNotFound 表示操作用户无法被解析（不存在或已注销）
var ErrUserNotFound = errors.New("user not found")

// AuthorInfo 评论接口对外暴露的作者展示信息
type AuthorInfo struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// IdentityResolver 将用户 ID 解析为展示信息。
// 评论引擎只依赖这个接口，不关心用户数据存在哪里。
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uint) (*AuthorInfo, error)
}

// dbIdentityResolver 默认实现，从 users 表读取
type dbIdentityResolver struct {
	db *gorm.DB
}

// NewIdentityResolver 创建基于用户表的身份解析器
func NewIdentityResolver(gdb *gorm.DB) IdentityResolver {
	return &dbIdentityResolver{db: gdb}
}

func (r *dbIdentityResolver) Resolve(ctx context.Context, userID uint) (*AuthorInfo, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &AuthorInfo{
		ID:        user.ID,
		Name:      user.Username,
		AvatarURL: user.Avatar,
	}, nil
}
