package models

import (
	"time"
)

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex;size:50" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
