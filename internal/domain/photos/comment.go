package photos

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AnonymousAuthor  = "Anonymous"
	MaxCommentLength = 1000
)

type Comment struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	Content    string `gorm:"type:text;not null" json:"content"`
	AuthorName string `gorm:"not null" json:"authorName"`

	PhotoID string `gorm:"type:uuid;not null;index:idx_comments_photo_created,priority:1" json:"photoId"`

	CreatedAt time.Time      `gorm:"index:idx_comments_photo_created,priority:2" json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// AuthorOrAnonymous returns the trimmed name, or the anonymous sentinel when blank.
func AuthorOrAnonymous(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return AnonymousAuthor
}
