package photos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Photo struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	Title       *string `json:"title"`
	Description *string `json:"description"`

	ImageURL     string `gorm:"not null" json:"imageUrl"`
	ThumbnailURL string `gorm:"not null" json:"thumbnailUrl"`
	ObjectKey    string `gorm:"not null;default:''" json:"-"`
	FileSize     int64  `gorm:"not null" json:"fileSize"`
	MIMEType     string `gorm:"column:mime_type;not null" json:"mimeType"`
	Width        *int   `json:"width"`
	Height       *int   `json:"height"`

	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Comments []Comment `gorm:"foreignKey:PhotoID" json:"comments"`

	// Computed per query from active comments; never stored.
	CommentCount int64 `gorm:"->;-:migration" json:"commentCount"`
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
