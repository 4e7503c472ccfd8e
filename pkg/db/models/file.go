package models

import (
	"time"

	"github.com/google/uuid"
)

// File is a stored file record owned by a user.
type File struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index"`
	Name        string     `gorm:"column:name;type:varchar(512);not null"`
	ContentType string     `gorm:"column:content_type;type:varchar(255);not null"`
	SizeBytes   int64      `gorm:"column:size_bytes;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
}

func (File) TableName() string {
	return "files"
}
