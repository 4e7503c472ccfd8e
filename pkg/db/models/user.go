package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. Events it produces reference it as aggregate "user".
type User struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email       string     `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	DisplayName string     `gorm:"column:display_name;type:varchar(255);not null"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
}

func (User) TableName() string {
	return "users"
}
