package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ID       uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Name     string     `gorm:"not null" json:"name"`
	Email    string     `gorm:"unique;not null" json:"email"`
	Password string     `gorm:"not null" json:"-"`
	Role     Role       `gorm:"not null;default:'public'" json:"role"`
	Status   UserStatus `gorm:"not null;default:'active'" json:"status"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}
