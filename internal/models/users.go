package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the credential record; role and chapter live on Profile.
type User struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return
}

func (user *User) DocumentID() string { return user.ID }

func (User) TableName() string {
	return "users"
}

type Profile struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"` // same as User.ID
	FullName        string    `gorm:"not null" json:"full_name"`
	Phone           string    `json:"phone"`
	ChapterLocation string    `gorm:"index;not null" json:"chapter_location"`
	Role            Role      `gorm:"not null" json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (p *Profile) DocumentID() string { return p.ID }

func (Profile) TableName() string {
	return "profiles"
}

// Actor is the resolved identity behind a user action.
type Actor struct {
	UID             string
	Email           string
	Role            Role
	ChapterLocation string
	FullName        string
	Phone           string
}

func (a Actor) IsLeader() bool { return a.Role == RoleChapterLeader }
