package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types written by the background triggers.
const (
	NotificationRequestApproved = "request_approved"
	NotificationDueTomorrow     = "due_tomorrow"
	NotificationOverdue         = "overdue"
)

type Notification struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"not null" json:"type"`
	RequestID string    `gorm:"index" json:"request_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

func (n *Notification) DocumentID() string { return n.ID }

func (Notification) TableName() string {
	return "notifications"
}
