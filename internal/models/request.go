package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request is a student's ask to borrow a catalog book.
type Request struct {
	ID                  string     `gorm:"primaryKey;type:uuid" json:"id"`
	BookID              string     `gorm:"index" json:"book_id"`
	BookTitle           string     `json:"book_title"`
	RequestedBy         string     `gorm:"index;not null" json:"requested_by"`
	RequestedByEmail    string     `json:"requested_by_email"`
	RequestedByName     string     `json:"requested_by_name"`
	RequestedByPhone    string     `json:"requested_by_phone"`
	ChapterLocation     string     `gorm:"index;not null" json:"chapter_location"`
	Status              Status     `gorm:"index;not null;default:'pending'" json:"status"`
	MeetingDate         string     `json:"meeting_date,omitempty"`
	MeetingTime         string     `json:"meeting_time,omitempty"`
	MeetingLocationType string     `json:"meeting_location_type,omitempty"`
	ReturnDate          string     `json:"return_date,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	DueDate             *time.Time `json:"due_date,omitempty"`
	ReturnedDate        *time.Time `json:"returned_date,omitempty"`
	Timestamp           time.Time  `gorm:"index" json:"timestamp"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

func (r *Request) DocumentID() string { return r.ID }

func (Request) TableName() string {
	return "requests"
}
