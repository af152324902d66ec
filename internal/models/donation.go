package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation is a student's offer of a book to their chapter.
type Donation struct {
	ID                  string     `gorm:"primaryKey;type:uuid" json:"id"`
	BookTitle           string     `gorm:"not null" json:"book_title"`
	Author              string     `json:"author"`
	ISBN                string     `gorm:"column:isbn" json:"isbn"`
	Subject             string     `json:"subject"`
	Level               string     `json:"level"`
	Condition           string     `json:"condition"`
	PublishingCompany   string     `json:"publishing_company"`
	UnusedTests         int        `gorm:"not null;default:0" json:"unused_tests"`
	Description         string     `json:"description"`
	ReturnDate          string     `gorm:"not null" json:"return_date"`
	DonorName           string     `json:"donor_name"`
	DonorPhone          string     `json:"donor_phone"`
	DonatedBy           string     `gorm:"index;not null" json:"donated_by"`
	DonatedByEmail      string     `gorm:"index" json:"donated_by_email"`
	ChapterLocation     string     `gorm:"index;not null" json:"chapter_location"`
	Status              Status     `gorm:"index;not null;default:'pending'" json:"status"`
	MeetingDate         string     `json:"meeting_date,omitempty"`
	MeetingTime         string     `json:"meeting_time,omitempty"`
	MeetingLocationType string     `json:"meeting_location_type,omitempty"`
	BookID              string     `json:"book_id,omitempty"` // catalog copy created on approval
	Timestamp           time.Time  `gorm:"index" json:"timestamp"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
}

func (d *Donation) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return
}

func (d *Donation) DocumentID() string { return d.ID }

func (Donation) TableName() string {
	return "donations"
}
