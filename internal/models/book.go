package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Book struct {
	ID                   string     `gorm:"primaryKey;type:uuid" json:"id"`
	Title                string     `gorm:"not null" json:"title"`
	Author               string     `json:"author"`
	ISBN                 string     `gorm:"column:isbn" json:"isbn"`
	Subject              string     `json:"subject"`
	Level                string     `json:"level"`
	Condition            string     `json:"condition"`
	Description          string     `json:"description"`
	PublishingCompany    string     `json:"publishing_company"`
	RemainingUnusedTests int        `gorm:"not null;default:0" json:"remaining_unused_tests"`
	ChapterLocation      string     `gorm:"index;not null" json:"chapter_location"`
	Status               BookStatus `gorm:"not null;default:'available'" json:"status"`
	CurrentBorrower      string     `json:"current_borrower,omitempty"`
	BorrowedDate         *time.Time `json:"borrowed_date,omitempty"`
	ReturnDate           string     `json:"return_date,omitempty"`
	DonorName            string     `json:"donor_name,omitempty"`
	DonorPhone           string     `json:"donor_phone,omitempty"`
	DonatedBy            string     `json:"donated_by,omitempty"` // donor email
	LastModified         *time.Time `json:"last_modified,omitempty"`
	Timestamp            time.Time  `gorm:"index" json:"timestamp"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

func (b *Book) DocumentID() string { return b.ID }

func (Book) TableName() string {
	return "books"
}
