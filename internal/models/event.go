package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	Location        string    `json:"location"`
	ChapterLocation string    `gorm:"index;not null" json:"chapter_location"`
	CreatedBy       string    `json:"created_by"`
	Timestamp       time.Time `gorm:"index" json:"timestamp"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}

func (e *Event) DocumentID() string { return e.ID }

func (Event) TableName() string {
	return "events"
}
