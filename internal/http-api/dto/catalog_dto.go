package dto

import (
	"time"

	"bookshare/internal/http-api/service"
	"bookshare/internal/models"
)

// UpdateBookRequest is a partial edit; omitted fields are left unchanged.
type UpdateBookRequest struct {
	Title                *string `json:"title"`
	Author               *string `json:"author"`
	ISBN                 *string `json:"isbn"`
	Subject              *string `json:"subject"`
	Level                *string `json:"level"`
	Condition            *string `json:"condition"`
	PublishingCompany    *string `json:"publishing_company"`
	Description          *string `json:"description"`
	RemainingUnusedTests *int    `json:"remaining_unused_tests" binding:"omitempty,min=0"`
}

func (r UpdateBookRequest) ToUpdate() service.BookUpdate {
	return service.BookUpdate{
		Title:                r.Title,
		Author:               r.Author,
		ISBN:                 r.ISBN,
		Subject:              r.Subject,
		Level:                r.Level,
		Condition:            r.Condition,
		PublishingCompany:    r.PublishingCompany,
		Description:          r.Description,
		RemainingUnusedTests: r.RemainingUnusedTests,
	}
}

type BookListResponse struct {
	Items []models.Book `json:"items"`
	Total int           `json:"total"`
}

type CreateEventRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required"`
	Location    string `json:"location"`
}

type CreateOpportunityRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	NeededItems []string   `json:"needed_items"`
	Deadline    *time.Time `json:"deadline"`
}

type NotificationListResponse struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}
