package dto

import (
	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/reminders"
)

type SubmitRequestRequest struct {
	BookID string `json:"book_id" binding:"required"`
}

type DonationRequest struct {
	BookTitle         string `json:"book_title" binding:"required"`
	Author            string `json:"author"`
	ISBN              string `json:"isbn"`
	Subject           string `json:"subject"`
	Level             string `json:"level"`
	Condition         string `json:"condition"`
	PublishingCompany string `json:"publishing_company"`
	UnusedTests       int    `json:"unused_tests" binding:"min=0"`
	Description       string `json:"description"`
	ReturnDate        string `json:"return_date" binding:"required"`
	DonorName         string `json:"donor_name"`
	DonorPhone        string `json:"donor_phone"`
}

func (r DonationRequest) ToInput() lifecycle.DonationInput {
	return lifecycle.DonationInput{
		BookTitle:         r.BookTitle,
		Author:            r.Author,
		ISBN:              r.ISBN,
		Subject:           r.Subject,
		Level:             r.Level,
		Condition:         r.Condition,
		PublishingCompany: r.PublishingCompany,
		UnusedTests:       r.UnusedTests,
		Description:       r.Description,
		ReturnDate:        r.ReturnDate,
		DonorName:         r.DonorName,
		DonorPhone:        r.DonorPhone,
	}
}

// ApproveRequest carries the hand-off schedule attached on approval.
type ApproveRequest struct {
	MeetingDate         string `json:"meeting_date" binding:"required"`
	MeetingTime         string `json:"meeting_time" binding:"required"`
	MeetingLocationType string `json:"meeting_location_type" binding:"required,oneof=in-school outside-school"`
	ReturnDate          string `json:"return_date" binding:"required"`
}

func (r ApproveRequest) ToSchedule() lifecycle.Schedule {
	return lifecycle.Schedule{
		MeetingDate:         r.MeetingDate,
		MeetingTime:         r.MeetingTime,
		MeetingLocationType: r.MeetingLocationType,
		ReturnDate:          r.ReturnDate,
	}
}

type RequestListResponse struct {
	Items []models.Request `json:"items"`
	Total int              `json:"total"`
}

type DonationListResponse struct {
	Items []models.Donation `json:"items"`
	Total int               `json:"total"`
}

type ReminderListResponse struct {
	Items []reminders.Reminder `json:"items"`
	Total int                  `json:"total"`
}

type PickupListResponse struct {
	Items []reminders.Pickup `json:"items"`
	Total int                `json:"total"`
}

type ItemFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ClearResponse reports a bulk clear. Failed is empty on full success.
type ClearResponse struct {
	Deleted []string      `json:"deleted"`
	Failed  []ItemFailure `json:"failed"`
}

func FromClearResult(res lifecycle.ClearResult) ClearResponse {
	out := ClearResponse{Deleted: res.Deleted, Failed: []ItemFailure{}}
	if out.Deleted == nil {
		out.Deleted = []string{}
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, ItemFailure{ID: f.ID, Error: f.Err.Error()})
	}
	return out
}
