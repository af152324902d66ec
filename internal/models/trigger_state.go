package models

import "time"

// TriggerState tracks the last run of a background trigger.
type TriggerState struct {
	Name          string     `gorm:"primaryKey" json:"name"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	Status        string     `json:"status"` // running, completed, failed
	ErrorMessage  string     `json:"error_message,omitempty"`
	Emitted       int        `json:"emitted"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (TriggerState) TableName() string {
	return "trigger_state"
}
