package models

import (
	"time"

	"github.com/google/uuid"
)

// Marathon is a published marathon event with its registration counter.
type Marathon struct {
	ID                     uuid.UUID `json:"id"`
	Title                  string    `json:"title"`
	Location               string    `json:"location"`
	Distance               string    `json:"distance"`
	Description            string    `json:"description"`
	ImageURL               string    `json:"image_url"`
	StartDate              time.Time `json:"start_date"`
	CreatedBy              string    `json:"created_by"` // organizer email
	TotalRegistrationCount int       `json:"total_registration_count"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}
