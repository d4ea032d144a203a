package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is a runner's enrollment in a marathon. Title and StartDate are
// snapshots of the marathon at registration time so the listing survives later edits.
type Registration struct {
	ID               uuid.UUID `json:"id"`
	MarathonID       uuid.UUID `json:"marathon_id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	ContactNumber    string    `json:"contact_number"`
	AdditionalInfo   string    `json:"additional_info"`
	Title            string    `json:"title"`
	StartDate        time.Time `json:"start_date"`
	RegistrationDate time.Time `json:"registration_date"`
}
