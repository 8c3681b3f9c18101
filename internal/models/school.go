package models

import "time"

// School is the identity shown on public forms and letters.
type School struct {
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Website     string    `json:"website"`
	Logo        string    `json:"logo"`
	Principal   string    `json:"principal"`
	Motto       string    `json:"motto"`
	Vision      string    `json:"vision"`
	Mission     string    `json:"mission"`
}

// SchoolRequest is the body for creating or replacing a school.
type SchoolRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`
	Logo        string `json:"logo"`
	Principal   string `json:"principal"`
	Motto       string `json:"motto"`
	Vision      string `json:"vision"`
	Mission     string `json:"mission"`
}
