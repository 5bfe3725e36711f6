package models

import (
	"time"
)

// Client is the owner of one or more accounts
type Client struct {
	ID         string    `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Email      string    `json:"email" db:"email"`
	Telephone  string    `json:"telephone" db:"telephone"`
	Address    string    `json:"address" db:"address"`
	NationalID string    `json:"national_id" db:"national_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ClientInput identifies an existing client by ID or carries the
// fields needed to create one inline during account opening.
type ClientInput struct {
	ID         string `json:"id,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Telephone  string `json:"telephone,omitempty"`
	Address    string `json:"address,omitempty"`
	NationalID string `json:"national_id,omitempty"`
}
