package domain

import (
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Title        string         `json:"title"`
	ContactEmail string         `json:"contact_email"`
	Details      map[string]any `json:"details"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ItemCollection struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

type Category struct {
	ID               uuid.UUID `json:"id"`
	ItemCollectionID uuid.UUID `json:"item_collection_id"`
	Name             string    `json:"name"`
	Title            string    `json:"title"`
	Seq              int       `json:"seq"`
}
