package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// An item is a single type of inventory.
type Item struct {
	ID                uuid.UUID `json:"id"`
	OrganizationID    uuid.UUID `json:"organization_id"`
	ItemCollectionID  uuid.UUID `json:"item_collection_id"`
	CategoryID        uuid.UUID `json:"category_id"`
	Name              string    `json:"name"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	QuantityTotal     int       `json:"quantity_total"`
	QuantityAvailable int       `json:"quantity_available"`
	CreatedAt         time.Time `json:"created_at"`
}

func (self Item) IsAvailable() bool {
	return self.QuantityAvailable > 0
}

type ItemRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type Price struct {
	ID               uuid.UUID       `json:"id"`
	ItemID           uuid.UUID       `json:"item_id"`
	DiscountPolicyID *uuid.UUID      `json:"discount_policy_id"`
	Name             string          `json:"name"`
	Title            string          `json:"title"`
	StartAt          time.Time       `json:"start_at"`
	EndAt            time.Time       `json:"end_at"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

func (self Price) IsCurrent(at time.Time) bool {
	return !at.Before(self.StartAt) && at.Before(self.EndAt)
}
