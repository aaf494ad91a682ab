package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseConfirmed PurchaseStatus = "confirmed"
	PurchaseRejected  PurchaseStatus = "rejected"
)

// Settled reports whether the purchase reached a terminal state.
func (s PurchaseStatus) Settled() bool {
	return s == PurchaseConfirmed || s == PurchaseRejected
}

type Purchase struct {
	gorm.Model
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	BuyerName       string         `gorm:"not null" json:"buyer_name"`
	Email           string         `gorm:"not null" json:"email"`
	SelectedNumbers NumberList     `gorm:"type:jsonb;not null" json:"selected_numbers"`
	TotalAmount     float64        `gorm:"not null" json:"total_amount"`
	Status          PurchaseStatus `gorm:"not null;default:'pending'" json:"status"`
	RaffleID        uuid.UUID      `json:"raffle_id"`
	Raffle          Raffle         `json:"-"`
}

func (purchase *Purchase) BeforeCreate(tx *gorm.DB) (err error) {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	return
}
