package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RaffleStatus string

const (
	RaffleActive    RaffleStatus = "active"
	RafflePaused    RaffleStatus = "paused"
	RaffleCompleted RaffleStatus = "completed"
	RaffleUpcoming  RaffleStatus = "upcoming"
)

type Raffle struct {
	gorm.Model
	ID             uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	Title          string       `gorm:"not null" json:"title"`
	Description    string       `gorm:"not null" json:"description"`
	Prize          string       `gorm:"not null" json:"prize"`
	TotalNumbers   int          `gorm:"not null" json:"total_numbers"`
	PricePerNumber float64      `gorm:"not null" json:"price_per_number"`
	SoldNumbers    NumberList   `gorm:"type:jsonb;not null;default:'[]'" json:"sold_numbers"`
	Status         RaffleStatus `gorm:"not null;default:'active'" json:"status"`
	DrawDate       time.Time    `gorm:"not null" json:"draw_date"`
	ContactPhone   string       `gorm:"not null" json:"contact_phone"`
	ImagePath      string       `json:"image_path"`
	// ReserveHours bounds how long a pending purchase may hold its numbers
	// before the sweeper releases them. Zero disables expiry.
	ReserveHours  int       `gorm:"not null;default:24" json:"reserve_hours"`
	WinningNumber *int      `json:"winning_number,omitempty"`
	DrawNarrative *string   `json:"draw_narrative,omitempty"`
	User          User      `json:"-"`
	UserID        uuid.UUID `json:"created_by"`
}

func (raffle *Raffle) BeforeCreate(tx *gorm.DB) (err error) {
	if raffle.ID == uuid.Nil {
		raffle.ID = uuid.New()
	}
	return
}

// Completed raffles never change state again.
func (raffle *Raffle) Completed() bool {
	return raffle.Status == RaffleCompleted
}
