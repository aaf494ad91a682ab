package lottery

import (
	"errors"
	"fmt"

	"github.com/pukatu/pukatu-backend/internal/models"
)

var (
	ErrRaffleNotFound   = errors.New("raffle not found")
	ErrRaffleNotActive  = errors.New("raffle is not accepting purchases")
	ErrRaffleCompleted  = errors.New("raffle already completed")
	ErrEmptySelection   = errors.New("no numbers selected")
	ErrNumberOutOfRange = errors.New("number outside raffle range")
	ErrDuplicateNumber  = errors.New("duplicate number in selection")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrAlreadySettled   = errors.New("purchase already settled")
	ErrNoTicketsSold    = errors.New("cannot draw a raffle with no sold tickets")
	ErrAlreadyDrawn     = errors.New("raffle winner already drawn")
	ErrNotAuthorized    = errors.New("not allowed to manage this raffle")
)

// ConflictError reports a reservation that lost the race for one or more
// numbers. The buyer re-picks from the current grid.
type ConflictError struct {
	Numbers models.NumberList
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("numbers already sold: %v", []int(e.Numbers))
}
