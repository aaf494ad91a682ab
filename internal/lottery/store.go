package lottery

import (
	"context"

	"github.com/google/uuid"

	"github.com/pukatu/pukatu-backend/internal/models"
)

// RaffleFilter narrows raffle listings. Zero values mean "any".
type RaffleFilter struct {
	Status      models.RaffleStatus
	OwnerID     uuid.UUID
	Participant string // buyer email; matches raffles the buyer purchased in
}

// PurchaseFilter narrows purchase listings. Zero values mean "any".
type PurchaseFilter struct {
	RaffleID uuid.UUID
	OwnerID  uuid.UUID // raffle owner scope
	Status   models.PurchaseStatus
	Email    string
}

// Store is the persistence boundary for raffles and purchases. The mutating
// operations that touch a raffle's sold-number set (Reserve, Settle,
// FinalizeDraw) must be atomic and serialized per raffle: Reserve re-checks
// availability under that serialization, which is what prevents two buyers
// from holding the same number.
type Store interface {
	CreateRaffle(ctx context.Context, raffle *models.Raffle) error
	GetRaffle(ctx context.Context, id uuid.UUID) (models.Raffle, error)
	ListRaffles(ctx context.Context, filter RaffleFilter) ([]models.Raffle, error)
	// UpdateRaffleStatus moves a non-completed raffle to status. A completed
	// raffle is terminal; ErrRaffleCompleted is returned instead.
	UpdateRaffleStatus(ctx context.Context, id uuid.UUID, status models.RaffleStatus) error
	DeleteRaffle(ctx context.Context, id uuid.UUID) error

	// Reserve atomically re-checks that the purchase's numbers are still
	// unsold, appends them to the raffle's sold set, and persists the
	// purchase as pending. On a lost race it returns *ConflictError naming
	// the clashing numbers and writes nothing.
	Reserve(ctx context.Context, purchase *models.Purchase) error
	GetPurchase(ctx context.Context, id uuid.UUID) (models.Purchase, error)
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error)
	// Settle moves a pending purchase to confirmed or rejected. Rejection
	// releases exactly the purchase's numbers back to the pool. A purchase
	// that is no longer pending yields ErrAlreadySettled and no writes;
	// rejection on a completed raffle yields ErrRaffleCompleted, since its
	// sold set is frozen once the winner is drawn.
	Settle(ctx context.Context, id uuid.UUID, status models.PurchaseStatus) (models.Purchase, error)

	// FinalizeDraw completes a raffle exactly once: guards that it is not
	// already completed and that winning is a sold number, then records the
	// winner and narrative.
	FinalizeDraw(ctx context.Context, raffleID uuid.UUID, winning int, narrative string) (models.Raffle, error)
}
