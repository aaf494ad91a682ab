package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pukatu/pukatu-backend/internal/models"
)

// NarrativeFunc produces a short celebratory text for a finished draw. It is
// an optional external collaborator; any failure falls back to a templated
// string and never blocks the draw.
type NarrativeFunc func(ctx context.Context, title, prize string, winning int) (string, error)

// Service implements the raffle lifecycle and the purchase reservation
// protocol on top of a Store.
type Service struct {
	store   Store
	narrate NarrativeFunc
	rng     *rand.Rand
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithNarrator sets the draw narrative collaborator.
func (s *Service) WithNarrator(fn NarrativeFunc) {
	s.narrate = fn
}

// RaffleDraft carries admin-supplied fields for a new raffle.
type RaffleDraft struct {
	Title          string
	Description    string
	Prize          string
	TotalNumbers   int
	PricePerNumber float64
	ContactPhone   string
	DrawDate       time.Time
	ImagePath      string
	ReserveHours   int
}

// PurchaseRequest is a buyer's submission. It carries no total: the amount
// is always computed from the raffle's price.
type PurchaseRequest struct {
	RaffleID  uuid.UUID
	BuyerName string
	Email     string
	Numbers   []int
}

func (s *Service) ActiveRaffles(ctx context.Context) ([]models.Raffle, error) {
	return s.store.ListRaffles(ctx, RaffleFilter{Status: models.RaffleActive})
}

func (s *Service) GetRaffle(ctx context.Context, id uuid.UUID) (models.Raffle, error) {
	return s.store.GetRaffle(ctx, id)
}

func (s *Service) GetPurchase(ctx context.Context, id uuid.UUID) (models.Purchase, error) {
	return s.store.GetPurchase(ctx, id)
}

// RafflesFor lists raffles scoped by role: everything for a superadmin,
// owned raffles for an admin, participated-in raffles for a public user.
func (s *Service) RafflesFor(ctx context.Context, user models.User) ([]models.Raffle, error) {
	switch user.Role {
	case models.RoleSuperAdmin:
		return s.store.ListRaffles(ctx, RaffleFilter{})
	case models.RoleAdmin:
		return s.store.ListRaffles(ctx, RaffleFilter{OwnerID: user.ID})
	default:
		return s.store.ListRaffles(ctx, RaffleFilter{Participant: user.Email})
	}
}

func (s *Service) CreateRaffle(ctx context.Context, actor models.User, draft RaffleDraft) (models.Raffle, error) {
	if draft.TotalNumbers < 1 {
		return models.Raffle{}, fmt.Errorf("%w: total numbers must be at least 1", ErrNumberOutOfRange)
	}
	if draft.PricePerNumber <= 0 {
		return models.Raffle{}, errors.New("price per number must be positive")
	}
	if draft.ReserveHours < 0 {
		draft.ReserveHours = 0
	}

	raffle := models.Raffle{
		Title:          draft.Title,
		Description:    draft.Description,
		Prize:          draft.Prize,
		TotalNumbers:   draft.TotalNumbers,
		PricePerNumber: draft.PricePerNumber,
		SoldNumbers:    models.NumberList{},
		Status:         models.RaffleActive,
		DrawDate:       draft.DrawDate,
		ContactPhone:   draft.ContactPhone,
		ImagePath:      draft.ImagePath,
		ReserveHours:   draft.ReserveHours,
		UserID:         actor.ID,
	}
	if err := s.store.CreateRaffle(ctx, &raffle); err != nil {
		return models.Raffle{}, err
	}
	return raffle, nil
}

// ToggleStatus flips a raffle between active and paused. Any other state is
// not togglable.
func (s *Service) ToggleStatus(ctx context.Context, actor models.User, raffleID uuid.UUID) (models.Raffle, error) {
	raffle, err := s.store.GetRaffle(ctx, raffleID)
	if err != nil {
		return models.Raffle{}, err
	}
	if !canManage(actor, raffle) {
		return models.Raffle{}, ErrNotAuthorized
	}

	var next models.RaffleStatus
	switch raffle.Status {
	case models.RaffleActive:
		next = models.RafflePaused
	case models.RafflePaused:
		next = models.RaffleActive
	case models.RaffleCompleted:
		return models.Raffle{}, ErrRaffleCompleted
	default:
		return models.Raffle{}, fmt.Errorf("cannot toggle a raffle in status %q", raffle.Status)
	}

	if err := s.store.UpdateRaffleStatus(ctx, raffleID, next); err != nil {
		return models.Raffle{}, err
	}
	raffle.Status = next
	return raffle, nil
}

func (s *Service) DeleteRaffle(ctx context.Context, actor models.User, raffleID uuid.UUID) error {
	raffle, err := s.store.GetRaffle(ctx, raffleID)
	if err != nil {
		return err
	}
	if !canManage(actor, raffle) {
		return ErrNotAuthorized
	}
	return s.store.DeleteRaffle(ctx, raffleID)
}

// SubmitPurchase runs the reservation protocol: validate the selection
// against the latest sold set, recompute the total server-side, and ask the
// store to atomically reserve the numbers and persist a pending purchase.
// On any failure nothing is written and the buyer's selection survives to
// retry.
func (s *Service) SubmitPurchase(ctx context.Context, req PurchaseRequest) (models.Purchase, error) {
	raffle, err := s.store.GetRaffle(ctx, req.RaffleID)
	if err != nil {
		return models.Purchase{}, err
	}
	if raffle.Status != models.RaffleActive {
		return models.Purchase{}, ErrRaffleNotActive
	}

	if len(req.Numbers) == 0 {
		return models.Purchase{}, ErrEmptySelection
	}
	seen := make(map[int]bool, len(req.Numbers))
	for _, n := range req.Numbers {
		if n < 1 || n > raffle.TotalNumbers {
			return models.Purchase{}, fmt.Errorf("%w: %d not in [1, %d]", ErrNumberOutOfRange, n, raffle.TotalNumbers)
		}
		if seen[n] {
			return models.Purchase{}, fmt.Errorf("%w: %d", ErrDuplicateNumber, n)
		}
		seen[n] = true
	}

	// Best-effort pre-check against the latest read. The authoritative
	// check happens again inside Reserve, under the store's serialization.
	conflicts := models.NumberList{}
	for _, n := range req.Numbers {
		if raffle.SoldNumbers.Contains(n) {
			conflicts = append(conflicts, n)
		}
	}
	if len(conflicts) > 0 {
		return models.Purchase{}, &ConflictError{Numbers: conflicts}
	}

	purchase := models.Purchase{
		BuyerName:       req.BuyerName,
		Email:           req.Email,
		SelectedNumbers: append(models.NumberList{}, req.Numbers...),
		TotalAmount:     float64(len(req.Numbers)) * raffle.PricePerNumber,
		Status:          models.PurchasePending,
		RaffleID:        raffle.ID,
	}
	if err := s.store.Reserve(ctx, &purchase); err != nil {
		return models.Purchase{}, err
	}
	return purchase, nil
}

// ConfirmPurchase marks a pending purchase as paid. Confirming an already
// confirmed purchase is a no-op; the sold set is never touched twice.
func (s *Service) ConfirmPurchase(ctx context.Context, actor models.User, purchaseID uuid.UUID) (models.Purchase, error) {
	return s.settle(ctx, actor, purchaseID, models.PurchaseConfirmed)
}

// RejectPurchase releases exactly the purchase's numbers back to the pool.
// Rejecting an already rejected purchase is a no-op.
func (s *Service) RejectPurchase(ctx context.Context, actor models.User, purchaseID uuid.UUID) (models.Purchase, error) {
	return s.settle(ctx, actor, purchaseID, models.PurchaseRejected)
}

func (s *Service) settle(ctx context.Context, actor models.User, purchaseID uuid.UUID, status models.PurchaseStatus) (models.Purchase, error) {
	purchase, err := s.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return models.Purchase{}, err
	}
	raffle, err := s.store.GetRaffle(ctx, purchase.RaffleID)
	if err != nil {
		return models.Purchase{}, err
	}
	if !canManage(actor, raffle) {
		return models.Purchase{}, ErrNotAuthorized
	}

	if purchase.Status.Settled() {
		if purchase.Status == status {
			return purchase, nil
		}
		return models.Purchase{}, ErrAlreadySettled
	}

	settled, err := s.store.Settle(ctx, purchaseID, status)
	if errors.Is(err, ErrAlreadySettled) {
		// Lost a race with another admin; repeating the same decision is
		// still fine.
		if current, getErr := s.store.GetPurchase(ctx, purchaseID); getErr == nil && current.Status == status {
			return current, nil
		}
		return models.Purchase{}, err
	}
	return settled, err
}

// RunDraw selects one sold number uniformly at random and completes the
// raffle. It is single-shot: a completed raffle cannot be redrawn.
func (s *Service) RunDraw(ctx context.Context, actor models.User, raffleID uuid.UUID) (models.Raffle, error) {
	raffle, err := s.store.GetRaffle(ctx, raffleID)
	if err != nil {
		return models.Raffle{}, err
	}
	if !canManage(actor, raffle) {
		return models.Raffle{}, ErrNotAuthorized
	}
	if raffle.Completed() {
		return models.Raffle{}, ErrAlreadyDrawn
	}
	if len(raffle.SoldNumbers) == 0 {
		return models.Raffle{}, ErrNoTicketsSold
	}

	winning := raffle.SoldNumbers[s.rng.Intn(len(raffle.SoldNumbers))]
	narrative := s.drawNarrative(ctx, raffle, winning)

	return s.store.FinalizeDraw(ctx, raffleID, winning, narrative)
}

func (s *Service) drawNarrative(ctx context.Context, raffle models.Raffle, winning int) string {
	if s.narrate != nil {
		if text, err := s.narrate(ctx, raffle.Title, raffle.Prize, winning); err == nil && text != "" {
			return text
		}
	}
	return fmt.Sprintf("Luck has spoken! Number #%d wins %s in %q. Congratulations to the holder of the lucky ticket!",
		winning, raffle.Prize, raffle.Title)
}

// PendingPurchases lists pending purchases for the raffles the actor may
// manage: all of them for a superadmin, owned ones for an admin.
func (s *Service) PendingPurchases(ctx context.Context, actor models.User) ([]models.Purchase, error) {
	filter := PurchaseFilter{Status: models.PurchasePending}
	if actor.Role != models.RoleSuperAdmin {
		filter.OwnerID = actor.ID
	}
	return s.store.ListPurchases(ctx, filter)
}

// PurchasesByEmail lists a buyer's own purchases.
func (s *Service) PurchasesByEmail(ctx context.Context, email string) ([]models.Purchase, error) {
	return s.store.ListPurchases(ctx, PurchaseFilter{Email: email})
}

// ExpirePending rejects pending purchases that outlived their raffle's
// reserve window, releasing their numbers. Returns how many were released.
func (s *Service) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.store.ListPurchases(ctx, PurchaseFilter{Status: models.PurchasePending})
	if err != nil {
		return 0, err
	}

	raffles := make(map[uuid.UUID]models.Raffle)
	released := 0
	for _, p := range pending {
		raffle, ok := raffles[p.RaffleID]
		if !ok {
			raffle, err = s.store.GetRaffle(ctx, p.RaffleID)
			if err != nil {
				continue
			}
			raffles[p.RaffleID] = raffle
		}
		// Completed raffles are settled history; the winner may still hold a
		// pending purchase and must not be swept.
		if raffle.Completed() {
			continue
		}
		if raffle.ReserveHours <= 0 {
			continue
		}
		if now.Sub(p.CreatedAt) <= time.Duration(raffle.ReserveHours)*time.Hour {
			continue
		}
		if _, err := s.store.Settle(ctx, p.ID, models.PurchaseRejected); err == nil {
			released++
		}
	}
	return released, nil
}

func canManage(actor models.User, raffle models.Raffle) bool {
	if actor.Role == models.RoleSuperAdmin {
		return true
	}
	return actor.Role == models.RoleAdmin && raffle.UserID == actor.ID
}
