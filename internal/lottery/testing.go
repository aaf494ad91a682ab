package lottery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pukatu/pukatu-backend/internal/models"
)

// MemoryStore is an in-memory Store for tests. A single mutex serializes
// every mutating operation, giving the per-raffle serialization the Store
// contract requires.
type MemoryStore struct {
	mu        sync.Mutex
	raffles   map[uuid.UUID]models.Raffle
	purchases map[uuid.UUID]models.Purchase
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		raffles:   make(map[uuid.UUID]models.Raffle),
		purchases: make(map[uuid.UUID]models.Purchase),
	}
}

func (s *MemoryStore) CreateRaffle(ctx context.Context, raffle *models.Raffle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raffle.ID == uuid.Nil {
		raffle.ID = uuid.New()
	}
	if raffle.CreatedAt.IsZero() {
		raffle.CreatedAt = time.Now()
	}
	s.raffles[raffle.ID] = copyRaffle(*raffle)
	return nil
}

func (s *MemoryStore) GetRaffle(ctx context.Context, id uuid.UUID) (models.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raffle, ok := s.raffles[id]
	if !ok {
		return models.Raffle{}, ErrRaffleNotFound
	}
	return copyRaffle(raffle), nil
}

func (s *MemoryStore) ListRaffles(ctx context.Context, filter RaffleFilter) ([]models.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participated := make(map[uuid.UUID]bool)
	if filter.Participant != "" {
		for _, p := range s.purchases {
			if p.Email == filter.Participant && p.Status != models.PurchaseRejected {
				participated[p.RaffleID] = true
			}
		}
	}

	var out []models.Raffle
	for _, raffle := range s.raffles {
		if filter.Status != "" && raffle.Status != filter.Status {
			continue
		}
		if filter.OwnerID != uuid.Nil && raffle.UserID != filter.OwnerID {
			continue
		}
		if filter.Participant != "" && !participated[raffle.ID] {
			continue
		}
		out = append(out, copyRaffle(raffle))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateRaffleStatus(ctx context.Context, id uuid.UUID, status models.RaffleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raffle, ok := s.raffles[id]
	if !ok {
		return ErrRaffleNotFound
	}
	if raffle.Completed() {
		return ErrRaffleCompleted
	}
	raffle.Status = status
	s.raffles[id] = raffle
	return nil
}

func (s *MemoryStore) DeleteRaffle(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.raffles, id)
	return nil
}

func (s *MemoryStore) Reserve(ctx context.Context, purchase *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raffle, ok := s.raffles[purchase.RaffleID]
	if !ok {
		return ErrRaffleNotFound
	}
	if raffle.Status != models.RaffleActive {
		return ErrRaffleNotActive
	}

	conflicts := models.NumberList{}
	for _, n := range purchase.SelectedNumbers {
		if raffle.SoldNumbers.Contains(n) {
			conflicts = append(conflicts, n)
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Numbers: conflicts}
	}

	raffle.SoldNumbers = append(raffle.SoldNumbers, purchase.SelectedNumbers...)
	s.raffles[raffle.ID] = raffle

	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}
	s.purchases[purchase.ID] = copyPurchase(*purchase)
	return nil
}

func (s *MemoryStore) GetPurchase(ctx context.Context, id uuid.UUID) (models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purchase, ok := s.purchases[id]
	if !ok {
		return models.Purchase{}, ErrPurchaseNotFound
	}
	return copyPurchase(purchase), nil
}

func (s *MemoryStore) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Purchase
	for _, purchase := range s.purchases {
		if filter.RaffleID != uuid.Nil && purchase.RaffleID != filter.RaffleID {
			continue
		}
		if filter.Status != "" && purchase.Status != filter.Status {
			continue
		}
		if filter.Email != "" && purchase.Email != filter.Email {
			continue
		}
		if filter.OwnerID != uuid.Nil {
			raffle, ok := s.raffles[purchase.RaffleID]
			if !ok || raffle.UserID != filter.OwnerID {
				continue
			}
		}
		out = append(out, copyPurchase(purchase))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Settle(ctx context.Context, id uuid.UUID, status models.PurchaseStatus) (models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return models.Purchase{}, ErrPurchaseNotFound
	}
	if purchase.Status != models.PurchasePending {
		return models.Purchase{}, ErrAlreadySettled
	}
	if status == models.PurchaseRejected {
		// A completed raffle's sold set is frozen; releasing numbers from it
		// could drop the winning number.
		if raffle, ok := s.raffles[purchase.RaffleID]; ok && raffle.Completed() {
			return models.Purchase{}, ErrRaffleCompleted
		}
	}

	purchase.Status = status
	s.purchases[id] = purchase

	if status == models.PurchaseRejected {
		raffle, ok := s.raffles[purchase.RaffleID]
		if ok {
			raffle.SoldNumbers = raffle.SoldNumbers.Diff(purchase.SelectedNumbers)
			s.raffles[raffle.ID] = raffle
		}
	}
	return copyPurchase(purchase), nil
}

func (s *MemoryStore) FinalizeDraw(ctx context.Context, raffleID uuid.UUID, winning int, narrative string) (models.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raffle, ok := s.raffles[raffleID]
	if !ok {
		return models.Raffle{}, ErrRaffleNotFound
	}
	if raffle.Completed() {
		return models.Raffle{}, ErrAlreadyDrawn
	}
	if !raffle.SoldNumbers.Contains(winning) {
		return models.Raffle{}, ErrNoTicketsSold
	}

	raffle.Status = models.RaffleCompleted
	raffle.WinningNumber = &winning
	raffle.DrawNarrative = &narrative
	s.raffles[raffleID] = raffle
	return copyRaffle(raffle), nil
}

func copyRaffle(r models.Raffle) models.Raffle {
	r.SoldNumbers = append(models.NumberList{}, r.SoldNumbers...)
	if r.WinningNumber != nil {
		w := *r.WinningNumber
		r.WinningNumber = &w
	}
	if r.DrawNarrative != nil {
		n := *r.DrawNarrative
		r.DrawNarrative = &n
	}
	return r
}

func copyPurchase(p models.Purchase) models.Purchase {
	p.SelectedNumbers = append(models.NumberList{}, p.SelectedNumbers...)
	return p
}
