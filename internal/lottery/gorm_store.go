package lottery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pukatu/pukatu-backend/internal/models"
)

// GormStore persists raffles and purchases in Postgres. Reserve, Settle and
// FinalizeDraw serialize on the raffle row with SELECT ... FOR UPDATE, which
// is the compare-and-set the sold-number set needs under concurrent buyers.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateRaffle(ctx context.Context, raffle *models.Raffle) error {
	return s.db.WithContext(ctx).Create(raffle).Error
}

func (s *GormStore) GetRaffle(ctx context.Context, id uuid.UUID) (models.Raffle, error) {
	var raffle models.Raffle
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&raffle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Raffle{}, ErrRaffleNotFound
	}
	return raffle, err
}

func (s *GormStore) ListRaffles(ctx context.Context, filter RaffleFilter) ([]models.Raffle, error) {
	query := s.db.WithContext(ctx).Model(&models.Raffle{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != uuid.Nil {
		query = query.Where("user_id = ?", filter.OwnerID)
	}
	if filter.Participant != "" {
		sub := s.db.Model(&models.Purchase{}).
			Select("raffle_id").
			Where("email = ? AND status <> ?", filter.Participant, models.PurchaseRejected)
		query = query.Where("id IN (?)", sub)
	}

	var raffles []models.Raffle
	err := query.Order("created_at DESC").Find(&raffles).Error
	return raffles, err
}

func (s *GormStore) UpdateRaffleStatus(ctx context.Context, id uuid.UUID, status models.RaffleStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Raffle{}).
		Where("id = ? AND status <> ?", id, models.RaffleCompleted).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetRaffle(ctx, id); err != nil {
			return err
		}
		return ErrRaffleCompleted
	}
	return nil
}

func (s *GormStore) DeleteRaffle(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Raffle{}).Error
}

func (s *GormStore) Reserve(ctx context.Context, purchase *models.Purchase) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle models.Raffle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", purchase.RaffleID).First(&raffle).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRaffleNotFound
		}
		if err != nil {
			return err
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

		sold := append(raffle.SoldNumbers, purchase.SelectedNumbers...)
		if err := tx.Model(&models.Raffle{}).Where("id = ?", raffle.ID).
			Update("sold_numbers", sold).Error; err != nil {
			return err
		}
		return tx.Create(purchase).Error
	})
}

func (s *GormStore) GetPurchase(ctx context.Context, id uuid.UUID) (models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Purchase{}, ErrPurchaseNotFound
	}
	return purchase, err
}

func (s *GormStore) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error) {
	query := s.db.WithContext(ctx).Model(&models.Purchase{})
	if filter.RaffleID != uuid.Nil {
		query = query.Where("purchases.raffle_id = ?", filter.RaffleID)
	}
	if filter.Status != "" {
		query = query.Where("purchases.status = ?", filter.Status)
	}
	if filter.Email != "" {
		query = query.Where("purchases.email = ?", filter.Email)
	}
	if filter.OwnerID != uuid.Nil {
		query = query.Joins("JOIN raffles ON raffles.id = purchases.raffle_id").
			Where("raffles.user_id = ?", filter.OwnerID)
	}

	var purchases []models.Purchase
	err := query.Order("purchases.created_at ASC").Find(&purchases).Error
	return purchases, err
}

func (s *GormStore) Settle(ctx context.Context, id uuid.UUID, status models.PurchaseStatus) (models.Purchase, error) {
	var settled models.Purchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		err := tx.Where("id = ?", id).First(&purchase).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPurchaseNotFound
		}
		if err != nil {
			return err
		}

		// Raffle first, then purchase: same lock order as Reserve.
		var raffle models.Raffle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", purchase.RaffleID).First(&raffle).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&purchase).Error; err != nil {
			return err
		}
		if purchase.Status != models.PurchasePending {
			return ErrAlreadySettled
		}
		if status == models.PurchaseRejected && raffle.Completed() {
			return ErrRaffleCompleted
		}

		if err := tx.Model(&purchase).Update("status", status).Error; err != nil {
			return err
		}
		if status == models.PurchaseRejected {
			released := raffle.SoldNumbers.Diff(purchase.SelectedNumbers)
			if err := tx.Model(&models.Raffle{}).Where("id = ?", raffle.ID).
				Update("sold_numbers", released).Error; err != nil {
				return err
			}
		}
		purchase.Status = status
		settled = purchase
		return nil
	})
	return settled, err
}

func (s *GormStore) FinalizeDraw(ctx context.Context, raffleID uuid.UUID, winning int, narrative string) (models.Raffle, error) {
	var completed models.Raffle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle models.Raffle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", raffleID).First(&raffle).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRaffleNotFound
		}
		if err != nil {
			return err
		}
		if raffle.Completed() {
			return ErrAlreadyDrawn
		}
		if !raffle.SoldNumbers.Contains(winning) {
			return ErrNoTicketsSold
		}

		updates := map[string]interface{}{
			"status":         models.RaffleCompleted,
			"winning_number": winning,
			"draw_narrative": narrative,
		}
		if err := tx.Model(&models.Raffle{}).Where("id = ?", raffle.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		raffle.Status = models.RaffleCompleted
		raffle.WinningNumber = &winning
		raffle.DrawNarrative = &narrative
		completed = raffle
		return nil
	})
	return completed, err
}
