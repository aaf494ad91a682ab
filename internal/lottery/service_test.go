package lottery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pukatu/pukatu-backend/internal/models"
)

var (
	superAdmin = models.User{ID: uuid.New(), Name: "Root", Email: "root@example.com", Role: models.RoleSuperAdmin, Status: models.UserActive}
	adminA     = models.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", Role: models.RoleAdmin, Status: models.UserActive}
	adminB     = models.User{ID: uuid.New(), Name: "Bruno", Email: "bruno@example.com", Role: models.RoleAdmin, Status: models.UserActive}
	buyer      = models.User{ID: uuid.New(), Name: "Juan", Email: "juan@example.com", Role: models.RolePublic, Status: models.UserActive}
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store), store
}

func createTestRaffle(t *testing.T, svc *Service, owner models.User, totalNumbers int, price float64) models.Raffle {
	t.Helper()
	raffle, err := svc.CreateRaffle(context.Background(), owner, RaffleDraft{
		Title:          "Gran Sorteo de Fin de Semana",
		Description:    "Win a luxury sedan or its cash equivalent",
		Prize:          "$50,000",
		TotalNumbers:   totalNumbers,
		PricePerNumber: price,
		ContactPhone:   "584121234567",
		DrawDate:       time.Now().Add(7 * 24 * time.Hour),
		ReserveHours:   24,
	})
	require.NoError(t, err)
	return raffle
}

func submit(t *testing.T, svc *Service, raffleID uuid.UUID, email string, numbers ...int) models.Purchase {
	t.Helper()
	purchase, err := svc.SubmitPurchase(context.Background(), PurchaseRequest{
		RaffleID:  raffleID,
		BuyerName: "Buyer",
		Email:     email,
		Numbers:   numbers,
	})
	require.NoError(t, err)
	return purchase
}

// soldOwners maps each sold number to the purchases holding it. Used to
// assert the no-double-sale property: the union of selected numbers across
// non-rejected purchases equals the raffle's sold set, with no overlaps.
func assertSoldConsistent(t *testing.T, svc *Service, store *MemoryStore, raffleID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	raffle, err := svc.GetRaffle(ctx, raffleID)
	require.NoError(t, err)

	purchases, err := store.ListPurchases(ctx, PurchaseFilter{RaffleID: raffleID})
	require.NoError(t, err)

	owners := make(map[int]int)
	for _, p := range purchases {
		if p.Status == models.PurchaseRejected {
			continue
		}
		for _, n := range p.SelectedNumbers {
			owners[n]++
		}
	}

	assert.Len(t, owners, len(raffle.SoldNumbers), "sold set and purchase union differ in size")
	for _, n := range raffle.SoldNumbers {
		assert.Equal(t, 1, owners[n], "number %d owned by %d purchases", n, owners[n])
	}
}

func TestSubmitPurchaseReservesNumbers(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 100, 10)

	purchase := submit(t, svc, raffle.ID, buyer.Email, 14, 3, 27)

	assert.Equal(t, models.PurchasePending, purchase.Status)
	assert.Equal(t, models.NumberList{14, 3, 27}, purchase.SelectedNumbers)
	// Server-owned total: count times price, no client input involved.
	assert.Equal(t, 30.0, purchase.TotalAmount)

	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 14, 27}, []int(updated.SoldNumbers))

	assertSoldConsistent(t, svc, store, raffle.ID)
}

func TestSubmitPurchaseValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)

	_, err := svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: raffle.ID, BuyerName: "B", Email: "b@x.com"})
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: raffle.ID, BuyerName: "B", Email: "b@x.com", Numbers: []int{11}})
	assert.ErrorIs(t, err, ErrNumberOutOfRange)

	_, err = svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: raffle.ID, BuyerName: "B", Email: "b@x.com", Numbers: []int{0}})
	assert.ErrorIs(t, err, ErrNumberOutOfRange)

	_, err = svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: raffle.ID, BuyerName: "B", Email: "b@x.com", Numbers: []int{3, 3}})
	assert.ErrorIs(t, err, ErrDuplicateNumber)

	_, err = svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: uuid.New(), BuyerName: "B", Email: "b@x.com", Numbers: []int{1}})
	assert.ErrorIs(t, err, ErrRaffleNotFound)
}

func TestSubmitPurchaseRejectedWhenPaused(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)

	_, err := svc.ToggleStatus(ctx, adminA, raffle.ID)
	require.NoError(t, err)

	_, err = svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: raffle.ID, BuyerName: "B", Email: "b@x.com", Numbers: []int{1}})
	assert.ErrorIs(t, err, ErrRaffleNotActive)
}

func TestSubmitPurchaseConflict(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)

	submit(t, svc, raffle.ID, "a@x.com", 3, 4)

	_, err := svc.SubmitPurchase(ctx, PurchaseRequest{RaffleID: raffle.ID, BuyerName: "B", Email: "b@x.com", Numbers: []int{4, 5}})
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.NumberList{4}, conflict.Numbers)

	// Nothing was written for the losing submission.
	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 4}, []int(updated.SoldNumbers))

	// The buyer re-picks and succeeds with the free number.
	submit(t, svc, raffle.ID, "b@x.com", 5)
	assertSoldConsistent(t, svc, store, raffle.ID)
}

func TestConcurrentOverlappingSubmissions(t *testing.T) {
	svc, store := newTestService(t)
	raffle := createTestRaffle(t, svc, adminA, 10, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	selections := [][]int{{3, 4}, {4, 5}}
	for i := range selections {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitPurchase(context.Background(), PurchaseRequest{
				RaffleID:  raffle.ID,
				BuyerName: fmt.Sprintf("Buyer %d", i),
				Email:     fmt.Sprintf("buyer%d@x.com", i),
				Numbers:   selections[i],
			})
		}(i)
	}
	wg.Wait()

	// At most one submission may hold number 4.
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			var conflict *ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Contains(t, []int(conflict.Numbers), 4)
		}
	}
	assert.Equal(t, 1, winners)
	assertSoldConsistent(t, svc, store, raffle.ID)
}

func TestConfirmIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	purchase := submit(t, svc, raffle.ID, buyer.Email, 3, 4)

	first, err := svc.ConfirmPurchase(ctx, adminA, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseConfirmed, first.Status)

	soldAfterFirst, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)

	// Re-confirming changes nothing and is not an error.
	second, err := svc.ConfirmPurchase(ctx, adminA, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseConfirmed, second.Status)

	soldAfterSecond, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, soldAfterFirst.SoldNumbers, soldAfterSecond.SoldNumbers)

	// A settled purchase cannot flip to the other terminal state.
	_, err = svc.RejectPurchase(ctx, adminA, purchase.ID)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	assertSoldConsistent(t, svc, store, raffle.ID)
}

func TestRejectReleasesExactlyItsNumbers(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	p1 := submit(t, svc, raffle.ID, "a@x.com", 3, 4)
	p2 := submit(t, svc, raffle.ID, "b@x.com", 5)

	rejected, err := svc.RejectPurchase(ctx, adminA, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseRejected, rejected.Status)

	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NumberList{5}, updated.SoldNumbers)

	// Released numbers classify as available again.
	assert.Equal(t, NumberAvailable, Classify(3, updated.SoldNumbers, nil))
	assert.Equal(t, NumberAvailable, Classify(4, updated.SoldNumbers, nil))
	assert.Equal(t, NumberSold, Classify(5, updated.SoldNumbers, nil))

	// Rejecting again is a no-op; p2 is untouched.
	_, err = svc.RejectPurchase(ctx, adminA, p1.ID)
	require.NoError(t, err)
	current, err := store.GetPurchase(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePending, current.Status)

	assertSoldConsistent(t, svc, store, raffle.ID)
}

func TestRejectThenResell(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	p1 := submit(t, svc, raffle.ID, "a@x.com", 3, 4)

	_, err := svc.RejectPurchase(ctx, adminA, p1.ID)
	require.NoError(t, err)

	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.SoldNumbers)

	// The same numbers sell again under a new purchase.
	p2 := submit(t, svc, raffle.ID, "b@x.com", 3, 4)
	assert.NotEqual(t, p1.ID, p2.ID)

	updated, err = svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 4}, []int(updated.SoldNumbers))

	assertSoldConsistent(t, svc, store, raffle.ID)
}

func TestRunDrawRequiresSoldTickets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)

	_, err := svc.RunDraw(ctx, adminA, raffle.ID)
	assert.ErrorIs(t, err, ErrNoTicketsSold)

	// Status is untouched by the failed draw.
	current, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleActive, current.Status)
}

func TestRunDrawPicksSoldNumberAndIsSingleShot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	submit(t, svc, raffle.ID, "a@x.com", 1, 2, 5, 9)

	completed, err := svc.RunDraw(ctx, adminA, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleCompleted, completed.Status)
	require.NotNil(t, completed.WinningNumber)
	assert.Contains(t, []int{1, 2, 5, 9}, *completed.WinningNumber)
	require.NotNil(t, completed.DrawNarrative)
	assert.NotEmpty(t, *completed.DrawNarrative)

	// Redrawing a completed raffle must fail and the winner stays put.
	winner := *completed.WinningNumber
	_, err = svc.RunDraw(ctx, adminA, raffle.ID)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)

	current, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	require.NotNil(t, current.WinningNumber)
	assert.Equal(t, winner, *current.WinningNumber)
}

func TestRunDrawNarrativeFallback(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.WithNarrator(func(ctx context.Context, title, prize string, winning int) (string, error) {
		return "", errors.New("model unavailable")
	})

	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	submit(t, svc, raffle.ID, "a@x.com", 7)

	completed, err := svc.RunDraw(ctx, adminA, raffle.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.DrawNarrative)
	// Templated fallback still names the winner.
	assert.Contains(t, *completed.DrawNarrative, "#7")
}

func TestRunDrawUsesNarrator(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.WithNarrator(func(ctx context.Context, title, prize string, winning int) (string, error) {
		return fmt.Sprintf("Number %d takes it all!", winning), nil
	})

	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	submit(t, svc, raffle.ID, "a@x.com", 7)

	completed, err := svc.RunDraw(ctx, adminA, raffle.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.DrawNarrative)
	assert.Equal(t, "Number 7 takes it all!", *completed.DrawNarrative)
}

func TestExpirePendingSkipsCompletedRaffles(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	purchase := submit(t, svc, raffle.ID, "a@x.com", 7)

	completed, err := svc.RunDraw(ctx, adminA, raffle.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.WinningNumber)
	assert.Equal(t, 7, *completed.WinningNumber)

	// The sweeper must leave the winner's pending purchase alone.
	released, err := svc.ExpirePending(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, released)

	current, err := store.GetPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePending, current.Status)

	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.True(t, updated.SoldNumbers.Contains(7))
}

func TestRejectRefusedAfterDraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	purchase := submit(t, svc, raffle.ID, "a@x.com", 7)

	_, err := svc.RunDraw(ctx, adminA, raffle.ID)
	require.NoError(t, err)

	// The sold set is frozen once the winner is drawn; rejection would drop
	// the winning number.
	_, err = svc.RejectPurchase(ctx, adminA, purchase.ID)
	assert.ErrorIs(t, err, ErrRaffleCompleted)

	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.True(t, updated.SoldNumbers.Contains(7))
	require.NotNil(t, updated.WinningNumber)
	assert.Equal(t, 7, *updated.WinningNumber)

	// Confirming the winner's payment still works.
	confirmed, err := svc.ConfirmPurchase(ctx, adminA, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseConfirmed, confirmed.Status)
}

func TestToggleStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)

	paused, err := svc.ToggleStatus(ctx, adminA, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RafflePaused, paused.Status)

	active, err := svc.ToggleStatus(ctx, adminA, raffle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleActive, active.Status)

	submit(t, svc, raffle.ID, "a@x.com", 1)
	_, err = svc.RunDraw(ctx, adminA, raffle.ID)
	require.NoError(t, err)

	_, err = svc.ToggleStatus(ctx, adminA, raffle.ID)
	assert.ErrorIs(t, err, ErrRaffleCompleted)
}

func TestAdminScoping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	purchase := submit(t, svc, raffle.ID, buyer.Email, 3)

	// A different admin cannot act on this raffle's purchases or lifecycle.
	_, err := svc.ConfirmPurchase(ctx, adminB, purchase.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = svc.ToggleStatus(ctx, adminB, raffle.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = svc.RunDraw(ctx, adminB, raffle.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	err = svc.DeleteRaffle(ctx, adminB, raffle.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// The superadmin can.
	_, err = svc.ConfirmPurchase(ctx, superAdmin, purchase.ID)
	assert.NoError(t, err)
}

func TestPendingPurchasesScope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffleA := createTestRaffle(t, svc, adminA, 10, 5)
	raffleB := createTestRaffle(t, svc, adminB, 10, 5)
	submit(t, svc, raffleA.ID, "a@x.com", 1)
	submit(t, svc, raffleB.ID, "b@x.com", 2)

	mine, err := svc.PendingPurchases(ctx, adminA)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, raffleA.ID, mine[0].RaffleID)

	all, err := svc.PendingPurchases(ctx, superAdmin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRafflesForRoleScoping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffleA := createTestRaffle(t, svc, adminA, 10, 5)
	createTestRaffle(t, svc, adminB, 10, 5)
	submit(t, svc, raffleA.ID, buyer.Email, 1)

	all, err := svc.RafflesFor(ctx, superAdmin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	owned, err := svc.RafflesFor(ctx, adminA)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, raffleA.ID, owned[0].ID)

	participated, err := svc.RafflesFor(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, participated, 1)
	assert.Equal(t, raffleA.ID, participated[0].ID)
}

func TestExpirePendingReleasesNumbers(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	raffle := createTestRaffle(t, svc, adminA, 10, 5)
	purchase := submit(t, svc, raffle.ID, "a@x.com", 3, 4)

	// Within the reserve window nothing is released.
	released, err := svc.ExpirePending(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, released)

	// Past the 24h window the sweep rejects the purchase and frees the
	// numbers.
	released, err = svc.ExpirePending(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	expired, err := store.GetPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseRejected, expired.Status)

	updated, err := svc.GetRaffle(ctx, raffle.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.SoldNumbers)
}

func TestExpirePendingDisabled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	raffle, err := svc.CreateRaffle(ctx, adminA, RaffleDraft{
		Title:          "No expiry",
		Description:    "d",
		Prize:          "p",
		TotalNumbers:   10,
		PricePerNumber: 5,
		ContactPhone:   "584121234567",
		DrawDate:       time.Now().Add(24 * time.Hour),
		ReserveHours:   0,
	})
	require.NoError(t, err)
	submit(t, svc, raffle.ID, "a@x.com", 1)

	released, err := svc.ExpirePending(ctx, time.Now().Add(1000*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestCreateRaffleValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRaffle(ctx, adminA, RaffleDraft{TotalNumbers: 0, PricePerNumber: 5})
	assert.Error(t, err)

	_, err = svc.CreateRaffle(ctx, adminA, RaffleDraft{TotalNumbers: 10, PricePerNumber: 0})
	assert.Error(t, err)
}
