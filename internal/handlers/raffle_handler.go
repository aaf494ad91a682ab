package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pukatu/pukatu-backend/internal/helpers"
	"github.com/pukatu/pukatu-backend/internal/lottery"
	"github.com/pukatu/pukatu-backend/internal/middleware"
)

func ListActiveRaffles(c *gin.Context) {
	svc := middleware.GetLotteryService(c)
	raffles, err := svc.ActiveRaffles(c.Request.Context())
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list raffles.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffles": raffles})
}

func GetRaffle(c *gin.Context) {
	raffleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid raffle ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	raffle, err := svc.GetRaffle(c.Request.Context(), raffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// GetRaffleGrid classifies every number of the raffle. An optional
// "selected" query parameter ("3,14,27") is overlaid as the buyer's local
// selection; numbers that have since been sold come back as sold, never
// selected.
func GetRaffleGrid(c *gin.Context) {
	raffleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid raffle ID.")
		return
	}

	selectedNumbers, err := helpers.ParseNumberList(c.Query("selected"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid selected numbers.")
		return
	}

	svc := middleware.GetLotteryService(c)
	raffle, err := svc.GetRaffle(c.Request.Context(), raffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	// Numbers outside the raffle's range are discarded, not echoed back.
	inRange := make([]int, 0, len(selectedNumbers))
	for _, n := range selectedNumbers {
		if n >= 1 && n <= raffle.TotalNumbers {
			inRange = append(inRange, n)
		}
	}
	selection := lottery.NewSelection(inRange...)
	dropped := selection.DropSold(raffle.SoldNumbers)

	c.JSON(http.StatusOK, gin.H{
		"total_numbers": raffle.TotalNumbers,
		"grid":          lottery.Grid(raffle.TotalNumbers, raffle.SoldNumbers, selection),
		"selected":      selection.Numbers(),
		"dropped":       dropped,
	})
}

// ListMyRaffles is role-scoped: superadmins see everything, admins their
// own raffles, buyers the raffles they participated in.
func ListMyRaffles(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	svc := middleware.GetLotteryService(c)
	raffles, err := svc.RafflesFor(c.Request.Context(), user)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list raffles.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffles": raffles})
}

func CreateRaffle(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")
	prize := c.PostForm("prize")
	contactPhone := c.PostForm("contact_phone")

	totalNumbers, err := helpers.StringToInt(c.PostForm("total_numbers"))
	if err != nil || totalNumbers < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid total numbers.")
		return
	}
	pricePerNumber, err := helpers.StringToFloat(c.PostForm("price_per_number"))
	if err != nil || pricePerNumber <= 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid price per number.")
		return
	}
	drawDate, err := time.Parse(time.RFC3339, c.PostForm("draw_date"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid draw date format.")
		return
	}
	reserveHours := 24
	if raw := c.PostForm("reserve_hours"); raw != "" {
		reserveHours, err = helpers.StringToInt(raw)
		if err != nil || reserveHours < 0 {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid reserve hours.")
			return
		}
	}

	if title == "" || description == "" || prize == "" || contactPhone == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing required fields.")
		return
	}

	draft := lottery.RaffleDraft{
		Title:          title,
		Description:    description,
		Prize:          prize,
		TotalNumbers:   totalNumbers,
		PricePerNumber: pricePerNumber,
		ContactPhone:   contactPhone,
		DrawDate:       drawDate,
		ReserveHours:   reserveHours,
	}

	imageFile, err := c.FormFile("image")
	if err == nil {
		imagePath, err := helpers.UploadFile(c, imageFile, "raffle_images")
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		draft.ImagePath = imagePath
	}

	svc := middleware.GetLotteryService(c)
	raffle, err := svc.CreateRaffle(c.Request.Context(), user, draft)
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Raffle created successfully.",
		"raffle":  raffle,
	})
}

func ToggleRaffleStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	raffleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid raffle ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	raffle, err := svc.ToggleStatus(c.Request.Context(), user, raffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Raffle status updated.",
		"raffle":  raffle,
	})
}

func DeleteRaffle(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	raffleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid raffle ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	if err := svc.DeleteRaffle(c.Request.Context(), user, raffleID); err != nil {
		respondLotteryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Raffle deleted."})
}

func RunDraw(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	raffleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid raffle ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	raffle, err := svc.RunDraw(c.Request.Context(), user, raffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Draw completed.",
		"winning_number": raffle.WinningNumber,
		"narrative":      raffle.DrawNarrative,
		"raffle":         raffle,
	})
}

// LuckyNumbers asks the AI collaborator for suggestions among the raffle's
// available numbers; degraded collaborators fall back to a random pick.
func LuckyNumbers(c *gin.Context) {
	raffleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid raffle ID.")
		return
	}
	count := 5
	if raw := c.Query("count"); raw != "" {
		count, err = helpers.StringToInt(raw)
		if err != nil || count < 1 {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid count.")
			return
		}
	}

	svc := middleware.GetLotteryService(c)
	raffle, err := svc.GetRaffle(c.Request.Context(), raffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	available := make([]int, 0, raffle.TotalNumbers)
	for n := 1; n <= raffle.TotalNumbers; n++ {
		if !raffle.SoldNumbers.Contains(n) {
			available = append(available, n)
		}
	}

	aiClient := middleware.GetAIClient(c)
	numbers, err := aiClient.LuckyNumbers(c.Request.Context(), raffle.Title, available, count)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to suggest numbers.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}
