package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pukatu/pukatu-backend/internal/helpers"
	"github.com/pukatu/pukatu-backend/internal/lottery"
	"github.com/pukatu/pukatu-backend/internal/models"
)

// currentUser returns the authenticated user, loading it from the database
// unless a role middleware already did. On failure it writes the error
// response and returns ok=false.
func currentUser(c *gin.Context) (models.User, bool) {
	if u, exists := c.Get("current_user"); exists {
		return u.(models.User), true
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return models.User{}, false
	}

	gormDB, ok := database(c)
	if !ok {
		return models.User{}, false
	}

	var user models.User
	if err := gormDB.Where("id = ?", userID).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found.")
		return models.User{}, false
	}
	return user, true
}

// respondLotteryError maps domain errors onto HTTP statuses. Conflicts get
// a 409 with the clashing numbers so the buyer can re-pick.
func respondLotteryError(c *gin.Context, err error) {
	var conflict *lottery.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        http.StatusText(http.StatusConflict),
			"message":      "Some numbers were just sold. Please pick again.",
			"sold_numbers": conflict.Numbers,
		})
		return
	}

	switch {
	case errors.Is(err, lottery.ErrRaffleNotFound), errors.Is(err, lottery.ErrPurchaseNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, lottery.ErrNotAuthorized):
		helpers.RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, lottery.ErrRaffleNotActive),
		errors.Is(err, lottery.ErrRaffleCompleted),
		errors.Is(err, lottery.ErrAlreadyDrawn),
		errors.Is(err, lottery.ErrAlreadySettled),
		errors.Is(err, lottery.ErrNoTicketsSold):
		helpers.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, lottery.ErrEmptySelection),
		errors.Is(err, lottery.ErrNumberOutOfRange),
		errors.Is(err, lottery.ErrDuplicateNumber):
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		helpers.RespondWithError(c, http.StatusInternalServerError, "Operation failed. Please try again.")
	}
}

func database(c *gin.Context) (*gorm.DB, bool) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return nil, false
	}
	return db.(*gorm.DB), true
}
