package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pukatu/pukatu-backend/internal/helpers"
	"github.com/pukatu/pukatu-backend/internal/models"
)

// SystemStats aggregates the superadmin dashboard counters.
type SystemStats struct {
	TotalUsers      int64   `json:"total_users"`
	TotalAdmins     int64   `json:"total_admins"`
	TotalRaffles    int64   `json:"total_raffles"`
	ActiveRaffles   int64   `json:"active_raffles"`
	TotalRevenue    float64 `json:"total_revenue"`
	PendingPayments int64   `json:"pending_payments"`
}

func GetSystemStats(c *gin.Context) {
	gormDB, ok := database(c)
	if !ok {
		return
	}

	var stats SystemStats
	gormDB.Model(&models.User{}).Count(&stats.TotalUsers)
	gormDB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&stats.TotalAdmins)
	gormDB.Model(&models.Raffle{}).Count(&stats.TotalRaffles)
	gormDB.Model(&models.Raffle{}).Where("status = ?", models.RaffleActive).Count(&stats.ActiveRaffles)
	gormDB.Model(&models.Purchase{}).Where("status = ?", models.PurchasePending).Count(&stats.PendingPayments)

	var revenue *float64
	gormDB.Model(&models.Purchase{}).
		Where("status = ?", models.PurchaseConfirmed).
		Select("SUM(total_amount)").Scan(&revenue)
	if revenue != nil {
		stats.TotalRevenue = *revenue
	}

	c.JSON(http.StatusOK, stats)
}

func ListUsers(c *gin.Context) {
	gormDB, ok := database(c)
	if !ok {
		return
	}

	var users []models.User
	if err := gormDB.Order("created_at DESC").Find(&users).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list users.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type UpdateUserRequest struct {
	Role   string `json:"role"`
	Status string `json:"status"`
}

// UpdateUser lets a superadmin approve pending admins, suspend accounts, or
// change roles.
func UpdateUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user ID.")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	gormDB, ok := database(c)
	if !ok {
		return
	}

	var user models.User
	if err := gormDB.Where("id = ?", userID).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	if req.Role != "" {
		role := models.Role(req.Role)
		if !role.Valid() {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid role.")
			return
		}
		user.Role = role
	}
	if req.Status != "" {
		switch models.UserStatus(req.Status) {
		case models.UserActive, models.UserSuspended, models.UserPending:
			user.Status = models.UserStatus(req.Status)
		default:
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid status.")
			return
		}
	}

	if err := gormDB.Save(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update user.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User updated.",
		"user":    user,
	})
}

func DeleteUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user ID.")
		return
	}

	actor, ok := currentUser(c)
	if !ok {
		return
	}
	if actor.ID == userID {
		helpers.RespondWithError(c, http.StatusBadRequest, "Cannot delete your own account.")
		return
	}

	gormDB, ok := database(c)
	if !ok {
		return
	}
	if err := gormDB.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted."})
}
