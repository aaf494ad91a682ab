package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/pukatu/pukatu-backend/internal/helpers"
	"github.com/pukatu/pukatu-backend/internal/lottery"
	"github.com/pukatu/pukatu-backend/internal/middleware"
)

type PurchaseSubmission struct {
	RaffleID  uuid.UUID `json:"raffle_id" binding:"required"`
	BuyerName string    `json:"buyer_name" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
	Numbers   []int     `json:"numbers" binding:"required"`
}

// SubmitPurchase reserves the buyer's numbers and returns the WhatsApp
// handoff: the pre-filled confirmation message and the wa.me link to the
// raffle's contact. The total is always recomputed server-side.
func SubmitPurchase(c *gin.Context) {
	var req PurchaseSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	svc := middleware.GetLotteryService(c)
	purchase, err := svc.SubmitPurchase(c.Request.Context(), lottery.PurchaseRequest{
		RaffleID:  req.RaffleID,
		BuyerName: req.BuyerName,
		Email:     req.Email,
		Numbers:   req.Numbers,
	})
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	raffle, err := svc.GetRaffle(c.Request.Context(), purchase.RaffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	message := lottery.ConfirmationMessage(raffle.Title, purchase.SelectedNumbers, purchase.TotalAmount, purchase.ID)

	c.JSON(http.StatusCreated, gin.H{
		"purchase_id":   purchase.ID,
		"contact_phone": raffle.ContactPhone,
		"total_amount":  purchase.TotalAmount,
		"message":       message,
		"whatsapp_url":  lottery.WhatsAppURL(raffle.ContactPhone, message),
	})
}

// PurchaseWhatsAppQR renders the wa.me handoff link as a QR code so the
// buyer can continue on another device.
func PurchaseWhatsAppQR(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid purchase ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	purchase, err := svc.GetPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}
	raffle, err := svc.GetRaffle(c.Request.Context(), purchase.RaffleID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}

	message := lottery.ConfirmationMessage(raffle.Title, purchase.SelectedNumbers, purchase.TotalAmount, purchase.ID)
	qrImage, err := qrcode.Encode(lottery.WhatsAppURL(raffle.ContactPhone, message), qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// ListPendingPurchases shows the purchases awaiting a payment decision,
// scoped to the raffles the admin owns (all of them for a superadmin).
func ListPendingPurchases(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	svc := middleware.GetLotteryService(c)
	purchases, err := svc.PendingPurchases(c.Request.Context(), user)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list pending purchases.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

func ConfirmPurchase(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid purchase ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	purchase, err := svc.ConfirmPurchase(c.Request.Context(), user, purchaseID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Payment confirmed.",
		"purchase": purchase,
	})
}

func RejectPurchase(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid purchase ID.")
		return
	}

	svc := middleware.GetLotteryService(c)
	purchase, err := svc.RejectPurchase(c.Request.Context(), user, purchaseID)
	if err != nil {
		respondLotteryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Payment rejected. Numbers released.",
		"purchase": purchase,
	})
}

// ListMyPurchases lists the authenticated buyer's own purchases.
func ListMyPurchases(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	svc := middleware.GetLotteryService(c)
	purchases, err := svc.PurchasesByEmail(c.Request.Context(), user.Email)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to list purchases.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}
