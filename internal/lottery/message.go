package lottery

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pukatu/pukatu-backend/internal/models"
)

const currencySymbol = "$"

// ConfirmationMessage builds the text the buyer forwards to the raffle's
// WhatsApp contact after submitting a purchase. The payload is
// deterministic: raffle title, numbers in the order they were picked, the
// server-computed total, and the purchase id.
func ConfirmationMessage(raffleTitle string, numbers models.NumberList, total float64, purchaseID uuid.UUID) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("👋 Hola PUKATU, confirmo mi compra:\n🎫 *Sorteo:* %s\n🔢 *Números:* %s\n💰 *Total:* %s%s\n🆔 *ID:* %s",
		raffleTitle,
		strings.Join(parts, ", "),
		currencySymbol,
		strconv.FormatFloat(total, 'f', -1, 64),
		purchaseID,
	)
}

// WhatsAppURL builds the wa.me deep link that opens a chat with the
// raffle's contact phone and the confirmation message pre-filled. Sending
// it is a one-way, unverified handoff; payment confirmation only ever
// happens through an explicit admin action.
func WhatsAppURL(contactPhone, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", contactPhone, url.QueryEscape(message))
}
