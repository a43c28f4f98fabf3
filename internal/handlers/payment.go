package handlers

import (
	"crypto/subtle"
	stderrors "errors"
	"log"

	"perka/internal/config"
	"perka/internal/errors"
	"perka/internal/services/topup"
	"perka/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler consumes payment-gateway confirmation events. The
// gateway itself is a black box; only the order reference and its
// final status matter here.
type PaymentHandler struct {
	topupService topup.Service
	secret       string
}

func NewPaymentHandler(topupService topup.Service) *PaymentHandler {
	return &PaymentHandler{
		topupService: topupService,
		secret:       config.GetEnv("WEBHOOK_SECRET", ""),
	}
}

type paymentNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

// HandleNotification applies a confirmation event to the pending topup
// it references. Always answers 200 for events about unknown orders so
// the gateway stops retrying them.
func (h *PaymentHandler) HandleNotification(c *fiber.Ctx) error {
	if h.secret != "" {
		provided := c.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
			return utils.Unauthorized(c, "invalid webhook secret")
		}
	}

	var notification paymentNotification
	if err := c.BodyParser(&notification); err != nil {
		return utils.BadRequest(c, "invalid JSON")
	}
	if notification.OrderID == "" {
		return utils.BadRequest(c, "missing order_id")
	}

	log.Printf("webhook: payment notification order=%s status=%s",
		notification.OrderID, notification.TransactionStatus)

	tx, err := h.topupService.ConfirmPayment(c.Context(), notification.OrderID, notification.TransactionStatus)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrTransactionNotFound):
			log.Printf("webhook: order not found: %s", notification.OrderID)
			return utils.Success(c, fiber.Map{"status": "ignored"})
		case stderrors.Is(err, errors.ErrInvalidStatusTransition):
			return utils.Conflict(c, errors.ErrInvalidStatusTransition.Message)
		case stderrors.Is(err, errors.ErrPartialCreditFailure):
			// The topup is recorded; the bonus gap will be repaired by
			// the reconciliation job. The gateway must not retry.
			log.Printf("webhook: partial credit for order %s: %v", notification.OrderID, err)
			return utils.Success(c, fiber.Map{
				"status": "accepted",
				"note":   "bonus credit deferred to reconciliation",
			})
		default:
			return utils.InternalError(c, "failed to apply payment notification")
		}
	}

	return utils.Success(c, fiber.Map{
		"status":      "applied",
		"transaction": tx,
	})
}
