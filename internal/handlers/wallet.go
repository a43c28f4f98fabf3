package handlers

import (
	stderrors "errors"

	"perka/internal/errors"
	"perka/internal/models"
	"perka/internal/services/spend"
	"perka/internal/services/topup"
	"perka/internal/services/wallet"
	"perka/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	walletService wallet.Service
	spendService  spend.Service
	topupService  topup.Service
}

func NewWalletHandler(walletService wallet.Service, spendService spend.Service, topupService topup.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		spendService:  spendService,
		topupService:  topupService,
	}
}

func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

// GetWallet serves the derived wallet and bonus balances.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	overview, err := h.walletService.Overview(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to derive wallet balance")
	}
	return utils.Success(c, overview)
}

// GetTransactions serves paginated wallet history.
func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	history, err := h.walletService.History(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "failed to load transaction history")
	}
	return utils.Success(c, fiber.Map{
		"transactions": history,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetBonusTransactions serves the promotional ledger history.
func (h *WalletHandler) GetBonusTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	history, err := h.walletService.BonusHistory(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to load bonus history")
	}
	return utils.Success(c, fiber.Map{"transactions": history})
}

// Spend authorizes and records a wallet debit.
func (h *WalletHandler) Spend(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	tx, err := h.spendService.Spend(c.Context(), claims.UserID, input.Amount, input.Description)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrInsufficientFunds):
			return utils.PaymentRequired(c, errors.ErrInsufficientFunds.Message)
		case stderrors.Is(err, errors.ErrInvalidAmount):
			return utils.BadRequest(c, errors.ErrInvalidAmount.Message)
		default:
			return utils.InternalError(c, "spend failed")
		}
	}
	return utils.Success(c, fiber.Map{
		"transaction": tx,
	})
}

// InitiateTopup starts a package topup and returns the pending row.
func (h *WalletHandler) InitiateTopup(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		PackageID uint `json:"package_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	tx, err := h.topupService.InitiateTopup(c.Context(), claims.UserID, input.PackageID)
	if err != nil {
		if stderrors.Is(err, errors.ErrPackageNotFound) {
			return utils.NotFound(c, errors.ErrPackageNotFound.Message)
		}
		return utils.InternalError(c, "failed to initiate topup")
	}
	return utils.Success(c, fiber.Map{
		"transaction": tx,
		"order_id":    tx.OrderID(),
	})
}

// ListPackages serves the active topup packages.
func (h *WalletHandler) ListPackages(c *fiber.Ctx) error {
	pkgs, err := h.topupService.ListPackages(c.Context())
	if err != nil {
		return utils.InternalError(c, "failed to list packages")
	}
	return utils.Success(c, fiber.Map{"packages": pkgs})
}
