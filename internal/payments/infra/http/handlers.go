package http

import (
	"errors"

	"github.com/deedhouse/deedhouse/internal/payments/application"
	"github.com/deedhouse/deedhouse/internal/payments/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes ledger deposits, balance lookups and claim withdrawal.
// Bids themselves go through the auction API; this is how callers attach
// value upfront and recover value stranded by a rejected disbursement.
type Handlers struct {
	ledger   application.Ledger
	treasury *application.EngineTreasury
}

func NewHandlers(ledger application.Ledger, treasury *application.EngineTreasury) *Handlers {
	return &Handlers{ledger: ledger, treasury: treasury}
}

func (h *Handlers) Register(app *fiber.App) {
	app.Post("/accounts/deposit", h.deposit)
	app.Get("/accounts/:id/balance", h.balance)
	app.Get("/accounts/:id/claim", h.claim)
	app.Post("/accounts/claims/withdraw", h.withdrawClaim)
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handlers) deposit(c *fiber.Ctx) error {
	account, err := uuid.Parse(c.Get("X-Actor-ID"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.ledger.Deposit(c.Context(), account, req.Amount); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidAmount) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) balance(c *fiber.Ctx) error {
	account, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid account id"})
	}
	balance, err := h.ledger.BalanceOf(c.Context(), account)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"account": account, "balance": balance})
}

func (h *Handlers) claim(c *fiber.Ctx) error {
	account, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid account id"})
	}
	amount, err := h.treasury.ClaimOf(c.Context(), account)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"account": account, "claim": amount})
}

func (h *Handlers) withdrawClaim(c *fiber.Ctx) error {
	account, err := uuid.Parse(c.Get("X-Actor-ID"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	amount, err := h.treasury.WithdrawClaim(c.Context(), account)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrNoClaim) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"account": account, "withdrawn": amount})
}
