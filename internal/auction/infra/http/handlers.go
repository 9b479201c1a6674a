package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/deedhouse/deedhouse/internal/auction/application"
	"github.com/deedhouse/deedhouse/internal/auction/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes the auction engine over HTTP. The actor identity is
// taken from the X-Actor-ID header: transport supplies identity, the
// engine never derives it.
type Handlers struct {
	service application.AuctionService
}

func NewHandlers(service application.AuctionService) *Handlers {
	return &Handlers{service: service}
}

func (h *Handlers) Register(app *fiber.App) {
	app.Post("/auctions", h.createAuction)
	app.Get("/auctions", h.getActiveAuctions)
	app.Get("/auctions/count", h.getCount)
	app.Get("/auctions/:id", h.getAuction)
	app.Post("/auctions/:id/bids", h.placeBid)
	app.Get("/auctions/:id/bids/count", h.getBidsCount)
	app.Get("/auctions/:id/bids/current", h.getCurrentBid)
	app.Post("/auctions/:id/cancel", h.cancelAuction)
	app.Post("/auctions/:id/finalize", h.finalizeAuction)
	app.Get("/owners/:owner/auctions", h.getAuctionsOf)
	app.Get("/owners/:owner/auctions/count", h.getAuctionsCountOfOwner)
}

func actorID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Get("X-Actor-ID"))
}

func auctionID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrOwnerCannotBid):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrEmptyURI),
		errors.Is(err, domain.ErrInvalidDeadline),
		errors.Is(err, domain.ErrInvalidStartPrice),
		errors.Is(err, domain.ErrNilRegistry):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrTransferFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrAuctionFinalized),
		errors.Is(err, domain.ErrDeadlinePassed),
		errors.Is(err, domain.ErrDeadlineNotReached),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrDeedNotInCustody):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

type createAuctionRequest struct {
	Name                  string `json:"name"`
	DeadlineOffsetSeconds int64  `json:"deadline_offset_seconds"`
	StartPrice            int64  `json:"start_price"`
	URI                   string `json:"uri"`
	DeedID                int64  `json:"deed_id"`
}

func (h *Handlers) createAuction(c *fiber.Ctx) error {
	caller, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	id, err := h.service.CreateAuction(c.Context(), application.CreateAuctionDTO{
		Caller:         caller,
		Name:           req.Name,
		DeadlineOffset: time.Duration(req.DeadlineOffsetSeconds) * time.Second,
		StartPrice:     req.StartPrice,
		URI:            req.URI,
		DeedID:         req.DeedID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"auction_id": id})
}

type placeBidRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handlers) placeBid(c *fiber.Ctx) error {
	bidder, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	id, err := auctionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	bid, err := h.service.PlaceBid(c.Context(), application.PlaceBidDTO{
		AuctionID: id,
		Bidder:    bidder,
		Amount:    req.Amount,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"auction_id": bid.AuctionID,
		"bidder":     bid.Bidder,
		"amount":     bid.Amount,
	})
}

func (h *Handlers) cancelAuction(c *fiber.Ctx) error {
	caller, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	id, err := auctionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	if err := h.service.CancelAuction(c.Context(), id, caller); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) finalizeAuction(c *fiber.Ctx) error {
	caller, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	id, err := auctionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	if err := h.service.FinalizeAuction(c.Context(), id, caller); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) getAuction(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	dto, err := h.service.GetAuctionByID(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto)
}

func (h *Handlers) getActiveAuctions(c *fiber.Ctx) error {
	auctions, err := h.service.GetActiveAuctions(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(auctions)
}

func (h *Handlers) getCount(c *fiber.Ctx) error {
	count, err := h.service.GetCount(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (h *Handlers) getBidsCount(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	count, err := h.service.GetBidsCount(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (h *Handlers) getCurrentBid(c *fiber.Ctx) error {
	id, err := auctionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	bid, err := h.service.GetCurrentBid(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if bid == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no bids yet"})
	}
	return c.JSON(bid)
}

func (h *Handlers) getAuctionsOf(c *fiber.Ctx) error {
	owner, err := uuid.Parse(c.Params("owner"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid owner id"})
	}
	auctions, err := h.service.GetAuctionsOf(c.Context(), owner)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(auctions)
}

func (h *Handlers) getAuctionsCountOfOwner(c *fiber.Ctx) error {
	owner, err := uuid.Parse(c.Params("owner"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid owner id"})
	}
	count, err := h.service.GetAuctionsCountOfOwner(c.Context(), owner)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}
