package http

import (
	"errors"
	"strconv"

	"github.com/deedhouse/deedhouse/internal/registry/application"
	"github.com/deedhouse/deedhouse/internal/registry/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes the deed registry over HTTP.
type Handlers struct {
	registry application.RegistryService
}

func NewHandlers(registry application.RegistryService) *Handlers {
	return &Handlers{registry: registry}
}

func (h *Handlers) Register(app *fiber.App) {
	app.Post("/deeds", h.registerDeed)
	app.Get("/deeds/:id", h.getDeed)
	app.Post("/deeds/:id/transfer", h.transferDeed)
	app.Post("/deeds/approvals", h.approve)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDeedNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrDeedAlreadyRegistered):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrEmptyURI):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotHolder), errors.Is(err, domain.ErrNotAuthorized):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func actorID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Get("X-Actor-ID"))
}

type registerDeedRequest struct {
	ID  int64  `json:"id"`
	URI string `json:"uri"`
}

func (h *Handlers) registerDeed(c *fiber.Ctx) error {
	caller, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	var req registerDeedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.registry.Register(c.Context(), caller, req.ID, req.URI); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (h *Handlers) getDeed(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid deed id"})
	}
	holder, err := h.registry.OwnerOf(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	uri, err := h.registry.URIOf(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "holder": holder, "uri": uri})
}

type transferDeedRequest struct {
	From uuid.UUID `json:"from"`
	To   uuid.UUID `json:"to"`
}

func (h *Handlers) transferDeed(c *fiber.Ctx) error {
	caller, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid deed id"})
	}
	var req transferDeedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.registry.Transfer(c.Context(), caller, req.From, req.To, id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type approveRequest struct {
	Operator uuid.UUID `json:"operator"`
}

func (h *Handlers) approve(c *fiber.Ctx) error {
	holder, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid X-Actor-ID"})
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.registry.Approve(c.Context(), holder, req.Operator); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
