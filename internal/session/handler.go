package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/greenhatah/hotspot_pay/internal/gateway"
	"github.com/greenhatah/hotspot_pay/internal/middleware"
	"github.com/greenhatah/hotspot_pay/internal/payment"
)

// Handler exposes the payment workflow of a session.
type Handler struct {
	registry *Registry
	logger   *slog.Logger
}

// NewHandler constructs a session handler.
func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

type payRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount"`
}

type snapshotResponse struct {
	payment.Snapshot
	Error string `json:"error,omitempty"`
}

// Get returns the session snapshot.
func (h *Handler) Get(c *fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(snapshotResponse{Snapshot: s.Orchestrator.Snapshot()})
}

// Pay validates the phone and amount and creates a payment intent.
func (h *Handler) Pay(c *fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req payRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	snap, err := s.Orchestrator.Pay(c.UserContext(), req.Phone, req.Amount)
	return h.respond(c, snap, err)
}

// Confirm is the user's "I have paid" acknowledgement.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	snap, err := s.Orchestrator.Confirm(c.UserContext())
	return h.respond(c, snap, err)
}

// Discard closes the session and cancels any pending re-check.
func (h *Handler) Discard(c *fiber.Ctx) error {
	if err := h.registry.Discard(c.Params("id"), middleware.ClientIDFrom(c)); err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) lookup(c *fiber.Ctx) (Session, error) {
	s, err := h.registry.Get(c.Params("id"), middleware.ClientIDFrom(c))
	if err != nil {
		return Session{}, fiber.NewError(http.StatusNotFound, err.Error())
	}
	return s, nil
}

// respond writes the snapshot with a status derived from the workflow error.
// The snapshot message is what the user sees; error carries the cause class.
func (h *Handler) respond(c *fiber.Ctx, snap payment.Snapshot, err error) error {
	if errors.Is(err, payment.ErrStaleSession) {
		// A newer attempt owns the session; report its state as is.
		h.logger.Debug("stale payment result dropped", slog.String("session_id", snap.SessionID))
		err = nil
	}

	status := http.StatusOK
	var (
		vErr   *payment.ValidationError
		appErr *gateway.ApplicationError
	)
	switch {
	case err == nil:
	case errors.As(err, &vErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &appErr), errors.Is(err, payment.ErrPaymentFailed):
		status = http.StatusPaymentRequired
	case errors.Is(err, gateway.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, payment.ErrConfirmTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, payment.ErrClosed):
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	default:
		h.logger.Error("payment workflow failed", slog.String("session_id", snap.SessionID), slog.Any("error", err))
		status = http.StatusInternalServerError
	}

	resp := snapshotResponse{Snapshot: snap}
	if err != nil {
		resp.Error = snap.Message
		if resp.Error == "" {
			resp.Error = http.StatusText(status)
		}
	}
	return c.Status(status).JSON(resp)
}
