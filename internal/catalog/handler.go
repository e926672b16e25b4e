package catalog

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Locations lists location names in sorted order.
func (h *Handler) Locations(c *fiber.Ctx) error {
	group, err := h.service.Current(c.UserContext())
	if err != nil {
		return unavailable(err)
	}
	return c.JSON(fiber.Map{"locations": group.Locations()})
}

// Refresh reloads the catalog from its source.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	group, err := h.service.Refresh(c.UserContext())
	if err != nil {
		return unavailable(err)
	}
	total := 0
	for _, loc := range group.Locations() {
		total += len(group.AccessPoints(loc))
	}
	return c.JSON(fiber.Map{
		"locations":     len(group.Locations()),
		"access_points": total,
	})
}

func unavailable(err error) error {
	if errors.Is(err, ErrNoCatalog) {
		return fiber.NewError(http.StatusServiceUnavailable, "access point catalog unavailable")
	}
	return fiber.NewError(http.StatusBadGateway, "access point catalog could not be refreshed")
}
