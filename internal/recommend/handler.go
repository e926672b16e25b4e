package recommend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/greenhatah/hotspot_pay/internal/catalog"
	"github.com/greenhatah/hotspot_pay/internal/middleware"
	"github.com/greenhatah/hotspot_pay/internal/payment"
	"github.com/greenhatah/hotspot_pay/internal/session"
)

// Handler serves access point listings with a recommendation and starts a
// payment session for the chosen access point.
type Handler struct {
	catalog     *catalog.Service
	preferences PreferenceStore
	sessions    *session.Registry
	logger      *slog.Logger
}

// NewHandler constructs a recommendation handler.
func NewHandler(catalogSvc *catalog.Service, preferences PreferenceStore, sessions *session.Registry, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalogSvc, preferences: preferences, sessions: sessions, logger: logger}
}

type accessPointsResponse struct {
	Location     string                `json:"location"`
	AccessPoints []catalog.AccessPoint `json:"access_points"`
	Recommended  *catalog.AccessPoint  `json:"recommended"`
}

// AccessPoints lists a location's access points, optionally filtered by the
// q query parameter. The recommendation is computed over the whole location.
func (h *Handler) AccessPoints(c *fiber.Ctx) error {
	location := c.Params("location")
	group, err := h.catalog.Current(c.UserContext())
	if err != nil {
		return catalogError(err)
	}
	if !group.HasLocation(location) {
		return fiber.NewError(http.StatusNotFound, "unknown location")
	}

	preferred, err := h.preferences.Get(c.UserContext(), middleware.ClientIDFrom(c))
	if err != nil {
		h.logger.Warn("preference lookup failed", slog.Any("error", err))
		preferred = nil
	}

	resp := accessPointsResponse{
		Location:     location,
		AccessPoints: group.Search(location, c.Query("q")),
	}
	if best, ok := Recommend(group.AccessPoints(location), preferred); ok {
		resp.Recommended = &best
	}
	return c.JSON(resp)
}

// Select remembers the access point as the client's preference and opens a
// payment session for it.
func (h *Handler) Select(c *fiber.Ctx) error {
	location, name := c.Params("location"), c.Params("name")
	group, err := h.catalog.Current(c.UserContext())
	if err != nil {
		return catalogError(err)
	}
	ap, ok := group.Find(location, name)
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown access point")
	}

	clientID := middleware.ClientIDFrom(c)
	if err := h.preferences.Set(c.UserContext(), clientID, Preferred{Name: ap.Name}); err != nil {
		h.logger.Warn("preference store failed", slog.Any("error", err))
	}

	s, err := h.sessions.Create(clientID, payment.Target{Name: ap.Name, Location: ap.Location})
	if err != nil {
		h.logger.Error("session create failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "payment session could not be created")
	}
	return c.Status(http.StatusCreated).JSON(s.Orchestrator.Snapshot())
}

func catalogError(err error) error {
	if errors.Is(err, catalog.ErrNoCatalog) {
		return fiber.NewError(http.StatusServiceUnavailable, "access point catalog unavailable")
	}
	return fiber.NewError(http.StatusInternalServerError, err.Error())
}
