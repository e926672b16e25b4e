package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	clientIDHeader  = "X-Client-ID"
	clientIDLocal   = "client_id"
)

// RequestID ensures each request has a stable request identifier for tracing and logging.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)

		return c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by RequestID.
func RequestIDFrom(c *fiber.Ctx) string {
	reqID, _ := c.Locals(requestIDHeader).(string)
	return reqID
}

// ClientID identifies the device behind a request by its X-Client-ID header,
// falling back to the remote IP. Preferences and sessions are scoped to it.
func ClientID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(clientIDHeader))
		if id == "" {
			id = c.IP()
		}
		c.Locals(clientIDLocal, id)
		return c.Next()
	}
}

// ClientIDFrom returns the identifier assigned by ClientID.
func ClientIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(clientIDLocal).(string)
	return id
}
