package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/greenhatah/hotspot_pay/internal/logging"
)

func setupTestApp(t *testing.T, status *int) (*fiber.App, *int) {
	t.Helper()
	mr := miniredis.RunT(t)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	calls := 0
	app := fiber.New()
	logger := logging.Discard()
	app.Use(ClientID())
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		return c.Status(*status).JSON(fiber.Map{"calls": calls})
	})

	return app, &calls
}

func postResource(t *testing.T, app *fiber.App, key, client string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if client != "" {
		req.Header.Set(clientIDHeader, client)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	status := fiber.StatusOK
	app, calls := setupTestApp(t, &status)

	postResource(t, app, "", "device-1")
	postResource(t, app, "", "device-1")

	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	status := fiber.StatusOK
	app, calls := setupTestApp(t, &status)

	resp, payload := postResource(t, app, "abc123", "device-1")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	// Second request should return the cached response without invoking handler again.
	resp2, cachedPayload := postResource(t, app, "abc123", "device-1")
	if resp2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected cached status %d got %d", fiber.StatusOK, resp2.StatusCode)
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	if resp2.Header.Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header")
	}
	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedPerClient(t *testing.T) {
	status := fiber.StatusOK
	app, calls := setupTestApp(t, &status)

	postResource(t, app, "abc123", "device-1")
	postResource(t, app, "abc123", "device-2")

	if *calls != 2 {
		t.Fatalf("expected separate clients not to share keys, handler ran %d times", *calls)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	status := fiber.StatusBadGateway
	app, calls := setupTestApp(t, &status)

	postResource(t, app, "retry-me", "device-1")

	status = fiber.StatusOK
	resp, _ := postResource(t, app, "retry-me", "device-1")

	if resp.StatusCode != fiber.StatusOK || *calls != 2 {
		t.Fatalf("expected failed attempt to be retried, status %d calls %d", resp.StatusCode, *calls)
	}
}
