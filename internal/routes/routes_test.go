package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenhatah/hotspot_pay/internal/auth"
	"github.com/greenhatah/hotspot_pay/internal/catalog"
	"github.com/greenhatah/hotspot_pay/internal/config"
	"github.com/greenhatah/hotspot_pay/internal/gateway"
	"github.com/greenhatah/hotspot_pay/internal/logging"
	"github.com/greenhatah/hotspot_pay/internal/payment"
	"github.com/greenhatah/hotspot_pay/internal/recommend"
	"github.com/greenhatah/hotspot_pay/internal/session"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// heldScheduler never runs deferred calls.
type heldScheduler struct{}

func (heldScheduler) AfterFunc(time.Duration, func()) payment.Timer { return idleTimer{} }

type refusingGateway struct{}

func (refusingGateway) Init(context.Context, gateway.InitRequest) (gateway.InitResponse, error) {
	return gateway.InitResponse{}, &gateway.ApplicationError{Message: "Solde insuffisant"}
}

func (refusingGateway) Confirm(context.Context, gateway.ConfirmRequest) (gateway.ConfirmResponse, error) {
	return gateway.ConfirmResponse{}, nil
}

func num(v float64) *float64 { return &v }

func str(v string) *string { return &v }

func health(v catalog.RawHealth) *catalog.RawHealth { return &v }

func testCatalog() catalog.StaticSource {
	return catalog.StaticSource{
		{ID: 1, Name: "Angre", Location: str("Cocody"), Health: health("ok"), Capacity: num(80), MAC: "AA:BB"},
		{ID: 2, Name: "Riviera", Location: str("Cocody"), Health: health("ok"), Capacity: num(120)},
		{ID: 3, Name: "Deux-Plateaux", Location: str("Cocody"), Health: health("down"), Capacity: num(200)},
		{ID: 4, Name: "Siporex", Location: str("Yopougon"), Health: health("ok")},
	}
}

func newTestApp(t *testing.T, gw gateway.Client, cache *redis.Client) *fiber.App {
	t.Helper()
	return newTestAppWithOperator(t, gw, cache, nil)
}

func newTestAppWithOperator(t *testing.T, gw gateway.Client, cache *redis.Client, operators *auth.Service) *fiber.App {
	t.Helper()
	logger := logging.Discard()

	var preferences recommend.PreferenceStore = recommend.NewMemoryPreferenceStore()
	if cache != nil {
		preferences = recommend.NewRedisPreferenceStore(cache)
	}

	factory := func(id string, target payment.Target) (*payment.Orchestrator, error) {
		return payment.NewOrchestrator(payment.Options{
			ID:             id,
			Target:         target,
			Gateway:        gw,
			Scheduler:      heldScheduler{},
			Logger:         logger,
			SupportContact: "0706836722",
		})
	}

	app := fiber.New()
	err := Setup(app, Deps{
		Cfg:         config.Config{AppEnv: "development", PayRateLimit: 10, IdempotencyTTL: time.Minute},
		Cache:       cache,
		Logger:      logger,
		Catalog:     catalog.NewService(testCatalog(), time.Minute, logger),
		Preferences: preferences,
		Sessions:    session.NewRegistry(factory, time.Hour, logger),
		Auth:        operators,
	})
	require.NoError(t, err)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body, client string) (int, map[string]any) {
	t.Helper()
	return callWithToken(t, app, method, path, body, client, "")
}

func callWithToken(t *testing.T, app *fiber.App, method, path, body, client, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if client != "" {
		req.Header.Set("X-Client-ID", client)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func selectAccessPoint(t *testing.T, app *fiber.App, name, client string) string {
	t.Helper()
	status, body := call(t, app, fiber.MethodPost, "/api/v1/locations/Cocody/access-points/"+name+"/select", "", client)
	require.Equal(t, fiber.StatusCreated, status)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestPingAndTiers(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(0), nil)

	status, body := call(t, app, fiber.MethodGet, "/api/v1/ping", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["request_id"])

	status, body = call(t, app, fiber.MethodGet, "/api/v1/tiers", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	tiers, _ := body["tiers"].([]any)
	require.Len(t, tiers, 6)
	first, _ := tiers[0].(map[string]any)
	assert.Equal(t, "200F – 24h", first["label"])
}

func TestHealthWithoutBackends(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(0), nil)

	status, body := call(t, app, fiber.MethodGet, "/healthz", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "disabled", "redis": "disabled"}, body["status"])
}

func TestLocationsAndRecommendation(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(0), nil)

	status, body := call(t, app, fiber.MethodGet, "/api/v1/locations", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"Cocody", "Yopougon"}, body["locations"])

	status, body = call(t, app, fiber.MethodGet, "/api/v1/locations/Cocody/access-points", "", "device-1")
	assert.Equal(t, fiber.StatusOK, status)
	points, _ := body["access_points"].([]any)
	assert.Len(t, points, 3)
	recommended, _ := body["recommended"].(map[string]any)
	assert.Equal(t, "Riviera", recommended["name"])

	status, body = call(t, app, fiber.MethodGet, "/api/v1/locations/Cocody/access-points?q=ang", "", "device-1")
	assert.Equal(t, fiber.StatusOK, status)
	points, _ = body["access_points"].([]any)
	assert.Len(t, points, 1)

	status, _ = call(t, app, fiber.MethodGet, "/api/v1/locations/Nowhere/access-points", "", "device-1")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSelectStoresPreference(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := newTestApp(t, gateway.NewSandbox(0), cache)

	selectAccessPoint(t, app, "Angre", "device-1")

	_, body := call(t, app, fiber.MethodGet, "/api/v1/locations/Cocody/access-points", "", "device-1")
	recommended, _ := body["recommended"].(map[string]any)
	assert.Equal(t, "Angre", recommended["name"])

	_, body = call(t, app, fiber.MethodGet, "/api/v1/locations/Cocody/access-points", "", "device-2")
	recommended, _ = body["recommended"].(map[string]any)
	assert.Equal(t, "Riviera", recommended["name"], "preferences are per client")

	status, _ := call(t, app, fiber.MethodPost, "/api/v1/locations/Cocody/access-points/Missing/select", "", "device-1")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPaymentFlow(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(0), nil)
	id := selectAccessPoint(t, app, "Riviera", "device-1")
	base := "/api/v1/sessions/" + id

	status, body := call(t, app, fiber.MethodPost, base+"/pay", `{"phone":"123","amount":200}`, "device-1")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "Phone number must contain 10 digits", body["error"])
	assert.Equal(t, string(payment.StateIdle), body["state"])

	status, body = call(t, app, fiber.MethodPost, base+"/pay", `{"phone":"07 06 05 04 03","amount":500}`, "device-1")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(payment.StateAwaitingUserPayment), body["state"])
	assert.NotEmpty(t, body["payment_url"])
	assert.EqualValues(t, 72, body["validity_hours"])

	status, body = call(t, app, fiber.MethodPost, base+"/confirm", "", "device-1")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(payment.StateSucceeded), body["state"])
	assert.NotEmpty(t, body["credential"])

	status, body = call(t, app, fiber.MethodGet, base, "", "device-1")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, body["credential"], body["issued_credential"])
}

func TestPendingConfirmationStaysConfirming(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(3), nil)
	id := selectAccessPoint(t, app, "Riviera", "device-1")
	base := "/api/v1/sessions/" + id

	status, _ := call(t, app, fiber.MethodPost, base+"/pay", `{"phone":"0506050403","amount":200}`, "device-1")
	require.Equal(t, fiber.StatusOK, status)

	status, body := call(t, app, fiber.MethodPost, base+"/confirm", "", "device-1")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(payment.StateConfirming), body["state"])
	assert.EqualValues(t, 1, body["confirm_attempts"])
}

func TestGatewayRefusalMapsToPaymentRequired(t *testing.T) {
	app := newTestApp(t, refusingGateway{}, nil)
	id := selectAccessPoint(t, app, "Riviera", "device-1")

	status, body := call(t, app, fiber.MethodPost, "/api/v1/sessions/"+id+"/pay", `{"phone":"0106050403","amount":1000}`, "device-1")
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Equal(t, "Solde insuffisant", body["error"])
	assert.Equal(t, string(payment.StateInitFailed), body["state"])
}

func TestSessionOwnershipAndDiscard(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(0), nil)
	id := selectAccessPoint(t, app, "Riviera", "device-1")
	base := "/api/v1/sessions/" + id

	status, _ := call(t, app, fiber.MethodGet, base, "", "device-2")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, fiber.MethodDelete, base, "", "device-1")
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = call(t, app, fiber.MethodGet, base, "", "device-1")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, fiber.MethodGet, "/api/v1/sessions/unknown", "", "device-1")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCatalogRefreshRequiresOperatorToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	operators, err := auth.NewService(auth.Options{Username: "ops", PasswordHash: string(hash), Secret: "test-secret", TokenTTL: time.Minute})
	require.NoError(t, err)
	app := newTestAppWithOperator(t, gateway.NewSandbox(0), nil, operators)

	status, _ := call(t, app, fiber.MethodPost, "/api/v1/catalog/refresh", "", "device-1")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/v1/token", `{"username":"ops","password":"nope"}`, "device-1")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := call(t, app, fiber.MethodPost, "/api/v1/token", `{"username":"ops","password":"s3cret"}`, "device-1")
	require.Equal(t, fiber.StatusOK, status)
	token, _ := body["access"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, token, body["access_token"])

	status, _ = callWithToken(t, app, fiber.MethodPost, "/api/v1/catalog/refresh", "", "device-1", token)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestCatalogRefreshClosedWithoutOperator(t *testing.T) {
	app := newTestApp(t, gateway.NewSandbox(0), nil)

	status, _ := call(t, app, fiber.MethodPost, "/api/v1/catalog/refresh", "", "device-1")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, fiber.MethodPost, "/api/v1/token", `{"username":"ops","password":"s3cret"}`, "device-1")
	assert.Equal(t, fiber.StatusNotFound, status)
}
