package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/api/http/handlers"
	"github.com/bloxxvault/ticket-bot/internal/auth"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/observability"
)

type staticTickets []domain.Ticket

func (s staticTickets) Tickets() []domain.Ticket { return s }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type staticAudit []events.Event

func (s staticAudit) ListByChannel(_ context.Context, channelID string, _ int) ([]events.Event, error) {
	var out []events.Event
	for _, e := range s {
		if e.ChannelID == channelID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestApp(t *testing.T, deps map[string]handlers.Pinger) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	tokens := auth.NewTokenManager("secret", time.Hour)
	claimer := "7"

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("ticket-bot", "test", deps),
		Tickets: handlers.NewTicketsHandler(staticTickets{
			{ChannelID: "1", ChannelName: "ticket-42", OpenerID: "42", State: domain.TicketStateOpen},
			{ChannelID: "2", ChannelName: "ticket-43", OpenerID: "43", State: domain.TicketStateClaimed, ClaimedBy: &claimer},
		}, staticAudit{
			{ID: "e1", Type: events.EventTicketCreated, ChannelID: "1"},
			{ID: "e2", Type: events.EventTicketClosed, ChannelID: "9"},
		}),
		Gatherer:       reg,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return app, tokens
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHealthRoutes(t *testing.T) {
	app, _ := newTestApp(t, map[string]handlers.Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ready", decode(t, resp.Body)["status"])
}

func TestReadyReportsFailingDependency(t *testing.T) {
	app, _ := newTestApp(t, map[string]handlers.Pinger{
		"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestOpsTicketsRequiresToken(t *testing.T) {
	app, tokens := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/ops/tickets", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	viewer, _, err := tokens.GenerateToken("someone", "viewer")
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/ops/tickets", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	req = httptest.NewRequest("GET", "/ops/tickets", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestOpsTicketsListsRegistry(t *testing.T) {
	app, tokens := newTestApp(t, nil)
	token, _, err := tokens.GenerateToken("oncall", auth.OpsRole)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/ops/tickets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp.Body)["count"])

	req = httptest.NewRequest("GET", "/ops/tickets?state=CLAIMED", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.EqualValues(t, 1, body["count"])
	first := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "ticket-43", first["channel_name"])
	assert.Equal(t, "7", first["claimed_by"])

	for _, state := range []string{"claimed", "open", "Open"} {
		req = httptest.NewRequest("GET", "/ops/tickets?state="+state, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = app.Test(req)
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode, state)
		assert.EqualValues(t, 1, decode(t, resp.Body)["count"], state)
	}

	req = httptest.NewRequest("GET", "/ops/tickets?state=bogus", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	req = httptest.NewRequest("GET", "/ops/tickets/1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, decode(t, resp.Body)["data"], 1)

	req = httptest.NewRequest("GET", "/ops/tickets/1/audit?limit=zero", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, nil)
	_, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ticketbot_http_requests_total")
}
