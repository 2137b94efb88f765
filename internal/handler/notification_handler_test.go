package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/service"
	"github.com/serhatipek/choreline/internal/transport"
	"go.uber.org/zap"
)

func TestNotificationHandler_SendNotification(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		submitFn: func(ctx context.Context, n domain.Notification) (*domain.DeliveryResult, error) {
			if n.Kind != domain.KindAssigned {
				t.Fatalf("kind = %s, want %s", n.Kind, domain.KindAssigned)
			}
			if n.Priority != domain.PriorityHigh {
				t.Fatalf("priority = %s, want %s", n.Priority, domain.PriorityHigh)
			}
			return &domain.DeliveryResult{
				Success: true,
				Channel: domain.ChannelWhatsApp,
				Attempts: []domain.ChannelAttempt{
					{Channel: domain.ChannelWhatsApp, Success: true, ProviderMessageID: "wamid.1"},
				},
				DeliveredAt: time.Now(),
			}, nil
		},
	}

	app := newTestApp(t, svc)

	validBody := `{"userId":"u-1","name":"Ayse","phone":"+905551112233","kind":"ASSIGNED","priority":"HIGH","payload":{"chore":"dishes"}}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications", validBody)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["success"] != true {
		t.Fatalf("success = %v, want true", parsed["success"])
	}
	if parsed["channel"] != "whatsapp" {
		t.Fatalf("channel = %v, want whatsapp", parsed["channel"])
	}

	invalidKindBody := `{"userId":"u-1","phone":"+905551112233","kind":"NOT_A_KIND"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", invalidKindBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid kind", resp.StatusCode)
	}

	missingContactBody := `{"userId":"u-1","kind":"ASSIGNED"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", missingContactBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing contact info", resp.StatusCode)
	}
}

func TestNotificationHandler_SendNotificationDefaultsPriority(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		submitFn: func(ctx context.Context, n domain.Notification) (*domain.DeliveryResult, error) {
			if n.Priority != domain.PriorityMedium {
				t.Fatalf("priority = %s, want default %s", n.Priority, domain.PriorityMedium)
			}
			return &domain.DeliveryResult{Success: true, Channel: domain.ChannelSMS}, nil
		},
	}

	app := newTestApp(t, svc)

	body := `{"userId":"u-1","phone":"+905551112233","kind":"REMINDER"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/notifications", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}
}

func TestNotificationHandler_SendNotificationScheduled(t *testing.T) {
	t.Parallel()

	scheduleAt, _ := time.Parse(time.RFC3339, "2026-10-01T09:00:00Z")
	svc := &stubDeliveryService{
		submitFn: func(ctx context.Context, n domain.Notification) (*domain.DeliveryResult, error) {
			if n.ScheduleAt == nil || !n.ScheduleAt.Equal(scheduleAt) {
				t.Fatalf("scheduleAt = %v, want %v", n.ScheduleAt, scheduleAt)
			}
			at := *n.ScheduleAt
			return &domain.DeliveryResult{Success: true, ScheduledAt: &at}, nil
		},
	}

	app := newTestApp(t, svc)

	body := `{"userId":"u-1","phone":"+905551112233","kind":"REMINDER","scheduleAt":"2026-10-01T09:00:00Z"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/notifications", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["scheduledAt"] != "2026-10-01T09:00:00Z" {
		t.Fatalf("scheduledAt = %v, want 2026-10-01T09:00:00Z", parsed["scheduledAt"])
	}
}

func TestNotificationHandler_SendBulk(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		sendBulkFn: func(ctx context.Context, notifications []domain.Notification) []domain.DeliveryResult {
			results := make([]domain.DeliveryResult, len(notifications))
			for i := range notifications {
				results[i] = domain.DeliveryResult{Success: true, Channel: domain.ChannelWhatsApp}
			}
			return results
		},
	}

	app := newTestApp(t, svc)

	validBody := `{"notifications":[` +
		`{"userId":"u-1","phone":"+905551112233","kind":"ASSIGNED"},` +
		`{"userId":"u-2","email":"u2@example.com","kind":"DIGEST"}]}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications/bulk", validBody)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Results) != 2 {
		t.Fatalf("results len = %d, want 2", len(parsed.Results))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications/bulk", `{"notifications":[]}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty bulk", resp.StatusCode)
	}

	overLimitItems := make([]string, 0, maxBulkSize+1)
	for i := 0; i < maxBulkSize+1; i++ {
		overLimitItems = append(overLimitItems, `{"userId":"u-1","phone":"+905551112233","kind":"ASSIGNED"}`)
	}
	overLimitBody := `{"notifications":[` + strings.Join(overLimitItems, ",") + `]}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications/bulk", overLimitBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized bulk", resp.StatusCode)
	}

	badItemBody := `{"notifications":[{"userId":"u-1","phone":"+905551112233","kind":"NOPE"}]}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications/bulk", badItemBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid item", resp.StatusCode)
	}
}

func TestNotificationHandler_CancelScheduled(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		cancelFn: func(notificationID string) bool {
			return notificationID == "n-queued"
		},
	}

	app := newTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodDelete, "/v1/notifications/n-queued/scheduled", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodDelete, "/v1/notifications/n-missing/scheduled", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown id", resp.StatusCode)
	}
}

func TestNotificationHandler_GetStats(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		statsFn: func(window service.StatsWindow) service.Stats {
			if window != service.WindowDay {
				t.Fatalf("window = %s, want day", window)
			}
			return service.Stats{
				Total:       5,
				Successful:  4,
				Failed:      1,
				ByChannel:   map[domain.Channel]int{domain.ChannelWhatsApp: 3, domain.ChannelEmail: 1},
				AvgAttempts: 1.4,
			}
		},
	}

	app := newTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/stats?window=day", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed statsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Window != "day" || parsed.Total != 5 || parsed.Successful != 4 {
		t.Fatalf("stats = %+v, want window=day,total=5,successful=4", parsed)
	}
	if parsed.ByChannel["whatsapp"] != 3 {
		t.Fatalf("byChannel[whatsapp] = %d, want 3", parsed.ByChannel["whatsapp"])
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/stats?window=fortnight", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid window", resp.StatusCode)
	}
}

func TestNotificationHandler_GetServiceStatus(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		statusFn: func(ctx context.Context) service.Status {
			return service.Status{
				Channels: map[domain.Channel]bool{
					domain.ChannelWhatsApp: true,
					domain.ChannelSMS:      false,
					domain.ChannelEmail:    true,
				},
				QueueSize:          2,
				ActiveRateLimiters: 1,
				TrackedResults:     7,
			}
		},
	}

	app := newTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/status", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed statusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if !parsed.Channels["whatsapp"] || parsed.Channels["sms"] {
		t.Fatalf("channels = %v, want whatsapp=true,sms=false", parsed.Channels)
	}
	if parsed.QueueSize != 2 || parsed.TrackedResults != 7 {
		t.Fatalf("status = %+v, want queueSize=2,trackedResults=7", parsed)
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, nil, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz skips unconfigured backends", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, nil, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz reports healthy backends", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when a backend is down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
	})
}

type stubDeliveryService struct {
	submitFn   func(ctx context.Context, n domain.Notification) (*domain.DeliveryResult, error)
	sendBulkFn func(ctx context.Context, notifications []domain.Notification) []domain.DeliveryResult
	statsFn    func(window service.StatsWindow) service.Stats
	statusFn   func(ctx context.Context) service.Status
	cancelFn   func(notificationID string) bool
}

func (s *stubDeliveryService) Submit(ctx context.Context, n domain.Notification) (*domain.DeliveryResult, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, n)
	}
	return nil, errors.New("not implemented")
}

func (s *stubDeliveryService) SendBulk(ctx context.Context, notifications []domain.Notification) []domain.DeliveryResult {
	if s.sendBulkFn != nil {
		return s.sendBulkFn(ctx, notifications)
	}
	return nil
}

func (s *stubDeliveryService) Stats(window service.StatsWindow) service.Stats {
	if s.statsFn != nil {
		return s.statsFn(window)
	}
	return service.Stats{}
}

func (s *stubDeliveryService) ServiceStatus(ctx context.Context) service.Status {
	if s.statusFn != nil {
		return s.statusFn(ctx)
	}
	return service.Status{}
}

func (s *stubDeliveryService) Cancel(notificationID string) bool {
	if s.cancelFn != nil {
		return s.cancelFn(notificationID)
	}
	return false
}

func newTestApp(t *testing.T, svc DeliveryService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterNotificationRoutes(app, svc); err != nil {
		t.Fatalf("RegisterNotificationRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }
