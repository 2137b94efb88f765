package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/service"
)

const maxBulkSize = 1000

type DeliveryService interface {
	Submit(ctx context.Context, n domain.Notification) (*domain.DeliveryResult, error)
	SendBulk(ctx context.Context, notifications []domain.Notification) []domain.DeliveryResult
	Stats(window service.StatsWindow) service.Stats
	ServiceStatus(ctx context.Context) service.Status
	Cancel(notificationID string) bool
}

type NotificationHandler struct {
	service DeliveryService
}

func NewNotificationHandler(service DeliveryService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service DeliveryService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.SendNotification)
	v1.Post("/notifications/bulk", h.SendBulk)
	v1.Delete("/notifications/:id/scheduled", h.CancelScheduled)
	v1.Get("/stats", h.GetStats)
	v1.Get("/status", h.GetServiceStatus)

	return nil
}

type notificationRequest struct {
	ID               string            `json:"id,omitempty"`
	UserID           string            `json:"userId"`
	Name             string            `json:"name"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Kind             string            `json:"kind"`
	Priority         string            `json:"priority"`
	Payload          map[string]string `json:"payload"`
	Reason           string            `json:"reason"`
	ScheduleAt       *time.Time        `json:"scheduleAt,omitempty"`
	Channel          string            `json:"channel,omitempty"`
	BypassQuietHours bool              `json:"bypassQuietHours,omitempty"`
}

type bulkRequest struct {
	Notifications []notificationRequest `json:"notifications"`
}

type attemptResponse struct {
	Channel           string    `json:"channel"`
	Success           bool      `json:"success"`
	Error             string    `json:"error,omitempty"`
	At                time.Time `json:"at"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
}

type resultResponse struct {
	NotificationID string            `json:"notificationId,omitempty"`
	Success        bool              `json:"success"`
	Channel        string            `json:"channel,omitempty"`
	Attempts       []attemptResponse `json:"attempts"`
	Error          string            `json:"error,omitempty"`
	DeliveredAt    *time.Time        `json:"deliveredAt,omitempty"`
	ScheduledAt    *time.Time        `json:"scheduledAt,omitempty"`
}

type statsResponse struct {
	Window      string         `json:"window"`
	Total       int            `json:"total"`
	Successful  int            `json:"successful"`
	Failed      int            `json:"failed"`
	ByChannel   map[string]int `json:"byChannel"`
	AvgAttempts float64        `json:"avgAttempts"`
}

type statusResponse struct {
	Channels           map[string]bool `json:"channels"`
	QueueSize          int             `json:"queueSize"`
	ActiveRateLimiters int             `json:"activeRateLimiters"`
	TrackedResults     int             `json:"trackedResults"`
}

func (h *NotificationHandler) SendNotification(c *fiber.Ctx) error {
	var req notificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	notification, err := req.toDomain()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Submit(c.Context(), *notification)
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(resultToResponse(*result))
}

func (h *NotificationHandler) SendBulk(c *fiber.Ctx) error {
	var req bulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Notifications) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "bulk request must include at least one notification")
	}
	if len(req.Notifications) > maxBulkSize {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("bulk size exceeds %d", maxBulkSize))
	}

	notifications := make([]domain.Notification, 0, len(req.Notifications))
	for i := range req.Notifications {
		notification, err := req.Notifications[i].toDomain()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("notification %d: %s", i, err.Error()))
		}
		notifications = append(notifications, *notification)
	}

	results := h.service.SendBulk(c.Context(), notifications)

	responses := make([]resultResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, resultToResponse(result))
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"results": responses,
	})
}

func (h *NotificationHandler) CancelScheduled(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "notification id is required")
	}

	if !h.service.Cancel(id) {
		return fiber.NewError(fiber.StatusNotFound, "no scheduled notification with that id")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) GetStats(c *fiber.Ctx) error {
	windowParam := c.Query("window", string(service.WindowHour))
	window, err := service.ParseStatsWindow(windowParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	stats := h.service.Stats(window)

	byChannel := make(map[string]int, len(stats.ByChannel))
	for ch, count := range stats.ByChannel {
		byChannel[strings.ToLower(ch.String())] = count
	}

	return c.JSON(statsResponse{
		Window:      string(window),
		Total:       stats.Total,
		Successful:  stats.Successful,
		Failed:      stats.Failed,
		ByChannel:   byChannel,
		AvgAttempts: stats.AvgAttempts,
	})
}

func (h *NotificationHandler) GetServiceStatus(c *fiber.Ctx) error {
	status := h.service.ServiceStatus(c.Context())

	channels := make(map[string]bool, len(status.Channels))
	for ch, configured := range status.Channels {
		channels[strings.ToLower(ch.String())] = configured
	}

	return c.JSON(statusResponse{
		Channels:           channels,
		QueueSize:          status.QueueSize,
		ActiveRateLimiters: status.ActiveRateLimiters,
		TrackedResults:     status.TrackedResults,
	})
}

func (r notificationRequest) toDomain() (*domain.Notification, error) {
	kind, err := domain.ParseKindFromString(r.Kind)
	if err != nil {
		return nil, err
	}

	priority := domain.PriorityMedium
	if strings.TrimSpace(r.Priority) != "" {
		priority, err = domain.ParsePriorityFromString(r.Priority)
		if err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(r.Phone) == "" && strings.TrimSpace(r.Email) == "" {
		return nil, fmt.Errorf("%w: at least one of phone or email is required", domain.ErrValidation)
	}

	var forced *domain.Channel
	if strings.TrimSpace(r.Channel) != "" {
		ch, err := domain.ParseChannelFromString(r.Channel)
		if err != nil {
			return nil, err
		}
		forced = &ch
	}

	notification := &domain.Notification{
		ID: strings.TrimSpace(r.ID),
		Recipient: domain.Recipient{
			UserID: strings.TrimSpace(r.UserID),
			Name:   strings.TrimSpace(r.Name),
			Phone:  strings.TrimSpace(r.Phone),
			Email:  strings.TrimSpace(r.Email),
		},
		Kind:             kind,
		Priority:         priority,
		Payload:          r.Payload,
		Reason:           strings.TrimSpace(r.Reason),
		ScheduleAt:       r.ScheduleAt,
		ForceChannel:     forced,
		BypassQuietHours: r.BypassQuietHours,
	}

	if err := notification.Validate(); err != nil {
		return nil, err
	}
	return notification, nil
}

func resultToResponse(result domain.DeliveryResult) resultResponse {
	attempts := make([]attemptResponse, 0, len(result.Attempts))
	for _, attempt := range result.Attempts {
		attempts = append(attempts, attemptResponse{
			Channel:           strings.ToLower(attempt.Channel.String()),
			Success:           attempt.Success,
			Error:             attempt.Error,
			At:                attempt.At,
			ProviderMessageID: attempt.ProviderMessageID,
		})
	}

	resp := resultResponse{
		NotificationID: result.NotificationID,
		Success:        result.Success,
		Attempts:       attempts,
		Error:          result.Error,
		ScheduledAt:    result.ScheduledAt,
	}
	if result.Channel != "" {
		resp.Channel = strings.ToLower(result.Channel.String())
	}
	if !result.DeliveredAt.IsZero() {
		deliveredAt := result.DeliveredAt
		resp.DeliveredAt = &deliveredAt
	}
	return resp
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
