package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serhatipek/choreline/internal/channel"
	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/prefs"
)

func bulkNotifications(n int) []domain.Notification {
	notifications := make([]domain.Notification, 0, n)
	for i := 0; i < n; i++ {
		notification := testNotification(domain.KindReminder, domain.PriorityMedium)
		notification.ID = fmt.Sprintf("n-%d", i)
		notification.Recipient.UserID = fmt.Sprintf("u-%d", i)
		notifications = append(notifications, notification)
	}
	return notifications
}

func TestService_SendBulkPreservesOrderAndIsolation(t *testing.T) {
	t.Parallel()

	whatsapp := workingAdapter(domain.ChannelWhatsApp)
	svc := newTestService(t, channel.NewRegistry(whatsapp), prefs.NewMemoryStore(), newFakeCounter())

	notifications := bulkNotifications(12)
	notifications[4].Recipient.UserID = "" // fails validation

	results := svc.SendBulk(context.Background(), notifications)

	if len(results) != 12 {
		t.Fatalf("results = %d, want 12", len(results))
	}
	for i, result := range results {
		if i == 4 {
			if result.Success || result.Error == "" {
				t.Fatalf("results[4] = %+v, want failure with error", result)
			}
			continue
		}
		if !result.Success {
			t.Fatalf("results[%d] = %+v, want success", i, result)
		}
		if result.NotificationID != fmt.Sprintf("n-%d", i) {
			t.Fatalf("results[%d].NotificationID = %s, want n-%d", i, result.NotificationID, i)
		}
	}
	if whatsapp.sends() != 11 {
		t.Fatalf("adapter sends = %d, want 11", whatsapp.sends())
	}
}

func TestService_SendBulkRecoversFromPanic(t *testing.T) {
	t.Parallel()

	whatsapp := &fakeAdapter{
		channel:    domain.ChannelWhatsApp,
		configured: true,
		sendFn: func(ctx context.Context, to string, msg channel.Message) (*channel.SendResponse, error) {
			if to == "+900000000007" {
				panic("adapter blew up")
			}
			return &channel.SendResponse{ProviderMessageID: "ok"}, nil
		},
	}
	svc := newTestService(t, channel.NewRegistry(whatsapp), prefs.NewMemoryStore(), newFakeCounter())

	notifications := bulkNotifications(9)
	notifications[7].Recipient.Phone = "+900000000007"

	results := svc.SendBulk(context.Background(), notifications)

	if results[7].Success || results[7].Error == "" {
		t.Fatalf("results[7] = %+v, want recovered failure", results[7])
	}
	for i, result := range results {
		if i == 7 {
			continue
		}
		if !result.Success {
			t.Fatalf("results[%d] = %+v, sibling must not be affected by the panic", i, result)
		}
	}
}

func TestService_SendBulkPausesBetweenBatches(t *testing.T) {
	t.Parallel()

	whatsapp := workingAdapter(domain.ChannelWhatsApp)
	svc := newTestService(t, channel.NewRegistry(whatsapp), prefs.NewMemoryStore(), newFakeCounter())

	var mu sync.Mutex
	var pauses []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		pauses = append(pauses, d)
		return nil
	}

	// 25 requests with a batch size of 10: three batches, two pauses, no
	// trailing pause after the final batch.
	results := svc.SendBulk(context.Background(), bulkNotifications(25))
	if len(results) != 25 {
		t.Fatalf("results = %d, want 25", len(results))
	}
	if len(pauses) != 2 {
		t.Fatalf("pauses = %d, want 2", len(pauses))
	}
	for _, pause := range pauses {
		if pause != defaultBulkPause {
			t.Fatalf("pause = %v, want %v", pause, defaultBulkPause)
		}
	}

	pauses = nil
	if results := svc.SendBulk(context.Background(), bulkNotifications(10)); len(results) != 10 {
		t.Fatalf("results = %d, want 10", len(results))
	}
	if len(pauses) != 0 {
		t.Fatalf("pauses = %d for a single batch, want 0", len(pauses))
	}
}

func TestService_SendBulkEmptyInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, channel.NewRegistry(workingAdapter(domain.ChannelWhatsApp)), prefs.NewMemoryStore(), newFakeCounter())

	if results := svc.SendBulk(context.Background(), nil); len(results) != 0 {
		t.Fatalf("results = %d, want 0", len(results))
	}
}
