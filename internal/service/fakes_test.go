package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serhatipek/choreline/internal/channel"
	"github.com/serhatipek/choreline/internal/domain"
	"github.com/serhatipek/choreline/internal/prefs"
	"github.com/serhatipek/choreline/internal/repository"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	channel       domain.Channel
	configured    bool
	sendFn        func(ctx context.Context, to string, msg channel.Message) (*channel.SendResponse, error)
	mu            sync.Mutex
	sendCount     int
	lastRecipient string
}

func (a *fakeAdapter) Channel() domain.Channel { return a.channel }
func (a *fakeAdapter) IsConfigured() bool      { return a.configured }

func (a *fakeAdapter) Send(ctx context.Context, to string, msg channel.Message) (*channel.SendResponse, error) {
	a.mu.Lock()
	a.sendCount++
	a.lastRecipient = to
	a.mu.Unlock()

	if a.sendFn != nil {
		return a.sendFn(ctx, to, msg)
	}
	return &channel.SendResponse{ProviderMessageID: "msg-" + string(a.channel)}, nil
}

func (a *fakeAdapter) sends() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sendCount
}

func workingAdapter(ch domain.Channel) *fakeAdapter {
	return &fakeAdapter{channel: ch, configured: true}
}

func failingAdapter(ch domain.Channel, err error) *fakeAdapter {
	return &fakeAdapter{
		channel:    ch,
		configured: true,
		sendFn: func(ctx context.Context, to string, msg channel.Message) (*channel.SendResponse, error) {
			return nil, err
		},
	}
}

type fakeCounter struct {
	mu       sync.Mutex
	counts   map[string]int
	peekFn   func(ctx context.Context, key string) (int, error)
	recordFn func(ctx context.Context, key string) error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int)}
}

func (c *fakeCounter) Peek(ctx context.Context, key string) (int, error) {
	if c.peekFn != nil {
		return c.peekFn(ctx, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], nil
}

func (c *fakeCounter) Record(ctx context.Context, key string) error {
	if c.recordFn != nil {
		return c.recordFn(ctx, key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return nil
}

func (c *fakeCounter) Active(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts), nil
}

func (c *fakeCounter) recorded(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

type fakeArchive struct {
	mu      sync.Mutex
	saved   []domain.DeliveryResult
	saveErr error
}

func (a *fakeArchive) SaveResult(ctx context.Context, notification domain.Notification, result domain.DeliveryResult) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, result)
	return nil
}

func (a *fakeArchive) ListRecent(ctx context.Context, userID string, limit int) ([]repository.DeliveryRecordModel, error) {
	return nil, nil
}

func testRecipient() domain.Recipient {
	return domain.Recipient{
		UserID: "u-1",
		Name:   "Ayse",
		Phone:  "+905551112233",
		Email:  "ayse@example.com",
	}
}

func testNotification(kind domain.Kind, priority domain.Priority) domain.Notification {
	return domain.Notification{
		ID:        "n-1",
		Recipient: testRecipient(),
		Kind:      kind,
		Priority:  priority,
		Payload:   map[string]string{"chore": "dishes"},
		CreatedAt: time.Now(),
	}
}

func newTestService(
	t *testing.T,
	registry channel.Registry,
	store prefs.Store,
	counter *fakeCounter,
) *Service {
	t.Helper()

	svc, err := New(registry, store, counter, nil, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}
