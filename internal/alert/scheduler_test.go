package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/detector"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSubscriberStore struct {
	domain.SubscriberStore
	subs []domain.Subscriber
	err  error
}

func (f *fakeSubscriberStore) ListEnabled(context.Context) ([]domain.Subscriber, error) {
	return f.subs, f.err
}

type fakeAlertStore struct {
	mu       sync.Mutex
	inserted []domain.Alert
	err      error
}

func (f *fakeAlertStore) Insert(_ context.Context, alert domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, alert)
	return nil
}

func (f *fakeAlertStore) ListRecent(context.Context, int) ([]domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserted, nil
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []string // chatID + "|" + text
	err   error
	name  string
}

func (f *fakeSender) Send(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, chatID+"|"+text)
	return nil
}

func (f *fakeSender) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func seededDetector(t *testing.T) *detector.Detector {
	t.Helper()
	prices := memory.NewPriceStore()
	require.NoError(t, prices.Upsert(context.Background(), "BTC/USD", "gemini",
		domain.Float(100), domain.Float(99), time.Now().UTC()))
	require.NoError(t, prices.Upsert(context.Background(), "BTC/USD", "bitstamp",
		domain.Float(90), domain.Float(89), time.Now().UTC()))
	return detector.New(prices, discardLogger())
}

func testSubscriber() domain.Subscriber {
	return domain.Subscriber{
		ChatID:        "chat-1",
		Coins:         []string{"BTC/USD"},
		Exchanges:     []string{"gemini", "bitstamp"},
		Threshold:     5,
		Interval:      60,
		Notifications: true,
	}
}

func TestRunOnceDeliversAndAudits(t *testing.T) {
	sender := &fakeSender{}
	alerts := &fakeAlertStore{}
	s := NewScheduler(seededDetector(t),
		&fakeSubscriberStore{}, alerts,
		notify.NewNotifier([]notify.Sender{sender}, discardLogger()),
		discardLogger())

	s.runOnce(context.Background(), testSubscriber(), discardLogger())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "chat-1|#BTC/USD\nBid is higher on *gemini*\nthan ask on *bitstamp* by *10%*", sender.sent[0])

	require.Len(t, alerts.inserted, 1)
	assert.Equal(t, "chat-1", alerts.inserted[0].ChatID)
	assert.Equal(t, 10.0, alerts.inserted[0].SpreadPercent)
}

func TestRunOnceDeliveryFailureStillAudits(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	alerts := &fakeAlertStore{}
	s := NewScheduler(seededDetector(t),
		&fakeSubscriberStore{}, alerts,
		notify.NewNotifier([]notify.Sender{sender}, discardLogger()),
		discardLogger())

	s.runOnce(context.Background(), testSubscriber(), discardLogger())

	assert.Len(t, alerts.inserted, 1)
}

func TestRunOnceNoQualifyingSpread(t *testing.T) {
	sender := &fakeSender{}
	alerts := &fakeAlertStore{}
	s := NewScheduler(seededDetector(t),
		&fakeSubscriberStore{}, alerts,
		notify.NewNotifier([]notify.Sender{sender}, discardLogger()),
		discardLogger())

	sub := testSubscriber()
	sub.Threshold = 50
	s.runOnce(context.Background(), sub, discardLogger())

	assert.Empty(t, sender.sent)
	assert.Empty(t, alerts.inserted)
}

func TestRunFailsWhenListingSubscribersFails(t *testing.T) {
	s := NewScheduler(seededDetector(t),
		&fakeSubscriberStore{err: errors.New("db down")}, &fakeAlertStore{},
		notify.NewNotifier(nil, discardLogger()),
		discardLogger())

	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestRunBlocksWithNoSubscribers(t *testing.T) {
	s := NewScheduler(seededDetector(t),
		&fakeSubscriberStore{}, &fakeAlertStore{},
		notify.NewNotifier(nil, discardLogger()),
		discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestWatchSkipsInvalidInterval(t *testing.T) {
	s := NewScheduler(seededDetector(t),
		&fakeSubscriberStore{}, &fakeAlertStore{},
		notify.NewNotifier(nil, discardLogger()),
		discardLogger())

	sub := testSubscriber()
	sub.Interval = 0

	done := make(chan struct{})
	go func() {
		s.watch(context.Background(), sub)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch should return immediately for a zero interval")
	}
}
