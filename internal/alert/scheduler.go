// Package alert runs per-subscriber detection loops and delivers the results.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/detector"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

// Scheduler runs one detection loop per enabled subscriber, each on its own
// ticker at the subscriber's configured interval with the subscriber's coins,
// exchanges, and threshold. Subscriber loops are independent; one failing
// delivery never delays another subscriber's tick.
type Scheduler struct {
	detector    *detector.Detector
	subscribers domain.SubscriberStore
	alerts      domain.AlertStore
	notifier    *notify.Notifier
	logger      *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	det *detector.Detector,
	subscribers domain.SubscriberStore,
	alerts domain.AlertStore,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		detector:    det,
		subscribers: subscribers,
		alerts:      alerts,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "alert-scheduler")),
	}
}

// Run loads the enabled subscribers once, launches a watch loop per
// subscriber, and blocks until the context is cancelled. Subscribers enabled
// after startup are picked up on restart.
func (s *Scheduler) Run(ctx context.Context) error {
	subs, err := s.subscribers.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("alert: list enabled subscribers: %w", err)
	}

	s.logger.InfoContext(ctx, "starting subscriber loops",
		slog.Int("subscribers", len(subs)))

	if len(subs) == 0 {
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub domain.Subscriber) {
			defer wg.Done()
			s.watch(ctx, sub)
		}(sub)
	}
	wg.Wait()
	return nil
}

// watch ticks at the subscriber's interval until the context is cancelled.
func (s *Scheduler) watch(ctx context.Context, sub domain.Subscriber) {
	logger := s.logger.With(slog.String("chat_id", sub.ChatID))

	if sub.Interval <= 0 {
		logger.Warn("subscriber has no valid interval, not watching",
			slog.Int("interval", sub.Interval))
		return
	}

	ticker := time.NewTicker(time.Duration(sub.Interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, sub, logger)
		}
	}
}

// runOnce performs one detection pass for the subscriber and delivers every
// qualifying alert. Delivery and audit failures are logged per alert; the
// remaining alerts still go out.
func (s *Scheduler) runOnce(ctx context.Context, sub domain.Subscriber, logger *slog.Logger) {
	alerts := s.detector.Detect(ctx, sub.Coins, sub.Exchanges, sub.Threshold)

	for _, alert := range alerts {
		alert.ChatID = sub.ChatID

		if err := s.notifier.Send(ctx, sub.ChatID, FormatMessage(alert)); err != nil {
			logger.WarnContext(ctx, "alert delivery failed",
				slog.String("coin", alert.Coin),
				slog.String("error", err.Error()))
		}

		if err := s.alerts.Insert(ctx, alert); err != nil {
			logger.WarnContext(ctx, "alert audit insert failed",
				slog.String("alert_id", alert.ID),
				slog.String("error", err.Error()))
		}
	}
}
