// Package notify delivers "application submitted" messages to the user's
// configured channels without ever blocking the apply cycle.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobsuitex/autoapply/internal/config"
	"github.com/jobsuitex/autoapply/pkg/models"
)

var ErrUnknownChannel = errors.New("notify: unknown channel")

// Channel is one delivery mechanism. Send must honour ctx.
type Channel interface {
	Name() string
	Send(ctx context.Context, destination, message string) error
}

// Dispatcher fans a message out to targets, one goroutine per target.
type Dispatcher struct {
	channels map[string]Channel
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Each send is bounded by timeout.
func NewDispatcher(timeout time.Duration, channels ...Channel) *Dispatcher {
	d := &Dispatcher{channels: make(map[string]Channel, len(channels)), timeout: timeout}
	for _, c := range channels {
		d.channels[c.Name()] = c
	}
	return d
}

// Notify starts delivery of message to every target and returns at once.
// Failures are logged per channel and never reported to the caller.
func (d *Dispatcher) Notify(message string, targets []models.NotificationTarget) {
	for _, t := range targets {
		d.wg.Add(1)
		go d.send(t, message)
	}
}

// Wait blocks until every in-flight send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(t models.NotificationTarget, message string) {
	defer d.wg.Done()
	log := slog.With("channel", t.Channel, "destination", t.Destination)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in notification send", "error", r)
		}
	}()

	ch, ok := d.channels[t.Channel]
	if !ok {
		log.Warn("notification not sent", "error", fmt.Errorf("%w: %q", ErrUnknownChannel, t.Channel))
		return
	}

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := ch.Send(ctx, t.Destination, message); err != nil {
		log.Warn("notification failed", "error", err)
		return
	}
	log.Debug("notification sent")
}

// DefaultTargets are the operator-wide targets from config, added to every
// job's own targets.
func DefaultTargets(cfg config.NotifyConfig) []models.NotificationTarget {
	var targets []models.NotificationTarget
	if cfg.EmailTo != "" {
		targets = append(targets, models.NotificationTarget{Channel: ChannelEmail, Destination: cfg.EmailTo})
	}
	if cfg.WebhookURL != "" {
		targets = append(targets, models.NotificationTarget{Channel: ChannelWebhook, Destination: cfg.WebhookURL})
	}
	if cfg.RedisChannel != "" {
		targets = append(targets, models.NotificationTarget{Channel: ChannelRedis, Destination: cfg.RedisChannel})
	}
	return targets
}
