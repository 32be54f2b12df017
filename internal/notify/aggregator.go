package notify

import (
	"context"
	"time"

	"github.com/w3irdrobot/bullhorn/internal/ops"
)

// aggregator coalesces bursts of zap amounts into a single notification.
// The window is a quiet-period debounce: every arrival restarts the timer
// at its full duration, and the notification fires only once the stream
// has gone quiet.
type aggregator struct {
	notifier Notifier
	window   time.Duration
	logger   *ops.Logger
}

func newAggregator(notifier Notifier, window time.Duration, logger *ops.Logger) *aggregator {
	return &aggregator{
		notifier: notifier,
		window:   window,
		logger:   logger.WithComponent("zap-aggregator"),
	}
}

// Run consumes millisat amounts until the channel closes. While idle no
// timer is running; the first amount opens a window. Closure of the
// channel flushes any open window and terminates.
func (a *aggregator) Run(ctx context.Context, amounts <-chan int64) {
	for {
		amount, ok := <-amounts
		if !ok {
			return
		}

		total := amount
		a.logger.LogZapWindow(total, true)

		timer := time.NewTimer(a.window)
	window:
		for {
			select {
			case <-timer.C:
				break window
			case amount, ok := <-amounts:
				if !ok {
					if !timer.Stop() {
						<-timer.C
					}
					a.flush(ctx, total)
					return
				}
				total += amount
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(a.window)
			}
		}

		a.flush(ctx, total)
	}
}

func (a *aggregator) flush(ctx context.Context, totalMillisats int64) {
	a.logger.LogZapWindow(totalMillisats, false)

	n := zapNotification(totalMillisats)
	err := a.notifier.Send(ctx, n)
	a.logger.LogNotificationSent(n.Title, err)
}
