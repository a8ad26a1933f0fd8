// Package livestatus renders a task's status text to its attached sink at
// a fixed cadence, decoupling the transport's rate limit from the
// backends' progress frequency.
package livestatus

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fetchbot/internal/registry"
	"fetchbot/internal/transport"
)

// DefaultInterval is the render cadence imposed by the transport's rate
// limit.
const DefaultInterval = 2 * time.Second

// Reader is the per-task polling loop. One reader runs per task that had a
// sink attached.
type Reader struct {
	Registry  *registry.Registry
	Messenger transport.Messenger
	Interval  time.Duration
	Logger    *logrus.Logger
}

// Run polls the task's status until the task is removed from the registry.
// Only the latest status since the last render is shown; identical renders
// are skipped, and a transport "not modified" reply counts as success. Any
// other render failure ends the loop: the sink is assumed gone for good.
// Blocks; callers run it in its own goroutine.
func (r *Reader) Run(ctx context.Context, task *registry.Task, sink transport.MessageRef) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := r.Logger
	if logger == nil {
		logger = logrus.New()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastText := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-task.Done():
			return
		case <-ticker.C:
		}

		text, ok := r.Registry.Status(task.SubmitterID)
		if !ok {
			return
		}
		if text == "" || text == lastText {
			continue
		}
		if err := r.Messenger.Edit(ctx, sink, text); err != nil {
			if errors.Is(err, transport.ErrNotModified) {
				lastText = text
				continue
			}
			logger.WithField("user_id", task.SubmitterID).Errorf("live status render: %v", err)
			return
		}
		lastText = text
	}
}
