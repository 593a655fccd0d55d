package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Multi fans a notification out to several delivery channels. Delivery
// succeeds if at least one channel accepts the message.
type Multi struct {
	targets []Notifier
}

func NewMulti(targets ...Notifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) Send(ctx context.Context, n Notification) error {
	if len(m.targets) == 0 {
		return fmt.Errorf("no delivery channels configured")
	}
	var failed int
	for _, target := range m.targets {
		if err := target.Send(ctx, n); err != nil {
			slog.Warn("notification delivery failed", "type", n.Type, "error", err)
			failed++
		}
	}
	if failed == len(m.targets) {
		return fmt.Errorf("all %d delivery channels failed", failed)
	}
	return nil
}
