package notify

import (
	"context"
	"log/slog"

	"rentboard/internal/app/policies"
)

// LogNotifier writes notifications to the structured log instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	if n.Logger == nil {
		return nil
	}
	n.Logger.InfoContext(ctx, "notification", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
