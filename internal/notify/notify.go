package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notification is a fire-and-forget email/SMS side effect of an
// account or transaction event.
type Notification struct {
	ClientID  string    `json:"client_id"`
	Email     string    `json:"email"`
	Telephone string    `json:"telephone"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Sender delivers notifications. Implementations may fail; callers go
// through Dispatch, which guarantees the failure stops here.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatch sends best-effort. Transport errors are logged and
// swallowed; they never reach the caller and never roll back the
// mutation that triggered them.
func Dispatch(ctx context.Context, logger *zap.Logger, sender Sender, n Notification) {
	if err := sender.Send(ctx, n); err != nil {
		logger.Warn("notification dispatch failed",
			zap.String("client_id", n.ClientID),
			zap.Error(err))
		return
	}
	logger.Debug("notification dispatched", zap.String("client_id", n.ClientID))
}

// LogSender is the fallback implementation: it only logs the delivery,
// the way a simulated mail/SMS transport would.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.Logger.Info("notification",
		zap.String("client_id", n.ClientID),
		zap.String("email", n.Email),
		zap.String("telephone", n.Telephone),
		zap.String("message", n.Message))
	return nil
}
