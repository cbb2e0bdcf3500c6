package notify

import (
	"context"

	"stockledger/internal/usecase"

	"go.uber.org/zap"
)

// KAFKA_BROKERS未設定のときの出力先。ログに出すだけ
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(_ context.Context, events ...usecase.Event) error {
	for _, ev := range events {
		n.log.Info("notification",
			zap.String("event", string(ev.Event)),
			zap.String("entity", ev.Entity),
			zap.Int("count", ev.Count),
			zap.String("message", ev.Message),
		)
	}
	return nil
}

func (n *LogNotifier) Close(context.Context) error { return nil }
