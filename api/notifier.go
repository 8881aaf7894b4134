package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/fitgrid/roster-engine/schedule"
)

// ZapNotifier logs state-transition events. It stands in for the real
// notification pipeline (mail, push); delivery mechanics are out of scope
// for the engine, which only requires a one-way sink.
type ZapNotifier struct {
	Log *zap.Logger
}

var _ schedule.Notifier = (*ZapNotifier)(nil)

func (n *ZapNotifier) Notify(_ context.Context, event schedule.TransitionEvent) {
	fields := []zap.Field{
		zap.String("request_id", string(event.Request.ID)),
		zap.String("kind", string(event.Request.Kind)),
		zap.String("staff_id", string(event.Request.StaffID)),
		zap.String("action", string(event.Action)),
		zap.String("actor", event.ActorID),
	}
	if event.Request.Report.HasConflicts {
		fields = append(fields, zap.Int("conflicts", event.Request.Report.Count))
	}
	n.Log.Info("request transition", fields...)
}
