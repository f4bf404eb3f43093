package app

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	periodTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "okr",
		Subsystem: "period",
		Name:      "operations_total",
		Help:      "Period lifecycle operations broken down by operation and result.",
	}, []string{"operation", "result"})

	nudgesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "okr",
		Subsystem: "nudge",
		Name:      "notifications_total",
		Help:      "Reminder notifications broken down by trigger and result.",
	}, []string{"trigger", "result"})

	autoReminderRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "okr",
		Subsystem: "auto_reminder",
		Name:      "runs_total",
		Help:      "Automatic reminder runs broken down by result.",
	}, []string{"result"})
)

func recordOperation(op Operation, err error) {
	periodTransitions.WithLabelValues(string(op), resultLabel(err)).Inc()
}

func recordNudge(trigger string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	nudgesDispatched.WithLabelValues(trigger, result).Inc()
}

func recordAutoReminderRun(err error) {
	autoReminderRuns.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAuthorized):
		return "unauthorized"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrInvalidStateTransition):
		return "conflict"
	case errors.Is(err, ErrDuplicateResource):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
