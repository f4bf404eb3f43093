package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"okr_planning_bot/internal/app"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubReminder struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *stubReminder) RunAutoReminders(ctx context.Context) (app.ReminderRunSummary, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
		}
	}
	return app.ReminderRunSummary{PeriodsChecked: 1, Sent: 2}, s.err
}

func newTestScheduler(r AutoReminder, spec string) (*ReminderScheduler, *logrustest.Hook) {
	logger, hook := logrustest.NewNullLogger()
	return NewReminderScheduler(r, logrus.NewEntry(logger), spec), hook
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, _ := newTestScheduler(&stubReminder{}, "every day please")
	require.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(&stubReminder{}, "0 9 * * *")
	require.NoError(t, s.Start())
	s.Stop()
}

func TestRunOnceLogsSummary(t *testing.T) {
	r := &stubReminder{}
	s, hook := newTestScheduler(r, "0 9 * * *")

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), r.calls.Load())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.Data["sent"])

	r.err = errors.New("database unavailable")
	s.RunOnce(context.Background())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRunOnceSkipsOverlappingRun(t *testing.T) {
	r := &stubReminder{release: make(chan struct{})}
	s, _ := newTestScheduler(r, "0 9 * * *")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunOnce(context.Background())
	}()
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), r.calls.Load(), "a second run is skipped while the first is going")

	close(r.release)
	<-done
}
