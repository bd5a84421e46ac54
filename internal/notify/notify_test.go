package notify_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sensorhub/internal/alert"
	"codeberg.org/mutker/sensorhub/internal/errors"
	"codeberg.org/mutker/sensorhub/internal/logger"
	"codeberg.org/mutker/sensorhub/internal/notify"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu   sync.Mutex
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func (f *fakeStream) calls() []*redis.XAddArgs {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*redis.XAddArgs(nil), f.args...)
}

var sample = alert.Alert{
	ID:        "a1",
	SensorID:  "t1",
	Kind:      alert.KindThresholdExceeded,
	Severity:  alert.SeverityCritical,
	Message:   "Kitchen: 40 °C",
	Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
}

func TestValues(t *testing.T) {
	v := notify.Values(sample)

	assert.Equal(t, "a1", v["id"])
	assert.Equal(t, "t1", v["sensor_id"])
	assert.Equal(t, "threshold_exceeded", v["type"])
	assert.Equal(t, "critical", v["severity"])
	assert.Equal(t, "Kitchen: 40 °C", v["message"])
	assert.Equal(t, "2024-01-02T03:04:05Z", v["timestamp"])
	assert.Equal(t, "false", v["acknowledged"])
}

func TestPublish(t *testing.T) {
	t.Run("capped stream", func(t *testing.T) {
		fake := &fakeStream{}
		p := notify.NewPublisher(fake, notify.Config{Stream: "alerts", MaxLen: 500}, logger.New("notify"))

		require.NoError(t, p.Publish(context.Background(), sample))

		calls := fake.calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "alerts", calls[0].Stream)
		assert.Equal(t, int64(500), calls[0].MaxLen)
		assert.True(t, calls[0].Approx)
	})

	t.Run("uncapped stream", func(t *testing.T) {
		fake := &fakeStream{}
		p := notify.NewPublisher(fake, notify.Config{Stream: "alerts"}, logger.New("notify"))

		require.NoError(t, p.Publish(context.Background(), sample))
		assert.Zero(t, fake.calls()[0].MaxLen)
	})

	t.Run("redis error", func(t *testing.T) {
		fake := &fakeStream{err: stderrors.New("connection refused")}
		p := notify.NewPublisher(fake, notify.Config{Stream: "alerts"}, logger.New("notify"))

		err := p.Publish(context.Background(), sample)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, notify.ErrPublish))
	})
}

func TestRunDrainsQueue(t *testing.T) {
	fake := &fakeStream{}
	p := notify.NewPublisher(fake, notify.Config{Stream: "alerts"}, logger.New("notify"))

	for _, id := range []string{"a1", "a2", "a3"} {
		a := sample
		a.ID = id
		p.Notify(a)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(fake.calls()) == 3 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	ids := make([]any, 0, 3)
	for _, c := range fake.calls() {
		ids = append(ids, c.Values.(map[string]any)["id"])
	}
	assert.Equal(t, []any{"a1", "a2", "a3"}, ids)
}

func TestNotifyDropsWhenFull(t *testing.T) {
	fake := &fakeStream{}
	p := notify.NewPublisher(fake, notify.Config{Stream: "alerts", QueueSize: 1}, logger.New("notify"))

	p.Notify(sample)
	p.Notify(sample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	assert.Len(t, fake.calls(), 1)
}
