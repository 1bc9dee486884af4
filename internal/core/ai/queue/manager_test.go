package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recipe-vision/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestManager_Submit(t *testing.T) {
	m := NewManager(2, 10)
	defer m.Close()

	boom := errors.New("boom")
	assert.NoError(t, m.Submit(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, m.Submit(context.Background(), func(context.Context) error { return boom }), boom)

	assert.Equal(t, Status{QueueLength: 0, ProcessedCount: 2, MaxQueueSize: 10, Workers: 2}, m.Status())
}

func TestManager_LimitsConcurrency(t *testing.T) {
	m := NewManager(2, 20)
	defer m.Close()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Submit(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 10, m.Status().ProcessedCount)
}

func TestManager_QueueFull(t *testing.T) {
	m := NewManager(1, 1)
	defer m.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = m.Submit(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// 佔滿隊列
	queued := make(chan error, 1)
	go func() {
		queued <- m.Submit(context.Background(), func(context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return m.Status().QueueLength == 1 }, time.Second, time.Millisecond)

	err := m.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	assert.NoError(t, <-queued)
}

func TestManager_CancelledWhileWaiting(t *testing.T) {
	m := NewManager(1, 5)
	defer m.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = m.Submit(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errc := make(chan error, 1)
	go func() {
		errc <- m.Submit(ctx, func(context.Context) error {
			ran.Store(true)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return m.Status().QueueLength == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return m.Status().QueueLength == 0 }, time.Second, time.Millisecond)
	assert.False(t, ran.Load())
}

func TestManager_Closed(t *testing.T) {
	m := NewManager(1, 1)
	m.Close()
	m.Close()

	err := m.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

type echoProvider struct{}

func (echoProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	return &provider.Response{Content: req.Messages[0].Content}, nil
}
func (echoProvider) GetModel() string          { return "echo" }
func (echoProvider) GetTimeout() time.Duration { return time.Second }
func (echoProvider) Close() error              { return nil }

func TestProvider_Generate(t *testing.T) {
	m := NewManager(1, 1)
	defer m.Close()

	p := Wrap(echoProvider{}, m)
	resp, err := p.Generate(context.Background(), provider.UserMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "echo", p.GetModel())
	assert.Equal(t, 1, m.Status().ProcessedCount)
}
