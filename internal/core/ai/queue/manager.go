package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull 隊列已滿
	ErrQueueFull = errors.New("queue is full")
	// ErrClosed 隊列管理器已關閉
	ErrClosed = errors.New("queue manager is closed")
)

// job 隊列請求
type job struct {
	ctx    context.Context
	run    func(ctx context.Context) error
	result chan error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 隊列管理器，固定數量的 worker 依序處理請求
type Manager struct {
	workers   int
	maxSize   int
	queue     chan *job
	done      chan struct{}
	wg        sync.WaitGroup
	processed atomic.Int64
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器並啟動 worker
func NewManager(workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = workers
	}

	m := &Manager{
		workers: workers,
		maxSize: maxSize,
		queue:   make(chan *job, maxSize),
		done:    make(chan struct{}),
	}

	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case j := <-m.queue:
			m.process(j)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) process(j *job) {
	// 等待期間已取消的請求不再執行
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}
	err := j.run(j.ctx)
	m.processed.Add(1)
	j.result <- err
}

// Submit 將請求加入隊列並等待結果，隊列已滿時立即返回 ErrQueueFull
func (m *Manager) Submit(ctx context.Context, run func(ctx context.Context) error) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	j := &job{
		ctx:    ctx,
		run:    run,
		result: make(chan error, 1),
	}

	select {
	case m.queue <- j:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
	default:
		common.LogWarn("Request rejected, queue is full",
			zap.Int("max_queue_size", m.maxSize),
		)
		return ErrQueueFull
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Do 在隊列中執行 fn 並返回其結果
func Do[T any](ctx context.Context, m *Manager, fn func(ctx context.Context) (T, error)) (T, error) {
	out := make(chan T, 1)
	err := m.Submit(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out <- v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-out, nil
}

// Status 獲取隊列狀態
func (m *Manager) Status() Status {
	return Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(m.processed.Load()),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 關閉隊列管理器，等待執行中的請求完成
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()

		// 尚未處理的請求直接返回
		for {
			select {
			case j := <-m.queue:
				j.result <- ErrClosed
			default:
				return
			}
		}
	})
}
