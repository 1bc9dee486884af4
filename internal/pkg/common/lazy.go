package common

import "sync"

// Lazy 延遲初始化的單例，同一時間只會有一個初始化在進行。
// 初始化成功後結果會被保留；失敗時不保留，下一次 Get 會重試。
type Lazy[T any] struct {
	mu     sync.Mutex
	init   func() (T, error)
	value  T
	loaded bool
}

// NewLazy 創建延遲初始化單例
func NewLazy[T any](init func() (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get 返回單例，必要時執行初始化
func (l *Lazy[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.value, nil
	}

	v, err := l.init()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.loaded = true
	return v, nil
}

// Loaded 回報單例是否已完成初始化
func (l *Lazy[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Peek 返回已初始化的值，不觸發初始化
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.loaded
}
