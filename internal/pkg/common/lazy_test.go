package common

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy_ConcurrentGetInitializesOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy(func() (int, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return 42, nil
	})

	var wg sync.WaitGroup
	results := make([]int, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Get()
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestLazy_RetriesAfterFailure(t *testing.T) {
	var calls int
	l := NewLazy(func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("model file missing")
		}
		return "ready", nil
	})

	_, err := l.Get()
	require.Error(t, err)
	assert.False(t, l.Loaded())

	v, err := l.Get()
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
	assert.True(t, l.Loaded())

	// 成功後不再初始化
	_, err = l.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLazy_PeekAndLoadedDoNotInitialize(t *testing.T) {
	var calls int
	l := NewLazy(func() (int, error) {
		calls++
		return 7, nil
	})

	assert.False(t, l.Loaded())
	v, ok := l.Peek()
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Zero(t, calls)

	_, err := l.Get()
	require.NoError(t, err)

	v, ok = l.Peek()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}
