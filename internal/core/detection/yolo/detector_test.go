package yolo

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	output []float32
	shape  []int
	runs   int
	closed bool
}

func (f *fakeEngine) InputSize() (int, int) { return 640, 640 }

func (f *fakeEngine) Run(input []float32) ([]float32, []int, error) {
	f.runs++
	if len(input) != 640*640*3 {
		return nil, nil, errors.New("bad input size")
	}
	return f.output, f.shape, nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

type fakeLoader struct {
	img image.Image
	err error
}

func (f fakeLoader) Load(string) (image.Image, string, error) {
	return f.img, "png", f.err
}

// channelsFirst 組出 [1, 4+C, N] 的輸出
func channelsFirst(cands [][]float32) ([]float32, []int) {
	channels, n := len(cands[0]), len(cands)
	out := make([]float32, channels*n)
	for i, c := range cands {
		for ch, v := range c {
			out[ch*n+i] = v
		}
	}
	return out, []int{1, channels, n}
}

// 原圖 1280x640 縮放 0.5，上下各填充 160
func testCandidates() [][]float32 {
	return [][]float32{
		// 原圖 (100,100)-(300,200)，類別 1
		{100.0 / 640, 235.0 / 640, 100.0 / 640, 50.0 / 640, 0.1, 0.9},
		// 與上一個高度重疊，分數較低
		{101.0 / 640, 235.0 / 640, 100.0 / 640, 50.0 / 640, 0.05, 0.6},
		// 低於門檻
		{300.0 / 640, 300.0 / 640, 20.0 / 640, 20.0 / 640, 0.2, 0.1},
		// 空的候選框，讓 N 大於通道數
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}
}

func TestDetector_Predict(t *testing.T) {
	out, shape := channelsFirst(testCandidates())
	engine := &fakeEngine{output: out, shape: shape}
	loads := 0

	d := NewDetector(func() (Engine, error) {
		loads++
		return engine, nil
	}, fakeLoader{img: image.NewRGBA(image.Rect(0, 0, 1280, 640))}, []string{"apple", "banana"}, Options{NormalizedBoxes: true})

	assert.False(t, d.Loaded())

	boxes, err := d.Predict(context.Background(), "img.png", 0.3)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, boxes[0].ClassIndex)
	assert.InDelta(t, 0.9, boxes[0].Score, 1e-6)
	assert.InDelta(t, 100, boxes[0].X1, 0.5)
	assert.InDelta(t, 100, boxes[0].Y1, 0.5)
	assert.InDelta(t, 300, boxes[0].X2, 0.5)
	assert.InDelta(t, 200, boxes[0].Y2, 0.5)

	_, err = d.Predict(context.Background(), "img.png", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 2, engine.runs)
	assert.True(t, d.Loaded())

	require.NoError(t, d.Close())
	assert.True(t, engine.closed)
}

func TestDetector_LoadFailureIsRetried(t *testing.T) {
	out, shape := channelsFirst(testCandidates())
	attempts := 0

	d := NewDetector(func() (Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model file missing")
		}
		return &fakeEngine{output: out, shape: shape}, nil
	}, fakeLoader{img: image.NewRGBA(image.Rect(0, 0, 640, 640))}, nil, Options{NormalizedBoxes: true})

	_, err := d.Predict(context.Background(), "img.png", 0.3)
	require.Error(t, err)
	assert.False(t, d.Loaded())

	_, err = d.Predict(context.Background(), "img.png", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, COCOLabels, d.Labels())
}

func TestDetector_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	out, shape := channelsFirst(testCandidates())
	var mu sync.Mutex
	loads := 0

	d := NewDetector(func() (Engine, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return &lockedEngine{fakeEngine: fakeEngine{output: out, shape: shape}}, nil
	}, fakeLoader{img: image.NewRGBA(image.Rect(0, 0, 64, 64))}, nil, Options{NormalizedBoxes: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Predict(context.Background(), "img.png", 0.3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loads)
}

type lockedEngine struct {
	mu sync.Mutex
	fakeEngine
}

func (l *lockedEngine) Run(input []float32) ([]float32, []int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fakeEngine.Run(input)
}

func TestDetector_ImageErrorSkipsModelLoad(t *testing.T) {
	loads := 0
	d := NewDetector(func() (Engine, error) {
		loads++
		return &fakeEngine{}, nil
	}, fakeLoader{err: errors.New("corrupt")}, nil, Options{})

	_, err := d.Predict(context.Background(), "img.png", 0.3)
	require.Error(t, err)
	assert.Zero(t, loads)
}

func TestDecode_TransposedOutput(t *testing.T) {
	cands := testCandidates()
	out := make([]float32, 0, len(cands)*len(cands[0]))
	for _, c := range cands {
		out = append(out, c...)
	}

	tr := transform{scale: 0.5, padY: 160, srcW: 1280, srcH: 640}
	boxes, err := decode(out, []int{1, len(cands), len(cands[0])}, 0.3, true, 640, 640, tr)
	require.NoError(t, err)
	assert.Len(t, boxes, 2)
}

func TestDecode_BadShape(t *testing.T) {
	_, err := decode(make([]float32, 10), []int{1, 5, 3}, 0.3, true, 640, 640, transform{scale: 1})
	assert.Error(t, err)

	_, err = decode(make([]float32, 12), []int{1, 4, 3}, 0.3, true, 640, 640, transform{scale: 1})
	assert.Error(t, err)
}

func TestNMS_KeepsDifferentClasses(t *testing.T) {
	boxes := []Box{
		{ClassIndex: 0, Score: 0.5, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassIndex: 1, Score: 0.9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassIndex: 1, Score: 0.8, X1: 1, Y1: 1, X2: 10, Y2: 10},
	}

	kept := nms(boxes, 0.45)
	require.Len(t, kept, 2)
	assert.InDelta(t, 0.9, kept[0].Score, 1e-9)
	assert.Equal(t, 0, kept[1].ClassIndex)
}

func TestLetterbox_PadsWithGray(t *testing.T) {
	input, tr := letterbox(image.NewRGBA(image.Rect(0, 0, 100, 50)), 64, 64)

	require.Len(t, input, 64*64*3)
	assert.InDelta(t, 0.64, tr.scale, 1e-9)
	assert.InDelta(t, 114.0/255, input[0], 1e-6)
	// 中心點落在縮放後的黑色圖片內
	center := (32*64 + 32) * 3
	assert.InDelta(t, 0, input[center], 1e-6)
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels("")
	require.NoError(t, err)
	assert.Len(t, labels, 80)

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("tomato\n\n egg \nrice\n"), 0o644))
	labels, err = LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tomato", "egg", "rice"}, labels)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
