package tfengine

import (
	"fmt"
	"runtime"
	"sync"

	"recipe-vision/internal/pkg/common"

	"github.com/tphakala/go-tflite"
	"go.uber.org/zap"
)

// Engine TensorFlow Lite 推論引擎，Run 以互斥鎖序列化
type Engine struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	width       int
	height      int
}

// New 載入模型並配置張量，threads <= 0 時使用 CPU 核心數
func New(modelPath string, threads int) (*Engine, error) {
	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, fmt.Errorf("cannot load model from path: %s", modelPath)
	}

	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, user_data any) {
		common.LogError("TFLite error", zap.String("message", msg))
	}, nil)
	defer options.Delete()

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter")
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed")
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.NumDims() != 4 {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("unexpected input tensor in %s", modelPath)
	}

	// NHWC
	e := &Engine{
		model:       model,
		interpreter: interpreter,
		height:      input.Dim(1),
		width:       input.Dim(2),
	}

	common.LogInfo("TFLite model loaded",
		zap.String("path", modelPath),
		zap.Int("threads", threads),
		zap.Int("input_width", e.width),
		zap.Int("input_height", e.height))
	return e, nil
}

// InputSize 返回模型輸入尺寸
func (e *Engine) InputSize() (int, int) {
	return e.width, e.height
}

// Run 執行推論，返回輸出張量的複本與形狀
func (e *Engine) Run(input []float32) ([]float32, []int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter == nil {
		return nil, nil, fmt.Errorf("engine closed")
	}

	inputTensor := e.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, nil, fmt.Errorf("cannot get input tensor")
	}
	dst := inputTensor.Float32s()
	if len(dst) != len(input) {
		return nil, nil, fmt.Errorf("input size mismatch: want %d, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	outputTensor := e.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, nil, fmt.Errorf("cannot get output tensor")
	}

	shape := make([]int, outputTensor.NumDims())
	for i := range shape {
		shape[i] = outputTensor.Dim(i)
	}
	output := make([]float32, len(outputTensor.Float32s()))
	copy(output, outputTensor.Float32s())
	return output, shape, nil
}

// Close 釋放直譯器與模型
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.interpreter != nil {
		e.interpreter.Delete()
		e.interpreter = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	return nil
}
