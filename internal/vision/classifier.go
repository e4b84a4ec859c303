package vision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ErrNotConfigured = errors.New("image classifier model not configured")

// Classifier runs a MobileNet-style ONNX model and maps outputs to labels.
// The runtime and session are loaded lazily on first use.
type Classifier struct {
	mu sync.Mutex

	modelPath  string
	labelsPath string
	libPath    string
	topK       int

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	inited  bool
}

func NewClassifier(modelPath, labelsPath, onnxLibPath string, topK int) *Classifier {
	if topK <= 0 {
		topK = 5
	}
	return &Classifier{
		modelPath:  modelPath,
		labelsPath: labelsPath,
		libPath:    onnxLibPath,
		topK:       topK,
	}
}

// init must be called with mu held.
func (c *Classifier) init() error {
	if c.inited {
		return nil
	}
	if c.modelPath == "" || c.labelsPath == "" {
		return ErrNotConfigured
	}

	if c.libPath != "" {
		ort.SetSharedLibraryPath(c.libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment failed: %w", err)
		}
	}

	labels, err := loadLabels(c.labelsPath)
	if err != nil {
		return fmt.Errorf("load labels failed: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(c.modelPath)
	if err != nil {
		return fmt.Errorf("onnx read model io failed: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return errors.New("onnx model has no inputs or outputs")
	}

	input, err := ort.NewEmptyTensor[float32](inputs[0].Dimensions)
	if err != nil {
		return fmt.Errorf("onnx new input tensor failed: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](outputs[0].Dimensions)
	if err != nil {
		_ = input.Destroy()
		return fmt.Errorf("onnx new output tensor failed: %w", err)
	}

	session, err := ort.NewAdvancedSession(c.modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		_ = output.Destroy()
		_ = input.Destroy()
		return fmt.Errorf("onnx new session failed: %w", err)
	}

	c.labels = labels
	c.input = input
	c.output = output
	c.session = session
	c.inited = true
	return nil
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		labels = append(labels, strings.TrimSpace(sc.Text()))
	}
	return labels, sc.Err()
}

// Classify returns the top-k labels with softmax probabilities.
func (c *Classifier) Classify(data []byte) ([]LabelScore, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.init(); err != nil {
		return nil, err
	}
	return c.run(preprocess(img))
}

func (c *Classifier) run(pixels []float32) ([]LabelScore, error) {
	in := c.input.GetData()
	if len(in) < len(pixels) {
		return nil, fmt.Errorf("input tensor size %d < preprocessed %d", len(in), len(pixels))
	}
	copy(in, pixels)
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	return topK(softmax(c.output.GetData()), c.labels, c.topK), nil
}

// Describe classifies the image and renders the result as searchable text.
func (c *Classifier) Describe(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, format, err := DecodeImage(data)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.init(); err != nil {
		return "", err
	}
	labels, err := c.run(preprocess(img))
	if err != nil {
		return "", err
	}
	return describe(format, img.Bounds(), labels), nil
}

func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inited {
		return
	}
	_ = c.session.Destroy()
	_ = c.output.Destroy()
	_ = c.input.Destroy()
	c.inited = false
}
