package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageNet normalization used by torchvision classifiers.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

const (
	width  = 224
	height = 224
)

// LabelScore is a class label with its softmax probability.
type LabelScore struct {
	Label string  `json:"label"`
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// DecodeImage decodes any registered format (jpeg, png, gif, bmp, webp) and
// reports the format name.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image failed: %w", err)
	}
	return img, format, nil
}

// preprocess scales img to 224x224 and lays it out as normalized NCHW float32.
func preprocess(img image.Image) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	const size = width * height
	out := make([]float32, 3*size)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			c := dst.RGBAAt(x, y)
			r, g, b := float32(c.R)/255.0, float32(c.G)/255.0, float32(c.B)/255.0
			out[0*size+idx] = (r - imagenetMean[0]) / imagenetStd[0]
			out[1*size+idx] = (g - imagenetMean[1]) / imagenetStd[1]
			out[2*size+idx] = (b - imagenetMean[2]) / imagenetStd[2]
		}
	}
	return out
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// topK returns the k best scores, highest first. Indexes beyond labels get an
// empty label.
func topK(scores []float32, labels []string, k int) []LabelScore {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })

	out := make([]LabelScore, 0, k)
	for _, i := range idx[:k] {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		out = append(out, LabelScore{Label: label, Index: i, Score: scores[i]})
	}
	return out
}

// describe renders predictions as a sentence that can be chunked and embedded
// like any other text.
func describe(format string, bounds image.Rectangle, labels []LabelScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image (%s, %dx%d)", format, bounds.Dx(), bounds.Dy())

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Label == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%.1f%%)", l.Label, l.Score*100))
	}
	if len(parts) == 0 {
		b.WriteString(" with no recognised objects.")
		return b.String()
	}
	b.WriteString(" likely showing: ")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(".")
	return b.String()
}
