package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"secondbrain/internal/transport/http/response"
	"secondbrain/internal/vision"
)

const maxImageSize = 5 << 20

type ImageClassifier interface {
	Classify(data []byte) ([]vision.LabelScore, error)
}

// VisionHandler previews the labels an image upload would be indexed with.
type VisionHandler struct {
	classifier ImageClassifier
}

func NewVisionHandler(classifier ImageClassifier) *VisionHandler {
	return &VisionHandler{classifier: classifier}
}

func (h *VisionHandler) Classify(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing image file (form field 'image')")
		return
	}
	if file.Size > maxImageSize {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "image too large (max 5MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to open uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read image")
		return
	}

	labels, err := h.classifier.Classify(data)
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "classification failed: "+err.Error())
		return
	}
	response.OK(c, gin.H{"predictions": labels})
}
