package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"secondbrain/internal/app"
	"secondbrain/internal/transport/http/response"
)

type IngestHandler struct {
	ingestService  *app.IngestService
	maxUploadBytes int64
}

type IngestURLRequest struct {
	URL   string   `json:"url" binding:"required"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type IngestTextRequest struct {
	Text  string   `json:"text" binding:"required"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func NewIngestHandler(ingestService *app.IngestService, maxUploadBytes int64) *IngestHandler {
	return &IngestHandler{ingestService: ingestService, maxUploadBytes: maxUploadBytes}
}

// File accepts a multipart form with "file" plus optional "title",
// "content_type" and comma separated "tags".
func (h *IngestHandler) File(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no file provided (form field 'file')")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		h.tooLarge(c)
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
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read uploaded file")
		return
	}

	result, err := h.ingestService.IngestFile(c.Request.Context(), app.FileInput{
		Filename:    file.Filename,
		Data:        data,
		Title:       c.PostForm("title"),
		ContentType: c.PostForm("content_type"),
		Tags:        app.SplitTags(c.PostForm("tags")),
	})
	if err != nil {
		writeError(c, err, "ingest file")
		return
	}
	response.OK(c, result)
}

func (h *IngestHandler) tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
		fmt.Sprintf("file too large (max %d MB)", h.maxUploadBytes>>20))
}

func (h *IngestHandler) URL(c *gin.Context) {
	var req IngestURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "url is required")
		return
	}

	result, err := h.ingestService.IngestURL(c.Request.Context(), app.URLInput{
		URL:   req.URL,
		Title: req.Title,
		Tags:  req.Tags,
	})
	if err != nil {
		writeError(c, err, "ingest url")
		return
	}
	response.OK(c, result)
}

func (h *IngestHandler) Text(c *gin.Context) {
	var req IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "text content is required")
		return
	}

	result, err := h.ingestService.IngestText(c.Request.Context(), app.TextInput{
		Text:  req.Text,
		Title: req.Title,
		Tags:  req.Tags,
	})
	if err != nil {
		writeError(c, err, "ingest text")
		return
	}
	response.OK(c, result)
}
