package handler

import (
	"github.com/gin-gonic/gin"

	"secondbrain/internal/app"
	"secondbrain/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) List(c *gin.Context) {
	list, err := h.documentService.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list documents")
		return
	}
	response.OK(c, list)
}

func (h *DocumentHandler) Count(c *gin.Context) {
	n, err := h.documentService.Count(c.Request.Context())
	if err != nil {
		writeError(c, err, "count documents")
		return
	}
	response.OK(c, gin.H{"count": n})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get document")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.documentService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err, "delete document")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id, "message": "Document " + id + " deleted successfully"})
}
