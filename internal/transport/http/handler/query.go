package handler

import (
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"secondbrain/internal/app"
	"secondbrain/internal/transport/http/response"
)

type QueryHandler struct {
	queryService *app.QueryService
}

type QueryRequest struct {
	Query          string   `json:"query" binding:"required"`
	TimeFilter     string   `json:"time_filter"`
	ContentTypes   []string `json:"content_types"`
	Limit          int      `json:"limit"`
	ConversationID string   `json:"conversation_id"`
}

func (r QueryRequest) input() app.QueryInput {
	return app.QueryInput{
		Query:          r.Query,
		TimeFilter:     r.TimeFilter,
		ContentTypes:   r.ContentTypes,
		Limit:          r.Limit,
		ConversationID: r.ConversationID,
	}
}

// streamEvent is the payload of every SSE frame: sources, token, done or error.
type streamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func NewQueryHandler(queryService *app.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query is required")
		return
	}

	result, err := h.queryService.Ask(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err, "query")
		return
	}
	response.OK(c, result)
}

// Stream answers over server-sent events. Errors before the first event are
// returned as a normal JSON envelope; later ones become an error event.
func (h *QueryHandler) Stream(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query is required")
		return
	}

	ctx := c.Request.Context()
	stream, err := h.queryService.Stream(ctx, req.input())
	if err != nil {
		writeError(c, err, "query")
		return
	}
	defer stream.Close()

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err := writeEvent(c, streamEvent{Type: "sources", Data: stream.Sources}); err != nil {
		return
	}
	for {
		frag, err := stream.Next()
		if err == io.EOF {
			_ = writeEvent(c, streamEvent{Type: "done"})
			return
		}
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("answer stream failed")
			_ = writeEvent(c, streamEvent{Type: "error", Data: err.Error()})
			return
		}
		if err := writeEvent(c, streamEvent{Type: "token", Data: frag}); err != nil {
			return
		}
	}
}

func writeEvent(c *gin.Context, ev streamEvent) error {
	if err := sse.Encode(c.Writer, sse.Event{Data: ev}); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
