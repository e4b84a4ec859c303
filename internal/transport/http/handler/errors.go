package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"secondbrain/internal/app"
	"secondbrain/internal/extract"
	"secondbrain/internal/transport/http/response"
)

// writeError maps service errors onto the response envelope. Unexpected
// errors are logged and reported as "<action> failed: <cause>".
func writeError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrNoContent):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, extract.ErrUnsupportedType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedType, err.Error())
	case errors.Is(err, app.ErrInvalidCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, app.ErrAuthDisabled):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg(action + " failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, action+" failed: "+err.Error())
	}
}
