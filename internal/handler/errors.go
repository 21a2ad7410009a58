package handler

import (
	"errors"
	"net/http"

	"sabitax/internal/apperr"
	"sabitax/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
		return
	}

	switch appErr.Kind {
	case apperr.KindExternalAck:
		discard(c, logger, err)
		return
	case apperr.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, response.ErrorWithCode(http.StatusUnprocessableEntity, string(appErr.Kind), appErr.Error()))
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, string(appErr.Kind), appErr.Error()))
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, string(appErr.Kind), appErr.Error()))
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("unmapped error kind")
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
	}
}

// discard acknowledges a callback the engine refused to apply.
func discard(c *gin.Context, logger zerolog.Logger, err error) {
	logger.Warn().Err(err).Str("path", c.FullPath()).Msg("external acknowledgment discarded")
	c.JSON(http.StatusAccepted, gin.H{"status": "discarded"})
}

func invalidPayload(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, response.ErrorWithCode(http.StatusUnprocessableEntity,
		string(apperr.KindValidation), "Invalid request payload: "+err.Error()))
}
