package handler

import (
	"net/http"

	"sabitax/internal/apperr"
	"sabitax/internal/middleware"
	"sabitax/internal/service"
	"sabitax/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives tax authority callbacks. Callbacks the engine cannot apply are
// logged and answered 202 so the authority does not retry them.
type WebhookHandler struct {
	filingService service.FilingService
	tinService    service.TinService
	secret        string
	logger        zerolog.Logger
}

func NewWebhookHandler(filingService service.FilingService, tinService service.TinService, secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{filingService: filingService, tinService: tinService, secret: secret, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	hooks := router.Group("/webhooks")
	hooks.Use(middleware.RequireWebhookSecret(h.secret))
	{
		hooks.POST("/filings/ack", h.AcknowledgeFiling)
		hooks.POST("/tin/status", h.UpdateTinStatus)
	}
}

// AcknowledgeFiling records the authority's verdict on a submitted return
// @Summary      Filing acknowledgment callback
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header    string                        true  "Shared secret"
// @Param        request           body      service.FilingAcknowledgment  true  "Acknowledgment"
// @Success      200               {object}  response.Response{data=service.FilingResponse}
// @Success      202               {object}  map[string]string
// @Router       /api/v1/webhooks/filings/ack [post]
func (h *WebhookHandler) AcknowledgeFiling(c *gin.Context) {
	var ack service.FilingAcknowledgment
	if err := c.ShouldBindJSON(&ack); err != nil {
		discard(c, h.logger, apperr.ExternalAck(err, "malformed filing acknowledgment"))
		return
	}

	filing, err := h.filingService.Acknowledge(c.Request.Context(), ack)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, filing))
}

// UpdateTinStatus moves a TIN application through processing to verified or rejected
// @Summary      TIN status callback
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header    string                   true  "Shared secret"
// @Param        request           body      service.TinStatusUpdate  true  "Status update"
// @Success      200               {object}  response.Response{data=service.TinApplicationResponse}
// @Success      202               {object}  map[string]string
// @Router       /api/v1/webhooks/tin/status [post]
func (h *WebhookHandler) UpdateTinStatus(c *gin.Context) {
	var update service.TinStatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		discard(c, h.logger, apperr.ExternalAck(err, "malformed TIN status update"))
		return
	}

	app, err := h.tinService.ProcessStatus(c.Request.Context(), update)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}
