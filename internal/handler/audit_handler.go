package handler

import (
	"net/http"

	"sabitax/internal/middleware"
	"sabitax/internal/service"
	"sabitax/pkg/pagination"
	"sabitax/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
	logger       zerolog.Logger
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth, logger: logger}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(h.auth.RequireRole("admin"))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the filing and TIN lifecycle trail
// @Summary      Get audit logs
// @Description  Lifecycle transitions, newest first. Entries without a user were triggered by the tax authority.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Action, e.g. SUBMIT_FILING"
// @Param        entity_id  query     string  false  "Filing or application ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/v1/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditQuery{
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
		Offset:   params.Offset,
		Limit:    params.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items:  logs,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}))
}
