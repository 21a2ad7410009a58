package handler

import (
	"net/http"

	"sabitax/internal/middleware"
	"sabitax/internal/service"
	"sabitax/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TinHandler struct {
	tinService service.TinService
	auth       *middleware.Auth
	logger     zerolog.Logger
}

func NewTinHandler(tinService service.TinService, auth *middleware.Auth, logger zerolog.Logger) *TinHandler {
	return &TinHandler{tinService: tinService, auth: auth, logger: logger}
}

func (h *TinHandler) RegisterRoutes(router *gin.RouterGroup) {
	tin := router.Group("/tin")
	tin.Use(h.auth.RequireAuth())
	{
		tin.GET("", h.GetStatus)
		tin.POST("/apply", h.Apply)
		tin.GET("/applications/:id", h.GetApplication)
		tin.POST("/applications/:id/documents", h.AttachDocument)
	}
}

// Apply submits a TIN application
// @Summary      Apply for a TIN
// @Tags         tin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.TinApplyRequest  true  "Application"
// @Success      201      {object}  response.Response{data=service.TinApplicationResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/v1/tin/apply [post]
func (h *TinHandler) Apply(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	var req service.TinApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	app, err := h.tinService.Apply(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, app))
}

// GetStatus reports whether the caller holds a TIN
// @Summary      TIN status
// @Tags         tin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TinStatusResponse}
// @Router       /api/v1/tin [get]
func (h *TinHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	status, err := h.tinService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// GetApplication returns one of the caller's applications
// @Summary      Get a TIN application
// @Tags         tin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=service.TinApplicationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/v1/tin/applications/{id} [get]
func (h *TinHandler) GetApplication(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	app, err := h.tinService.GetApplication(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

// AttachDocument replaces the ID document or adds a utility bill while the application is open
// @Summary      Attach a document
// @Tags         tin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Application ID"
// @Param        request  body      service.TinDocumentRequest  true  "Document reference"
// @Success      200      {object}  response.Response{data=service.TinApplicationResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/v1/tin/applications/{id}/documents [post]
func (h *TinHandler) AttachDocument(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	var req service.TinDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	app, err := h.tinService.AttachDocument(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, app))
}

func (h *TinHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, "NOT_FOUND", "TIN application not found"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
