package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"sabitax/internal/ledger"
	"sabitax/internal/middleware"
	"sabitax/internal/service"
	"sabitax/pkg/pagination"
	"sabitax/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TaxHandler struct {
	taxService    service.TaxService
	filingService service.FilingService
	auth          *middleware.Auth
	logger        zerolog.Logger
	now           func() time.Time
}

func NewTaxHandler(taxService service.TaxService, filingService service.FilingService, auth *middleware.Auth, logger zerolog.Logger) *TaxHandler {
	return &TaxHandler{
		taxService:    taxService,
		filingService: filingService,
		auth:          auth,
		logger:        logger,
		now:           time.Now,
	}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/tax")
	tax.Use(h.auth.RequireAuth())
	{
		tax.GET("/obligations", h.GetObligations)
		tax.GET("/estimate", h.GetEstimate)
		tax.GET("/optimization", h.GetOptimization)
		tax.POST("/file", h.FileReturn)

		tax.GET("/filings", h.ListFilings)
		tax.POST("/filings", h.CreateDraft)
		tax.GET("/filings/:id", h.GetFiling)
		tax.POST("/filings/:id/submit", h.SubmitFiling)
	}
}

// GetObligations lists the PIT and VAT obligations for the month containing as_of,
// plus anything still owed from the preceding twelve months
// @Summary      Tax obligations
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        as_of  query     string  false  "Reference date YYYY-MM-DD (default today)"
// @Success      200    {object}  response.Response{data=service.ObligationsResponse}
// @Failure      422    {object}  response.Response
// @Router       /api/v1/tax/obligations [get]
func (h *TaxHandler) GetObligations(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	asOf := h.now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, response.ErrorWithCode(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "as_of must be YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	result, err := h.taxService.GetObligations(c.Request.Context(), userID, asOf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetEstimate computes the tax estimate for a month, or a whole year when only year is given
// @Summary      Tax estimate
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        year   query     int  false  "Tax year (default current)"
// @Param        month  query     int  false  "Month 1-12; omit with year for the whole year"
// @Success      200    {object}  response.Response{data=service.EstimateResponse}
// @Failure      422    {object}  response.Response
// @Router       /api/v1/tax/estimate [get]
func (h *TaxHandler) GetEstimate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	period, ok := h.period(c)
	if !ok {
		return
	}

	result, err := h.taxService.GetEstimate(c.Request.Context(), userID, period)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetOptimization suggests deductions missing from the ledger
// @Summary      Tax optimization suggestions
// @Tags         tax
// @Security     BearerAuth
// @Produce      json
// @Param        year   query     int  false  "Tax year (default current)"
// @Param        month  query     int  false  "Month 1-12"
// @Success      200    {object}  response.Response{data=optimization.Report}
// @Router       /api/v1/tax/optimization [get]
func (h *TaxHandler) GetOptimization(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	period, ok := h.period(c)
	if !ok {
		return
	}

	report, err := h.taxService.GetOptimization(c.Request.Context(), userID, period)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// FileReturn declares and submits a return in one step
// @Summary      File a tax return
// @Tags         filings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.DeclarationRequest  true  "Declaration"
// @Success      201      {object}  response.Response{data=service.FilingResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/v1/tax/file [post]
func (h *TaxHandler) FileReturn(c *gin.Context) {
	h.declare(c, h.filingService.FileReturn)
}

// CreateDraft stores a draft return without submitting it
// @Summary      Create a draft return
// @Tags         filings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.DeclarationRequest  true  "Declaration"
// @Success      201      {object}  response.Response{data=service.FilingResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/v1/tax/filings [post]
func (h *TaxHandler) CreateDraft(c *gin.Context) {
	h.declare(c, h.filingService.CreateDraft)
}

// SubmitFiling submits a draft
// @Summary      Submit a draft return
// @Tags         filings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Filing ID"
// @Success      200  {object}  response.Response{data=service.FilingResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/v1/tax/filings/{id}/submit [post]
func (h *TaxHandler) SubmitFiling(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, "NOT_FOUND", "filing not found"))
		return
	}

	filing, err := h.filingService.Submit(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, filing))
}

// ListFilings returns the caller's filing history, newest first
// @Summary      Filing history
// @Tags         filings
// @Security     BearerAuth
// @Produce      json
// @Param        tax_type  query     string  false  "PIT, PAYE, VAT or CIT"
// @Param        year      query     int     false  "Tax year"
// @Param        status    query     string  false  "draft, submitted, accepted or rejected"
// @Param        limit     query     int     false  "Page size (default 20)"
// @Param        offset    query     int     false  "Offset"
// @Success      200       {object}  response.Response{data=response.Page}
// @Router       /api/v1/tax/filings [get]
func (h *TaxHandler) ListFilings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	params := pagination.Parse(c)
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, response.ErrorWithCode(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "year must be a number"))
			return
		}
		year = y
	}
	filings, total, err := h.filingService.List(c.Request.Context(), userID, service.FilingQuery{
		TaxType: c.Query("tax_type"),
		Year:    year,
		Status:  c.Query("status"),
		Limit:   params.Limit,
		Offset:  params.Offset,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items:  filings,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}))
}

// GetFiling returns one of the caller's filings
// @Summary      Get a filing
// @Tags         filings
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Filing ID"
// @Success      200  {object}  response.Response{data=service.FilingResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/v1/tax/filings/{id} [get]
func (h *TaxHandler) GetFiling(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, "NOT_FOUND", "filing not found"))
		return
	}

	filing, err := h.filingService.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, filing))
}

func (h *TaxHandler) declare(c *gin.Context, fn func(ctx context.Context, userID uuid.UUID, req service.DeclarationRequest) (service.FilingResponse, error)) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	var req service.DeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	filing, err := fn(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, filing))
}

// period reads year/month: none means the current month, year alone means the whole year.
func (h *TaxHandler) period(c *gin.Context) (ledger.Period, bool) {
	rawYear, rawMonth := c.Query("year"), c.Query("month")
	if rawYear == "" && rawMonth == "" {
		return ledger.MonthOf(h.now().UTC()), true
	}

	year := h.now().UTC().Year()
	if rawYear != "" {
		y, err := strconv.Atoi(rawYear)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, response.ErrorWithCode(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "year must be a number"))
			return ledger.Period{}, false
		}
		year = y
	}

	month := 0
	if rawMonth != "" {
		m, err := strconv.Atoi(rawMonth)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, response.ErrorWithCode(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "month must be a number"))
			return ledger.Period{}, false
		}
		month = m
	}

	return ledger.Period{Year: year, Month: month}, true
}
