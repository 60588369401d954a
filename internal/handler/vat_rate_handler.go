package handler

import (
	"net/http"
	"time"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type VATRateHandler struct {
	vatRateService service.VATRateService
}

// NewVATRateHandler sets up the routing dependencies for VAT rate endpoints
func NewVATRateHandler(vatRateService service.VATRateService) *VATRateHandler {
	return &VATRateHandler{vatRateService: vatRateService}
}

func (h *VATRateHandler) RegisterRoutes(router *gin.RouterGroup) {
	rates := router.Group("/api/vat-rates")
	{
		rates.GET("", middleware.RequirePermission("vat.read"), h.ListVATRates)
		rates.GET("/active", middleware.RequirePermission("vat.read"), h.GetActiveVATRate)
		rates.POST("", middleware.RequirePermission("vat.write"), h.CreateVATRate)
		rates.PUT("/:id", middleware.RequirePermission("vat.write"), h.UpdateVATRate)
		rates.DELETE("/:id", middleware.RequirePermission("vat.write"), h.DeleteVATRate)
	}
}

// ListVATRates returns a paginated list of configured VAT rates
// @Summary      List VAT rates
// @Description  Retrieves a paginated list of VAT rate configurations
// @Tags         vat-rates
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.PageData}
// @Failure      500    {object}  response.Response
// @Router       /api/vat-rates [get]
func (h *VATRateHandler) ListVATRates(c *gin.Context) {
	params := pagination.Parse(c)

	rates, total, err := h.vatRateService.GetVATRates(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch VAT rates"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, rates, total, params.Page, params.Limit))
}

// GetActiveVATRate resolves the effective rate for a supply type on a date
// @Summary      Get active VAT rate
// @Description  Resolves the VAT rate effective for a supply type on a given date, falling back to the statutory default
// @Tags         vat-rates
// @Security     BearerAuth
// @Produce      json
// @Param        supply_type  query     string  false  "Supply type (standard, zero_rated, exempt; default standard)"
// @Param        date         query     string  false  "Target date YYYY-MM-DD (default today)"
// @Success      200          {object}  response.Response{data=service.ActiveVATRateResponse}
// @Failure      400          {object}  response.Response
// @Router       /api/vat-rates/active [get]
func (h *VATRateHandler) GetActiveVATRate(c *gin.Context) {
	supplyType := c.DefaultQuery("supply_type", "standard")

	targetDate := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD"))
			return
		}
		targetDate = parsed
	}

	rate, err := h.vatRateService.GetActiveVATRate(c.Request.Context(), supplyType, targetDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateVATRate creates a VAT rate configuration
// @Summary      Create VAT rate
// @Description  Creates a VAT rate for a supply type with an effective date range; overlapping ranges are rejected
// @Tags         vat-rates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveVATRateRequest  true  "VAT Rate Payload"
// @Success      201      {object}  response.Response{data=service.VATRateResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/vat-rates [post]
func (h *VATRateHandler) CreateVATRate(c *gin.Context) {
	var req service.SaveVATRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rate, err := h.vatRateService.CreateVATRate(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rate))
}

// UpdateVATRate updates a VAT rate configuration
// @Summary      Update VAT rate
// @Description  Updates a VAT rate's value or effective range; overlapping ranges are rejected
// @Tags         vat-rates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "VAT Rate ID"
// @Param        payload  body      service.SaveVATRateRequest  true  "VAT Rate Payload"
// @Success      200      {object}  response.Response{data=service.VATRateResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/vat-rates/{id} [put]
func (h *VATRateHandler) UpdateVATRate(c *gin.Context) {
	var req service.SaveVATRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rate, err := h.vatRateService.UpdateVATRate(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// DeleteVATRate deletes a VAT rate configuration
// @Summary      Delete VAT rate
// @Description  Deletes a VAT rate configuration; already-issued invoices keep their computed VAT
// @Tags         vat-rates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "VAT Rate ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/vat-rates/{id} [delete]
func (h *VATRateHandler) DeleteVATRate(c *gin.Context) {
	if err := h.vatRateService.DeleteVATRate(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "VAT rate deleted successfully"))
}
