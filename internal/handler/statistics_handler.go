package handler

import (
	"net/http"
	"time"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

// NewStatisticsHandler sets up the routing dependencies for reporting endpoints
func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics")
	{
		stats.GET("/revenue", middleware.RequirePermission("reports.read"), h.GetRevenueStatistics)
		stats.GET("/vat-return", middleware.RequirePermission("reports.read"), h.GetVATReturn)
		stats.GET("/receivables-aging", middleware.RequirePermission("reports.read"), h.GetReceivablesAging)
	}

	router.GET("/api/dashboard", middleware.RequirePermission("dashboard.read"), h.GetDashboard)
}

// GetRevenueStatistics returns issued-invoice revenue grouped by period
// @Summary      Get revenue statistics
// @Description  Returns revenue, VAT and collection data from issued invoices grouped by time period
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        group_by    query     string  false  "Group by period: week, month, quarter, year (default: month)"
// @Param        start_date  query     string  false  "Start date (RFC3339)"
// @Param        end_date    query     string  false  "End date (RFC3339)"
// @Success      200         {object}  response.Response{data=[]service.RevenueDataPoint}
// @Failure      500         {object}  response.Response
// @Router       /api/statistics/revenue [get]
func (h *StatisticsHandler) GetRevenueStatistics(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "month")
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	// Default to current month
	now := time.Now()
	if startDateStr == "" {
		startDateStr = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(time.RFC3339)
	}
	if endDateStr == "" {
		endDateStr = now.Format(time.RFC3339)
	}

	filter := service.RevenueFilter{
		GroupBy:   groupBy,
		StartDate: startDateStr,
		EndDate:   endDateStr,
	}

	data, err := h.statisticsService.GetRevenueStatistics(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

// GetVATReturn returns the output/input VAT summary for a return period
// @Summary      Get VAT return summary
// @Description  Returns output VAT from issued invoices, reverse-charged VAT and recoverable input VAT from expenses for a period
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  true  "Period start YYYY-MM-DD"
// @Param        to    query     string  true  "Period end YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=service.VATReturnResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/statistics/vat-return [get]
func (h *StatisticsHandler) GetVATReturn(c *gin.Context) {
	summary, err := h.statisticsService.GetVATReturn(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetReceivablesAging returns outstanding receivables bucketed by overdue age
// @Summary      Get receivables aging
// @Description  Returns unpaid issued-invoice balances bucketed by days overdue relative to the as-of date
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        as_of  query     string  false  "As-of date YYYY-MM-DD (default today)"
// @Success      200    {object}  response.Response{data=service.ReceivablesAgingResponse}
// @Failure      400    {object}  response.Response
// @Router       /api/statistics/receivables-aging [get]
func (h *StatisticsHandler) GetReceivablesAging(c *gin.Context) {
	asOf := time.Now()
	if asOfStr := c.Query("as_of"); asOfStr != "" {
		parsed, err := time.Parse("2006-01-02", asOfStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid as_of format, expected YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	aging, err := h.statisticsService.GetReceivablesAging(c.Request.Context(), asOf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, aging))
}

// GetDashboard returns headline counters for the landing screen
// @Summary      Get dashboard
// @Description  Returns per-status invoice counts, outstanding balances and month-to-date figures
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.DashboardResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.statisticsService.GetDashboard(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}
