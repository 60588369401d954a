package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExpenseHandler struct {
	expenseService service.ExpenseService
}

func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	{
		expenses.GET("", middleware.RequirePermission("expenses.read"), h.GetExpenses)
		expenses.GET("/summary", middleware.RequirePermission("expenses.read"), h.GetExpenseSummary)
		expenses.POST("", middleware.RequirePermission("expenses.write"), h.CreateExpense)
		expenses.PUT("/:id", middleware.RequirePermission("expenses.write"), h.UpdateExpense)
		expenses.DELETE("/:id", middleware.RequirePermission("expenses.write"), h.DeleteExpense)
	}
}

// GetExpenses returns a paginated, filterable list of expense entries
// @Summary      List expenses
// @Description  Retrieves a paginated list of expenses filtered by category and date range
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        category  query     string  false  "Filter by category (RENT, SALARIES, TRANSPORT, UTILITIES, OTHER)"
// @Param        from      query     string  false  "Start date YYYY-MM-DD"
// @Param        to        query     string  false  "End date YYYY-MM-DD"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.PageData}
// @Failure      500       {object}  response.Response
// @Router       /api/expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.ExpenseFilter{
		Category: c.Query("category"),
		From:     c.Query("from"),
		To:       c.Query("to"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	expenses, total, err := h.expenseService.GetExpenses(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch expenses"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, expenses, total, params.Page, params.Limit))
}

// GetExpenseSummary returns per-category totals and recoverable input VAT
// @Summary      Expense summary
// @Description  Returns per-category AED totals and the recoverable input VAT for a date range
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "Start date YYYY-MM-DD"
// @Param        to    query     string  false  "End date YYYY-MM-DD"
// @Success      200   {object}  response.Response{data=service.ExpenseSummaryResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/expenses/summary [get]
func (h *ExpenseHandler) GetExpenseSummary(c *gin.Context) {
	summary, err := h.expenseService.GetExpenseSummary(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// CreateExpense handles expense creation with currency conversion and VAT recovery classification
// @Summary      Create expense
// @Description  Creates an expense; amounts are converted to AED and input VAT is recoverable only for TAX_INVOICE documents
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveExpenseRequest  true  "Expense Payload"
// @Success      201      {object}  response.Response{data=service.ExpenseResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req service.SaveExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// UpdateExpense updates an expense entry
// @Summary      Update expense
// @Description  Updates an expense, recomputing the AED conversion and VAT recovery classification
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Expense ID"
// @Param        payload  body      service.SaveExpenseRequest  true  "Expense Payload"
// @Success      200      {object}  response.Response{data=service.ExpenseResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	var req service.SaveExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// DeleteExpense soft deletes an expense entry
// @Summary      Delete expense
// @Description  Soft deletes an expense entry
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	if err := h.expenseService.DeleteExpense(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Expense deleted successfully"))
}
