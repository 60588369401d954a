package handler

import (
	"errors"
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/internal/websocket"
	"billing/pkg/pagination"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	hub            *websocket.Hub
}

// NewInvoiceHandler sets up the routing dependencies for invoice endpoints
func NewInvoiceHandler(invoiceService service.InvoiceService, hub *websocket.Hub) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, hub: hub}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.GET("", middleware.RequirePermission("invoices.read"), h.ListInvoices)
		invoices.GET("/:id", middleware.RequirePermission("invoices.read"), h.GetInvoice)
		invoices.POST("", middleware.RequirePermission("invoices.write"), h.CreateInvoice)
		invoices.POST("/preview", middleware.RequirePermission("invoices.read"), h.PreviewInvoice)
		invoices.PUT("/:id", middleware.RequirePermission("invoices.write"), h.UpdateInvoice)
		invoices.PATCH("/:id/status", middleware.RequirePermission("invoices.issue"), h.ChangeStatus)
		invoices.POST("/:id/payments", middleware.RequirePermission("payments.write"), h.RecordPayment)
		invoices.DELETE("/:id", middleware.RequirePermission("invoices.delete"), h.DeleteInvoice)
	}
}

// currentUserID extracts the authenticated user's ID set by the auth middleware
func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)
	return userIDStr
}

// writeServiceError maps domain errors onto the HTTP surface. Validation
// failures return the per-field breakdown so the form can highlight inputs;
// an unconfirmed issue transition returns 409 so the client can re-submit
// with confirmed=true.
func writeServiceError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		res := response.Error(http.StatusBadRequest, err.Error())
		res.Data = gin.H{
			"errors":         validationErr.Result.Errors,
			"invalid_fields": validationErr.Result.InvalidFields,
		}
		c.JSON(http.StatusBadRequest, res)
		return
	}
	if errors.Is(err, service.ErrConfirmationRequired) {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		return
	}
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
}

// CreateInvoice creates an invoice in the requested status
// @Summary      Create invoice
// @Description  Creates an invoice, computing totals, VAT and the page plan server-side
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveInvoiceRequest  true  "Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceDetailResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.SaveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.hub.BroadcastEvent("invoice.created", gin.H{
		"id":             invoice.ID,
		"invoice_number": invoice.InvoiceNumber,
		"status":         invoice.Status,
	})
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// PreviewInvoice computes totals and layout for an unsaved payload
// @Summary      Preview invoice
// @Description  Computes totals, validation results and the page plan without persisting anything
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveInvoiceRequest  true  "Invoice Payload"
// @Success      200      {object}  response.Response{data=service.PreviewResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/preview [post]
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	var req service.SaveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	preview, err := h.invoiceService.PreviewInvoice(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, preview))
}

// ListInvoices returns a paginated, filterable list of invoices
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices filtered by status, payment status, customer or search text
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status          query     string  false  "Filter by status (draft, proforma, issued)"
// @Param        payment_status  query     string  false  "Filter by payment status (unpaid, partially_paid, paid)"
// @Param        customer_id     query     string  false  "Filter by customer UUID"
// @Param        search          query     string  false  "Partial match on invoice number or customer name"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Success      200             {object}  response.Response{data=response.PageData}
// @Failure      500             {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.InvoiceFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		CustomerID:    c.Query("customer_id"),
		Search:        c.Query("search"),
		Page:          params.Page,
		Limit:         params.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch invoices"))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, invoices, total, params.Page, params.Limit))
}

// GetInvoice fetches a single invoice with items, lock state and page plan
// @Summary      Get invoice by ID
// @Description  Fetch a single invoice's detail with line items, lock state and page plan
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceDetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoice replaces an invoice's content and recomputes totals
// @Summary      Update invoice
// @Description  Replaces an invoice's content and recomputes totals; locked invoices are rejected
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Invoice ID"
// @Param        payload  body      service.SaveInvoiceRequest  true  "Invoice Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceDetailResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.SaveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ChangeStatus moves an invoice along draft → proforma → issued
// @Summary      Change invoice status
// @Description  Transitions an invoice's status; issuing requires confirmed=true and relabels the invoice number
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Invoice ID"
// @Param        payload  body      service.ChangeStatusRequest  true  "Target Status"
// @Success      200      {object}  response.Response{data=service.InvoiceDetailResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/status [patch]
func (h *InvoiceHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.ChangeStatus(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if invoice.Status == "issued" {
		h.hub.BroadcastEvent("invoice.issued", gin.H{
			"id":             invoice.ID,
			"invoice_number": invoice.InvoiceNumber,
			"grand_total":    invoice.GrandTotal,
		})
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RecordPayment records a payment against an issued invoice
// @Summary      Record payment
// @Description  Records a payment against an issued invoice and derives the payment status
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceDetailResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if invoice.PaymentStatus == "paid" {
		h.hub.BroadcastEvent("invoice.paid", gin.H{
			"id":             invoice.ID,
			"invoice_number": invoice.InvoiceNumber,
		})
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice soft deletes a draft or proforma invoice
// @Summary      Delete invoice
// @Description  Soft deletes a draft or proforma invoice; issued invoices cannot be deleted
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Invoice deleted successfully"))
}
