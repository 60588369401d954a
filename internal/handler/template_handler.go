package handler

import (
	"net/http"

	"billing/internal/middleware"
	"billing/internal/service"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler sets up the routing dependencies for print template endpoints
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

func (h *TemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	templates := router.Group("/api/templates")
	{
		templates.GET("", middleware.RequirePermission("templates.read"), h.ListTemplates)
		templates.POST("", middleware.RequirePermission("templates.write"), h.CreateTemplate)
		templates.PUT("/:id", middleware.RequirePermission("templates.write"), h.UpdateTemplate)
		templates.PUT("/:id/default", middleware.RequirePermission("templates.write"), h.SetDefaultTemplate)
		templates.DELETE("/:id", middleware.RequirePermission("templates.write"), h.DeleteTemplate)
	}
}

// ListTemplates returns all print templates with their effective page capacities
// @Summary      List templates
// @Description  Retrieves all print templates with effective page capacities and a sample page plan
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TemplateResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateService.GetTemplates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch templates"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, templates))
}

// CreateTemplate creates a print template
// @Summary      Create template
// @Description  Creates a print template; marking it default clears the previous default
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveTemplateRequest  true  "Template Payload"
// @Success      201      {object}  response.Response{data=service.TemplateResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req service.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.templateService.CreateTemplate(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, template))
}

// UpdateTemplate updates a print template
// @Summary      Update template
// @Description  Updates a print template's layout settings and capacity overrides
// @Tags         templates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Template ID"
// @Param        payload  body      service.SaveTemplateRequest  true  "Template Payload"
// @Success      200      {object}  response.Response{data=service.TemplateResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req service.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	template, err := h.templateService.UpdateTemplate(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// SetDefaultTemplate marks a template as the default for invoice rendering
// @Summary      Set default template
// @Description  Marks a template as the default used for invoice page planning
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  response.Response{data=service.TemplateResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/templates/{id}/default [put]
func (h *TemplateHandler) SetDefaultTemplate(c *gin.Context) {
	template, err := h.templateService.SetDefaultTemplate(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, template))
}

// DeleteTemplate deletes a non-default print template
// @Summary      Delete template
// @Description  Deletes a print template; the default template cannot be deleted
// @Tags         templates
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Template deleted successfully"))
}
