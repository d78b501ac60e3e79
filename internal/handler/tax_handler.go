package handler

import (
	"net/http"
	"strings"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/tax-rules")
	rules.GET("", middleware.RequireRole("admin", "analyst"), h.ListTaxRules)
	rules.Use(middleware.RequireRole("admin"))
	{
		rules.POST("", h.CreateTaxRule)
		rules.PUT("/:id", h.UpdateTaxRule)
		rules.DELETE("/:id", h.DeactivateTaxRule)
	}
}

// ListTaxRules returns the rule catalog, newest first per tax type
// @Summary      List tax rules
// @Tags         tax-rules
// @Produce      json
// @Router       /api/tax-rules [get]
func (h *TaxHandler) ListTaxRules(c *gin.Context) {
	params := pagination.Parse(c)

	rules, total, err := h.taxService.ListTaxRules(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, rules, params.Page, params.Limit, total))
}

// CreateTaxRule registers a new rule version
// @Summary      Create a tax rule
// @Tags         tax-rules
// @Accept       json
// @Produce      json
// @Param        request body service.CreateTaxRuleRequest true "Rule definition"
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.CreateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxService.CreateTaxRule(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule updates an existing rule in place
// @Summary      Update a tax rule
// @Tags         tax-rules
// @Accept       json
// @Produce      json
// @Param        id path string true "Rule ID"
// @Router       /api/tax-rules/{id} [put]
func (h *TaxHandler) UpdateTaxRule(c *gin.Context) {
	var req service.UpdateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxService.UpdateTaxRule(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		c.JSON(taxErrorStatus(err), response.Error(taxErrorStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeactivateTaxRule retires a rule so future analyses stop applying it
// @Summary      Deactivate a tax rule
// @Tags         tax-rules
// @Produce      json
// @Param        id path string true "Rule ID"
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxHandler) DeactivateTaxRule(c *gin.Context) {
	if err := h.taxService.DeactivateTaxRule(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		c.JSON(taxErrorStatus(err), response.Error(taxErrorStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tax rule deactivated"}))
}

func taxErrorStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "invalid"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
