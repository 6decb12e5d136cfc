package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BudgetHandler struct {
	budgetService service.BudgetService
}

// NewBudgetHandler sets up the routing dependencies for budget endpoints
func NewBudgetHandler(budgetService service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *BudgetHandler) RegisterRoutes(router *gin.RouterGroup) {
	budgets := router.Group("/api/budgets")
	{
		budgets.GET("", middleware.RequirePermission("budgets.read"), h.ListBudgets)
		budgets.GET("/:departmentId", middleware.RequirePermission("budgets.read"), h.GetBudget)
		budgets.POST("", middleware.RequireRole("admin"), h.CreateBudget)
	}
}

// CreateBudget handles POST /budgets
// @Summary      Create a department budget
// @Description  Allocates a budget for a department and fiscal year
// @Tags         budgets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateBudgetDTO  true  "Budget Payload"
// @Success      201      {object}  response.Response{data=service.BudgetResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req service.CreateBudgetDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.budgetService.CreateBudget(c.Request.Context(), req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetBudget handles GET /budgets/:departmentId?fiscal_year=YYYY
// @Summary      Get a department budget
// @Tags         budgets
// @Produce      json
// @Security     BearerAuth
// @Param        departmentId  path      string  true   "Department ID"
// @Param        fiscal_year   query     int     false  "Fiscal year (default current)"
// @Success      200  {object}  response.Response{data=service.BudgetResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/budgets/{departmentId} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	departmentID, err := uuid.Parse(c.Param("departmentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid departmentId parameter"))
		return
	}

	fiscalYear, _ := strconv.Atoi(c.Query("fiscal_year"))
	if fiscalYear == 0 {
		fiscalYear = currentFiscalYear()
	}

	result, err := h.budgetService.GetBudget(c.Request.Context(), departmentID, fiscalYear)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListBudgets handles GET /budgets?fiscal_year=YYYY
// @Summary      List department budgets
// @Tags         budgets
// @Produce      json
// @Security     BearerAuth
// @Param        fiscal_year  query     int  false  "Fiscal year filter"
// @Success      200  {object}  response.Response{data=[]service.BudgetResponse}
// @Router       /api/budgets [get]
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	fiscalYear, _ := strconv.Atoi(c.Query("fiscal_year"))

	result, err := h.budgetService.ListBudgets(c.Request.Context(), fiscalYear)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch budgets"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
