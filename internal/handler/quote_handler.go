package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QuoteHandler struct {
	quoteService service.QuoteService
	userService  service.UserService
}

// NewQuoteHandler sets up the routing dependencies for vendor quote endpoints
func NewQuoteHandler(quoteService service.QuoteService, userService service.UserService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, userService: userService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests/:id")
	{
		requests.POST("/request-quotes", middleware.RequirePermission(workflow.CapQuoteManage), h.RequestQuotes)
		requests.POST("/quotes", middleware.RequirePermission(workflow.CapQuoteManage), h.AddQuote)
		requests.GET("/quotes", middleware.RequirePermission(workflow.CapQuoteRead), h.ListQuotes)
		// Selecting is the requester's call, enforced by the workflow policy.
		requests.POST("/select-quote", middleware.RequireRole(allRoles...), h.SelectQuote)
	}

	quotes := router.Group("/api/quotes")
	{
		quotes.PUT("/:id", middleware.RequirePermission(workflow.CapQuoteManage), h.UpdateQuote)
		quotes.DELETE("/:id", middleware.RequirePermission(workflow.CapQuoteManage), h.DeleteQuote)
	}
}

// RequestQuotes handles POST /requests/:id/request-quotes
// @Summary      Open the quoting phase
// @Description  Moves a DM_APPROVED request into QUOTES_REQUESTED for vendor sourcing
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true   "Request ID"
// @Param        payload  body      service.TransitionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/request-quotes [post]
func (h *QuoteHandler) RequestQuotes(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.TransitionDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	result, err := h.quoteService.RequestQuotes(c.Request.Context(), actor, id, req.Comments)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AddQuote handles POST /requests/:id/quotes
// @Summary      Add a vendor quote
// @Description  Records a vendor quote on a request in the quoting phase
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string            true  "Request ID"
// @Param        payload  body      service.QuoteDTO  true  "Quote Payload"
// @Success      201      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/quotes [post]
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.QuoteDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.quoteService.AddQuote(c.Request.Context(), actor, id, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListQuotes handles GET /requests/:id/quotes
// @Summary      List vendor quotes
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.QuoteResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/requests/{id}/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	quotes, err := h.quoteService.ListQuotes(c.Request.Context(), actor, id)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotes))
}

// SelectQuote handles POST /requests/:id/select-quote
// @Summary      Select the winning quote
// @Description  Requester picks one quote, moving the request to QUOTE_SELECTED
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Request ID"
// @Param        payload  body      service.SelectQuoteDTO  true  "Selection Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/select-quote [post]
func (h *QuoteHandler) SelectQuote(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.SelectQuoteDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	quoteID, err := uuid.Parse(req.QuoteID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid quote_id"))
		return
	}

	result, err := h.quoteService.SelectQuote(c.Request.Context(), actor, id, quoteID, req.Comments)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateQuote handles PUT /quotes/:id
// @Summary      Update a vendor quote
// @Description  Edits an unselected quote while its request is still quoting
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string            true  "Quote ID"
// @Param        payload  body      service.QuoteDTO  true  "Quote Payload"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/quotes/{id} [put]
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.QuoteDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.quoteService.UpdateQuote(c.Request.Context(), actor, id, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteQuote handles DELETE /quotes/:id
// @Summary      Delete a vendor quote
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), actor, id); err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Quote deleted successfully"))
}
