package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var allRoles = []string{"admin", "employee", "direct_manager", "accountant", "final_manager"}

type RequestHandler struct {
	requestService service.RequestService
	userService    service.UserService
}

// NewRequestHandler sets up the routing dependencies for spend request endpoints
func NewRequestHandler(requestService service.RequestService, userService service.UserService) *RequestHandler {
	return &RequestHandler{requestService: requestService, userService: userService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		// Read endpoints are open to any authenticated role; the service
		// trims what each actor may see.
		requests.GET("", middleware.RequireRole(allRoles...), h.ListRequests)
		requests.GET("/:id", middleware.RequireRole(allRoles...), h.GetRequest)

		requests.POST("", middleware.RequirePermission(workflow.CapRequestCreate), h.CreateRequest)
		requests.PUT("/:id", middleware.RequirePermission(workflow.CapRequestUpdate), h.UpdateRequest)
		requests.DELETE("/:id", middleware.RequirePermission(workflow.CapRequestDelete), h.DeleteRequest)

		// Lifecycle transitions. The permission here is a cheap first gate;
		// the workflow policy re-checks capability, relationship and status.
		requests.POST("/:id/submit", middleware.RequirePermission(workflow.CapRequestSubmit), h.SubmitRequest)
		requests.POST("/:id/approve-dm", middleware.RequirePermission(workflow.CapApproveDM), h.ApproveAsDirectManager)
		requests.POST("/:id/approve-accountant", middleware.RequirePermission(workflow.CapApproveAccountant), h.ApproveAsAccountant)
		requests.POST("/:id/approve-final", middleware.RequirePermission(workflow.CapApproveFinal), h.ApproveAsFinalManager)
		requests.POST("/:id/transfer-funds", middleware.RequirePermission(workflow.CapTransferFunds), h.TransferFunds)
		requests.POST("/:id/reject", middleware.RequirePermission(workflow.CapRejectRequest), h.RejectRequest)
		requests.POST("/:id/return", middleware.RequirePermission(workflow.CapReturnRequest), h.ReturnRequest)
		requests.POST("/:id/cancel", middleware.RequireRole(allRoles...), h.CancelRequest)
	}
}

// CreateRequest handles POST /requests
// @Summary      Create a spend request
// @Description  Creates a new purchase or project spend request in DRAFT
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}

	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetRequest handles GET /requests/:id
// @Summary      Get a spend request
// @Description  Fetches one request with items, quotes (role permitting) and approval history
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.requestService.Get(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListRequests handles GET /requests with status/type/requester filters
// @Summary      List spend requests
// @Description  Retrieves a paginated, filterable list of requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Number of items per page (default 20)"
// @Param        status        query     string  false  "Filter by status"
// @Param        type          query     string  false  "Filter by request type"
// @Param        requester_id  query     string  false  "Filter by requester"
// @Param        mine          query     bool    false  "Only the caller's own requests"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}

	params := pagination.Parse(c)

	filter := repository.RequestFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if raw := c.Query("requester_id"); raw != "" {
		requesterID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid requester_id parameter"))
			return
		}
		filter.RequesterID = &requesterID
	}
	if c.Query("mine") == "true" {
		me := actor.ID
		filter.RequesterID = &me
	}

	requests, total, err := h.requestService.List(c.Request.Context(), actor, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch requests"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// UpdateRequest handles PUT /requests/:id for DRAFT and RETURNED requests
// @Summary      Update a spend request
// @Description  Edits an editable (DRAFT or RETURNED) request owned by the caller
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.UpdateRequestDTO  true  "Update Request Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteRequest handles DELETE /requests/:id
// @Summary      Delete a spend request
// @Description  Deletes a DRAFT or SUBMITTED request owned by the caller
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.requestService.Delete(c.Request.Context(), actor, id); err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Request deleted successfully"))
}

// transition parses the common comments payload and runs one lifecycle step.
func (h *RequestHandler) transition(c *gin.Context, fn func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error)) {
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

	result, err := fn(actor, id, req.Comments)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SubmitRequest handles POST /requests/:id/submit
// @Summary      Submit a request for approval
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true   "Request ID"
// @Param        payload  body      service.TransitionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/submit [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.Submit(c.Request.Context(), actor, id, comments)
	})
}

// ApproveAsDirectManager handles POST /requests/:id/approve-dm
// @Summary      Approve as direct manager
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true   "Request ID"
// @Param        payload  body      service.TransitionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve-dm [post]
func (h *RequestHandler) ApproveAsDirectManager(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.ApproveAsDirectManager(c.Request.Context(), actor, id, comments)
	})
}

// ApproveAsAccountant handles POST /requests/:id/approve-accountant
// @Summary      Approve as accountant
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true   "Request ID"
// @Param        payload  body      service.TransitionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve-accountant [post]
func (h *RequestHandler) ApproveAsAccountant(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.ApproveAsAccountant(c.Request.Context(), actor, id, comments)
	})
}

// ApproveAsFinalManager handles POST /requests/:id/approve-final
// @Summary      Approve as final manager
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true   "Request ID"
// @Param        payload  body      service.TransitionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve-final [post]
func (h *RequestHandler) ApproveAsFinalManager(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.ApproveAsFinalManager(c.Request.Context(), actor, id, comments)
	})
}

// TransferFunds handles POST /requests/:id/transfer-funds
// @Summary      Record the fund transfer
// @Description  Completes the request, recording the bank transaction reference and consuming budget
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.TransferFundsDTO  true  "Transfer details"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/transfer-funds [post]
func (h *RequestHandler) TransferFunds(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.TransferFundsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.TransferFunds(c.Request.Context(), actor, id, req.Comments, req.TransactionReference)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectRequest handles POST /requests/:id/reject
// @Summary      Reject a request
// @Description  Terminally rejects the request. Comments are required.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.TransitionDTO  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [post]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.Reject(c.Request.Context(), actor, id, comments)
	})
}

// ReturnRequest handles POST /requests/:id/return
// @Summary      Return a request for rework
// @Description  Sends the request back to the requester for edits. Comments are required.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.TransitionDTO  true  "Return reason"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/return [post]
func (h *RequestHandler) ReturnRequest(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.Return(c.Request.Context(), actor, id, comments)
	})
}

// CancelRequest handles POST /requests/:id/cancel
// @Summary      Cancel a request
// @Description  Requester cancels their own DRAFT or SUBMITTED request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true   "Request ID"
// @Param        payload  body      service.TransitionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/cancel [post]
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	h.transition(c, func(actor workflow.Actor, id uuid.UUID, comments string) (*service.RequestResponse, error) {
		return h.requestService.Cancel(c.Request.Context(), actor, id, comments)
	})
}
