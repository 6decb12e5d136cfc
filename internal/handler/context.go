package handler

import (
	"errors"
	"net/http"
	"time"

	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// currentActor resolves the authenticated caller into the identity the
// workflow core authorizes against. Auth middleware has already validated
// the token and stored the subject id in the context.
func currentActor(c *gin.Context, users service.UserService) (workflow.Actor, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return workflow.Actor{}, false
	}

	idStr, ok := raw.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return workflow.Actor{}, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return workflow.Actor{}, false
	}

	actor, err := users.ResolveActor(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Failed to resolve user identity"))
		return workflow.Actor{}, false
	}
	return actor, true
}

// parseIDParam reads a uuid path parameter, writing a 400 on failure.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name+" parameter"))
		return uuid.Nil, false
	}
	return id, true
}

// currentFiscalYear defaults budget lookups to the calendar year.
func currentFiscalYear() int {
	return time.Now().Year()
}

// writeWorkflowError maps core error kinds onto HTTP statuses: validation
// 400, authorization 403, state conflicts 409, storage failures 500.
func writeWorkflowError(c *gin.Context, err error) {
	var validationErr *workflow.ValidationError
	var persistenceErr *workflow.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, validationErr.Error()))
	case errors.Is(err, workflow.ErrUnauthorized):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, workflow.ErrInvalidRequestState), errors.Is(err, workflow.ErrQuoteLocked):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.As(err, &persistenceErr):
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}
