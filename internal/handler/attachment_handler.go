package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	attachmentService service.AttachmentService
	userService       service.UserService
}

// NewAttachmentHandler sets up the routing dependencies for attachment endpoints
func NewAttachmentHandler(attachmentService service.AttachmentService, userService service.UserService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService, userService: userService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AttachmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests/:id/attachments")
	{
		requests.POST("", middleware.RequireRole(allRoles...), h.UploadAttachment)
		requests.GET("", middleware.RequireRole(allRoles...), h.ListAttachments)
	}

	attachments := router.Group("/api/attachments")
	{
		attachments.GET("/:id/download", middleware.RequireRole(allRoles...), h.DownloadAttachment)
		attachments.DELETE("/:id", middleware.RequireRole(allRoles...), h.DeleteAttachment)
	}
}

// DownloadAttachment handles GET /attachments/:id/download
// @Summary      Download an attachment
// @Tags         attachments
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id   path      string  true  "Attachment ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /api/attachments/{id}/download [get]
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	meta, rc, err := h.attachmentService.Download(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+meta.FileName+`"`)
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, meta.SizeBytes, contentType, rc, nil)
}

// UploadAttachment handles POST /requests/:id/attachments (multipart)
// @Summary      Upload an attachment
// @Description  Attaches a file to an editable request owned by the caller
// @Tags         attachments
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Request ID"
// @Param        file  formData  file    true  "File to attach"
// @Success      201   {object}  response.Response{data=service.AttachmentResponse}
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /api/requests/{id}/attachments [post]
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing file in form data"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read uploaded file"))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.attachmentService.Store(c.Request.Context(), actor, id, fileHeader.Filename, contentType, file)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListAttachments handles GET /requests/:id/attachments
// @Summary      List attachments on a request
// @Tags         attachments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.AttachmentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/attachments [get]
func (h *AttachmentHandler) ListAttachments(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.attachmentService.ListByRequest(c.Request.Context(), actor, id)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteAttachment handles DELETE /attachments/:id
// @Summary      Delete an attachment
// @Description  Removes an attachment from a still-editable request
// @Tags         attachments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Attachment ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/attachments/{id} [delete]
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	actor, ok := currentActor(c, h.userService)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.attachmentService.Delete(c.Request.Context(), actor, id); err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Attachment deleted successfully"))
}
