package handler

import (
	"net/http"

	"github.com/finscale/finscale-api/internal/middleware"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles push tokens and the notification log
type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterToken godoc
// @Summary Register a device for push notifications
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterTokenRequest true "FCM token"
// @Success 200 {object} model.SuccessResponse
// @Router /api/notifications/token [post]
func (h *NotificationHandler) RegisterToken(c *gin.Context) {
	var req model.RegisterTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.notificationService.RegisterToken(c.Request.Context(), middleware.CurrentUserID(c), req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Token registered successfully"})
}

// UnregisterToken godoc
// @Summary Stop push notifications to a device
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UnregisterTokenRequest true "FCM token"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/notifications/token [delete]
func (h *NotificationHandler) UnregisterToken(c *gin.Context) {
	var req model.UnregisterTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.notificationService.UnregisterToken(c.Request.Context(), middleware.CurrentUserID(c), req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Token unregistered successfully"})
}

// Send godoc
// @Summary Send a notification to a user or a device token
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SendNotificationRequest true "Notification"
// @Success 200 {object} model.SendNotificationResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/notifications/send [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req model.SendNotificationRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.notificationService.Send(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary Latest notifications of the current user
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.NotificationListResponse
// @Router /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	resp, err := h.notificationService.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Notification marked as read"})
}
