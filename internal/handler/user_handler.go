package handler

import (
	"net/http"

	"github.com/finscale/finscale-api/internal/middleware"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/internal/service"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/storage"
	"github.com/gin-gonic/gin"
)

// UserHandler handles profile endpoints
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name or email"
// @Param specialization query string false "Specialization"
// @Param profession query string false "Profession"
// @Success 200 {array} model.UserResponse
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), repository.UserFilter{
		Query:          c.Query("q"),
		Specialization: c.Query("specialization"),
		Profession:     c.Query("profession"),
		Limit:          repository.MaxUserList,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Get godoc
// @Summary Get a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.UserResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update the current user's profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdateProfileRequest true "Profile fields to change"
// @Success 200 {object} model.UserResponse
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req model.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateNotificationSettings godoc
// @Summary Update notification preferences
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdateNotificationSettingsRequest true "Notification settings"
// @Success 200 {object} model.UserResponse
// @Router /api/v1/users/me/notifications [put]
func (h *UserHandler) UpdateNotificationSettings(c *gin.Context) {
	var req model.UpdateNotificationSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateNotificationSettings(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image (max 5MB)"
// @Success 200 {object} model.UserResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 503 {object} model.ErrorResponse
// @Router /api/v1/users/me/avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	if !h.userService.AvatarsEnabled() {
		respondError(c, apperrors.Unavailable("file upload service unavailable"))
		return
	}

	// Leave room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAvatarSize+1<<20)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "avatar file is required", Message: err.Error()})
		return
	}
	defer file.Close()

	user, err := h.userService.UploadAvatar(c.Request.Context(), middleware.CurrentUserID(c),
		file, header.Size, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteMe godoc
// @Summary Delete the current account
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SuccessResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/users/me [delete]
func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Account deleted"})
}
