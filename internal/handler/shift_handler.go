package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/finscale/finscale-api/internal/middleware"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/internal/service"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ShiftHandler handles the shift board and the shift lifecycle
type ShiftHandler struct {
	shiftService *service.ShiftService
	loc          *time.Location
}

func NewShiftHandler(shiftService *service.ShiftService, loc *time.Location) *ShiftHandler {
	return &ShiftHandler{shiftService: shiftService, loc: loc}
}

// List godoc
// @Summary List shifts
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses (available,booked,completed,cancelled)"
// @Param specialty query string false "Specialty"
// @Param institution query string false "Institution"
// @Param doctor_id query string false "Booked doctor"
// @Param from query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} model.PageResponse
// @Router /api/v1/shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	page, err := h.shiftService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Mine godoc
// @Summary List the current user's shifts
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses"
// @Param from query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} model.PageResponse
// @Router /api/v1/shifts/mine [get]
func (h *ShiftHandler) Mine(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	page, err := h.shiftService.Mine(c.Request.Context(), middleware.CurrentUserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Get godoc
// @Summary Get a shift
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} model.Shift
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id} [get]
func (h *ShiftHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	shift, err := h.shiftService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shift)
}

// Create godoc
// @Summary Publish a shift
// @Tags Shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateShiftRequest true "Shift"
// @Success 201 {object} model.Shift
// @Failure 403 {object} model.ErrorResponse
// @Router /api/v1/shifts [post]
func (h *ShiftHandler) Create(c *gin.Context) {
	var req model.CreateShiftRequest
	if !bindJSON(c, &req) {
		return
	}

	shift, err := h.shiftService.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, shift)
}

// Update godoc
// @Summary Edit an available shift
// @Tags Shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param body body model.UpdateShiftRequest true "Fields to change"
// @Success 200 {object} model.Shift
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id} [put]
func (h *ShiftHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateShiftRequest
	if !bindJSON(c, &req) {
		return
	}

	shift, err := h.shiftService.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shift)
}

// Delete godoc
// @Summary Delete a shift
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id} [delete]
func (h *ShiftHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.shiftService.Delete(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Shift deleted"})
}

// Book godoc
// @Summary Book an available shift
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} model.Shift
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id}/book [post]
func (h *ShiftHandler) Book(c *gin.Context) {
	h.transition(c, h.shiftService.Book)
}

// Release godoc
// @Summary Give a booked shift back
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} model.Shift
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id}/release [post]
func (h *ShiftHandler) Release(c *gin.Context) {
	h.transition(c, h.shiftService.Release)
}

// Complete godoc
// @Summary Mark a booked shift as completed
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} model.Shift
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id}/complete [post]
func (h *ShiftHandler) Complete(c *gin.Context) {
	h.transition(c, h.shiftService.Complete)
}

// Cancel godoc
// @Summary Cancel a shift
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} model.Shift
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/shifts/{id}/cancel [post]
func (h *ShiftHandler) Cancel(c *gin.Context) {
	h.transition(c, h.shiftService.Cancel)
}

type transitionFunc func(ctx context.Context, a service.Actor, id uuid.UUID) (*model.Shift, error)

func (h *ShiftHandler) transition(c *gin.Context, apply transitionFunc) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	shift, err := apply(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, shift)
}

// filter converts the query string into a repository filter
func (h *ShiftHandler) filter(c *gin.Context) (repository.ShiftFilter, bool) {
	var q model.ShiftListQuery
	if !bindQuery(c, &q) {
		return repository.ShiftFilter{}, false
	}

	filter := repository.ShiftFilter{
		Specialty:   q.Specialty,
		Institution: q.Institution,
		Page:        q.Page,
		Limit:       q.Limit,
	}

	if q.Status != "" {
		for _, raw := range strings.Split(q.Status, ",") {
			st := model.ShiftStatus(strings.TrimSpace(raw))
			if !st.Valid() {
				respondError(c, apperrors.BadRequest("invalid status "+string(st)))
				return filter, false
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	if q.DoctorID != "" {
		id, err := uuid.Parse(q.DoctorID)
		if err != nil {
			respondError(c, apperrors.BadRequest("invalid doctor_id"))
			return filter, false
		}
		filter.DoctorID = &id
	}

	from, to, err := dateRange(q.From, q.To, h.loc)
	if err != nil {
		respondError(c, err)
		return filter, false
	}
	filter.From, filter.To = from, to
	return filter, true
}
