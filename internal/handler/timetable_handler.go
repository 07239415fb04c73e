package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/middleware"
	"github.com/campusops/school-ops-api/internal/service"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
	"github.com/campusops/school-ops-api/pkg/response"
)

// TimetableHandler exposes the timetable engine endpoints.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler creates a new handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate timetable
// @Description Build a weekly timetable proposal for the given sections. Pass commit=true to persist it.
// @Tags Timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param commit query bool false "Persist the generated slots"
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	commit, _ := strconv.ParseBool(c.Query("commit"))
	if commit && len(res.Slots) > 0 {
		if err := h.service.Apply(c.Request.Context(), req.SectionIDs, res.Slots); err != nil {
			response.Error(c, err)
			return
		}
	}

	response.JSON(c, http.StatusOK, res, nil, middleware.TimingMeta(c))
}

// Validate godoc
// @Summary Validate timetable
// @Description Report rule violations in the persisted timetable
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param schoolId query string true "School ID"
// @Param wingId query string false "Wing ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/validate [get]
func (h *TimetableHandler) Validate(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}

	res, err := h.service.Validate(c.Request.Context(), schoolID, c.Query("wingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Freeze godoc
// @Summary Freeze timetable
// @Description Publish the current timetable as an active master snapshot
// @Tags Timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.FreezeTimetableRequest true "Freeze payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/freeze [post]
func (h *TimetableHandler) Freeze(c *gin.Context) {
	var req dto.FreezeTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid freeze payload"))
		return
	}

	snapshot, err := h.service.Freeze(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snapshot)
}

// Unfreeze godoc
// @Summary Unfreeze timetable
// @Description Deactivate the active snapshot for a scope
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param schoolId query string true "School ID"
// @Param wingId query string false "Wing ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/unfreeze [post]
func (h *TimetableHandler) Unfreeze(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}

	snapshot, err := h.service.Unfreeze(c.Request.Context(), schoolID, c.Query("wingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// FreezeStatus godoc
// @Summary Freeze status
// @Description Report whether generation is blocked for a scope
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param schoolId query string true "School ID"
// @Param wingId query string false "Wing ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/freeze-status [get]
func (h *TimetableHandler) FreezeStatus(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}

	status, err := h.service.IsFrozen(c.Request.Context(), schoolID, c.Query("wingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
