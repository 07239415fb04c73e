package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/service"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
	"github.com/campusops/school-ops-api/pkg/response"
)

// ConfigHandler exposes the scheduling configuration endpoints.
type ConfigHandler struct {
	service *service.ConfigService
}

// NewConfigHandler creates a new handler.
func NewConfigHandler(svc *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{service: svc}
}

// Get godoc
// @Summary Get scheduling configuration
// @Description Return the constraint parameters for a school
// @Tags Configuration
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schools/{schoolId}/config [get]
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Update godoc
// @Summary Update scheduling configuration
// @Description Replace the constraint parameters for a school
// @Tags Configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schoolId path string true "School ID"
// @Param payload body dto.UpdateSchedulingConfigRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools/{schoolId}/config [put]
func (h *ConfigHandler) Update(c *gin.Context) {
	var req dto.UpdateSchedulingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}
	req.SchoolID = c.Param("schoolId")

	cfg, err := h.service.Update(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
