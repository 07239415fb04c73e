package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/middleware"
	"github.com/campusops/school-ops-api/internal/service"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
	"github.com/campusops/school-ops-api/pkg/response"
)

// SubstitutionHandler exposes the substitution engine endpoints.
type SubstitutionHandler struct {
	service *service.SubstitutionService
}

// NewSubstitutionHandler creates a new handler.
func NewSubstitutionHandler(svc *service.SubstitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{service: svc}
}

// Generate godoc
// @Summary Generate substitutions
// @Description Assign and persist substitutes for the vacated periods of a date
// @Tags Substitutions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateSubstitutionsRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /substitutions/generate [post]
func (h *SubstitutionHandler) Generate(c *gin.Context) {
	var req dto.GenerateSubstitutionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.TimingMeta(c))
}

// Preview godoc
// @Summary Preview substitutions
// @Description Run the assignment pass without persisting anything
// @Tags Substitutions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateSubstitutionsRequest true "Preview payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /substitutions/preview [post]
func (h *SubstitutionHandler) Preview(c *gin.Context) {
	var req dto.GenerateSubstitutionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution payload"))
		return
	}

	res, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.TimingMeta(c))
}
