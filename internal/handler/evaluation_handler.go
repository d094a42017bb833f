package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalio/evalio-api/internal/models"
	"github.com/evalio/evalio-api/internal/service"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
	"github.com/evalio/evalio-api/pkg/response"
)

// EvaluationHandler wires evaluation campaigns to HTTP routes.
type EvaluationHandler struct {
	evaluations *service.EvaluationService
	stats       *service.StatsService
	exports     *service.ExportService
}

// NewEvaluationHandler constructs a new EvaluationHandler.
func NewEvaluationHandler(evaluations *service.EvaluationService, stats *service.StatsService, exports *service.ExportService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, stats: stats, exports: exports}
}

// List godoc
// @Summary List evaluations of a school
// @Tags Evaluations
// @Produce json
// @Param school_id query string false "School ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	evaluations, err := h.evaluations.List(c.Request.Context(), claimsFromContext(c), schoolIDQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, nil)
}

// Get godoc
// @Summary Get evaluation detail
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	evaluation, err := h.evaluations.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Create godoc
// @Summary Open a new evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body service.CreateEvaluationRequest true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	var req service.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evaluation payload"))
		return
	}
	evaluation, err := h.evaluations.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// Update godoc
// @Summary Update evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body service.UpdateEvaluationRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [put]
func (h *EvaluationHandler) Update(c *gin.Context) {
	var req service.UpdateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evaluation payload"))
		return
	}
	evaluation, err := h.evaluations.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Delete godoc
// @Summary Delete evaluation
// @Tags Evaluations
// @Param id path string true "Evaluation ID"
// @Success 204
// @Router /evaluations/{id} [delete]
func (h *EvaluationHandler) Delete(c *gin.Context) {
	if err := h.evaluations.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Responses godoc
// @Summary List submitted responses
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/responses [get]
func (h *EvaluationHandler) Responses(c *gin.Context) {
	responses, err := h.evaluations.Responses(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responses, nil)
}

// Stats godoc
// @Summary Aggregate statistics of an evaluation
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/stats [get]
func (h *EvaluationHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ExportCSV godoc
// @Summary Download responses as CSV
// @Tags Evaluations
// @Produce text/csv
// @Param id path string true "Evaluation ID"
// @Success 200 {file} file
// @Router /evaluations/{id}/export/csv [get]
func (h *EvaluationHandler) ExportCSV(c *gin.Context) {
	h.export(c, h.exports.CSV)
}

// ExportPDF godoc
// @Summary Download results report as PDF
// @Tags Evaluations
// @Produce application/pdf
// @Param id path string true "Evaluation ID"
// @Success 200 {file} file
// @Router /evaluations/{id}/export/pdf [get]
func (h *EvaluationHandler) ExportPDF(c *gin.Context) {
	h.export(c, h.exports.PDF)
}

func (h *EvaluationHandler) export(c *gin.Context, render func(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*service.ExportFile, error)) {
	file, err := render(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
