package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalio/evalio-api/internal/service"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
	"github.com/evalio/evalio-api/pkg/response"
)

// AccessCodeHandler wires code issuing and revocation to HTTP routes.
type AccessCodeHandler struct {
	codes *service.AccessCodeService
}

// NewAccessCodeHandler constructs a new AccessCodeHandler.
func NewAccessCodeHandler(codes *service.AccessCodeService) *AccessCodeHandler {
	return &AccessCodeHandler{codes: codes}
}

// Generate godoc
// @Summary Issue access codes for an evaluation
// @Tags AccessCodes
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body service.GenerateCodesRequest true "Code batches per class"
// @Success 201 {object} response.Envelope
// @Router /evaluations/{id}/codes [post]
func (h *AccessCodeHandler) Generate(c *gin.Context) {
	var req service.GenerateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid code generation payload"))
		return
	}
	codes, err := h.codes.Generate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, codes)
}

// List godoc
// @Summary List access codes of an evaluation
// @Tags AccessCodes
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/codes [get]
func (h *AccessCodeHandler) List(c *gin.Context) {
	codes, err := h.codes.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}

// Delete godoc
// @Summary Revoke an unused access code
// @Tags AccessCodes
// @Param id path string true "Access code ID"
// @Success 204
// @Router /codes/{id} [delete]
func (h *AccessCodeHandler) Delete(c *gin.Context) {
	if err := h.codes.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteForEvaluation godoc
// @Summary Revoke all unredeemed codes of an evaluation
// @Tags AccessCodes
// @Param id path string true "Evaluation ID"
// @Success 204
// @Router /evaluations/{id}/codes [delete]
func (h *AccessCodeHandler) DeleteForEvaluation(c *gin.Context) {
	if err := h.codes.DeleteForEvaluation(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
