package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalio/evalio-api/internal/service"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
	"github.com/evalio/evalio-api/pkg/response"
)

// SubmissionHandler serves the anonymous student flow: verify a code, then
// submit the response. No authentication, no identity.
type SubmissionHandler struct {
	codes     *service.AccessCodeService
	responses *service.ResponseService
}

// NewSubmissionHandler constructs a new SubmissionHandler.
func NewSubmissionHandler(codes *service.AccessCodeService, responses *service.ResponseService) *SubmissionHandler {
	return &SubmissionHandler{codes: codes, responses: responses}
}

// VerifyCodeRequest carries the entered code.
type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Verify godoc
// @Summary Verify an access code
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body VerifyCodeRequest true "Access code"
// @Success 200 {object} response.Envelope
// @Router /public/verify [post]
func (h *SubmissionHandler) Verify(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verify payload"))
		return
	}
	result, err := h.codes.Verify(c.Request.Context(), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Submit an anonymous evaluation response
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body service.SubmitResponseRequest true "Response payload"
// @Success 201 {object} response.Envelope
// @Router /public/responses [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	result, err := h.responses.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
