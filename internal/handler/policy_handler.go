package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
	"github.com/skyward/fts-api/pkg/response"
)

type policyService interface {
	Get(ctx context.Context, courseID string) (*models.ProgressionPolicy, error)
	Update(ctx context.Context, courseID string, req dto.UpdatePolicyRequest) (*models.ProgressionPolicy, error)
}

// PolicyHandler exposes the per-course progression policy.
type PolicyHandler struct {
	policies policyService
}

// NewPolicyHandler constructs PolicyHandler.
func NewPolicyHandler(policies policyService) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

// Get godoc
// @Summary Effective progression policy for a course
// @Tags Policies
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/policy [get]
func (h *PolicyHandler) Get(c *gin.Context) {
	policy, err := h.policies.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Update godoc
// @Summary Replace a course's progression policy
// @Tags Policies
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body dto.UpdatePolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/policy [put]
func (h *PolicyHandler) Update(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	policy, err := h.policies.Update(c.Request.Context(), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}
