package handler

import (
	"net/http"

	"supplychain/internal/service"
	"supplychain/pkg/pagination"
	"supplychain/pkg/response"

	"github.com/gin-gonic/gin"
)

type PlanningHandler struct {
	reorderService service.ReorderService
}

func NewPlanningHandler(reorderService service.ReorderService) *PlanningHandler {
	return &PlanningHandler{reorderService: reorderService}
}

func (h *PlanningHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/eoq", h.ComputeEOQ)
	router.POST("/policies", h.CreatePolicy)
	router.GET("/policies", h.ListPolicies)
	router.GET("/policies/:id", h.GetPolicy)
	router.GET("/products/:id/reorder", h.EvaluateReorder)
	router.GET("/reorders", h.ScanReorders)
}

// ComputeEOQ prices an ad-hoc order quantity
// @Summary      Compute EOQ
// @Description  Computes the economic order quantity and its annual cost breakdown
// @Tags         planning
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.EOQRequest  true  "EOQ inputs"
// @Success      200      {object}  response.Response{data=service.EOQResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/planning/eoq [post]
func (h *PlanningHandler) ComputeEOQ(c *gin.Context) {
	var req service.EOQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.reorderService.ComputeEOQ(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreatePolicy stores a reorder policy, replacing the product's active one
// @Summary      Create reorder policy
// @Tags         planning
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePolicyRequest  true  "Policy"
// @Success      201      {object}  response.Response{data=model.ReorderPolicy}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/planning/policies [post]
func (h *PlanningHandler) CreatePolicy(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	policy, err := h.reorderService.CreatePolicy(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, policy))
}

// ListPolicies
// @Summary      List reorder policies
// @Tags         planning
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  false  "Product ID"
// @Param        active      query     bool    false  "Only active policies"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Router       /api/planning/policies [get]
func (h *PlanningHandler) ListPolicies(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	policies, total, err := h.reorderService.ListPolicies(c.Request.Context(), actor, service.ListPoliciesRequest{
		ProductID:  c.Query("product_id"),
		ActiveOnly: c.Query("active") == "true",
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"policies": policies,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// GetPolicy
// @Summary      Get reorder policy
// @Tags         planning
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Policy ID"
// @Success      200  {object}  response.Response{data=model.ReorderPolicy}
// @Failure      404  {object}  response.Response
// @Router       /api/planning/policies/{id} [get]
func (h *PlanningHandler) GetPolicy(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	policy, err := h.reorderService.GetPolicy(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, policy))
}

// EvaluateReorder answers whether a product needs replenishing now. Data is
// null when it does not or when the product has no active policy.
// @Summary      Evaluate reorder need
// @Tags         planning
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=reorder.Suggestion}
// @Failure      422  {object}  response.Response
// @Router       /api/planning/products/{id}/reorder [get]
func (h *PlanningHandler) EvaluateReorder(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	suggestion, err := h.reorderService.EvaluateReorder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, suggestion))
}

// ScanReorders
// @Summary      Scan active policies
// @Description  Evaluates every active reorder policy of the organization
// @Tags         planning
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ScanResult}
// @Router       /api/planning/reorders [get]
func (h *PlanningHandler) ScanReorders(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	res, err := h.reorderService.ScanReorders(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
