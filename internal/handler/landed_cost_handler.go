package handler

import (
	"net/http"

	"supplychain/internal/middleware"
	"supplychain/internal/service"
	"supplychain/pkg/pagination"
	"supplychain/pkg/response"

	"github.com/gin-gonic/gin"
)

type LandedCostHandler struct {
	landedCostService service.LandedCostService
}

func NewLandedCostHandler(landedCostService service.LandedCostService) *LandedCostHandler {
	return &LandedCostHandler{landedCostService: landedCostService}
}

func (h *LandedCostHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/landed-costs")
	{
		group.POST("", h.CreateHeader)
		group.GET("", h.ListHeaders)
		group.GET("/:id", h.GetHeader)
		group.POST("/:id/lines", h.AddLine)
		group.DELETE("/:id/lines/:lineId", h.RemoveLine)
		group.POST("/:id/calculate", h.Calculate)
		// Applying rewrites product costs
		group.POST("/:id/apply", middleware.RequireRole("admin", "manager"), h.Apply)
	}
}

// CreateHeader opens a landed-cost sheet for a purchase order
// @Summary      Create landed cost
// @Tags         landed-cost
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLandedCostRequest  true  "Header"
// @Success      201      {object}  response.Response{data=model.LandedCostHeader}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/planning/landed-costs [post]
func (h *LandedCostHandler) CreateHeader(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.CreateLandedCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	header, err := h.landedCostService.CreateHeader(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, header))
}

// ListHeaders
// @Summary      List landed costs
// @Tags         landed-cost
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "draft, calculated or applied"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/planning/landed-costs [get]
func (h *LandedCostHandler) ListHeaders(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	headers, total, err := h.landedCostService.ListHeaders(c.Request.Context(), actor, c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"landed_costs": headers,
		"total":        total,
		"page":         p.Page,
		"limit":        p.Limit,
	}))
}

// GetHeader
// @Summary      Get landed cost
// @Tags         landed-cost
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Landed cost ID"
// @Success      200  {object}  response.Response{data=service.LandedCostDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/planning/landed-costs/{id} [get]
func (h *LandedCostHandler) GetHeader(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	detail, err := h.landedCostService.GetHeader(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// AddLine
// @Summary      Add landed cost line
// @Tags         landed-cost
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Landed cost ID"
// @Param        payload  body      service.AddLandedCostLineRequest  true  "Cost line"
// @Success      201      {object}  response.Response{data=model.LandedCostLine}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/planning/landed-costs/{id}/lines [post]
func (h *LandedCostHandler) AddLine(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.AddLandedCostLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	line, err := h.landedCostService.AddLine(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, line))
}

// RemoveLine
// @Summary      Remove landed cost line
// @Tags         landed-cost
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      string  true  "Landed cost ID"
// @Param        lineId  path      string  true  "Line ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Router       /api/planning/landed-costs/{id}/lines/{lineId} [delete]
func (h *LandedCostHandler) RemoveLine(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.landedCostService.RemoveLine(c.Request.Context(), actor, c.Param("id"), c.Param("lineId")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Landed cost line removed successfully"))
}

// Calculate allocates every cost line over the purchase order lines
// @Summary      Calculate landed cost
// @Tags         landed-cost
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Landed cost ID"
// @Success      200  {object}  response.Response{data=service.LandedCostDetail}
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/planning/landed-costs/{id}/calculate [post]
func (h *LandedCostHandler) Calculate(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	detail, err := h.landedCostService.Calculate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}

// Apply posts the calculated allocation into product purchase costs
// @Summary      Apply landed cost
// @Tags         landed-cost
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Landed cost ID"
// @Success      200  {object}  response.Response{data=service.LandedCostDetail}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/planning/landed-costs/{id}/apply [post]
func (h *LandedCostHandler) Apply(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	detail, err := h.landedCostService.Apply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, detail))
}
