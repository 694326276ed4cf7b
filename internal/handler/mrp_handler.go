package handler

import (
	"fmt"
	"net/http"

	"supplychain/internal/service"
	"supplychain/pkg/pagination"
	"supplychain/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MRPHandler struct {
	mrpService service.MRPService
}

func NewMRPHandler(mrpService service.MRPService) *MRPHandler {
	return &MRPHandler{mrpService: mrpService}
}

func (h *MRPHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/mrp/runs")
	{
		group.POST("", h.RunMRP)
		group.GET("", h.ListRuns)
		group.GET("/:id", h.GetRun)
		group.GET("/:id/requirements", h.ListRequirements)
		group.GET("/:id/export", h.ExportRequirements)
	}
}

// RunMRP nets open demand against inventory and stores the requirements.
// A run that failed during planning is still returned with status "failed".
// @Summary      Run MRP
// @Tags         mrp
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RunMRPRequest  false  "Run options"
// @Success      201      {object}  response.Response{data=model.MRPRun}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/planning/mrp/runs [post]
func (h *MRPHandler) RunMRP(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.RunMRPRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}

	run, err := h.mrpService.RunMRP(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, run))
}

// ListRuns
// @Summary      List MRP runs
// @Tags         mrp
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/planning/mrp/runs [get]
func (h *MRPHandler) ListRuns(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	runs, total, err := h.mrpService.ListRuns(c.Request.Context(), actor, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// GetRun
// @Summary      Get MRP run
// @Tags         mrp
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  response.Response{data=model.MRPRun}
// @Failure      404  {object}  response.Response
// @Router       /api/planning/mrp/runs/{id} [get]
func (h *MRPHandler) GetRun(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	run, err := h.mrpService.GetRun(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, run))
}

// ListRequirements
// @Summary      List run requirements
// @Tags         mrp
// @Security     BearerAuth
// @Produce      json
// @Param        id          path      string  true   "Run ID"
// @Param        product_id  query     string  false  "Product ID"
// @Param        action      query     string  false  "purchase or produce"
// @Param        source      query     string  false  "sales_order or safety_stock"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Failure      404         {object}  response.Response
// @Router       /api/planning/mrp/runs/{id}/requirements [get]
func (h *MRPHandler) ListRequirements(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	reqs, total, err := h.mrpService.ListRequirements(c.Request.Context(), actor, c.Param("id"), service.ListRequirementsRequest{
		ProductID: c.Query("product_id"),
		Action:    c.Query("action"),
		Source:    c.Query("source"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requirements": reqs,
		"total":        total,
		"page":         p.Page,
		"limit":        p.Limit,
	}))
}

// ExportRequirements downloads the run as a spreadsheet
// @Summary      Export run requirements
// @Tags         mrp
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id   path  string  true  "Run ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /api/planning/mrp/runs/{id}/export [get]
func (h *MRPHandler) ExportRequirements(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	data, fileName, err := h.mrpService.ExportRequirements(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, xlsxContentType, data)
}
