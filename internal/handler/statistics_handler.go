package handler

import (
	"net/http"

	"ecofood/internal/middleware"
	"ecofood/internal/model"
	"ecofood/internal/service"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	guard             *middleware.Guard
	log               logrus.FieldLogger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, guard *middleware.Guard, log logrus.FieldLogger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, guard: guard, log: log}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	{
		statsGroup.GET("/requests", h.guard.RequireRole(model.RoleAdmin, model.RoleCompany, model.RoleCustomer), h.GetRequestStats)
		statsGroup.GET("/overview", h.guard.RequireRole(model.RoleAdmin), h.GetOverview)
	}
}

// @Summary      Request counts
// @Description  Customers get counts for requests they placed, companies for requests they received.
// @Description  Admins may pass actor_id and role to inspect another account, otherwise they get global counts.
// @Tags         Statistics
// @Produce      json
// @Param        actor_id  query     string  false  "Account ID (admin only)"
// @Param        role      query     string  false  "customer or company (admin only)"
// @Success      200       {object}  response.Response{data=model.RequestCounts}
// @Failure      400       {object}  response.Response
// @Failure      401       {object}  response.Response
// @Security     BearerAuth
// @Router       /api/statistics/requests [get]
func (h *StatisticsHandler) GetRequestStats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if !actor.IsAdmin() {
		counts, err := h.statisticsService.StatsFor(c.Request.Context(), actor.ID, actor.Role)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
		return
	}

	rawID := c.Query("actor_id")
	if rawID == "" {
		overview, err := h.statisticsService.Overview(c.Request.Context())
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, overview.Requests))
		return
	}

	actorID, err := uuid.Parse(rawID)
	if err != nil {
		badRequest(c, "Invalid actor_id")
		return
	}
	counts, err := h.statisticsService.StatsFor(c.Request.Context(), actorID, c.Query("role"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}

// @Summary      Admin overview
// @Description  Account, product and request totals for the admin dashboard
// @Tags         Statistics
// @Produce      json
// @Success      200  {object}  response.Response{data=model.Overview}
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/statistics/overview [get]
func (h *StatisticsHandler) GetOverview(c *gin.Context) {
	overview, err := h.statisticsService.Overview(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overview))
}
