package handler

import (
	"net/http"

	"ecofood/internal/middleware"
	"ecofood/internal/model"
	"ecofood/internal/service"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RequestHandler struct {
	requestService service.RequestService
	guard          *middleware.Guard
	log            logrus.FieldLogger
}

func NewRequestHandler(requestService service.RequestService, guard *middleware.Guard, log logrus.FieldLogger) *RequestHandler {
	return &RequestHandler{requestService: requestService, guard: guard, log: log}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	resolvers := h.guard.RequireRole(model.RoleCompany, model.RoleAdmin)
	{
		requests.POST("", h.guard.RequireRole(model.RoleCustomer), h.SubmitRequest)
		requests.GET("/mine", h.guard.RequireRole(model.RoleCustomer, model.RoleCompany), h.GetMyRequests)
		requests.GET("/:id", h.guard.RequireRole(model.RoleAdmin, model.RoleCompany, model.RoleCustomer), h.GetRequest)
		requests.PUT("/:id/approve", resolvers, h.ApproveRequest)
		requests.PUT("/:id/reject", resolvers, h.RejectRequest)
	}
}

// SubmitRequest handles POST /api/requests
// @Summary      Request a product
// @Description  Creates a pendiente request. Stock is only reserved when the company approves.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SubmitRequestInput  true  "Product and quantity"
// @Success      201      {object}  response.Response{data=model.ProductRequest}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.SubmitRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	created, err := h.requestService.Submit(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// GetMyRequests handles GET /api/requests/mine
// @Summary      List own requests
// @Description  Customers see what they placed, companies what they received. Newest first.
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        estado  query     string  false  "pendiente, aprobada or rechazada"
// @Success      200     {object}  response.Response{data=[]model.ProductRequest}
// @Failure      400     {object}  response.Response
// @Router       /api/requests/mine [get]
func (h *RequestHandler) GetMyRequests(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	requests, err := h.requestService.ListMine(c.Request.Context(), actor, c.Query("estado"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// GetRequest handles GET /api/requests/:id
// @Summary      Get request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.ProductRequest}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	found, err := h.requestService.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, found))
}

// ApproveRequest handles PUT /api/requests/:id/approve
// @Summary      Approve request
// @Description  Marks the request aprobada and takes its quantity out of stock in one transaction.
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.ProductRequest}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response  "Already resolved or insufficient stock"
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	approved, err := h.requestService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approved))
}

// RejectRequest handles PUT /api/requests/:id/reject
// @Summary      Reject request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Request ID"
// @Param        payload  body      service.RejectRequestInput  false  "Optional motivo"
// @Success      200      {object}  response.Response{data=model.ProductRequest}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.RejectRequestInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
	}

	rejected, err := h.requestService.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rejected))
}
