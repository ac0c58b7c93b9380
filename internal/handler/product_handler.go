package handler

import (
	"net/http"

	"ecofood/internal/middleware"
	"ecofood/internal/model"
	"ecofood/internal/service"
	"ecofood/pkg/pagination"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	productService service.ProductService
	guard          *middleware.Guard
	log            logrus.FieldLogger
}

func NewProductHandler(productService service.ProductService, guard *middleware.Guard, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{productService: productService, guard: guard, log: log}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	owners := h.guard.RequireRole(model.RoleCompany, model.RoleAdmin)
	{
		products.GET("", h.guard.RequireRole(model.RoleAdmin), h.GetProducts)
		products.GET("/mine", owners, h.GetMyProducts)
		products.POST("", owners, h.CreateProduct)
		products.PUT("/:id", owners, h.UpdateProduct)
		products.DELETE("/:id", owners, h.DeleteProduct)
		products.GET("/:id/movements", owners, h.GetMovements)
	}
}

// GetProducts handles GET /api/products
// @Summary      List all products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name substring"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	p := pagination.Parse(c)

	products, total, err := h.productService.ListAll(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(products, total, p)))
}

// GetMyProducts handles GET /api/products/mine
// @Summary      List own products
// @Description  Every product of the calling company, including depleted and expired ones.
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/products/mine [get]
func (h *ProductHandler) GetMyProducts(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	products, err := h.productService.ListMine(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// CreateProduct handles POST /api/products
// @Summary      Create product
// @Description  Companies publish under their own account. Admins must pass empresaId.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ProductInput  true  "Product payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	product, err := h.productService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct handles PUT /api/products/:id
// @Summary      Update product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Product ID"
// @Param        payload  body      service.ProductInput  true  "Product payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	product, err := h.productService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct handles DELETE /api/products/:id
// @Summary      Delete product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// GetMovements handles GET /api/products/:id/movements
// @Summary      Stock movements
// @Description  Stock changes recorded for a product, newest first
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=[]model.StockMovement}
// @Failure      403  {object}  response.Response
// @Router       /api/products/{id}/movements [get]
func (h *ProductHandler) GetMovements(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	movements, err := h.productService.Movements(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, movements))
}
