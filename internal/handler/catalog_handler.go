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

type CatalogHandler struct {
	catalogService service.CatalogService
	guard          *middleware.Guard
	log            logrus.FieldLogger
}

func NewCatalogHandler(catalogService service.CatalogService, guard *middleware.Guard, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, guard: guard, log: log}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/catalog")
	group.Use(h.guard.RequireRole(model.RoleCustomer, model.RoleAdmin))
	{
		group.GET("", h.ListProducts)
		group.GET("/companies", h.ListCompanies)
	}
}

// ListProducts handles GET /api/catalog
// @Summary      Browse catalog
// @Description  Products with stock left, soonest expiry first. Each item carries disponibilidad and diasRestantes.
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Case-insensitive name filter"
// @Param        precio     query     string  false  "free or priced, empty for all"
// @Param        empresaId  query     string  false  "Only products of this company"
// @Success      200        {object}  response.Response{data=[]service.ProductResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/catalog [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q service.CatalogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters")
		return
	}

	products, err := h.catalogService.ListAvailable(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// ListCompanies handles GET /api/catalog/companies
// @Summary      Catalog company filter options
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.CompanyOption}
// @Router       /api/catalog/companies [get]
func (h *CatalogHandler) ListCompanies(c *gin.Context) {
	companies, err := h.catalogService.ListCompanies(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, companies))
}
