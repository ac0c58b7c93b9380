package handler

import (
	"net/http"
	"time"

	"ecofood/internal/middleware"
	"ecofood/internal/model"
	"ecofood/internal/repository"
	"ecofood/internal/service"
	"ecofood/pkg/pagination"
	"ecofood/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AccountHandler struct {
	accountService service.AccountService
	guard          *middleware.Guard
	authLimit      gin.HandlerFunc
	cookieSecure   bool
	log            logrus.FieldLogger
}

type statusPayload struct {
	Status string `json:"estado" binding:"required,oneof=activo inactivo"`
}

// NewAccountHandler builds the handler. authLimit guards /login and /register; nil disables it.
func NewAccountHandler(accountService service.AccountService, guard *middleware.Guard, authLimit gin.HandlerFunc, cookieSecure bool, log logrus.FieldLogger) *AccountHandler {
	if authLimit == nil {
		authLimit = func(c *gin.Context) { c.Next() }
	}
	return &AccountHandler{
		accountService: accountService,
		guard:          guard,
		authLimit:      authLimit,
		cookieSecure:   cookieSecure,
		log:            log,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Public routes
	router.POST("/register", h.authLimit, h.Register)
	router.POST("/login", h.authLimit, h.Login)
	router.POST("/logout", h.Logout)

	// Any authenticated account
	anyRole := h.guard.RequireRole(model.RoleAdmin, model.RoleCompany, model.RoleCustomer)
	router.GET("/me", anyRole, h.GetMe)
	router.PUT("/me", anyRole, h.UpdateMe)

	accounts := router.Group("/api/accounts")
	accounts.Use(h.guard.RequireRole(model.RoleAdmin))
	{
		accounts.GET("", h.ListAccounts)
		accounts.POST("", h.CreateAccount)
		accounts.GET("/:id", h.GetAccount)
		accounts.PUT("/:id", h.UpdateAccount)
		accounts.PATCH("/:id/status", h.SetAccountStatus)
		accounts.DELETE("/:id", h.DeleteAccount)
	}
}

// Register handles POST /register for customer self sign-up
// @Summary      Register customer
// @Description  Creates an active customer account. Passwords need 8+ characters with upper, lower, digit and symbol.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterInput  true  "Registration payload"
// @Success      201      {object}  response.Response{data=model.Account}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /register [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, account))
}

// Login handles POST /login to authenticate and return a JWT token
// @Summary      Login
// @Description  Authenticates an account by email and password, returning a JWT token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginInput   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	tokenRes, err := h.accountService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	middleware.SetTokenCookie(c, tokenRes.Token, time.Until(tokenRes.ExpiresAt), h.cookieSecure)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout handles POST /logout by clearing the access token cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /logout [post]
func (h *AccountHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// GetMe handles GET /me to return the authenticated account
// @Summary      Get current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=model.Account}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /me [get]
func (h *AccountHandler) GetMe(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	account, err := h.accountService.Me(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, account))
}

// UpdateMe handles PUT /me for profile edits
// @Summary      Update own profile
// @Description  Customers must keep nombre, direccion and comuna. The principal admin cannot be edited.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateAccountInput  true  "Profile fields"
// @Success      200      {object}  response.Response{data=model.Account}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /me [put]
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.UpdateAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, account))
}

// ListAccounts handles GET /api/accounts
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        tipo    query     string  false  "admin, company or customer"
// @Param        estado  query     string  false  "activo or inactivo"
// @Param        search  query     string  false  "Name or email substring"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AccountFilter{
		Role:   c.Query("tipo"),
		Status: c.Query("estado"),
		Search: c.Query("search"),
		Page:   p.Page,
		Limit:  p.Limit,
	}

	accounts, total, err := h.accountService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(accounts, total, p)))
}

// CreateAccount handles POST /api/accounts for admin-issued accounts
// @Summary      Create account
// @Description  Admins create companies (rut and direccion required), customers or further admins. New admins are never principal.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateAccountInput  true  "Account payload"
// @Success      201      {object}  response.Response{data=model.Account}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, account))
}

// GetAccount handles GET /api/accounts/:id
// @Summary      Get account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  response.Response{data=model.Account}
// @Failure      404  {object}  response.Response
// @Router       /api/accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	account, err := h.accountService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, account))
}

// UpdateAccount handles PUT /api/accounts/:id
// @Summary      Update account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Account ID"
// @Param        payload  body      service.UpdateAccountInput  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Account}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, account))
}

// SetAccountStatus handles PATCH /api/accounts/:id/status
// @Summary      Activate or deactivate account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Account ID"
// @Param        payload  body      statusPayload  true  "New estado"
// @Success      200      {object}  response.Response{data=model.Account}
// @Failure      403      {object}  response.Response
// @Router       /api/accounts/{id}/status [patch]
func (h *AccountHandler) SetAccountStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	account, err := h.accountService.SetStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, account))
}

// DeleteAccount handles DELETE /api/accounts/:id
// @Summary      Delete account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.accountService.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
