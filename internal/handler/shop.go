// internal/handler/shop.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"geekshop/internal/auth"
	"geekshop/internal/domain"
	"geekshop/internal/middleware"
	"geekshop/internal/pricing"
	"geekshop/internal/shop"
	val "geekshop/internal/validator"

	"github.com/gin-gonic/gin"
)

type ShopHandler struct {
	shop   *shop.Shop
	tokens *auth.TokenService
}

func NewShopHandler(s *shop.Shop, tokens *auth.TokenService) *ShopHandler {
	return &ShopHandler{shop: s, tokens: tokens}
}

// Routes вешает публичные ручки на r, а корзину и оплату прячет за requireAuth.
func (h *ShopHandler) Routes(r gin.IRouter, requireAuth gin.HandlerFunc) {
	v1 := r.Group("/api/v1")
	v1.POST("/register", h.Register)
	v1.POST("/login", h.Login)
	v1.GET("/categories", h.Categories)
	v1.GET("/products", h.Products)

	private := v1.Group("", requireAuth, h.session)
	{
		private.GET("/cart", h.Cart)
		private.POST("/cart/items/:id", h.AddToCart)
		private.DELETE("/cart/items/:id", h.RemoveFromCart)
		private.POST("/cart/bonus", h.ApplyBonus)
		private.DELETE("/cart/bonus", h.ResetBonus)
		private.POST("/checkout", h.Checkout)
		private.POST("/payment", h.Pay)
		private.GET("/profile", h.Profile)
	}
}

// === DTO ===

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=128"`
	Login    string `json:"login" validate:"required,notblank,nospace,max=64"`
	Password string `json:"password" validate:"required,notblank,maxbytes=72"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// Register godoc
// @Summary Register a customer
// @Tags account
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Customer"
// @Success 201 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/register [post]
func (h *ShopHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := val.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.shop.Accounts().Register(c.Request.Context(), req.Name, req.Login, req.Password)
	if err != nil {
		h.fail(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": id})
}

// Login godoc
// @Summary Exchange login and password for a JWT
// @Tags account
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/login [post]
func (h *ShopHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := val.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.shop.Accounts().Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid login or password"})
			return
		}
		h.fail(c, "Login", err)
		return
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		slog.Error("Token generation failed", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Categories godoc
// @Summary List catalog categories
// @Tags catalog
// @Produce json
// @Success 200 {array} domain.Category
// @Router /api/v1/categories [get]
func (h *ShopHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, h.shop.Categories())
}

// Products godoc
// @Summary List products
// @Tags catalog
// @Produce json
// @Param category query string false "Category name, All for no filter"
// @Success 200 {array} domain.Product
// @Router /api/v1/products [get]
func (h *ShopHandler) Products(c *gin.Context) {
	products, err := h.shop.Catalog(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.fail(c, "Products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Cart godoc
// @Summary Show the cart with totals
// @Tags cart
// @Produce json
// @Param days query int false "Rental days, at least 1"
// @Success 200 {object} shop.CartView
// @Failure 400 {object} map[string]string
// @Router /api/v1/cart [get]
func (h *ShopHandler) Cart(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	view, err := h.shop.Cart(c.Request.Context(), sessionKey(c), days)
	if err != nil {
		h.fail(c, "Cart", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddToCart godoc
// @Summary Add one unit of a product to the cart
// @Tags cart
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]string{"status":"ok"}
// @Failure 404 {object} map[string]string
// @Router /api/v1/cart/items/{id} [post]
func (h *ShopHandler) AddToCart(c *gin.Context) {
	productID, ok := productParam(c)
	if !ok {
		return
	}
	if err := h.shop.AddToCart(c.Request.Context(), sessionKey(c), productID); err != nil {
		h.fail(c, "AddToCart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RemoveFromCart godoc
// @Summary Remove a product line from the cart
// @Tags cart
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]string{"status":"ok"}
// @Router /api/v1/cart/items/{id} [delete]
func (h *ShopHandler) RemoveFromCart(c *gin.Context) {
	productID, ok := productParam(c)
	if !ok {
		return
	}
	if err := h.shop.RemoveFromCart(c.Request.Context(), sessionKey(c), productID); err != nil {
		h.fail(c, "RemoveFromCart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ApplyBonus godoc
// @Summary Pay part of the cart with bonus points
// @Tags cart
// @Produce json
// @Success 200 {object} shop.CartView
// @Failure 422 {object} map[string]any
// @Router /api/v1/cart/bonus [post]
func (h *ShopHandler) ApplyBonus(c *gin.Context) {
	view, err := h.shop.ApplyBonus(c.Request.Context(), sessionKey(c))
	if errors.Is(err, pricing.ErrTotalZero) || errors.Is(err, pricing.ErrInsufficientBonus) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "cart": view})
		return
	}
	if err != nil {
		h.fail(c, "ApplyBonus", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ResetBonus godoc
// @Summary Cancel the bonus discount
// @Tags cart
// @Produce json
// @Success 200 {object} shop.CartView
// @Router /api/v1/cart/bonus [delete]
func (h *ShopHandler) ResetBonus(c *gin.Context) {
	view, err := h.shop.ResetBonus(c.Request.Context(), sessionKey(c))
	if err != nil {
		h.fail(c, "ResetBonus", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Checkout godoc
// @Summary Fix the amount to pay
// @Tags payment
// @Produce json
// @Success 200 {object} shop.Checkout
// @Failure 409 {object} map[string]string
// @Router /api/v1/checkout [post]
func (h *ShopHandler) Checkout(c *gin.Context) {
	co, err := h.shop.Checkout(c.Request.Context(), sessionKey(c))
	if err != nil {
		h.fail(c, "Checkout", err)
		return
	}
	c.JSON(http.StatusOK, co)
}

// Pay godoc
// @Summary Pay for the checked out cart
// @Description Spends the used bonus, credits 5% of the amount and clears the cart
// @Tags payment
// @Produce json
// @Success 200 {object} bonus.Result
// @Failure 409 {object} map[string]string
// @Router /api/v1/payment [post]
func (h *ShopHandler) Pay(c *gin.Context) {
	res, err := h.shop.Pay(c.Request.Context(), sessionKey(c))
	if err != nil {
		h.fail(c, "Pay", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Profile godoc
// @Summary Current customer with bonus balance
// @Tags account
// @Produce json
// @Success 200 {object} domain.User
// @Router /api/v1/profile [get]
func (h *ShopHandler) Profile(c *gin.Context) {
	user, err := h.shop.Profile(c.Request.Context(), sessionKey(c))
	if err != nil {
		h.fail(c, "Profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// === helpers ===

// session привязывает сессию магазина к пользователю из JWT
func (h *ShopHandler) session(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)
	if userID <= 0 {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user_id missing"})
		return
	}
	if err := h.shop.EnsureSession(c.Request.Context(), sessionKey(c), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		}
		slog.Error("Session setup failed", "error", err, "user_id", userID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.Next()
}

func sessionKey(c *gin.Context) string {
	return "api:" + strconv.Itoa(c.GetInt(middleware.UserIDKey))
}

func productParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func (h *ShopHandler) fail(c *gin.Context, op string, err error) {
	status, msg := http.StatusInternalServerError, "Internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidAmount):
		status, msg = http.StatusBadRequest, "invalid amount"
	case errors.Is(err, shop.ErrNotSignedIn):
		status, msg = http.StatusUnauthorized, "not signed in"
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrDuplicateLogin):
		status, msg = http.StatusConflict, "login already exists"
	case errors.Is(err, shop.ErrEmptyCart):
		status, msg = http.StatusConflict, "cart is empty"
	case errors.Is(err, shop.ErrNothingToPay):
		status, msg = http.StatusConflict, "nothing to pay, checkout first"
	}
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err, "user_id", c.GetInt(middleware.UserIDKey))
	}
	c.JSON(status, gin.H{"error": msg})
}
