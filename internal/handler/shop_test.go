package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geekshop/internal/auth"
	"geekshop/internal/config"
	"geekshop/internal/middleware"
	"geekshop/internal/session"
	"geekshop/internal/shop"
	"geekshop/internal/storage/sqlite"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type HandlerSuite struct {
	suite.Suite
	store  *sqlite.Storage
	router *gin.Engine
}

func (s *HandlerSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	auth.PasswordCost = bcrypt.MinCost
}

func (s *HandlerSuite) SetupTest() {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(s.T(), err)
	s.store = store

	tokens := auth.NewTokenService(config.Config{JWTSecret: "test-secret", JWTExpiresIn: time.Hour})
	h := NewShopHandler(shop.New(store, session.NewMemory()), tokens)

	s.router = gin.New()
	h.Routes(s.router, middleware.NewAuthMiddleware(tokens).RequireAuth())
}

func (s *HandlerSuite) TearDownTest() {
	s.store.Close()
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder, v any) {
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), v))
}

func (s *HandlerSuite) registerAndLogin(login string) string {
	w := s.do(http.MethodPost, "/api/v1/register", "", RegisterRequest{Name: "Анна", Login: login, Password: "secret"})
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/login", "", LoginRequest{Login: login, Password: "secret"})
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	s.decode(w, &resp)
	require.NotEmpty(s.T(), resp.Token)
	return resp.Token
}

func (s *HandlerSuite) TestRegisterValidationAndDuplicate() {
	w := s.do(http.MethodPost, "/api/v1/register", "", RegisterRequest{Name: " ", Login: "anna", Password: "x"})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/register", "", RegisterRequest{Name: "Анна", Login: "anna", Password: "x"})
	require.Equal(s.T(), http.StatusCreated, w.Code)
	assert.JSONEq(s.T(), `{"user_id":1}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/register", "", RegisterRequest{Name: "Анна", Login: "anna", Password: "y"})
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *HandlerSuite) TestRegisterCyrillicPasswordTooLong() {
	w := s.do(http.MethodPost, "/api/v1/register", "", RegisterRequest{Name: "Анна", Login: "anna", Password: strings.Repeat("пароль", 7)})
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "Password is too long")
}

func (s *HandlerSuite) TestLoginWrongPassword() {
	s.registerAndLogin("anna")
	w := s.do(http.MethodPost, "/api/v1/login", "", LoginRequest{Login: "anna", Password: "nope"})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestCatalogIsPublic() {
	w := s.do(http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var cats []map[string]string
	s.decode(w, &cats)
	assert.Len(s.T(), cats, 7)

	w = s.do(http.MethodGet, "/api/v1/products?category=Free-To-Play", "", nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var products []map[string]any
	s.decode(w, &products)
	assert.Len(s.T(), products, 5)
}

func (s *HandlerSuite) TestCartRequiresToken() {
	w := s.do(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestPurchaseFlow() {
	token := s.registerAndLogin("anna")
	require.NoError(s.T(), s.store.SetBonus(context.Background(), 1, 300))

	w := s.do(http.MethodPost, "/api/v1/cart/items/4", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/cart/items/999", token, nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/cart/items/abc", token, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/cart?days=0", token, nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/cart?days=2", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var view shop.CartView
	s.decode(w, &view)
	assert.Equal(s.T(), 999+400, view.Total)
	assert.Equal(s.T(), 300, view.Bonus)

	w = s.do(http.MethodPost, "/api/v1/cart/bonus", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	s.decode(w, &view)
	assert.Equal(s.T(), 1099, view.Total)

	w = s.do(http.MethodPost, "/api/v1/payment", token, nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/checkout", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), `{"purchase_amount":1099,"used_bonus":300}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/payment", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.JSONEq(s.T(), `{"ok":true,"new_bonus":54,"credited":54}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	var user map[string]any
	s.decode(w, &user)
	assert.EqualValues(s.T(), 54, user["bonus"])
	assert.NotContains(s.T(), user, "password_hash")

	w = s.do(http.MethodPost, "/api/v1/checkout", token, nil)
	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *HandlerSuite) TestApplyBonusWithoutBalance() {
	token := s.registerAndLogin("anna")
	w := s.do(http.MethodPost, "/api/v1/cart/items/4", token, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/cart/bonus", token, nil)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Contains(s.T(), w.Body.String(), "insufficient bonus")

	w = s.do(http.MethodDelete, "/api/v1/cart/bonus", token, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/cart/items/4", token, nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
