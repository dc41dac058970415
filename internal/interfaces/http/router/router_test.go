package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func reply(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(func(c *gin.Context) {
		c.Header("X-Api", "yes")
		c.Next()
	})

	cart := NewDomainGroup("cart", "/cart")
	cart.GET("", reply("cart"))
	stores := NewDomainGroup("storefront", "/stores")
	stores.GET("/:org_slug/products", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("org_slug"))
	})
	r.Register(cart, stores).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/cart")
	assert.Equal(t, "cart", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Api"))

	w = serve(engine, http.MethodGet, "/api/v1/stores/adas-shop/products")
	assert.Equal(t, "adas-shop", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/cart").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/products")
		assert.Equal(t, "catalog", g.Name())
		assert.Equal(t, "/products", g.Prefix())
	})

	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("items", "/items")
		g.GET("/:id", reply("get")).
			POST("", reply("post")).
			PATCH("/:id", reply("patch")).
			DELETE("/:id", reply("delete")).
			Handle(http.MethodPut, "/:id", reply("put"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			body   string
		}{
			{http.MethodGet, "/api/v1/items/1", "get"},
			{http.MethodPost, "/api/v1/items", "post"},
			{http.MethodPatch, "/api/v1/items/1", "patch"},
			{http.MethodDelete, "/api/v1/items/1", "delete"},
			{http.MethodPut, "/api/v1/items/1", "put"},
		}
		for _, tt := range tests {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.body, w.Body.String())
		}
	})

	t.Run("middleware reaches subgroups and nil is skipped", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("catalog", "/products").Use(nil, func(c *gin.Context) {
			c.Header("X-Group", "catalog")
			c.Next()
		})
		g.Group("categories", "/categories").GET("", reply("categories"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/products/categories")
		assert.Equal(t, "categories", w.Body.String())
		assert.Equal(t, "catalog", w.Header().Get("X-Group"))
	})

	t.Run("routes", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/products")
		g.GET("", reply(""))
		g.GET("/:id", reply(""))
		g.Group("categories", "/categories").POST("", reply(""))
		g.Group("bare", "").GET("/search", reply(""))

		assert.Equal(t, []Route{
			{http.MethodGet, "/products"},
			{http.MethodGet, "/products/:id"},
			{http.MethodPost, "/products/categories"},
			{http.MethodGet, "/products/search"},
		}, g.Routes())
	})
}
