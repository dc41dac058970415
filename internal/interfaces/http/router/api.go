package router

import (
	"github.com/freely/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers holds the HTTP handlers mounted under the versioned API
type Handlers struct {
	Auth         *handler.AuthHandler
	Organization *handler.OrganizationHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Product      *handler.ProductHandler
	Category     *handler.CategoryHandler
	Chat         *handler.ChatHandler
	Webhook      *handler.StripeWebhookHandler
	Health       *handler.HealthHandler
}

// Guards holds the access middleware applied per route group.
// AuthRateLimit may be nil.
type Guards struct {
	OptionalAuth        gin.HandlerFunc
	RequireAuth         gin.HandlerFunc
	RequireOrganization gin.HandlerFunc
	AuthRateLimit       gin.HandlerFunc
}

// APIGroups builds the route groups of the storefront and merchant API
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	authRoutes := NewDomainGroup("auth", "/auth")
	credentials := authRoutes.Group("credentials", "").Use(g.AuthRateLimit)
	credentials.POST("/register", h.Auth.Register)
	credentials.POST("/login", h.Auth.Login)
	authRoutes.POST("/logout", g.RequireAuth, h.Auth.Logout)
	authRoutes.GET("/me", g.RequireAuth, h.Auth.Me)
	authRoutes.GET("/me/optional", g.OptionalAuth, h.Auth.OptionalMe)

	orgRoutes := NewDomainGroup("organizations", "/organizations").Use(g.RequireAuth)
	orgRoutes.POST("", h.Organization.Create)
	orgRoutes.GET("", h.Organization.List)
	orgRoutes.GET("/:org_id/orders", h.Organization.ListOrders)
	orgRoutes.PATCH("/:org_id/orders/:id/fulfillment", h.Organization.UpdateFulfillment)

	cartRoutes := NewDomainGroup("cart", "/cart").Use(g.OptionalAuth)
	cartRoutes.GET("", h.Cart.Get)
	cartRoutes.DELETE("", h.Cart.Clear)
	cartRoutes.GET("/items", h.Cart.Get)
	cartRoutes.POST("/items", h.Cart.AddItem)
	cartRoutes.PATCH("/items/:item_id", h.Cart.UpdateItem)
	cartRoutes.DELETE("/items/:item_id", h.Cart.RemoveItem)

	checkoutRoutes := NewDomainGroup("checkout", "/checkout")
	checkoutRoutes.POST("", g.OptionalAuth, h.Checkout.Checkout)
	checkoutRoutes.GET("/orders", g.RequireAuth, h.Checkout.ListOrders)
	checkoutRoutes.GET("/orders/number/:order_number", h.Checkout.GetOrderByNumber)
	checkoutRoutes.GET("/orders/:id", g.OptionalAuth, h.Checkout.GetOrder)

	productRoutes := NewDomainGroup("catalog", "/products").Use(g.RequireAuth, g.RequireOrganization)
	productRoutes.POST("", h.Product.Create)
	productRoutes.GET("", h.Product.List)
	productRoutes.GET("/search", h.Product.Search)
	categories := productRoutes.Group("categories", "/categories")
	categories.POST("", h.Category.Create)
	categories.GET("", h.Category.List)
	categories.GET("/:id", h.Category.Get)
	categories.PATCH("/:id", h.Category.Update)
	categories.DELETE("/:id", h.Category.Delete)
	productRoutes.GET("/:id", h.Product.Get)
	productRoutes.PATCH("/:id", h.Product.Update)
	productRoutes.DELETE("/:id", h.Product.Delete)
	productRoutes.POST("/:id/images/upload-url", h.Product.CreateImageUploadURL)
	productRoutes.POST("/:id/images", h.Product.AttachImage)

	storeRoutes := NewDomainGroup("storefront", "/stores")
	storeRoutes.GET("/:org_slug/products", h.Product.ListStore)

	chatRoutes := NewDomainGroup("chat", "/chat").Use(g.OptionalAuth)
	chatRoutes.POST("/conversations", h.Chat.CreateConversation)
	chatRoutes.GET("/conversations", h.Chat.ListConversations)
	chatRoutes.GET("/conversations/:id", h.Chat.GetConversation)
	chatRoutes.POST("/send", h.Chat.Send)
	chatRoutes.POST("/stream", h.Chat.Stream)

	webhookRoutes := NewDomainGroup("webhooks", "/webhooks")
	webhookRoutes.POST("/stripe", h.Webhook.Handle)

	systemRoutes := NewDomainGroup("system", "")
	systemRoutes.GET("/health", h.Health.Check)

	return []*DomainGroup{
		systemRoutes,
		authRoutes,
		orgRoutes,
		cartRoutes,
		checkoutRoutes,
		productRoutes,
		storeRoutes,
		chatRoutes,
		webhookRoutes,
	}
}

// RegisterAPI mounts every API group on r
func RegisterAPI(r *Router, h Handlers, g Guards) *Router {
	for _, group := range APIGroups(h, g) {
		r.Register(group)
	}
	return r
}
