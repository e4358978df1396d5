// Package server exposes the storefront views as a local JSON HTTP front.
package server

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"go.uber.org/zap"

	storefront "goflare.io/storefront"
	"goflare.io/storefront/guard"
)

type Options struct {
	AllowedOrigins []string
	// ClientRate is the per-client request rate in requests per second.
	ClientRate float64
}

type Server struct {
	app     *storefront.App
	router  *httprouter.Router
	limiter *RateLimiter
	opts    Options
	logger  *zap.Logger
}

func New(app *storefront.App, opts Options, logger *zap.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		app:     app,
		router:  httprouter.New(),
		limiter: NewRateLimiter(opts.ClientRate),
		opts:    opts,
		logger:  logger,
	}
	s.routes()
	return s
}

// Handler applies CORS, security headers and request logging around the router.
func (s *Server) Handler() http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}).Handler(s.router)

	return s.logging(securityHeaders(corsHandler))
}

// HTTPServer returns a server with the timeouts the front is meant to run with.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
}

func (s *Server) routes() {
	r := s.router
	r.GET("/health", s.health)

	r.POST("/login", s.limiter.Limit(s.login))
	r.POST("/logout", s.logout)
	r.POST("/register", s.limiter.Limit(s.register))
	r.GET("/session", s.session)

	r.GET("/products", s.limiter.Limit(s.products))
	r.GET("/categories", s.categories)
	r.GET("/categories/:id", s.category)

	r.GET("/cart", s.protect("/cart", s.cart))
	r.DELETE("/cart", s.protect("/cart", s.clearCart))
	r.POST("/cart/items", s.protect("/cart", s.addToCart))
	r.PATCH("/cart/items/:id", s.protect("/cart", s.updateCartItem))
	r.DELETE("/cart/items/:id", s.protect("/cart", s.removeFromCart))

	r.POST("/checkout", s.protect("/checkout", s.limiter.Limit(s.beginCheckout)))
	r.POST("/checkout/pay", s.protect("/checkout", s.limiter.Limit(s.pay)))
	r.GET("/checkout/status/:pi", s.protect("/checkout", s.checkoutStatus))

	r.GET("/orders", s.protect("/orders", s.orders))
	r.GET("/orders/:id", s.protect("/orders", s.order))
	r.GET("/orders/:id/payment-status", s.protect("/orders", s.paymentStatus))
	r.POST("/orders/:id/cancel", s.protect("/orders", s.cancelOrder))
	r.POST("/orders/:id/retry", s.protect("/orders", s.limiter.Limit(s.retryPayment)))

	r.GET("/profile", s.protect("/profile", s.profile))

	r.GET("/dashboard/products", s.protect("/dashboard", s.products))
	r.POST("/dashboard/products", s.protect("/dashboard", s.createProduct))
	r.GET("/dashboard/low-stock", s.protect("/dashboard", s.lowStock))
	r.GET("/dashboard/summary", s.protect("/dashboard", s.summary))
}

func (s *Server) protect(path string, h httprouter.Handle) httprouter.Handle {
	return guard.Middleware(s.app.Session, guard.AccessFor(path), h)
}
