package handlers

import (
	"net/http"
)

// Handlers groups everything the router dispatches to
type Handlers struct {
	Auth     *AuthHandler
	Children *ChildrenHandler
	Checkout *CheckoutHandler
	Shop     *ShopHandler
	Admin    *AdminHandler
	Health   *HealthHandler
}

// NewRouter registers every route and wraps the mux with request logging.
// Static files are served from staticDir when it is set.
func NewRouter(mw *Middleware, h Handlers, staticDir string) http.Handler {
	mux := http.NewServeMux()

	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	mux.HandleFunc("GET /healthz", h.Health.Healthz)

	// Auth
	mux.HandleFunc("GET /{$}", h.Auth.Home)
	mux.HandleFunc("GET /login", h.Auth.ShowLogin)
	mux.HandleFunc("POST /login", mw.RateLimit(h.Auth.Login))
	mux.HandleFunc("GET /register", h.Auth.ShowRegister)
	mux.HandleFunc("POST /register", mw.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /logout", h.Auth.Logout)
	mux.HandleFunc("GET /auth/{provider}/start", h.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", h.Auth.OAuthCallback)

	// Children
	mux.HandleFunc("GET /my-children", mw.OptionalAuth(h.Children.MyChildren))
	mux.HandleFunc("GET /my-children/fragment", mw.OptionalAuth(h.Children.Fragment))
	mux.HandleFunc("POST /my-children", mw.RequireAuth(h.Children.SaveChild))
	mux.HandleFunc("POST /my-children/{id}/delete", mw.RequireAuth(h.Children.DeleteChild))
	mux.HandleFunc("POST /ajax/delete-child", mw.OptionalAuth(h.Children.AjaxDeleteChild))

	// Shop and cart
	mux.HandleFunc("GET /shop", mw.OptionalAuth(h.Shop.Shop))
	mux.HandleFunc("GET /cart", mw.RequireAuth(h.Shop.Cart))
	mux.HandleFunc("POST /cart/add", mw.RequireAuth(h.Shop.AddToCart))
	mux.HandleFunc("POST /cart/{itemId}/remove", mw.RequireAuth(h.Shop.RemoveFromCart))

	// Checkout
	mux.HandleFunc("GET /checkout", mw.RequireAuth(h.Checkout.ShowCheckout))
	mux.HandleFunc("POST /checkout", mw.RequireAuth(h.Checkout.PlaceOrder))
	mux.HandleFunc("GET /checkout/children", mw.RequireAuth(h.Checkout.ChildrenData))
	mux.HandleFunc("GET /checkout/order-received/{id}", mw.RequireAuth(h.Checkout.OrderReceived))

	// Admin
	mux.HandleFunc("GET /admin/children", mw.RequireAdmin(h.Admin.Children))
	mux.HandleFunc("GET /admin/subscriptions", mw.RequireAdmin(h.Admin.Subscriptions))
	mux.HandleFunc("GET /admin/products", mw.RequireAdmin(h.Admin.Products))
	mux.HandleFunc("POST /admin/products/create", mw.RequireAdmin(h.Admin.CreateProduct))
	mux.HandleFunc("GET /admin/export", mw.RequireAdmin(h.Admin.ExportBackup))

	return mw.Logging(mux)
}
