package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"childsubs/internal/logger"
	"childsubs/internal/service"
)

// ShopHandler serves the catalogue and the cart
type ShopHandler struct {
	commerceService *service.CommerceService
	templates       *template.Template
	logger          *zap.Logger
}

// NewShopHandler creates a new shop handler
func NewShopHandler(commerceService *service.CommerceService, templates *template.Template, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{
		commerceService: commerceService,
		templates:       templates,
		logger:          logger,
	}
}

// Shop lists the catalogue
func (h *ShopHandler) Shop(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.commerceService.Catalog(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading catalogue", err)
		return
	}

	data := ShopViewData{
		Page:    Page{Title: "Shop", User: GetUserFromContext(r.Context())},
		Catalog: catalog,
	}
	if err := h.templates.ExecuteTemplate(w, "shop.tmpl", data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering shop template", err)
	}
}

// AddToCart adds a product, or a variation of it, to the cart
func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	productID, err := strconv.ParseInt(r.PostFormValue("product_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product", http.StatusBadRequest)
		return
	}
	var variationID int64
	if v := r.PostFormValue("variation_id"); v != "" {
		if variationID, err = strconv.ParseInt(v, 10, 64); err != nil {
			http.Error(w, service.ErrInvalidVariation.Error(), http.StatusBadRequest)
			return
		}
	}
	quantity := 1
	if q := r.PostFormValue("quantity"); q != "" {
		if quantity, err = strconv.Atoi(q); err != nil {
			http.Error(w, service.ErrInvalidQuantity.Error(), http.StatusBadRequest)
			return
		}
	}

	if _, err := h.commerceService.AddToCart(r.Context(), user.ID, productID, variationID, quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidVariation), errors.Is(err, service.ErrInvalidQuantity):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error adding to cart", err)
		}
		return
	}

	logger.FromContext(r.Context(), h.logger).Debug("added to cart",
		zap.Int64("user_id", user.ID), zap.Int64("product_id", productID), zap.Int64("variation_id", variationID))
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// Cart shows the cart with its total
func (h *ShopHandler) Cart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	cart, err := h.commerceService.Cart(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading cart", err)
		return
	}

	data := CartViewData{
		Page: Page{Title: "Cart", User: user},
		Cart: cart,
	}
	if err := h.templates.ExecuteTemplate(w, "cart.tmpl", data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering cart template", err)
	}
}

// RemoveFromCart deletes one cart line
func (h *ShopHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	itemID, err := strconv.ParseInt(r.PathValue("itemId"), 10, 64)
	if err != nil {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	if err := h.commerceService.RemoveFromCart(r.Context(), user.ID, itemID); err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error removing cart item", err)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}
