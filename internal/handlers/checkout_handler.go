package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"childsubs/internal/logger"
	"childsubs/internal/models"
	"childsubs/internal/security"
	"childsubs/internal/service"
)

// CheckoutHandler serves checkout, the child dropdown data and the
// order-received page
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	commerceService *service.CommerceService
	childService    *service.ChildService
	nonces          *security.NonceManager
	templates       *template.Template
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(
	checkoutService *service.CheckoutService,
	commerceService *service.CommerceService,
	childService *service.ChildService,
	nonces *security.NonceManager,
	templates *template.Template,
	logger *zap.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		commerceService: commerceService,
		childService:    childService,
		nonces:          nonces,
		templates:       templates,
		logger:          logger,
	}
}

// renderCheckout shows the checkout page. The child field is worked out
// again on every render.
func (h *CheckoutHandler) renderCheckout(w http.ResponseWriter, r *http.Request, user *models.User, cart *service.CartView, form service.CheckoutForm, notices []service.Notice) {
	field, err := h.checkoutService.ChildField(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error building child field", err)
		return
	}
	nonce, err := h.nonces.Create(security.ActionCheckout, user.ID)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error creating checkout nonce", err)
		return
	}

	data := CheckoutViewData{
		Page:       Page{Title: "Checkout", User: user},
		Cart:       cart,
		ChildField: field,
		Form:       form,
		Notices:    notices,
		Nonce:      nonce,
	}
	if err := h.templates.ExecuteTemplate(w, "checkout.tmpl", data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering checkout template", err)
	}
}

// ShowCheckout renders the checkout form, pre-filling billing from the account
func (h *CheckoutHandler) ShowCheckout(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	cart, err := h.commerceService.Cart(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading cart", err)
		return
	}
	if cart.IsEmpty() {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	form := service.CheckoutForm{BillingName: user.Name, BillingEmail: user.Email}
	h.renderCheckout(w, r, user, cart, form, nil)
}

// PlaceOrder submits the checkout. Validation notices re-render the form
// and no order is created.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	log := logger.FromContext(r.Context(), h.logger).With(zap.Int64("user_id", user.ID))

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	if err := h.nonces.Verify(r.PostFormValue(FieldCheckoutNonce), security.ActionCheckout, user.ID); err != nil {
		log.Warn("checkout nonce rejected", zap.Error(err))
		http.Error(w, MsgSecurityCheckFailed, http.StatusForbidden)
		return
	}

	form := service.CheckoutForm{
		BillingName:  r.PostFormValue("billing_name"),
		BillingEmail: r.PostFormValue("billing_email"),
		ChildID:      r.PostFormValue(service.ChildFieldKey),
	}

	result, err := h.checkoutService.PlaceOrder(r.Context(), user.ID, form)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error placing order", err)
		return
	}

	if len(result.Notices) > 0 {
		cart, err := h.commerceService.Cart(r.Context(), user.ID)
		if err != nil {
			respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading cart", err)
			return
		}
		h.renderCheckout(w, r, user, cart, form, result.Notices)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/checkout/order-received/%d", result.Order.ID), http.StatusSeeOther)
}

// ChildrenData returns the user's children for the checkout script
func (h *CheckoutHandler) ChildrenData(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	children, err := h.childService.ListChildren(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading children", err)
		return
	}
	respondWithJSON(w, r, http.StatusOK, map[string]interface{}{"children": childrenForScript(children)})
}

// OrderReceived shows a placed order with its child assignment
func (h *CheckoutHandler) OrderReceived(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	details, err := h.checkoutService.OrderForUser(r.Context(), orderID, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			http.Error(w, ErrNotFound, http.StatusNotFound)
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading order", err)
		return
	}

	data := OrderReceivedViewData{
		Page:    Page{Title: "Order received", User: user},
		Details: details,
	}
	if err := h.templates.ExecuteTemplate(w, "order_received.tmpl", data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering order template", err)
	}
}
