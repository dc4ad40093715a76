package handlers

import (
	"strconv"

	"childsubs/internal/models"
	"childsubs/internal/service"
)

// Page carries what the shared header needs
type Page struct {
	Title string
	User  *models.User
}

type LoginViewData struct {
	Page
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Success        string
}

type RegisterViewData struct {
	Page
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Name           string
}

// ChildFormView pre-fills the add/edit form. ChildID is zero when adding.
type ChildFormView struct {
	ChildID     int64
	Name        string
	DateOfBirth string
	Gender      string
	Age         string
	Club        string
}

// Editing reports whether the form updates an existing child
func (f ChildFormView) Editing() bool {
	return f.ChildID > 0
}

func childFormFrom(c *models.Child) ChildFormView {
	form := ChildFormView{
		ChildID:     c.ID,
		Name:        c.Name,
		DateOfBirth: c.DateOfBirth,
		Gender:      c.Gender,
		Club:        c.Club,
	}
	if c.Age > 0 {
		form.Age = strconv.Itoa(c.Age)
	}
	return form
}

type MyChildrenViewData struct {
	Page
	Children  []models.Child
	Form      ChildFormView
	Nonce     string
	AjaxNonce string
	Notice    string
	Error     string
}

type ShopViewData struct {
	Page
	Catalog []service.CatalogEntry
	Error   string
}

type CartViewData struct {
	Page
	Cart *service.CartView
}

type CheckoutViewData struct {
	Page
	Cart       *service.CartView
	ChildField *service.SelectField
	Form       service.CheckoutForm
	Notices    []service.Notice
	Nonce      string
}

type OrderReceivedViewData struct {
	Page
	Details *service.OrderDetails
}

type AdminChildrenViewData struct {
	Page
	Rows []service.AdminChildRow
}

type AdminSubscriptionsViewData struct {
	Page
	Rows []service.AdminSubscriptionRow
}

type AdminProductsViewData struct {
	Page
	Catalog      []service.CatalogEntry
	ProductTypes []models.ProductType
	Form         service.ProductInput
	Error        string
}

// checkoutChild is one entry of the checkout script's children data
type checkoutChild struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	DOB    string `json:"dob"`
	Gender string `json:"gender"`
	Age    int    `json:"age"`
	Club   string `json:"club"`
}
