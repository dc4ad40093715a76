package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"childsubs/internal/logger"
	"childsubs/internal/models"
	"childsubs/internal/service"
)

var productTypes = []models.ProductType{
	models.ProductSimple,
	models.ProductSubscription,
	models.ProductVariable,
	models.ProductVariableSubscription,
	models.ProductVariation,
	models.ProductSubscriptionVariation,
}

// AdminHandler serves the read-only admin tables, product creation and the
// backup download
type AdminHandler struct {
	adminService    *service.AdminService
	commerceService *service.CommerceService
	backupService   *service.BackupService
	templates       *template.Template
	logger          *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, commerceService *service.CommerceService, backupService *service.BackupService, templates *template.Template, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		commerceService: commerceService,
		backupService:   backupService,
		templates:       templates,
		logger:          logger,
	}
}

// Children lists every child with its parent
func (h *AdminHandler) Children(w http.ResponseWriter, r *http.Request) {
	rows, err := h.adminService.ChildRows(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading children", err)
		return
	}

	data := AdminChildrenViewData{
		Page: Page{Title: "Children", User: GetUserFromContext(r.Context())},
		Rows: rows,
	}
	if err := h.templates.ExecuteTemplate(w, "admin_children.tmpl", data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering admin children template", err)
	}
}

// Subscriptions lists every subscription with its assigned child
func (h *AdminHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.adminService.SubscriptionRows(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading subscriptions", err)
		return
	}

	data := AdminSubscriptionsViewData{
		Page: Page{Title: "Subscriptions", User: GetUserFromContext(r.Context())},
		Rows: rows,
	}
	if err := h.templates.ExecuteTemplate(w, "admin_subscriptions.tmpl", data); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error rendering admin subscriptions template", err)
	}
}

// Products shows the catalogue with the create form
func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	h.renderProducts(w, r, http.StatusOK, service.ProductInput{Type: string(models.ProductSubscription)}, "")
}

func (h *AdminHandler) renderProducts(w http.ResponseWriter, r *http.Request, status int, form service.ProductInput, errMsg string) {
	catalog, err := h.commerceService.Catalog(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error loading catalogue", err)
		return
	}

	data := AdminProductsViewData{
		Page:         Page{Title: "Products", User: GetUserFromContext(r.Context())},
		Catalog:      catalog,
		ProductTypes: productTypes,
		Form:         form,
		Error:        errMsg,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "admin_products.tmpl", data); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("error rendering admin products template", zap.Error(err))
	}
}

// CreateProduct adds a product or variation to the catalogue
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	in := service.ProductInput{
		Name:          r.PostFormValue("name"),
		Type:          r.PostFormValue("product_type"),
		Price:         r.PostFormValue("price"),
		BillingPeriod: r.PostFormValue("billing_period"),
	}
	if v := r.PostFormValue("parent_id"); v != "" {
		in.ParentID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.PostFormValue("billing_interval"); v != "" {
		in.BillingInterval, _ = strconv.Atoi(v)
	}

	product, err := h.commerceService.CreateProduct(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProduct) || errors.Is(err, service.ErrInvalidPrice) ||
			errors.Is(err, service.ErrVariationParent) || errors.Is(err, service.ErrProductNotFound) {
			h.renderProducts(w, r, http.StatusBadRequest, in, err.Error())
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Error creating product", err)
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("product created by admin",
		zap.Int64("product_id", product.ID), zap.Int64("admin_id", GetUserFromContext(r.Context()).ID))
	http.Redirect(w, r, "/admin/products", http.StatusSeeOther)
}

// ExportBackup streams a JSON backup of the store
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	filename := fmt.Sprintf("childsubs_backup_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if _, err := h.backupService.ExportToWriter(r.Context(), w); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "Failed to export database", "Error exporting database", err)
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("database exported", zap.String("admin", user.Email))
}
