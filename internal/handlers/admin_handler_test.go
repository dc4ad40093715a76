package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsubs/internal/security"
	"childsubs/internal/service"
)

func TestAdminPages_RequireAdmin(t *testing.T) {
	app := newTestApp(t)
	_, adminCookie := app.signup("admin@example.com", "Ada Admin")
	_, parentCookie := app.signup("parent@example.com", "Pat")

	paths := []string{"/admin/children", "/admin/subscriptions", "/admin/products", "/admin/export"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, app.get(path, adminCookie).Code)
			assert.Equal(t, http.StatusForbidden, app.get(path, parentCookie).Code)

			rec := app.get(path, nil)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, loginPath, rec.Header().Get("Location"))
		})
	}

	rec := app.post("/admin/products/create", url.Values{"name": {"Sneaky"}, "product_type": {"simple"}, "price": {"1"}}, parentCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminChildrenAndSubscriptions(t *testing.T) {
	app := newTestApp(t)
	_, adminCookie := app.signup("admin@example.com", "Ada Admin")
	parent, cookie := app.signup("parent@example.com", "Pat Parent")
	alice := app.addChild(parent.ID, "Alice")
	app.addToCart(cookie, app.membership().ID)

	rec := app.post("/checkout", checkoutForm(app.nonce(security.ActionCheckout, parent.ID), strconv.FormatInt(alice.ID, 10)), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	children := app.get("/admin/children", adminCookie)
	require.Equal(t, http.StatusOK, children.Code)
	body := children.Body.String()
	assert.Contains(t, body, fmt.Sprintf(`<tr id="child-%d">`, alice.ID))
	assert.Contains(t, body, "<td>Pat Parent</td>")
	assert.Contains(t, body, "<td>parent@example.com</td>")
	assert.Contains(t, body, "<td>Tigers</td>")

	subs := app.get("/admin/subscriptions", adminCookie)
	require.Equal(t, http.StatusOK, subs.Code)
	assert.Contains(t, subs.Body.String(), fmt.Sprintf(`<a href="/admin/children#child-%d">Alice</a>`, alice.ID))
	assert.Contains(t, subs.Body.String(), "every month")
}

func TestAdminCreateProduct(t *testing.T) {
	app := newTestApp(t)
	_, adminCookie := app.signup("admin@example.com", "Ada Admin")

	tests := []struct {
		name   string
		form   url.Values
		status int
		body   string
	}{
		{
			name:   "subscription",
			form:   url.Values{"name": {"Swim Squad"}, "product_type": {"subscription"}, "price": {"12.50"}, "billing_period": {"week"}, "billing_interval": {"2"}},
			status: http.StatusSeeOther,
		},
		{
			name:   "negative price",
			form:   url.Values{"name": {"Refund"}, "product_type": {"simple"}, "price": {"-1"}},
			status: http.StatusBadRequest,
			body:   service.ErrInvalidPrice.Error(),
		},
		{
			name:   "variation without parent",
			form:   url.Values{"name": {"Orphan"}, "product_type": {"variation"}, "price": {"5"}},
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.post("/admin/products/create", tt.form, adminCookie)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
			}
		})
	}

	page := app.get("/admin/products", adminCookie)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "<td>Swim Squad</td>")
	assert.Contains(t, page.Body.String(), "every 2 weeks")
	assert.NotContains(t, page.Body.String(), "<td>Refund</td>")
}

func TestAdminExportBackup(t *testing.T) {
	app := newTestApp(t)
	admin, adminCookie := app.signup("admin@example.com", "Ada Admin")
	app.addChild(admin.ID, "Alice")

	rec := app.get("/admin/export", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename=childsubs_backup_"))

	var backup service.BackupData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &backup))
	assert.Equal(t, service.BackupVersion, backup.Version)
	assert.Len(t, backup.Users, 1)
	assert.Len(t, backup.Children, 1)
}
