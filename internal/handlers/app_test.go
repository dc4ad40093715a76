package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"childsubs/internal/database"
	"childsubs/internal/models"
	"childsubs/internal/repository"
	"childsubs/internal/security"
	"childsubs/internal/service"
	"childsubs/internal/templates"
)

// testApp is the full router over a migrated SQLite database
type testApp struct {
	t        *testing.T
	handler  http.Handler
	auth     *service.AuthService
	children *service.ChildService
	commerce *service.CommerceService
	checkout *service.CheckoutService
	nonces   *security.NonceManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)

	log := zap.NewNop()
	users := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	products := repository.NewProductRepository(db)
	cart := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	subs := repository.NewSubscriptionRepository(db)

	authSvc := service.NewAuthService(users, nil, time.Hour, log)
	childSvc := service.NewChildService(childRepo, log)
	commerceSvc := service.NewCommerceService(products, cart, log)
	subSvc := service.NewSubscriptionService(orders, subs, log)
	checkoutSvc := service.NewCheckoutService(childSvc, commerceSvc, commerceSvc, orders, subSvc, nil, log)
	adminSvc := service.NewAdminService(childRepo, subs)
	backupSvc := service.NewBackupService(db, log)
	nonces := security.NewNonceManager("test-secret", time.Hour)

	tmpl, err := templates.Load()
	require.NoError(t, err)

	mw := NewMiddleware(authSvc, nil, log)
	router := NewRouter(mw, Handlers{
		Auth:     NewAuthHandler(authSvc, tmpl, nil, "", log),
		Children: NewChildrenHandler(childSvc, nonces, tmpl, log),
		Checkout: NewCheckoutHandler(checkoutSvc, commerceSvc, childSvc, nonces, tmpl, log),
		Shop:     NewShopHandler(commerceSvc, tmpl, log),
		Admin:    NewAdminHandler(adminSvc, commerceSvc, backupSvc, tmpl, log),
		Health:   NewHealthHandler(db, log),
	}, "")

	return &testApp{
		t:        t,
		handler:  router,
		auth:     authSvc,
		children: childSvc,
		commerce: commerceSvc,
		checkout: checkoutSvc,
		nonces:   nonces,
	}
}

// signup registers an account and returns it with a session cookie. The
// first account of an app is the admin.
func (a *testApp) signup(email, name string) (*models.User, *http.Cookie) {
	a.t.Helper()
	ctx := context.Background()
	user, err := a.auth.Register(ctx, email, "password123", name)
	require.NoError(a.t, err)
	session, _, err := a.auth.Login(ctx, email, "password123")
	require.NoError(a.t, err)
	return user, &http.Cookie{Name: security.SessionCookieName, Value: session.ID}
}

func (a *testApp) nonce(action string, userID int64) string {
	a.t.Helper()
	token, err := a.nonces.Create(action, userID)
	require.NoError(a.t, err)
	return token
}

func (a *testApp) addChild(ownerID int64, name string) *models.Child {
	a.t.Helper()
	child, err := a.children.CreateChild(context.Background(), ownerID, service.ChildInput{Name: name, Club: "Tigers", Age: "9"})
	require.NoError(a.t, err)
	return child
}

func (a *testApp) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) post(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}
