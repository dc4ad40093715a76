package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsubs/internal/security"
)

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == security.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", security.SessionCookieName)
	return nil
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)

	rec := app.post("/register", url.Values{"email": {"pat@example.com"}, "password": {"password123"}, "name": {"Pat"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, myChildrenPath, rec.Header().Get("Location"))
	registered := sessionCookie(t, rec.Result())
	assert.True(t, registered.HttpOnly)

	page := app.get("/my-children", registered)
	require.Equal(t, http.StatusOK, page.Code)
	assert.NotContains(t, page.Body.String(), MsgLoginToManage)

	// Signed-in visitors skip the forms
	assert.Equal(t, http.StatusSeeOther, app.get("/login", registered).Code)
	home := app.get("/", registered)
	assert.Equal(t, myChildrenPath, home.Header().Get("Location"))

	out := app.post("/logout", nil, registered)
	require.Equal(t, http.StatusSeeOther, out.Code)
	cleared := sessionCookie(t, out.Result())
	assert.Empty(t, cleared.Value)
	assert.Contains(t, app.get("/my-children", registered).Body.String(), MsgLoginToManage, "session is gone")

	login := app.post("/login", url.Values{"email": {"PAT@example.com"}, "password": {"password123"}}, nil)
	require.Equal(t, http.StatusSeeOther, login.Code)
	assert.NotEmpty(t, sessionCookie(t, login.Result()).Value)
}

func TestLogin_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signup("pat@example.com", "Pat")

	rec := app.post("/login", url.Values{"email": {"pat@example.com"}, "password": {"wrong-password"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.Contains(t, rec.Body.String(), `value="pat@example.com"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRegister_Rejections(t *testing.T) {
	app := newTestApp(t)
	app.signup("taken@example.com", "Taken")

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"bad email", url.Values{"email": {"nope"}, "password": {"password123"}, "name": {"Pat"}}, "invalid email format"},
		{"short password", url.Values{"email": {"pat@example.com"}, "password": {"short"}, "name": {"Pat"}}, "password must be at least 8 characters"},
		{"email taken", url.Values{"email": {"taken@example.com"}, "password": {"password123"}, "name": {"Pat"}}, "An account with that email already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.post("/register", tt.form, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
		})
	}
}

func TestHome_SignedOut(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, app.get("/nowhere", nil).Code)
}

func TestOAuth_UnknownProvider(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/auth/github/start", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "OAuth provider not configured")
}
