package handlers

import (
	"net/http"

	"github.com/abrezinsky/cartepays/internal/auth"
)

// LoginPageData holds data for the login template
type LoginPageData struct {
	Error string
}

// handleLoginPage renders the login form
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to admin
	if h.Auth.GetSessionFromRequest(r) {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	h.templates.AdminLogin.Execute(w, LoginPageData{})
}

// handleLogin processes login form submission
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")

	token, ok := h.Auth.Login(password)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		h.templates.AdminLogin.Execute(w, LoginPageData{
			Error: "Invalid password",
		})
		return
	}

	h.Log.Info("Admin logged in", "sessions", h.Auth.SessionCount())
	auth.SetSessionCookie(w, token)
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// handleAPILogin exchanges the admin password for a bearer token
func (h *Handlers) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	token, ok := h.Auth.Login(req.Password)
	if !ok {
		h.respondError(w, Unauthorized("Invalid password"))
		return
	}
	h.Log.Info("Admin API login", "sessions", h.Auth.SessionCount())
	respondOK(w, LoginResponse{Token: token})
}

// handleLogout clears the session and redirects to login
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
		h.Log.Info("Admin logged out", "sessions", h.Auth.SessionCount())
	}

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}
