package web

import (
	"net/http"
	"strings"
)

type loginView struct {
	Email     string
	From      string
	Errors    map[string]string
	FormError string
}

type registerView struct {
	Name      string
	Email     string
	Errors    map[string]string
	FormError string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Resolve(r.Context(), sidFrom(r))
	if sess.IsAuthenticated() {
		http.Redirect(w, r, landingPath, http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", "Login", loginView{
		From: r.URL.Query().Get("from"),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	from := r.PostFormValue("from")
	view := loginView{Email: form.Email, From: from}

	if !s.allowRate(w, r, s.loginLimiter) {
		view.FormError = "Too many login attempts. Please try again later."
		s.render(w, r, http.StatusTooManyRequests, "login.html", "Login", view)
		return
	}
	if errs := fieldErrors(form); len(errs) > 0 {
		view.Errors = errs
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", "Login", view)
		return
	}

	// The session ID rotates before the credential exchange, so the token
	// is persisted under an ID no party could have chosen in advance.
	sid := s.rotateSession(w)
	sess, ok := s.sessions.Login(r.Context(), sid, form.Email, form.Password)
	if !ok {
		view.FormError = sess.LastError
		s.render(w, r, http.StatusUnauthorized, "login.html", "Login", view)
		return
	}
	s.setFlash(w, flashSuccess, "Logged in successfully")
	http.Redirect(w, r, safeReturnPath(from), http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Resolve(r.Context(), sidFrom(r))
	if sess.IsAuthenticated() {
		http.Redirect(w, r, landingPath, http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", "Register", registerView{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := parseRegisterForm(r)
	view := registerView{Name: form.Name, Email: form.Email}

	if !s.allowRate(w, r, s.registerLimiter) {
		view.FormError = "Too many registration attempts. Please try again later."
		s.render(w, r, http.StatusTooManyRequests, "register.html", "Register", view)
		return
	}
	if errs := fieldErrors(form); len(errs) > 0 {
		view.Errors = errs
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", "Register", view)
		return
	}

	sess, ok := s.sessions.Register(r.Context(), sidFrom(r), form.Name, form.Email, form.Password)
	if !ok {
		view.FormError = sess.LastError
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", "Register", view)
		return
	}
	s.setFlash(w, flashSuccess, "Registration successful! Please login.")
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// handleLogout clears local state unconditionally; it never fails and never
// talks to the remote API.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(r.Context(), sidFrom(r))
	s.setFlash(w, flashSuccess, "Logged out successfully")
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (s *Server) handleNotFoundPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "notfound.html", "Not Found", nil)
}

// safeReturnPath restricts the post-login destination to same-site paths,
// rejecting absolute and protocol-relative URLs.
func safeReturnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return landingPath
	}
	return from
}
