// Package web serves the browser-facing screens: login and registration,
// the dashboard, and the book catalog CRUD views. Route gating follows the
// guard package's ordered conditions; the bearer credential never reaches
// the browser, only the session-ID cookie does.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookshelf/internal/apiclient"
	"bookshelf/internal/bookclient"
	"bookshelf/internal/guard"
	"bookshelf/internal/ratelimit"
	"bookshelf/internal/session"
	"bookshelf/internal/tokenstore"
	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
)

const (
	defaultSessionCookie = "bookshelf_sid"
	loginPath            = "/login"
	landingPath          = "/"
	sessionCookieMaxAge  = 30 * 24 * 60 * 60
)

// Config wires required dependencies for the web server.
type Config struct {
	Sessions *session.Controller
	Tokens   tokenstore.Store
	Books    *bookclient.Client

	SessionCookieName   string
	SessionCookieSecure bool
	LoginLimiter        *ratelimit.FixedWindowLimiter
	RegisterLimiter     *ratelimit.FixedWindowLimiter
}

// Server renders the web UI and talks to the remote API on its behalf.
type Server struct {
	sessions *session.Controller
	tokens   tokenstore.Store
	books    *bookclient.Client

	cookieName      string
	cookieSecure    bool
	loginLimiter    *ratelimit.FixedWindowLimiter
	registerLimiter *ratelimit.FixedWindowLimiter
	templates       *templateSet
	router          chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	cookieName := cfg.SessionCookieName
	if cookieName == "" {
		cookieName = defaultSessionCookie
	}
	s := &Server{
		sessions:        cfg.Sessions,
		tokens:          cfg.Tokens,
		books:           cfg.Books,
		cookieName:      cookieName,
		cookieSecure:    cfg.SessionCookieSecure,
		loginLimiter:    cfg.LoginLimiter,
		registerLimiter: cfg.RegisterLimiter,
		templates:       tmpl,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithRequestID(util.WithRequestLog("webapp", s.router)))
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(s.withBrowserSession)

	r.Get("/healthz", s.handleHealth)

	// Public views.
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/register", s.handleRegisterPage)
	r.Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)
	r.Get("/404", s.handleNotFoundPage)

	// Protected views: authentication required.
	r.Group(func(r chi.Router) {
		r.Use(s.requireConditions(guard.Authenticated(loginPath)))
		r.Get("/", s.handleDashboard)
		r.Get("/books", s.handleBooksList)
		r.Get("/books/{id}", s.handleBookDetail)
	})

	// Admin-only views: role condition composed after authentication.
	r.Group(func(r chi.Router) {
		r.Use(s.requireConditions(
			guard.Authenticated(loginPath),
			guard.RoleMember(landingPath, domain.RoleAdmin),
		))
		r.Get("/books/create", s.handleBookCreatePage)
		r.Post("/books/create", s.handleBookCreate)
		r.Get("/books/{id}/edit", s.handleBookEditPage)
		r.Post("/books/{id}/edit", s.handleBookEdit)
		r.Get("/books/{id}/delete", s.handleBookDeletePage)
		r.Post("/books/{id}/delete", s.handleBookDelete)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/404", http.StatusFound)
	})
	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type contextKey int

const (
	sidContextKey contextKey = iota
	sessionContextKey
	tokenContextKey
)

// withBrowserSession ensures every request carries a session-ID cookie and
// stores the id in the request context. The cookie identifies the browser,
// not the user; it holds no credential. Values the server could not have
// issued (anything but a UUID) are discarded and replaced.
func (s *Server) withBrowserSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(s.cookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				sid = c.Value
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			s.setSessionCookie(w, sid)
		}
		ctx := context.WithValue(r.Context(), sidContextKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// rotateSession issues a fresh session ID and cookie. Called on every
// credential exchange: a cookie value planted before login must never
// become the key under which the new token is persisted.
func (s *Server) rotateSession(w http.ResponseWriter) string {
	sid := uuid.NewString()
	s.setSessionCookie(w, sid)
	return sid
}

// requireConditions resolves the session once per navigation and evaluates
// the guard conditions in order, redirecting on the first failure.
func (s *Server) requireConditions(conds ...guard.Condition) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := sidFrom(r)
			sess := s.sessions.Resolve(r.Context(), sid)
			if allow, redirect := guard.Evaluate(sess, r.URL.Path, conds...); !allow {
				http.Redirect(w, r, redirect, http.StatusFound)
				return
			}
			token, _, err := s.tokens.Load(r.Context(), sid)
			if err != nil {
				util.LoggerFromContext(r.Context()).Error("load token", "err", err)
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sidFrom(r *http.Request) string {
	sid, _ := r.Context().Value(sidContextKey).(string)
	return sid
}

func sessionFrom(r *http.Request) session.Session {
	sess, _ := r.Context().Value(sessionContextKey).(session.Session)
	return sess
}

func tokenFrom(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey).(string)
	return token
}

// failRemote is the single funnel for remote API errors. Authorization
// failures trigger the global policy: token cleared, session reset and a
// forced navigation to the login view. Every other error stays local: a
// flash with the server message (or fallback) and a redirect to
// fallbackPath.
func (s *Server) failRemote(w http.ResponseWriter, r *http.Request, err error, fallbackMsg, fallbackPath string) {
	if apiclient.IsUnauthorized(err) {
		s.sessions.Invalidate(r.Context(), sidFrom(r), "Session expired")
		s.setFlash(w, flashError, "Session expired. Please login again.")
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	util.LoggerFromContext(r.Context()).Warn("remote api error", "err", err, "path", r.URL.Path)
	s.setFlash(w, flashError, apiclient.Message(err, fallbackMsg))
	http.Redirect(w, r, fallbackPath, http.StatusSeeOther)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	return false
}
