package web

import (
	"net/http"
	"net/url"
	"strings"
)

// Flash notifications are the transient per-operation outcome messages,
// carried across the redirect in a short-lived cookie and shown once.

const flashCookieName = "bookshelf_flash"

type flashLevel string

const (
	flashSuccess flashLevel = "success"
	flashError   flashLevel = "error"
)

// Flash is a one-shot notification rendered by the next page load.
type Flash struct {
	Level   flashLevel
	Message string
}

func (f Flash) IsSuccess() bool { return f.Level == flashSuccess }

func (s *Server) setFlash(w http.ResponseWriter, level flashLevel, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(string(level) + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash, if any.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	level, message, found := strings.Cut(raw, "|")
	if !found || message == "" {
		return nil
	}
	f := &Flash{Level: flashLevel(level), Message: message}
	if f.Level != flashSuccess && f.Level != flashError {
		f.Level = flashError
	}
	return f
}
