// Package guard gates navigation to protected views. Authorization is an
// ordered list of conditions evaluated once per navigation with explicit
// short-circuiting: the first failing condition decides the redirect, and
// later conditions are never consulted.
package guard

import (
	"net/url"

	"bookshelf/internal/session"
	"bookshelf/pkg/domain"
)

// Condition checks one requirement against the session. On failure it
// returns the path the navigation is redirected to instead.
type Condition func(sess session.Session, path string) (ok bool, redirect string)

// Authenticated requires a resolved, authenticated session. Failures
// redirect to the login view, carrying the originally requested path so
// login can return the user there after success.
func Authenticated(loginPath string) Condition {
	return func(sess session.Session, path string) (bool, string) {
		if sess.IsAuthenticated() {
			return true, ""
		}
		if path != "" && path != loginPath {
			return false, loginPath + "?from=" + url.QueryEscape(path)
		}
		return false, loginPath
	}
}

// RoleMember requires the session's user to hold one of the given roles.
// Failures redirect to the default authenticated landing view. It must be
// composed after Authenticated, never evaluated for an anonymous session.
func RoleMember(landingPath string, roles ...domain.Role) Condition {
	return func(sess session.Session, _ string) (bool, string) {
		if sess.HasRole(roles...) {
			return true, ""
		}
		return false, landingPath
	}
}

// Evaluate runs the conditions in order against the session. It returns
// allow=true only if every condition passes; otherwise it returns the
// redirect of the first failure.
func Evaluate(sess session.Session, path string, conds ...Condition) (allow bool, redirect string) {
	for _, cond := range conds {
		if ok, to := cond(sess, path); !ok {
			return false, to
		}
	}
	return true, ""
}
