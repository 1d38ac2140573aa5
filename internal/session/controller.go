package session

import (
	"context"
	"sync"

	"bookshelf/internal/apiclient"
	"bookshelf/internal/tokenstore"
	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
)

// AuthAPI is the slice of the remote API the controller needs.
type AuthAPI interface {
	Login(email, password string) (string, error)
	Register(name, email, password string) error
	Me(token string) (domain.User, error)
}

// TokenVerifier locally rejects malformed or expired tokens before a
// resolution round trip. It never substitutes for querying the server.
type TokenVerifier interface {
	Verify(token string) error
}

// Controller is the single source of truth for "who is logged in and with
// what privileges", one session per browser session ID.
//
// Overlapping operations on the same session are serialized per state
// transition, not per network call: each entry carries a generation counter
// bumped by every applied mutation, and a resolution that started before a
// newer mutation discards its result instead of overwriting fresher state.
type Controller struct {
	auth     AuthAPI
	tokens   tokenstore.Store
	verifier TokenVerifier

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sess Session
	gen  uint64
}

// NewController wires the session controller. verifier may be nil.
func NewController(auth AuthAPI, tokens tokenstore.Store, verifier TokenVerifier) *Controller {
	return &Controller{
		auth:     auth,
		tokens:   tokens,
		verifier: verifier,
		entries:  make(map[string]*entry),
	}
}

// Get returns the current session snapshot without side effects.
func (c *Controller) Get(sid string) Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[sid]; ok {
		return e.sess
	}
	return Session{State: StateUnresolved}
}

// Login exchanges credentials for a token, persists it, then resolves the
// current user. It reports success only if resolution also succeeds. On
// failure the session records a human-readable message sourced from the
// server or a generic fallback.
func (c *Controller) Login(ctx context.Context, sid, email, password string) (Session, bool) {
	c.setResolving(sid)

	token, err := c.auth.Login(email, password)
	if err != nil {
		return c.fail(sid, apiclient.Message(err, "Failed to login")), false
	}

	// The token must be persisted before the dependent resolution call, so
	// that requests issued during resolution carry the fresh credential.
	if err := c.tokens.Save(ctx, sid, token); err != nil {
		util.LoggerFromContext(ctx).Error("persist token", "err", err)
		return c.fail(sid, "Failed to login"), false
	}
	c.bump(sid)

	sess := c.Resolve(ctx, sid)
	return sess, sess.IsAuthenticated()
}

// Register creates a new account. It does not authenticate it: the user is
// expected to log in afterwards.
func (c *Controller) Register(ctx context.Context, sid, name, email, password string) (Session, bool) {
	c.setResolving(sid)
	if err := c.auth.Register(name, email, password); err != nil {
		return c.fail(sid, apiclient.Message(err, "Registration failed")), false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(sid)
	e.gen++
	e.sess = Session{State: StateUnauthenticated}
	return e.sess, true
}

// Resolve populates the session identity by querying the remote API's
// "who am I" endpoint. With no token present it settles to unauthenticated
// without any network call. On a malformed token or an unauthorized reply
// the persisted token is cleared and the session reset.
func (c *Controller) Resolve(ctx context.Context, sid string) Session {
	token, ok, err := c.tokens.Load(ctx, sid)
	if err != nil {
		util.LoggerFromContext(ctx).Error("load token", "err", err)
		return c.fail(sid, "Session unavailable")
	}
	if !ok {
		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.entry(sid)
		e.gen++
		e.sess = Session{State: StateUnauthenticated}
		return e.sess
	}

	c.mu.Lock()
	e := c.entry(sid)
	start := e.gen
	e.sess.State = StateResolving
	c.mu.Unlock()

	if c.verifier != nil {
		if err := c.verifier.Verify(token); err != nil {
			sess, applied := c.applyIfCurrent(sid, start, Session{State: StateUnauthenticated, LastError: "Session expired"})
			if applied {
				_ = c.tokens.Clear(ctx, sid)
			}
			return sess
		}
	}

	user, err := c.auth.Me(token)
	if err != nil {
		msg := apiclient.Message(err, "Session expired")
		sess, applied := c.applyIfCurrent(sid, start, Session{State: StateUnauthenticated, LastError: msg})
		// Only an applied unauthorized result may clear the token: a stale
		// response must not discard a credential a fresher login persisted.
		if applied && apiclient.IsUnauthorized(err) {
			_ = c.tokens.Clear(ctx, sid)
		}
		return sess
	}
	sess, _ := c.applyIfCurrent(sid, start, Session{State: StateAuthenticated, User: user})
	return sess
}

// Logout clears the persisted token and resets the session immediately,
// without a network call.
func (c *Controller) Logout(ctx context.Context, sid string) {
	if err := c.tokens.Clear(ctx, sid); err != nil {
		util.LoggerFromContext(ctx).Error("clear token", "err", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(sid)
	e.gen++
	e.sess = Session{State: StateUnauthenticated}
}

// Invalidate implements the global authorization-failure policy: any request
// that comes back unauthorized clears the token and resets the session,
// independent of which operation triggered it.
func (c *Controller) Invalidate(ctx context.Context, sid, reason string) {
	if err := c.tokens.Clear(ctx, sid); err != nil {
		util.LoggerFromContext(ctx).Error("clear token", "err", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(sid)
	e.gen++
	e.sess = Session{State: StateUnauthenticated, LastError: reason}
}

// entry returns the session entry, creating it lazily. Callers hold c.mu.
func (c *Controller) entry(sid string) *entry {
	e, ok := c.entries[sid]
	if !ok {
		e = &entry{sess: Session{State: StateUnresolved}}
		c.entries[sid] = e
	}
	return e
}

func (c *Controller) setResolving(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(sid)
	e.sess.State = StateResolving
	e.sess.LastError = ""
}

func (c *Controller) bump(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(sid).gen++
}

func (c *Controller) fail(sid, msg string) Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(sid)
	e.gen++
	e.sess = Session{State: StateUnauthenticated, LastError: msg}
	return e.sess
}

// applyIfCurrent commits a resolution result unless a newer mutation was
// applied while the resolution was in flight, in which case the stale result
// is discarded and the fresher session kept.
func (c *Controller) applyIfCurrent(sid string, start uint64, next Session) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(sid)
	if e.gen != start {
		return e.sess, false
	}
	e.gen++
	e.sess = next
	return next, true
}
