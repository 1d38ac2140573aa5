package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bookshelf/internal/apiclient"
	"bookshelf/internal/authclient"
	"bookshelf/internal/tokenstore"
	"bookshelf/pkg/domain"
)

type fakeAuthAPI struct {
	loginToken  string
	loginErr    error
	registerErr error
	meUser      domain.User
	meErr       error
	meCalls     int32
	meGate      chan struct{}
}

func (f *fakeAuthAPI) Login(email, password string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeAuthAPI) Register(name, email, password string) error {
	return f.registerErr
}

func (f *fakeAuthAPI) Me(token string) (domain.User, error) {
	atomic.AddInt32(&f.meCalls, 1)
	if f.meGate != nil {
		<-f.meGate
	}
	return f.meUser, f.meErr
}

func TestHasRole(t *testing.T) {
	admin := Session{State: StateAuthenticated, User: domain.User{ID: "1", Role: domain.RoleAdmin}}
	user := Session{State: StateAuthenticated, User: domain.User{ID: "2", Role: domain.RoleUser}}
	nobody := Session{State: StateUnauthenticated}

	tests := []struct {
		name  string
		sess  Session
		roles []domain.Role
		want  bool
	}{
		{name: "no user loaded", sess: nobody, roles: []domain.Role{domain.RoleAdmin}, want: false},
		{name: "no user loaded empty set", sess: nobody, roles: nil, want: false},
		{name: "empty set means unrestricted", sess: user, roles: nil, want: true},
		{name: "member", sess: admin, roles: []domain.Role{domain.RoleAdmin}, want: true},
		{name: "not member", sess: user, roles: []domain.Role{domain.RoleAdmin}, want: false},
		{name: "member of wider set", sess: user, roles: []domain.Role{domain.RoleAdmin, domain.RoleUser}, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sess.HasRole(tc.roles...); got != tc.want {
				t.Fatalf("HasRole(%v) = %v, want %v", tc.roles, got, tc.want)
			}
		})
	}
}

func TestLoginPersistsTokenThenResolvesIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var creds map[string]string
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds["email"] != "a@b.com" || creds["password"] != "secret1" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "T"})
		case "/auth/me":
			if r.Header.Get("Authorization") != "Bearer T" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(domain.User{ID: "1", Name: "A", Email: "a@b.com", Role: domain.RoleUser})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tokens := tokenstore.NewMemoryStore()
	ctrl := NewController(authclient.NewClient(srv.URL), tokens, nil)
	ctx := context.Background()

	sess, ok := ctrl.Login(ctx, "sid", "a@b.com", "secret1")
	if !ok || !sess.IsAuthenticated() {
		t.Fatalf("login failed: ok=%v sess=%+v", ok, sess)
	}
	if sess.User.ID != "1" || sess.User.Name != "A" || sess.User.Role != domain.RoleUser {
		t.Fatalf("unexpected identity: %+v", sess.User)
	}
	token, found, _ := tokens.Load(ctx, "sid")
	if !found || token != "T" {
		t.Fatalf("token not persisted: %q found=%v", token, found)
	}
}

func TestLoginFailureRecordsServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	}))
	defer srv.Close()

	tokens := tokenstore.NewMemoryStore()
	ctrl := NewController(authclient.NewClient(srv.URL), tokens, nil)
	ctx := context.Background()

	sess, ok := ctrl.Login(ctx, "sid", "a@b.com", "wrong")
	if ok || sess.State != StateUnauthenticated {
		t.Fatalf("expected unauthenticated failure, got ok=%v sess=%+v", ok, sess)
	}
	if sess.LastError != "Invalid credentials" {
		t.Fatalf("LastError = %q, want server message", sess.LastError)
	}
	if _, found, _ := tokens.Load(ctx, "sid"); found {
		t.Fatal("token persisted despite failed login")
	}
}

func TestResolveWithoutTokenIssuesNoNetworkCall(t *testing.T) {
	api := &fakeAuthAPI{}
	ctrl := NewController(api, tokenstore.NewMemoryStore(), nil)

	sess := ctrl.Resolve(context.Background(), "sid")
	if sess.State != StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", sess.State)
	}
	if n := atomic.LoadInt32(&api.meCalls); n != 0 {
		t.Fatalf("me called %d times without a token", n)
	}
}

func TestResolveUnauthorizedClearsTokenAndResets(t *testing.T) {
	api := &fakeAuthAPI{meErr: &apiclient.APIError{Status: http.StatusUnauthorized, Message: "token expired"}}
	tokens := tokenstore.NewMemoryStore()
	ctx := context.Background()
	_ = tokens.Save(ctx, "sid", "stale-token")
	ctrl := NewController(api, tokens, nil)

	sess := ctrl.Resolve(ctx, "sid")
	if sess.State != StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", sess.State)
	}
	if sess.LastError != "token expired" {
		t.Fatalf("LastError = %q", sess.LastError)
	}
	if _, found, _ := tokens.Load(ctx, "sid"); found {
		t.Fatal("token survived unauthorized resolution")
	}
}

func TestResolveNonAuthErrorKeepsToken(t *testing.T) {
	api := &fakeAuthAPI{meErr: &apiclient.APIError{Status: http.StatusInternalServerError, Message: "boom"}}
	tokens := tokenstore.NewMemoryStore()
	ctx := context.Background()
	_ = tokens.Save(ctx, "sid", "tok")
	ctrl := NewController(api, tokens, nil)

	sess := ctrl.Resolve(ctx, "sid")
	if sess.State != StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", sess.State)
	}
	if _, found, _ := tokens.Load(ctx, "sid"); !found {
		t.Fatal("token cleared for a non-authorization failure")
	}
}

func TestLogoutClearsTokenUnconditionally(t *testing.T) {
	api := &fakeAuthAPI{meUser: domain.User{ID: "1", Role: domain.RoleUser}}
	tokens := tokenstore.NewMemoryStore()
	ctx := context.Background()
	_ = tokens.Save(ctx, "sid", "tok")
	ctrl := NewController(api, tokens, nil)

	if sess := ctrl.Resolve(ctx, "sid"); !sess.IsAuthenticated() {
		t.Fatalf("setup resolve failed: %+v", sess)
	}
	before := atomic.LoadInt32(&api.meCalls)

	ctrl.Logout(ctx, "sid")
	if sess := ctrl.Get("sid"); sess.State != StateUnauthenticated || sess.User.ID != "" {
		t.Fatalf("session not reset: %+v", sess)
	}
	if _, found, _ := tokens.Load(ctx, "sid"); found {
		t.Fatal("token survived logout")
	}
	if after := atomic.LoadInt32(&api.meCalls); after != before {
		t.Fatal("logout issued a network call")
	}
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	api := &fakeAuthAPI{}
	tokens := tokenstore.NewMemoryStore()
	ctrl := NewController(api, tokens, nil)
	ctx := context.Background()

	sess, ok := ctrl.Register(ctx, "sid", "A", "a@b.com", "secret1")
	if !ok {
		t.Fatalf("register failed: %+v", sess)
	}
	if sess.IsAuthenticated() {
		t.Fatal("register must not authenticate the new account")
	}
	if _, found, _ := tokens.Load(ctx, "sid"); found {
		t.Fatal("register persisted a token")
	}
	if n := atomic.LoadInt32(&api.meCalls); n != 0 {
		t.Fatalf("me called %d times during register", n)
	}
}

func TestRegisterDropsPreviousIdentity(t *testing.T) {
	api := &fakeAuthAPI{
		loginToken: "tok",
		meUser:     domain.User{ID: "1", Name: "A", Email: "a@b.com", Role: domain.RoleAdmin},
	}
	tokens := tokenstore.NewMemoryStore()
	ctrl := NewController(api, tokens, nil)
	ctx := context.Background()

	if sess, ok := ctrl.Login(ctx, "sid", "a@b.com", "secret1"); !ok || !sess.IsAuthenticated() {
		t.Fatalf("setup login failed: %+v", sess)
	}

	sess, ok := ctrl.Register(ctx, "sid", "B", "b@c.com", "secret2")
	if !ok {
		t.Fatalf("register failed: %+v", sess)
	}
	if sess.User != (domain.User{}) {
		t.Fatalf("register left the previous identity in the snapshot: %+v", sess.User)
	}
	if got := ctrl.Get("sid"); got.User != (domain.User{}) || got.State != StateUnauthenticated {
		t.Fatalf("stored session still carries identity: %+v", got)
	}
}

func TestStaleResolutionResultIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAuthAPI{
		meUser: domain.User{ID: "1", Name: "A", Role: domain.RoleUser},
		meGate: gate,
	}
	tokens := tokenstore.NewMemoryStore()
	ctx := context.Background()
	_ = tokens.Save(ctx, "sid", "tok")
	ctrl := NewController(api, tokens, nil)

	done := make(chan Session, 1)
	go func() {
		done <- ctrl.Resolve(ctx, "sid")
	}()

	// Wait for the resolution to reach the in-flight network call.
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&api.meCalls) == 0 {
		select {
		case <-deadline:
			t.Fatal("resolution never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// A logout supersedes the in-flight resolution.
	ctrl.Logout(ctx, "sid")
	close(gate)

	sess := <-done
	if sess.IsAuthenticated() {
		t.Fatalf("stale resolution overwrote logout: %+v", sess)
	}
	if got := ctrl.Get("sid"); got.State != StateUnauthenticated {
		t.Fatalf("final state = %v, want unauthenticated", got.State)
	}
	if _, found, _ := tokens.Load(ctx, "sid"); found {
		t.Fatal("token reappeared after logout")
	}
}
