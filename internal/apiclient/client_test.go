package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoJSONAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	var out map[string]string
	if err := c.DoJSON(http.MethodGet, "/ping", "tok-123", nil, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	if out["ok"] != "yes" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestDoJSONOmitsAuthorizationWithoutToken(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).DoJSON(http.MethodGet, "/ping", "", nil, nil); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if sawAuth {
		t.Fatal("Authorization header set without a token")
	}
}

func TestDoJSONMapsErrorStatusToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	err := New(srv.URL).DoJSON(http.MethodGet, "/auth/me", "stale", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized = false for %v", err)
	}
	if got := Message(err, "fallback"); got != "token expired" {
		t.Fatalf("Message = %q, want server message", got)
	}
}

func TestMessageFallsBackOnTransportError(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	err := c.DoJSON(http.MethodGet, "/x", "", nil, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if IsUnauthorized(err) || IsNotFound(err) {
		t.Fatal("transport error misclassified as API error")
	}
	if got := Message(err, "Failed to fetch books"); got != "Failed to fetch books" {
		t.Fatalf("Message fallback = %q", got)
	}
}
