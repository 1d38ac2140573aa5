package bookclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookshelf/internal/apiclient"
	"bookshelf/pkg/domain"
)

func TestListParsesPaginationEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []domain.Book{
				{ID: "11", Title: "The Go Programming Language", Author: "Donovan"},
			},
			"pagination": domain.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3},
		})
	}))
	defer srv.Close()

	books, pg, err := NewClient(srv.URL).List("tok", 2, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(books) != 1 || books[0].ID != "11" {
		t.Fatalf("unexpected books: %+v", books)
	}
	if pg.Page != 2 || pg.Total != 25 || pg.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", pg)
	}
}

func TestGetMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Book not found"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Get("tok", "missing")
	if !apiclient.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCreateSendsFieldsAndDecodesBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/book" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in BookInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if in.Title != "Dune" || in.Author != "Herbert" {
			t.Errorf("unexpected input: %+v", in)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Book{ID: "42", Title: in.Title, Author: in.Author})
	}))
	defer srv.Close()

	book, err := NewClient(srv.URL).Create("tok", BookInput{Title: "Dune", Author: "Herbert"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if book.ID != "42" {
		t.Fatalf("unexpected book: %+v", book)
	}
}
