package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookshelf/internal/apiclient"
	"bookshelf/pkg/domain"
)

const defaultPageSize = 10

type booksListView struct {
	Books []domain.Book
	Pager *Pager
}

type bookDetailView struct {
	Book domain.Book
}

type bookFormView struct {
	Editing     bool
	Action      string
	Cancel      string
	Title       string
	Author      string
	Description string
	PublishedAt string
	Errors      map[string]string
	FormError   string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", nil)
}

func (s *Server) handleBooksList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageSize)

	books, pagination, err := s.books.List(tokenFrom(r), page, limit)
	if err != nil {
		s.failRemote(w, r, err, "Failed to fetch books", landingPath)
		return
	}
	view := booksListView{Books: books}
	if pagination.TotalPages > 1 {
		pager := NewPager(pagination)
		view.Pager = &pager
	}
	s.render(w, r, http.StatusOK, "books_list.html", "Books", view)
}

func (s *Server) handleBookDetail(w http.ResponseWriter, r *http.Request) {
	book, err := s.books.Get(tokenFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		if apiclient.IsNotFound(err) {
			s.render(w, r, http.StatusNotFound, "notfound.html", "Not Found", nil)
			return
		}
		s.failRemote(w, r, err, "Failed to fetch book", "/books")
		return
	}
	s.render(w, r, http.StatusOK, "book_detail.html", book.Title, bookDetailView{Book: book})
}

func (s *Server) handleBookCreatePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "book_form.html", "Add Book", bookFormView{
		Action: "/books/create",
		Cancel: "/books",
	})
}

func (s *Server) handleBookCreate(w http.ResponseWriter, r *http.Request) {
	form := parseBookForm(r)
	view := bookFormView{
		Action:      "/books/create",
		Cancel:      "/books",
		Title:       form.Title,
		Author:      form.Author,
		Description: form.Description,
		PublishedAt: form.PublishedAt,
	}
	if errs := fieldErrors(form); len(errs) > 0 {
		view.Errors = errs
		s.render(w, r, http.StatusUnprocessableEntity, "book_form.html", "Add Book", view)
		return
	}
	if _, err := s.books.Create(tokenFrom(r), form.input()); err != nil {
		s.failRemote(w, r, err, "Failed to create book", "/books/create")
		return
	}
	s.setFlash(w, flashSuccess, "Book created successfully")
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func (s *Server) handleBookEditPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	book, err := s.books.Get(tokenFrom(r), id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			s.render(w, r, http.StatusNotFound, "notfound.html", "Not Found", nil)
			return
		}
		s.failRemote(w, r, err, "Failed to fetch book", "/books")
		return
	}
	view := bookFormView{
		Editing:     true,
		Action:      "/books/" + id + "/edit",
		Cancel:      "/books/" + id,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
	}
	if book.PublishedAt != nil {
		view.PublishedAt = book.PublishedAt.Format("2006-01-02")
	}
	s.render(w, r, http.StatusOK, "book_form.html", "Edit Book", view)
}

func (s *Server) handleBookEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form := parseBookForm(r)
	view := bookFormView{
		Editing:     true,
		Action:      "/books/" + id + "/edit",
		Cancel:      "/books/" + id,
		Title:       form.Title,
		Author:      form.Author,
		Description: form.Description,
		PublishedAt: form.PublishedAt,
	}
	if errs := fieldErrors(form); len(errs) > 0 {
		view.Errors = errs
		s.render(w, r, http.StatusUnprocessableEntity, "book_form.html", "Edit Book", view)
		return
	}
	if _, err := s.books.Update(tokenFrom(r), id, form.input()); err != nil {
		s.failRemote(w, r, err, "Failed to update book", "/books/"+id+"/edit")
		return
	}
	s.setFlash(w, flashSuccess, "Book updated successfully")
	http.Redirect(w, r, "/books/"+id, http.StatusSeeOther)
}

func (s *Server) handleBookDeletePage(w http.ResponseWriter, r *http.Request) {
	book, err := s.books.Get(tokenFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		if apiclient.IsNotFound(err) {
			s.render(w, r, http.StatusNotFound, "notfound.html", "Not Found", nil)
			return
		}
		s.failRemote(w, r, err, "Failed to fetch book", "/books")
		return
	}
	s.render(w, r, http.StatusOK, "book_delete.html", "Delete Book", bookDetailView{Book: book})
}

func (s *Server) handleBookDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.books.Delete(tokenFrom(r), id); err != nil {
		s.failRemote(w, r, err, "Failed to delete book", "/books/"+id)
		return
	}
	s.setFlash(w, flashSuccess, "Book deleted successfully")
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
