package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"bookshelf/internal/session"
	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"books_list.html",
	"book_detail.html",
	"book_form.html",
	"book_delete.html",
	"notfound.html",
}

type templateSet struct {
	pages map[string]*template.Template
}

func parseTemplates() (*templateSet, error) {
	funcs := template.FuncMap{
		"fmtDate": func(ts *time.Time) string {
			if ts == nil {
				return "Not specified"
			}
			return ts.Format("Jan 2, 2006")
		},
	}
	set := &templateSet{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		set.pages[name] = tmpl
	}
	return set, nil
}

// pageData is the envelope every template receives.
type pageData struct {
	Title   string
	Session session.Session
	IsAdmin bool
	Flash   *Flash
	Data    any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	sess := sessionFrom(r)
	pd := pageData{
		Title:   title,
		Session: sess,
		IsAdmin: sess.HasRole(domain.RoleAdmin),
		Flash:   s.popFlash(w, r),
		Data:    data,
	}
	tmpl, ok := s.templates.pages[page]
	if !ok {
		util.LoggerFromContext(r.Context()).Error("unknown template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout.html", pd); err != nil {
		util.LoggerFromContext(r.Context()).Error("render template", "page", page, "err", err)
	}
}
