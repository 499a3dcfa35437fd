package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/desertthunder/peai/internal/catalog"
	"github.com/desertthunder/peai/internal/server"
)

//go:embed templates/*.html
var templateFS embed.FS

// shared by every page set
var baseTemplates = []string{"templates/layout.html", "templates/player.html"}

var funcs = template.FuncMap{
	"date":  func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"clock": func(t time.Time) string { return t.Local().Format("15:04") },
}

// View is the data every page template receives.
type View struct {
	Nonce    string
	Identity *server.Identity
	Course   catalog.Course
	Section  string
	Page     any
}

// templates holds one parsed set per page, each a clone of the layout, plus the player partials.
type templates struct {
	pages    map[string]*template.Template
	partials *template.Template
}

func parseTemplates() (*templates, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, baseTemplates...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	t := &templates{pages: make(map[string]*template.Template)}
	for _, file := range files {
		if isBase(file) {
			continue
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", file, err)
		}
		page, err := clone.ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		t.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}

	t.partials, err = template.New("partials").Funcs(funcs).ParseFS(templateFS, "templates/player.html")
	if err != nil {
		return nil, fmt.Errorf("parse player partials: %w", err)
	}
	return t, nil
}

func isBase(file string) bool {
	for _, b := range baseTemplates {
		if b == file {
			return true
		}
	}
	return false
}

// render writes page name inside the layout with status.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name, section string, page any) {
	tmpl, ok := a.templates.pages[name]
	if !ok {
		a.logger.Error("unknown template", "name", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	identity, _ := server.IdentityFromContext(r.Context())
	view := View{
		Nonce:    server.NonceFromContext(r.Context()),
		Identity: identity,
		Course:   a.catalog.Course(),
		Section:  section,
		Page:     page,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		a.logger.Error("failed to render page", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// partial renders one of the player templates on its own.
func (a *App) partial(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := a.templates.partials.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request, title, message, back string) {
	a.render(w, r, http.StatusNotFound, "notfound", "", errorPage{Title: title, Message: message, BackURL: back})
}

func (a *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	a.render(w, r, http.StatusInternalServerError, "error", "", errorPage{
		Title:   "出错了",
		Message: "服务器暂时无法处理请求，请稍后再试",
		BackURL: "/dashboard",
	})
}

type errorPage struct {
	Title   string
	Message string
	BackURL string
}
