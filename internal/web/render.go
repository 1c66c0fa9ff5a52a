// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/memberhub/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var publicPages = []string{"page", "events", "search", "chat", "login", "error"}

var adminPages = []string{"admin_dashboard", "admin_members", "login", "error"}

// Renderer holds the parsed page templates. Each page is parsed together
// with its layout so every page can define its own "content" block.
type Renderer struct {
	public map[string]*template.Template
	admin  map[string]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		public: make(map[string]*template.Template, len(publicPages)),
		admin:  make(map[string]*template.Template, len(adminPages)),
	}
	for _, name := range publicPages {
		t, err := parsePage("layout.html", name)
		if err != nil {
			return nil, err
		}
		r.public[name] = t
	}
	for _, name := range adminPages {
		t, err := parsePage("admin_layout.html", name)
		if err != nil {
			return nil, err
		}
		r.admin[name] = t
	}
	return r, nil
}

func parsePage(layout, name string) (*template.Template, error) {
	t, err := template.New(layout).Funcs(funcMap()).ParseFS(templateFS, "templates/"+layout, "templates/"+name+".html")
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return t, nil
}

// StaticHandler serves the embedded CSS and scripts.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (r *Renderer) renderPublic(w http.ResponseWriter, status int, name string, data *PageData) {
	render(w, status, r.public[name], data)
}

func (r *Renderer) renderAdmin(w http.ResponseWriter, status int, name string, data *PageData) {
	render(w, status, r.admin[name], data)
}

func render(w http.ResponseWriter, status int, t *template.Template, data *PageData) {
	var buf bytes.Buffer
	if t == nil {
		http.Error(w, "template missing", http.StatusInternalServerError)
		return
	}
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.Error().Err(err).Str("template", t.Name()).Msg("Failed to execute page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("January 2, 2006 at 3:04 PM")
		},
		"formatDateRange": func(start, end time.Time) string {
			if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
				return fmt.Sprintf("%s, %s - %s", start.Format("January 2, 2006"), start.Format("3:04 PM"), end.Format("3:04 PM"))
			}
			return fmt.Sprintf("%s - %s", start.Format("January 2, 2006 3:04 PM"), end.Format("January 2, 2006 3:04 PM"))
		},
		"year": func() int { return time.Now().Year() },
		"truncate": func(s string, maxLen int) string {
			runes := []rune(s)
			if len(runes) <= maxLen {
				return s
			}
			return strings.TrimSpace(string(runes[:maxLen])) + "..."
		},
		"paragraphs": paragraphs,
		"join":       strings.Join,
	}
}

// paragraphs splits plain text on blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
