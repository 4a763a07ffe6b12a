// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses the embedded templates once at startup and
// renders pages with flash messages and the signed-in user.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/andreynetrebin/knowledge-base/internal/access"
	"github.com/andreynetrebin/knowledge-base/internal/model"
)

// Renderer holds the parsed template set.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
}

// New parses every page under pages/ together with the base layout and
// all partials.
func New(templatesFS fs.FS, sm *scs.SessionManager) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: sm,
	}

	partials, err := listTemplates(templatesFS, "partials")
	if err != nil {
		return nil, fmt.Errorf("listing partials: %w", err)
	}

	pages, err := listTemplates(templatesFS, "pages")
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")

		files := append([]string{"layouts/base.html"}, partials...)
		files = append(files, page)

		tmpl, err := template.New("").Funcs(funcs()).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	return r, nil
}

func listTemplates(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"statusBadge": access.StatusBadge,
		"truncate": func(s string, n int) string {
			if len(s) <= n {
				return s
			}
			return s[:n] + "..."
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

// Data is the payload every template receives.
type Data struct {
	Title       string
	User        *model.User
	Data        any
	Errors      map[string]string
	Flash       string
	FlashType   string
	CurrentYear int
}

// Render executes the named page inside the base layout. The page is
// buffered first so a template error yields a clean 500 instead of a
// half-written response.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data Data) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	data.CurrentYear = time.Now().Year()
	if r.sessionManager != nil {
		if flash := r.sessionManager.PopString(req.Context(), "flash"); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), "flash_type")
			if data.FlashType == "" {
				data.FlashType = "info"
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing %q: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// SetFlash queues a flash message for the next rendered page.
func (r *Renderer) SetFlash(req *http.Request, message, kind string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), "flash", message)
		r.sessionManager.Put(req.Context(), "flash_type", kind)
	}
}
